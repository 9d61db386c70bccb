// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package profiler captures rotating CPU, heap and mutex profiles of a
// running node.
package profiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/luxfi/log"
	"golang.org/x/sync/errgroup"
)

const (
	cpuFile   = "cpu.profile"
	heapFile  = "mem.profile"
	mutexFile = "lock.profile"

	dirPerms  = 0o750
	filePerms = 0o600
)

var (
	ErrInvalidFrequency = errors.New("profile frequency must be positive")
	ErrInvalidFileCount = errors.New("must keep at least one profile of each kind")

	errMutexProfileMissing = errors.New("mutex profile not found")
)

// Config of a continuous profiler. Profiling is off when Dir is empty.
type Config struct {
	Dir      string        `json:"dir"`
	Freq     time.Duration `json:"freq"`
	MaxFiles int           `json:"maxFiles"`
}

func (c Config) Enabled() bool {
	return c.Dir != ""
}

func (c Config) Verify() error {
	switch {
	case c.Freq <= 0:
		return ErrInvalidFrequency
	case c.MaxFiles < 1:
		return ErrInvalidFileCount
	default:
		return nil
	}
}

// Profiler records one CPU profile per period and, at the end of each
// period, a heap and a mutex profile. Older profiles are kept as name.1,
// name.2 and so on up to MaxFiles.
type Profiler struct {
	log    log.Logger
	config Config

	cpuPath   string
	heapPath  string
	mutexPath string
}

func New(logger log.Logger, config Config) (*Profiler, error) {
	if err := config.Verify(); err != nil {
		return nil, err
	}
	return &Profiler{
		log:       logger,
		config:    config,
		cpuPath:   filepath.Join(config.Dir, cpuFile),
		heapPath:  filepath.Join(config.Dir, heapFile),
		mutexPath: filepath.Join(config.Dir, mutexFile),
	}, nil
}

// Dispatch profiles until ctx is cancelled. The profiles of the period in
// progress are written before it returns.
func (p *Profiler) Dispatch(ctx context.Context) error {
	if err := os.MkdirAll(p.config.Dir, dirPerms); err != nil {
		return err
	}

	ticker := time.NewTicker(p.config.Freq)
	defer ticker.Stop()

	for {
		cpu, err := p.startCPU()
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return p.finish(cpu)
		case <-ticker.C:
		}

		if err := p.finish(cpu); err != nil {
			return err
		}
		if err := p.rotate(); err != nil {
			return err
		}
		p.log.Debug("rotated profiles",
			log.String("dir", p.config.Dir),
		)
	}
}

func (p *Profiler) startCPU() (*os.File, error) {
	file, err := os.OpenFile(p.cpuPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, filePerms)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(file); err != nil {
		_ = file.Close()
		return nil, err
	}
	return file, nil
}

func (p *Profiler) finish(cpu *os.File) error {
	pprof.StopCPUProfile()

	g := errgroup.Group{}
	g.Go(cpu.Close)
	g.Go(p.writeHeap)
	g.Go(p.writeMutex)
	return g.Wait()
}

func (p *Profiler) writeHeap() error {
	file, err := os.OpenFile(p.heapPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, filePerms)
	if err != nil {
		return err
	}
	defer file.Close()

	runtime.GC()
	return pprof.WriteHeapProfile(file)
}

func (p *Profiler) writeMutex() error {
	profile := pprof.Lookup("mutex")
	if profile == nil {
		return errMutexProfileMissing
	}

	file, err := os.OpenFile(p.mutexPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, filePerms)
	if err != nil {
		return err
	}
	defer file.Close()

	return profile.WriteTo(file, 0)
}

func (p *Profiler) rotate() error {
	g := errgroup.Group{}
	for _, path := range []string{p.cpuPath, p.heapPath, p.mutexPath} {
		g.Go(func() error {
			return rotate(path, p.config.MaxFiles)
		})
	}
	return g.Wait()
}

// rotate shifts name.i to name.i+1, dropping anything past maxFiles, then
// moves name to name.1.
func rotate(name string, maxFiles int) error {
	for i := maxFiles - 1; i > 0; i-- {
		src := fmt.Sprintf("%s.%d", name, i)
		dst := fmt.Sprintf("%s.%d", name, i+1)
		if err := renameIfExists(src, dst); err != nil {
			return err
		}
	}
	return renameIfExists(name, name+".1")
}

func renameIfExists(src, dst string) error {
	err := os.Rename(src, dst)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
