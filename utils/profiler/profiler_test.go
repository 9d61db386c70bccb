// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package profiler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
)

func TestConfigVerify(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		err    error
	}{
		{
			name:   "valid",
			config: Config{Dir: "x", Freq: time.Minute, MaxFiles: 1},
		},
		{
			name:   "zero frequency",
			config: Config{Dir: "x", MaxFiles: 1},
			err:    ErrInvalidFrequency,
		},
		{
			name:   "no files",
			config: Config{Dir: "x", Freq: time.Minute},
			err:    ErrInvalidFileCount,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.ErrorIs(t, test.config.Verify(), test.err)
		})
	}
	require.False(t, Config{}.Enabled())
}

func TestRotate(t *testing.T) {
	require := require.New(t)

	name := filepath.Join(t.TempDir(), "cpu.profile")
	for i := 0; i < 3; i++ {
		require.NoError(os.WriteFile(name, []byte{byte(i)}, filePerms))
		require.NoError(rotate(name, 2))
	}

	_, err := os.Stat(name)
	require.ErrorIs(err, os.ErrNotExist)

	newest, err := os.ReadFile(name + ".1")
	require.NoError(err)
	require.Equal([]byte{2}, newest)

	oldest, err := os.ReadFile(name + ".2")
	require.NoError(err)
	require.Equal([]byte{1}, oldest)

	_, err = os.Stat(name + ".3")
	require.ErrorIs(err, os.ErrNotExist)
}

func TestDispatchWritesProfilesOnShutdown(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	p, err := New(log.NewNoOpLogger(), Config{
		Dir:      dir,
		Freq:     time.Hour,
		MaxFiles: 1,
	})
	require.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Dispatch(ctx)
	}()
	cancel()
	require.NoError(<-done)

	for _, file := range []string{cpuFile, heapFile, mutexFile} {
		_, err := os.Stat(filepath.Join(dir, file))
		require.NoError(err, file)
	}
}
