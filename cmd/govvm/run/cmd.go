// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/luxfi/database"
	"github.com/luxfi/database/badgerdb"
	"github.com/luxfi/database/corruptabledb"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/govvm"
	"github.com/luxfi/govvm/utils/profiler"
)

const (
	baseURL           = "/ext"
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "run",
		Short: "Runs a govvm node",
		RunE:  runFunc,
	}
	AddFlags(c.Flags())
	return c
}

func runFunc(c *cobra.Command, args []string) error {
	flags, err := ParseFlags(c.Flags(), args)
	if err != nil {
		return err
	}
	cfg := flags.Config
	configBytes, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	logger := log.NewLogger(govvm.Name)

	registry := prometheus.NewRegistry()
	if err := errors.Join(
		registry.Register(collectors.NewGoCollector()),
		registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})),
	); err != nil {
		return err
	}

	var prof *profiler.Profiler
	if flags.Profile.Enabled() {
		prof, err = profiler.New(logger, flags.Profile)
		if err != nil {
			return err
		}
	}

	db, err := openDB(logger, cfg.DataDir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vm := govvm.New(logger)
	if err := vm.Initialize(ctx, &govvm.Config{
		DB:          db,
		ConfigBytes: configBytes,
		Registerer:  registry,
	}); err != nil {
		return errors.Join(err, db.Close())
	}
	if err := vm.SetState(ctx, govvm.NormalOp); err != nil {
		return errors.Join(err, vm.Shutdown(ctx))
	}

	handlers, err := vm.CreateHandlers(ctx)
	if err != nil {
		return errors.Join(err, vm.Shutdown(ctx))
	}
	router := mux.NewRouter()
	for endpoint, handler := range handlers {
		router.Handle(baseURL+endpoint, handler)
	}
	router.Handle(baseURL+"/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	router.HandleFunc(baseURL+"/health", healthHandler(vm))

	server := &http.Server{
		Addr: net.JoinHostPort(cfg.HTTPHost, strconv.Itoa(int(cfg.HTTPPort))),
		Handler: cors.New(cors.Options{
			AllowedOrigins:   flags.AllowedOrigins,
			AllowCredentials: true,
		}).Handler(router),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving API",
			log.String("address", server.Addr),
			log.String("dataDir", cfg.DataDir),
		)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if prof != nil {
		g.Go(func() error {
			return prof.Dispatch(ctx)
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(
			server.Shutdown(shutdownCtx),
			vm.Shutdown(shutdownCtx),
		)
	})
	return g.Wait()
}

func openDB(logger log.Logger, dataDir string) (database.Database, error) {
	if dataDir == "" {
		logger.Warn("no data directory set, state will not survive a restart")
		return memdb.New(), nil
	}
	db, err := badgerdb.New(
		dataDir,
		nil, // configBytes - use default
		"",  // namespace
		nil, // metrics
	)
	if err != nil {
		return nil, err
	}
	return corruptabledb.New(db, logger), nil
}

func healthHandler(vm *govvm.VM) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health, err := vm.HealthCheck(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			health = map[string]string{"error": err.Error()}
		}
		_ = json.NewEncoder(w).Encode(health)
	}
}
