// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package govvm wires the confidential governance engine, its encryption
// backend and its JSON-RPC API into a single virtual machine.
package govvm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/govvm/api"
	"github.com/luxfi/govvm/config"
	"github.com/luxfi/govvm/fhe"
	"github.com/luxfi/govvm/governance"
	"github.com/luxfi/govvm/metrics"
	"github.com/luxfi/govvm/utils/timer/mockable"
)

const Name = "govvm"

var Version = "v1.0.0"

var (
	governancePrefix = []byte("governance")
	fhePrefix        = []byte("fhe")
	authPrefix       = []byte("auth")

	errNotInitialized     = errors.New("vm not initialized")
	errAlreadyInitialized = errors.New("vm already initialized")
	errStopped            = errors.New("vm stopped")
	errInvalidTransition  = errors.New("invalid state transition")
)

// Config defines VM configuration
type Config struct {
	ChainID   ids.ID
	NetworkID uint32
	NodeID    ids.NodeID

	DB database.Database
	// ConfigBytes is the JSON encoded [config.Config].
	ConfigBytes []byte
	// Registerer defaults to a private registry.
	Registerer metric.Registerer
	// Clock defaults to the wall clock.
	Clock *mockable.Clock
}

// VM is a governance virtual machine.
type VM struct {
	log log.Logger

	lock    sync.RWMutex
	state   State
	config  config.Config
	db      database.Database
	clock   *mockable.Clock
	backend fhe.Backend
	engine  *governance.Engine
	auth    *api.Authenticator

	interceptor api.Interceptor
}

func New(logger log.Logger) *VM {
	return &VM{log: logger}
}

// Initialize initializes the VM with the given configuration
func (vm *VM) Initialize(_ context.Context, vmConfig *Config) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.state != Unknown {
		return errAlreadyInitialized
	}

	cfg, err := config.ParseConfig(vmConfig.ConfigBytes)
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	govConfig, err := cfg.Governance()
	if err != nil {
		return err
	}

	clock := vmConfig.Clock
	if clock == nil {
		clock = &mockable.Clock{}
	}
	registerer := vmConfig.Registerer
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}

	backend, err := newBackend(vm.log, cfg.FHE, prefixdb.New(fhePrefix, vmConfig.DB), clock)
	if err != nil {
		return fmt.Errorf("failed to create %s backend: %w", cfg.FHE.Backend, err)
	}
	engineMetrics, err := metrics.New(registerer)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	engine, err := governance.New(
		vm.log,
		prefixdb.New(governancePrefix, vmConfig.DB),
		backend,
		clock,
		engineMetrics,
		govConfig,
	)
	if err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	interceptor, err := api.NewInterceptor(registerer)
	if err != nil {
		return fmt.Errorf("failed to register api metrics: %w", err)
	}

	vm.config = cfg
	vm.db = vmConfig.DB
	vm.clock = clock
	vm.backend = backend
	vm.engine = engine
	vm.auth = api.NewAuthenticator(vmConfig.ChainID, prefixdb.New(authPrefix, vmConfig.DB))
	vm.interceptor = interceptor
	vm.state = Bootstrapping

	vm.log.Info("initialized govvm",
		log.Stringer("chainID", vmConfig.ChainID),
		log.Uint32("networkID", vmConfig.NetworkID),
		log.String("backend", cfg.FHE.Backend),
		log.String("version", Version),
	)
	return nil
}

func newBackend(logger log.Logger, cfg config.FHEConfig, db database.Database, clock fhe.Clock) (fhe.Backend, error) {
	switch cfg.Backend {
	case config.BackendCKKS:
		return fhe.NewProcessor(logger, cfg.CKKS, db, clock)
	default:
		return fhe.NewCoprocessor(logger, db, clock)
	}
}

// SetState transitions the VM to the specified state
func (vm *VM) SetState(_ context.Context, state State) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	switch {
	case vm.state == Unknown:
		return errNotInitialized
	case vm.state == Stopped:
		return errStopped
	case state != Bootstrapping && state != NormalOp:
		return fmt.Errorf("%w: %s to %s", errInvalidTransition, vm.state, state)
	}
	vm.log.Info("vm state changed",
		log.Stringer("from", vm.state),
		log.Stringer("to", state),
	)
	vm.state = state
	return nil
}

func (vm *VM) State() State {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	return vm.state
}

// Shutdown cleanly stops the VM
func (vm *VM) Shutdown(context.Context) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.state == Unknown || vm.state == Stopped {
		return nil
	}
	vm.state = Stopped
	return vm.db.Close()
}

// Version returns the VM version
func (*VM) Version(context.Context) (string, error) {
	return Version, nil
}

// Engine returns the governance engine, or nil before Initialize.
func (vm *VM) Engine() *governance.Engine {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	return vm.engine
}

// CreateHandlers returns the JSON-RPC handlers keyed by endpoint. They
// reject requests unless the VM is in NormalOp.
func (vm *VM) CreateHandlers(context.Context) (map[string]http.Handler, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if vm.state == Unknown {
		return nil, errNotInitialized
	}
	handlers, err := api.NewHandlers(api.Config{
		Log:         vm.log,
		Engine:      vm.engine,
		Backend:     vm.backend,
		Auth:        vm.auth,
		Interceptor: vm.interceptor,
	})
	if err != nil {
		return nil, err
	}
	for endpoint, handler := range handlers {
		handlers[endpoint] = vm.rejectMiddleware(handler)
	}
	return handlers, nil
}

func (vm *VM) rejectMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if state := vm.State(); state != NormalOp {
			http.Error(w, "API call rejected because chain is in "+state.String(), http.StatusServiceUnavailable)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

// HealthCheck reports the VM state and the engine status.
func (vm *VM) HealthCheck(context.Context) (interface{}, error) {
	state := vm.State()
	if state != NormalOp {
		return map[string]string{"state": state.String()}, fmt.Errorf("vm is %s", state)
	}
	status, err := vm.engine.Status()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"state":  state.String(),
		"status": status,
	}, nil
}
