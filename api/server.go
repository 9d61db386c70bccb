// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api serves the governance engine and the encryption gateway over
// JSON-RPC 2.0.
package api

import (
	"net/http"

	"github.com/gorilla/rpc/v2"
	"github.com/luxfi/log"
	"github.com/luxfi/utils/json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/luxfi/govvm/governance"
)

const tracerName = "github.com/luxfi/govvm/api"

type Config struct {
	Log         log.Logger
	Engine      *governance.Engine
	Backend     Backend
	Auth        *Authenticator
	Interceptor Interceptor
	// Tracer defaults to the global tracer provider.
	Tracer trace.Tracer
}

// NewHandlers returns the "/gov" and "/fhe" JSON-RPC handlers.
func NewHandlers(config Config) (map[string]http.Handler, error) {
	tracer := config.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	gov, err := newServer(config.Interceptor, &GovService{
		log:    config.Log,
		tracer: tracer,
		engine: config.Engine,
		auth:   config.Auth,
	}, "gov")
	if err != nil {
		return nil, err
	}
	fheServer, err := newServer(config.Interceptor, &FHEService{
		log:     config.Log,
		tracer:  tracer,
		backend: config.Backend,
		auth:    config.Auth,
	}, "fhe")
	if err != nil {
		return nil, err
	}
	return map[string]http.Handler{
		"/gov": gov,
		"/fhe": fheServer,
	}, nil
}

func newServer(interceptor Interceptor, service interface{}, name string) (*rpc.Server, error) {
	server := rpc.NewServer()
	codec := json.NewCodec()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	if interceptor != nil {
		server.RegisterInterceptFunc(interceptor.InterceptRequest)
		server.RegisterAfterFunc(interceptor.AfterRequest)
	}
	return server, server.RegisterService(service, name)
}

// finish ends span and converts err to its JSON-RPC form.
func finish(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	return toRPCError(err)
}
