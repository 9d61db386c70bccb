// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2"
	"github.com/luxfi/metric"
)

const methodLabel = "method"

// Interceptor observes every JSON-RPC request.
type Interceptor interface {
	InterceptRequest(i *rpc.RequestInfo) *http.Request
	AfterRequest(i *rpc.RequestInfo)
}

type contextKey int

const requestTimestampKey contextKey = iota

type apiInterceptor struct {
	requests        metric.CounterVec
	requestDuration metric.GaugeVec
	requestErrors   metric.CounterVec
}

// NewInterceptor counts requests, errors and time spent per method.
func NewInterceptor(registerer metric.Registerer) (Interceptor, error) {
	i := &apiInterceptor{
		requests: metric.NewCounterVec(
			metric.CounterOpts{
				Name: "api_requests",
				Help: "Number of times this method was called",
			},
			[]string{methodLabel},
		),
		requestDuration: metric.NewGaugeVec(
			metric.GaugeOpts{
				Name: "api_request_duration_sum",
				Help: "Nanoseconds spent handling this method",
			},
			[]string{methodLabel},
		),
		requestErrors: metric.NewCounterVec(
			metric.CounterOpts{
				Name: "api_request_errors",
				Help: "Number of calls to this method that failed",
			},
			[]string{methodLabel},
		),
	}
	err := errors.Join(
		registerer.Register(metric.AsCollector(i.requests)),
		registerer.Register(metric.AsCollector(i.requestDuration)),
		registerer.Register(metric.AsCollector(i.requestErrors)),
	)
	return i, err
}

func (*apiInterceptor) InterceptRequest(i *rpc.RequestInfo) *http.Request {
	ctx := context.WithValue(i.Request.Context(), requestTimestampKey, time.Now())
	return i.Request.WithContext(ctx)
}

func (a *apiInterceptor) AfterRequest(i *rpc.RequestInfo) {
	timestamp, ok := i.Request.Context().Value(requestTimestampKey).(time.Time)
	if !ok {
		return
	}

	labels := metric.Labels{methodLabel: i.Method}
	a.requests.With(labels).Inc()
	a.requestDuration.With(labels).Add(float64(time.Since(timestamp)))
	if i.Error != nil {
		a.requestErrors.With(labels).Inc()
	}
}
