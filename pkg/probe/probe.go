// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package probe

import (
	"context"
	"fmt"
	"net/http"

	"github.com/iotexproject/go-pkgs/util/httputil"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/iotexproject/iotex-subnet/pkg/log"
)

// Server is a http server for service probe and metrics.
type Server struct {
	ready  *atomic.Bool
	check  func(context.Context) error
	server http.Server
}

// New creates a new probe server listening on port.
func New(port int, opts ...Option) *Server {
	s := &Server{
		ready: atomic.NewBool(false),
		check: func(context.Context) error { return nil },
	}
	for _, opt := range opts {
		opt.SetOption(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/liveness", successHandleFunc)
	mux.HandleFunc("/readiness", s.readiness)
	mux.HandleFunc("/health", s.readiness)
	mux.Handle("/metrics", promhttp.Handler())

	s.server = httputil.Server(fmt.Sprintf(":%d", port), mux)
	return s
}

func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		failureHandleFunc(w, r)
		return
	}
	if err := s.check(r.Context()); err != nil {
		log.L().Debug("Readiness check failed.", zap.Error(err))
		failureHandleFunc(w, r)
		return
	}
	successHandleFunc(w, r)
}

// Start starts the probe server and starts returning success status on liveness endpoint.
func (s *Server) Start(_ context.Context) error {
	ln, err := httputil.LimitListener(s.server.Addr)
	if err != nil {
		return err
	}
	go func() {
		if err := s.server.Serve(ln); err != nil {
			log.L().Info("Probe server stopped.", zap.Error(err))
		}
	}()
	return nil
}

// Ready makes the probe server start returning the readiness check on readiness and health endpoints.
func (s *Server) Ready() { s.ready.Store(true) }

// NotReady makes the probe server start returning failure status on readiness and health endpoints.
func (s *Server) NotReady() { s.ready.Store(false) }

// Stop shutdown the probe server.
func (s *Server) Stop(ctx context.Context) error { return s.server.Shutdown(ctx) }

func successHandleFunc(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		log.L().Warn("Failed to send http response.", zap.Error(err))
	}
}

func failureHandleFunc(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusServiceUnavailable)
	if _, err := w.Write([]byte("FAIL")); err != nil {
		log.L().Warn("Failed to send http response.", zap.Error(err))
	}
}
