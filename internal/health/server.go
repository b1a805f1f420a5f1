// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package health serves the liveness and metrics endpoints.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Check is a named dependency probe.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Handler returns the mux serving /health and /metrics.
func Handler(checks []Check) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		for _, c := range checks {
			if err := c.Ping(r.Context()); err != nil {
				slog.Warn("health check failed", "check", c.Name, "error", err)
				http.Error(w, c.Name+" unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Serve starts the health server on port. The port is bound before Serve
// returns; the server stops when ctx is cancelled.
func Serve(ctx context.Context, port int, checks []Check) (<-chan struct{}, error) {
	server := &http.Server{
		Handler:      Handler(checks),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("bind health port %d: %w", port, err)
	}

	ready := make(chan struct{})

	go func() {
		<-ctx.Done()
		slog.Info("health server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("health server shutdown error", "error", err)
		}
	}()

	go func() {
		slog.Info("health server listening", "port", port)
		close(ready)
		if err := server.Serve(ln); err != http.ErrServerClosed {
			slog.Error("health server error", "error", err)
		}
	}()

	return ready, nil
}
