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

package health

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func ok(context.Context) error { return nil }

// TestHealth verifies the status code for passing and failing checks.
func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		checks   []Check
		wantCode int
		wantBody string
	}{
		{
			name:     "all healthy",
			checks:   []Check{{Name: "postgres", Ping: ok}, {Name: "redis", Ping: ok}},
			wantCode: http.StatusOK,
			wantBody: "healthy",
		},
		{
			name: "redis down",
			checks: []Check{
				{Name: "postgres", Ping: ok},
				{Name: "redis", Ping: func(context.Context) error { return errors.New("dial tcp: refused") }},
			},
			wantCode: http.StatusServiceUnavailable,
			wantBody: "redis unhealthy",
		},
		{
			name:     "no checks",
			wantCode: http.StatusOK,
			wantBody: "healthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Handler(tt.checks).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

// TestMetricsEndpoint verifies the Prometheus handler is mounted.
func TestMetricsEndpoint(t *testing.T) {
	srv := httptest.NewServer(Handler(nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("metrics output missing default Go collector")
	}
}
