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

package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestSummary verifies the query and the rendered summary for timed and
// all-day events.
func TestSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/calendars/primary/events" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("timeMin") != "2026-05-04T09:00:00Z" || q.Get("singleEvents") != "true" || q.Get("orderBy") != "startTime" {
			t.Errorf("unexpected query %v", q)
		}
		w.Write([]byte(`{"items":[
			{"summary":"Session with A. Patient","start":{"dateTime":"2026-05-04T10:00:00Z"}},
			{"start":{"date":"2026-05-05"}}
		]}`))
	}))
	defer server.Close()

	c := NewClient(server.Client(), server.URL)
	c.now = func() time.Time { return time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC) }

	got, err := c.Summary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Upcoming Availability Conflicts:\n- Busy at 2026-05-04T10:00:00Z\n- Busy at 2026-05-05\n"
	if got != want {
		t.Errorf("Summary = %q, want %q", got, want)
	}
}

// TestSummary_Empty verifies the no-events text.
func TestSummary_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	got, err := NewClient(server.Client(), server.URL).Summary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != NoEvents {
		t.Errorf("Summary = %q, want %q", got, NoEvents)
	}
}

// TestSummary_HTTPError verifies API failures are returned.
func TestSummary_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	if _, err := NewClient(server.Client(), server.URL).Summary(context.Background()); err == nil {
		t.Fatal("expected error for HTTP 403")
	}
}

// TestStatic verifies the fixed summary.
func TestStatic(t *testing.T) {
	got, _ := Static("Unknown").Summary(context.Background())
	if got != "Unknown" {
		t.Errorf("Summary = %q, want Unknown", got)
	}
}
