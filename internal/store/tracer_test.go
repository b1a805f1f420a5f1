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

package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/clinicdesk/secretary/internal/metrics"
)

// TestQueryTracer_CountsSlowQueries verifies that only queries over the
// threshold increment the slow counter.
func TestQueryTracer_CountsSlowQueries(t *testing.T) {
	tr := NewQueryTracer(time.Hour)
	before := testutil.ToFloat64(metrics.SlowQueries)

	ctx := tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	tr.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})
	if got := testutil.ToFloat64(metrics.SlowQueries) - before; got != 0 {
		t.Errorf("fast query counted as slow: delta %v", got)
	}

	tr = NewQueryTracer(time.Nanosecond)
	ctx = tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT pg_sleep(0)"})
	time.Sleep(time.Millisecond)
	tr.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})
	if got := testutil.ToFloat64(metrics.SlowQueries) - before; got != 1 {
		t.Errorf("slow query delta = %v, want 1", got)
	}
}

// TestQueryTracer_MissingStart verifies an end without a start is ignored.
func TestQueryTracer_MissingStart(t *testing.T) {
	NewQueryTracer(0).TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
}

// TestTruncateSQL verifies long statements are shortened for logging.
func TestTruncateSQL(t *testing.T) {
	long := strings.Repeat("x", 300)
	if got := truncateSQL(long); len(got) != 203 {
		t.Errorf("len = %d, want 203", len(got))
	}
	if got := truncateSQL("SELECT 1"); got != "SELECT 1" {
		t.Errorf("short SQL changed: %q", got)
	}
}
