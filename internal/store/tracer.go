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
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clinicdesk/secretary/internal/metrics"
)

// DefaultSlowQuery is the threshold above which a statement is logged.
const DefaultSlowQuery = 200 * time.Millisecond

// QueryTracer records statement latency and logs slow statements.
type QueryTracer struct {
	slowThreshold time.Duration
}

// NewQueryTracer creates a tracer. A non-positive threshold uses DefaultSlowQuery.
func NewQueryTracer(slowThreshold time.Duration) *QueryTracer {
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowQuery
	}
	return &QueryTracer{slowThreshold: slowThreshold}
}

type queryStartKey struct{}

type queryStart struct {
	at  time.Time
	sql string
}

// TraceQueryStart implements pgx.QueryTracer.
func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{at: time.Now(), sql: data.SQL})
}

// TraceQueryEnd implements pgx.QueryTracer.
func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	took := time.Since(start.at)
	slow := took > t.slowThreshold
	metrics.RecordDBQuery(metrics.Status(data.Err), took, slow)

	if slow {
		slog.Warn("slow query",
			"sql", truncateSQL(start.sql),
			"took", took,
			"command_tag", data.CommandTag.String(),
		)
	}
}

func truncateSQL(sql string) string {
	if len(sql) > 200 {
		return sql[:200] + "..."
	}
	return sql
}
