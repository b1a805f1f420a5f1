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

// Package metrics exposes Prometheus instruments for the secretary service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesProcessed counts pipeline results by outcome
	// (drafted, blocked, flagged, failed).
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secretary_messages_processed_total",
			Help: "Messages run through the draft pipeline, by outcome",
		},
		[]string{"outcome"},
	)

	// ModelCallDuration tracks language model latency per pipeline stage.
	ModelCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "secretary_model_call_duration_seconds",
			Help:    "Language model call latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
		},
		[]string{"stage", "status"},
	)

	RepliesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secretary_replies_sent_total",
			Help: "Approved replies handed to the mailbox provider, by status",
		},
		[]string{"status"},
	)

	PollCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secretary_poll_cycles_total",
			Help: "Completed poll cycles, by status",
		},
		[]string{"status"},
	)

	PollCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "secretary_poll_cycle_duration_seconds",
			Help:    "Wall time of one poll cycle across all users",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~8.5m
		},
	)

	// DBQueryDuration tracks Postgres statement latency.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "secretary_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"status"},
	)

	SlowQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "secretary_db_slow_queries_total",
			Help: "Database queries slower than the configured threshold",
		},
	)
)

// RecordMessage counts one pipeline outcome.
func RecordMessage(outcome string) {
	MessagesProcessed.WithLabelValues(outcome).Inc()
}

// RecordModelCall observes one model call.
func RecordModelCall(stage, status string, duration time.Duration) {
	ModelCallDuration.WithLabelValues(stage, status).Observe(duration.Seconds())
}

// RecordReply counts one send attempt.
func RecordReply(status string) {
	RepliesSent.WithLabelValues(status).Inc()
}

// RecordPollCycle counts a cycle and observes its duration.
func RecordPollCycle(status string, duration time.Duration) {
	PollCycles.WithLabelValues(status).Inc()
	PollCycleDuration.Observe(duration.Seconds())
}

// RecordDBQuery observes one statement; slow marks it as over threshold.
func RecordDBQuery(status string, duration time.Duration, slow bool) {
	DBQueryDuration.WithLabelValues(status).Observe(duration.Seconds())
	if slow {
		SlowQueries.Inc()
	}
}

// Status maps an error to a metric label.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
