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

// Package queue publishes audit events to a Redis list so that the approval
// dashboard and compliance tooling can consume them.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinicdesk/secretary/internal/audit"
)

// DefaultMaxLen caps the audit list so an absent consumer cannot grow it forever.
const DefaultMaxLen = 100000

// Publisher pushes audit events onto a Redis list.
type Publisher struct {
	rdb       *redis.Client
	queueName string
	maxLen    int64
}

// NewPublisher creates a Redis publisher targeting the specified list.
func NewPublisher(rdb *redis.Client, queueName string) *Publisher {
	return &Publisher{
		rdb:       rdb,
		queueName: queueName,
		maxLen:    DefaultMaxLen,
	}
}

// envelope is the JSON wire shape of one audit entry.
type envelope struct {
	Type    string      `json:"type"`
	Version int         `json:"version"`
	Event   audit.Event `json:"event"`
}

// PublishAuditEvent serialises an audit event and LPUSHes it, trimming the
// list to the newest maxLen entries in the same round trip.
func (p *Publisher) PublishAuditEvent(ctx context.Context, event audit.Event) error {
	msg, err := json.Marshal(envelope{Type: "audit", Version: 1, Event: event})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	pipe := p.rdb.TxPipeline()
	pipe.LPush(ctx, p.queueName, msg)
	pipe.LTrim(ctx, p.queueName, 0, p.maxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis LPUSH: %w", err)
	}

	slog.Debug("published audit event",
		"event_id", event.ID,
		"action", string(event.Action),
		"queue", p.queueName,
	)
	return nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
