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

// Package audit records privacy-relevant pipeline events. Events carry ids,
// categories and short summaries only, never message or draft bodies.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/secretary/internal/redact"
)

// Action names a recorded event.
type Action string

const (
	ActionEmailFetched Action = "EMAIL_FETCHED"
	ActionClassified   Action = "CLASSIFIED"
	ActionPrivacyBlock Action = "PRIVACY_BLOCK"
	ActionSafetyFlag   Action = "SAFETY_FLAG"
	ActionDraftQueued  Action = "DRAFT_QUEUED"
	ActionReplySent    Action = "REPLY_SENT"
	ActionSendFailed   Action = "SEND_FAILED"
)

// Event is a single audit record.
type Event struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	UserID    string    `json:"user_id,omitempty"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives audit events for durable storage.
type Sink interface {
	PublishAuditEvent(ctx context.Context, event Event) error
}

type userKey struct{}

// WithUser returns a context whose audit events are attributed to userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFrom returns the user attached by WithUser, if any.
func UserFrom(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

// Logger writes audit events to the structured log and an optional sink.
type Logger struct {
	sink Sink
	now  func() time.Time
}

// NewLogger creates an audit logger. sink may be nil.
func NewLogger(sink Sink) *Logger {
	return &Logger{sink: sink, now: time.Now}
}

// LogAction records an action. Sink failures are logged and otherwise
// ignored so that auditing never aborts message processing.
func (l *Logger) LogAction(ctx context.Context, action Action, details string) {
	event := Event{
		ID:        uuid.New().String(),
		Action:    action,
		UserID:    UserFrom(ctx),
		Details:   redact.Sanitize(details),
		Timestamp: l.now().UTC(),
	}

	slog.Info("audit",
		"event_id", event.ID,
		"action", string(event.Action),
		"user", event.UserID,
		"details", event.Details,
	)

	if l.sink == nil {
		return
	}
	if err := l.sink.PublishAuditEvent(ctx, event); err != nil {
		slog.Warn("audit sink publish failed",
			"event_id", event.ID,
			"action", string(event.Action),
			"error", err,
		)
	}
}
