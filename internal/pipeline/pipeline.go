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

// Package pipeline turns unread messages into pending reply drafts. Each
// message is classified, drafted, screened by the forbidden-phrase gate and
// the safety reviewer, stored for human approval and only then marked read,
// which gives at-least-once processing per message.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clinicdesk/secretary/internal/assistant"
	"github.com/clinicdesk/secretary/internal/audit"
	"github.com/clinicdesk/secretary/internal/metrics"
	"github.com/clinicdesk/secretary/internal/models"
	"github.com/clinicdesk/secretary/internal/redact"
)

// DefaultCallTimeout bounds each external call made while processing a message.
const DefaultCallTimeout = 60 * time.Second

type Classifier interface {
	Classify(ctx context.Context, text string) (models.Category, error)
}

type Drafter interface {
	Draft(ctx context.Context, in assistant.DraftInput) (string, error)
}

type Reviewer interface {
	Review(ctx context.Context, draft string) (models.SafetyVerdict, error)
}

// Gate reports whether a draft is free of forbidden phrases, auditing failures.
type Gate interface {
	Passes(ctx context.Context, draft string) bool
}

type Auditor interface {
	LogAction(ctx context.Context, action audit.Action, details string)
}

// DraftStore persists pending drafts. inserted is false when a draft for the
// same message already exists.
type DraftStore interface {
	SavePending(ctx context.Context, userID string, d models.PendingDraft) (inserted bool, err error)
}

// Mailbox is the read side of a mailbox provider.
type Mailbox interface {
	FetchUnread(ctx context.Context) ([]models.InboundMessage, error)
	MarkRead(ctx context.Context, id string) error
}

// Calendar summarises upcoming availability.
type Calendar interface {
	Summary(ctx context.Context) (string, error)
}

// Inbox is one user's mailbox and calendar.
type Inbox struct {
	UserID   string
	Mailbox  Mailbox
	Calendar Calendar // optional
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Classifier  Classifier
	Drafter     Drafter
	Reviewer    Reviewer
	Gate        Gate
	Store       DraftStore
	Auditor     Auditor
	CallTimeout time.Duration
}

// Orchestrator runs the draft pipeline. It holds no per-message state.
type Orchestrator struct {
	classifier  Classifier
	drafter     Drafter
	reviewer    Reviewer
	gate        Gate
	store       DraftStore
	auditor     Auditor
	callTimeout time.Duration
}

// New creates an orchestrator from cfg.
func New(cfg Config) *Orchestrator {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Orchestrator{
		classifier:  cfg.Classifier,
		drafter:     cfg.Drafter,
		reviewer:    cfg.Reviewer,
		gate:        cfg.Gate,
		store:       cfg.Store,
		auditor:     cfg.Auditor,
		callTimeout: timeout,
	}
}

// Summary counts the results of one ProcessInbox run.
type Summary struct {
	Fetched int
	Drafted int
	Blocked int
	Flagged int
	Failed  int
}

// ProcessInbox fetches unread messages and runs each through ProcessMessage
// in order. A failing message is logged and skipped; only a failure to fetch
// is returned.
func (o *Orchestrator) ProcessInbox(ctx context.Context, inbox Inbox) (Summary, error) {
	var sum Summary

	fetchCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	messages, err := inbox.Mailbox.FetchUnread(fetchCtx)
	cancel()
	if err != nil {
		return sum, fmt.Errorf("fetch unread: %w", err)
	}
	sum.Fetched = len(messages)

	if len(messages) == 0 {
		slog.Debug("no unread messages", "user", inbox.UserID)
		return sum, nil
	}
	slog.Info("processing unread messages", "user", inbox.UserID, "count", len(messages))

	for _, msg := range messages {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}

		outcome, err := o.ProcessMessage(ctx, inbox, msg)
		if err != nil {
			sum.Failed++
			metrics.RecordMessage("failed")
			slog.Error("failed to process message",
				"user", inbox.UserID,
				"message_id", msg.ID,
				"error", err,
			)
			continue
		}

		switch outcome.State {
		case StateBlocked:
			sum.Blocked++
		case StateFlagged:
			sum.Flagged++
		default:
			sum.Drafted++
		}
	}

	slog.Info("inbox processed",
		"user", inbox.UserID,
		"fetched", sum.Fetched,
		"drafted", sum.Drafted,
		"blocked", sum.Blocked,
		"flagged", sum.Flagged,
		"failed", sum.Failed,
	)
	return sum, nil
}

// ProcessMessage runs one message through the pipeline. On error nothing
// after the failing step happens; in particular the message is not marked
// read unless its draft was stored.
func (o *Orchestrator) ProcessMessage(ctx context.Context, inbox Inbox, msg models.InboundMessage) (Outcome, error) {
	ctx = audit.WithUser(ctx, inbox.UserID)
	o.auditor.LogAction(ctx, audit.ActionEmailFetched, "ID: "+msg.ID)

	text := redact.Sanitize(msg.Text())

	var category models.Category
	err := o.call(ctx, func(ctx context.Context) error {
		var err error
		category, err = o.classifier.Classify(ctx, text)
		return err
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("classify %s: %w", msg.ID, err)
	}
	if !category.Known() {
		slog.Warn("classifier returned unknown category", "message_id", msg.ID, "category", string(category))
	}
	o.auditor.LogAction(ctx, audit.ActionClassified, "Category: "+string(category))

	calendarInfo := o.calendarSummary(ctx, inbox, msg.ID)

	var draft string
	err = o.call(ctx, func(ctx context.Context) error {
		var err error
		draft, err = o.drafter.Draft(ctx, assistant.DraftInput{
			SenderName:   msg.Sender,
			EmailBody:    text,
			CalendarInfo: calendarInfo,
		})
		return err
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("draft %s: %w", msg.ID, err)
	}

	outcome := Outcome{State: StateDrafted, Category: category, Draft: draft}

	if !o.gate.Passes(ctx, draft) {
		outcome = outcome.block()
	} else {
		var verdict models.SafetyVerdict
		err = o.call(ctx, func(ctx context.Context) error {
			var err error
			verdict, err = o.reviewer.Review(ctx, draft)
			return err
		})
		if err != nil {
			return Outcome{}, fmt.Errorf("review %s: %w", msg.ID, err)
		}
		if verdict.Status == models.VerdictUnsafe {
			outcome = outcome.flag(verdict)
			o.auditor.LogAction(ctx, audit.ActionSafetyFlag, "Reasons: "+strings.Join(verdict.Reasons, "; "))
		}
	}

	var inserted bool
	err = o.call(ctx, func(ctx context.Context) error {
		var err error
		inserted, err = o.store.SavePending(ctx, inbox.UserID, models.PendingDraft{
			EmailID:    msg.ID,
			ThreadID:   msg.ThreadID,
			MessageID:  msg.MessageID,
			Sender:     msg.Sender,
			Subject:    msg.Subject,
			Body:       text,
			DraftReply: outcome.FinalText(),
			Category:   category,
		})
		return err
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("persist draft %s: %w", msg.ID, err)
	}
	if !inserted {
		slog.Info("draft already stored for message", "user", inbox.UserID, "message_id", msg.ID)
	}
	o.auditor.LogAction(ctx, audit.ActionDraftQueued, fmt.Sprintf("ID: %s | State: %s", msg.ID, outcome.State))

	err = o.call(ctx, func(ctx context.Context) error {
		return inbox.Mailbox.MarkRead(ctx, msg.ID)
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("mark read %s: %w", msg.ID, err)
	}

	metrics.RecordMessage(outcome.State.String())
	slog.Info("message processed",
		"user", inbox.UserID,
		"message_id", msg.ID,
		"category", string(category),
		"state", outcome.State.String(),
	)
	return outcome, nil
}

// calendarSummary returns the user's availability, or Unknown when the
// calendar is missing or fails.
func (o *Orchestrator) calendarSummary(ctx context.Context, inbox Inbox, messageID string) string {
	if inbox.Calendar == nil {
		return assistant.UnknownCalendar
	}
	var summary string
	err := o.call(ctx, func(ctx context.Context) error {
		var err error
		summary, err = inbox.Calendar.Summary(ctx)
		return err
	})
	if err != nil {
		slog.Warn("calendar unavailable, drafting without it",
			"user", inbox.UserID,
			"message_id", messageID,
			"error", err,
		)
		return assistant.UnknownCalendar
	}
	return summary
}

// call runs fn under the per-call timeout.
func (o *Orchestrator) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	return fn(ctx)
}
