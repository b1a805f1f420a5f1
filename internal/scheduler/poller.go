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

// Package scheduler runs the poll loop: on every cycle each enabled user's
// inbox is triaged and their approved drafts are sent.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clinicdesk/secretary/internal/account"
	"github.com/clinicdesk/secretary/internal/metrics"
	"github.com/clinicdesk/secretary/internal/pipeline"
	"github.com/clinicdesk/secretary/internal/sender"
	"github.com/clinicdesk/secretary/internal/store"
)

const (
	DefaultInterval = 5 * time.Minute
	DefaultBackoff  = time.Minute
)

// Users lists the users to serve this cycle.
type Users interface {
	DiscoverUsers(ctx context.Context) ([]string, error)
}

// Ingester triages one inbox.
type Ingester interface {
	ProcessInbox(ctx context.Context, inbox pipeline.Inbox) (pipeline.Summary, error)
}

// Sender delivers approved drafts.
type Sender interface {
	SendApproved(ctx context.Context, userID string, mailer sender.Mailer) (sender.Result, error)
}

// Config wires a Poller.
type Config struct {
	Users    Users
	Accounts account.Opener
	Ingest   Ingester
	Sender   Sender
	Interval time.Duration
	Backoff  time.Duration
}

// Poller runs cycles until its context is cancelled.
type Poller struct {
	users    Users
	accounts account.Opener
	ingest   Ingester
	sender   Sender
	interval time.Duration
	backoff  time.Duration
}

// NewPoller creates a poller, defaulting a zero interval or backoff.
func NewPoller(cfg Config) *Poller {
	p := &Poller{
		users:    cfg.Users,
		accounts: cfg.Accounts,
		ingest:   cfg.Ingest,
		sender:   cfg.Sender,
		interval: cfg.Interval,
		backoff:  cfg.Backoff,
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.backoff <= 0 {
		p.backoff = DefaultBackoff
	}
	return p
}

// Run polls immediately and then after every interval. A failed cycle waits
// the backoff instead. It blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	slog.Info("poller starting", "interval", p.interval, "backoff", p.backoff)

	for {
		wait := p.interval
		if err := p.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Error("poll cycle failed, backing off", "backoff", p.backoff, "error", err)
			wait = p.backoff
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("poller stopping")
			return
		case <-timer.C:
		}
	}
	slog.Info("poller stopping")
}

// RunCycle serves every discovered user once. Per-user failures are logged;
// the returned error means the cycle itself could not run.
func (p *Poller) RunCycle(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { metrics.RecordPollCycle(metrics.Status(err), time.Since(start)) }()

	users, err := p.users.DiscoverUsers(ctx)
	if err != nil {
		return fmt.Errorf("poll cycle: %w", err)
	}
	if len(users) == 0 {
		slog.Info("no active users")
		return nil
	}

	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.serveUser(ctx, userID); err != nil {
			if errors.Is(err, store.ErrNoCredentials) {
				slog.Warn("user has no connected mailbox", "user", userID)
				continue
			}
			slog.Error("failed to process user", "user", userID, "error", err)
		}
	}

	slog.Info("poll cycle complete", "users", len(users), "duration", time.Since(start))
	return nil
}

func (p *Poller) serveUser(ctx context.Context, userID string) error {
	acct, err := p.accounts.Open(ctx, userID)
	if err != nil {
		return err
	}

	summary, err := p.ingest.ProcessInbox(ctx, pipeline.Inbox{
		UserID:   userID,
		Mailbox:  acct.Mailbox,
		Calendar: acct.Calendar,
	})
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	slog.Debug("inbox processed",
		"user", userID,
		"fetched", summary.Fetched,
		"drafted", summary.Drafted,
		"blocked", summary.Blocked,
		"flagged", summary.Flagged,
		"failed", summary.Failed,
	)

	if _, err := p.sender.SendApproved(ctx, userID, acct.Mailbox); err != nil {
		return fmt.Errorf("send approved: %w", err)
	}
	return nil
}
