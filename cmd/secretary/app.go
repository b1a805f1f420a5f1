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

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clinicdesk/secretary/internal/account"
	"github.com/clinicdesk/secretary/internal/assistant"
	"github.com/clinicdesk/secretary/internal/audit"
	"github.com/clinicdesk/secretary/internal/config"
	"github.com/clinicdesk/secretary/internal/dedup"
	"github.com/clinicdesk/secretary/internal/discovery"
	"github.com/clinicdesk/secretary/internal/googleauth"
	"github.com/clinicdesk/secretary/internal/health"
	"github.com/clinicdesk/secretary/internal/imapmail"
	"github.com/clinicdesk/secretary/internal/llm"
	"github.com/clinicdesk/secretary/internal/pipeline"
	"github.com/clinicdesk/secretary/internal/privacy"
	"github.com/clinicdesk/secretary/internal/queue"
	"github.com/clinicdesk/secretary/internal/scheduler"
	"github.com/clinicdesk/secretary/internal/sender"
	"github.com/clinicdesk/secretary/internal/store"
)

// app is the fully wired service.
type app struct {
	pool   *pgxpool.Pool
	rdb    *redis.Client
	poller *scheduler.Poller
	checks []health.Check
}

// newApp connects to PostgreSQL and Redis and wires the poll loop.
// includeUsers, when non-empty, replaces the configured include list.
func newApp(ctx context.Context, cfg *config.Config, includeUsers []string) (*app, error) {
	a := &app{}

	// --- Connect to PostgreSQL ---
	pool, err := store.Connect(ctx, cfg.DatabaseURL, cfg.SlowQueryThreshold)
	if err != nil {
		return nil, err
	}
	a.pool = pool
	slog.Info("connected to PostgreSQL")

	st, err := store.NewStore(ctx, pool)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("initialise draft store: %w", err)
	}

	// --- Connect to Redis ---
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	a.rdb = redis.NewClient(opt)

	publisher := queue.NewPublisher(a.rdb, cfg.AuditQueue)
	if err := publisher.Ping(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}
	slog.Info("connected to Redis")

	// --- Model-backed stages ---
	model, err := llm.New(ctx, llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.LLM.Timeout,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create llm client: %w", err)
	}

	auditor := audit.NewLogger(publisher)
	orch := pipeline.New(pipeline.Config{
		Classifier: assistant.NewClassifier(model),
		Drafter: assistant.NewDrafter(model, assistant.Practice{
			BusinessName:     cfg.Practice.BusinessName,
			ProfessionalName: cfg.Practice.ProfessionalName,
		}),
		Reviewer:    assistant.NewReviewer(model),
		Gate:        privacy.NewGate(cfg.ForbiddenPhrases, auditor),
		Store:       st,
		Auditor:     auditor,
		CallTimeout: cfg.CallTimeout,
	})

	opener, err := newOpener(cfg, st)
	if err != nil {
		a.Close()
		return nil, err
	}

	include := cfg.IncludeUsers
	if len(includeUsers) > 0 {
		include = includeUsers
	}

	a.poller = scheduler.NewPoller(scheduler.Config{
		Users:    discovery.NewDiscovery(st, include, cfg.ExcludeUsers),
		Accounts: opener,
		Ingest:   orch,
		Sender:   sender.New(st, dedup.NewFilter(a.rdb, dedup.DefaultTTL), auditor),
		Interval: cfg.PollInterval,
		Backoff:  cfg.ErrorBackoff,
	})
	a.checks = []health.Check{
		{Name: "postgres", Ping: st.Ping},
		{Name: "redis", Ping: publisher.Ping},
	}
	return a, nil
}

func newOpener(cfg *config.Config, st *store.Store) (account.Opener, error) {
	switch cfg.MailboxProvider {
	case "imap":
		mb, err := imapmail.New(imapmail.Config{
			Address:    cfg.IMAP.Address,
			Password:   cfg.IMAP.Password,
			IMAPAddr:   cfg.IMAP.IMAPAddr,
			SMTPAddr:   cfg.IMAP.SMTPAddr,
			Folder:     cfg.IMAP.Folder,
			MaxResults: cfg.IMAP.MaxResults,
		})
		if err != nil {
			return nil, fmt.Errorf("create imap mailbox: %w", err)
		}
		return &account.IMAPOpener{UserID: cfg.IncludeUsers[0], Address: mb.Address(), Mailbox: mb}, nil
	default:
		return &account.GmailOpener{
			Store:      st,
			OAuth:      googleauth.Config(cfg.Gmail.ClientID, cfg.Gmail.ClientSecret),
			MaxResults: cfg.Gmail.MaxResults,
		}, nil
	}
}

// Close releases the Redis and PostgreSQL connections.
func (a *app) Close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
