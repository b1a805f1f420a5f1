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

// Package store provides the Postgres-backed state shared with the approval
// dashboard: which users have the secretary enabled, their mailbox
// credentials, and the drafts awaiting approval.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AgentName is the value in agent_settings.active_agents that enables the service.
const AgentName = "email_secretary"

// Store provides queries over the shared tables.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool with the slow-query tracer attached and verifies it.
func Connect(ctx context.Context, databaseURL string, slowThreshold time.Duration) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnIdleTime = time.Minute
	poolCfg.ConnConfig.Tracer = NewQueryTracer(slowThreshold)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create Postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping Postgres: %w", err)
	}
	return pool, nil
}

// NewStore creates a store backed by the given pool and ensures its tables exist.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	slog.Info("draft store initialised")
	return s, nil
}

// ensureSchema creates the tables when running against an empty database and
// adds the columns this service needs to a dashboard-created email_drafts.
// The unique index backs SavePending's duplicate suppression.
func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS agent_settings (
			user_id       TEXT PRIMARY KEY,
			active_agents TEXT[] NOT NULL DEFAULT '{}',
			updated_at    TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS gmail_credentials (
			user_id       TEXT PRIMARY KEY,
			email_address TEXT NOT NULL DEFAULT '',
			access_token  TEXT NOT NULL DEFAULT '',
			refresh_token TEXT NOT NULL DEFAULT '',
			token_expiry  TIMESTAMPTZ,
			is_connected  BOOLEAN NOT NULL DEFAULT TRUE,
			updated_at    TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS email_drafts (
			id          BIGSERIAL PRIMARY KEY,
			user_id     TEXT NOT NULL,
			email_id    TEXT NOT NULL,
			thread_id   TEXT NOT NULL DEFAULT '',
			message_id  TEXT NOT NULL DEFAULT '',
			sender      TEXT NOT NULL DEFAULT '',
			subject     TEXT NOT NULL DEFAULT '',
			body        TEXT NOT NULL DEFAULT '',
			draft_reply TEXT NOT NULL DEFAULT '',
			category    TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'pending',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ DEFAULT NOW()
		);
		ALTER TABLE email_drafts ADD COLUMN IF NOT EXISTS thread_id  TEXT NOT NULL DEFAULT '';
		ALTER TABLE email_drafts ADD COLUMN IF NOT EXISTS message_id TEXT NOT NULL DEFAULT '';
		ALTER TABLE email_drafts ADD COLUMN IF NOT EXISTS category   TEXT NOT NULL DEFAULT '';
		CREATE UNIQUE INDEX IF NOT EXISTS idx_drafts_user_email ON email_drafts(user_id, email_id);
		CREATE INDEX IF NOT EXISTS idx_drafts_status ON email_drafts(user_id, status);
	`)
	return err
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}
