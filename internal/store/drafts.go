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
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/clinicdesk/secretary/internal/models"
)

// SavePending stores a draft with status pending. A second draft for the same
// (user, email) is ignored and reported with inserted == false.
func (s *Store) SavePending(ctx context.Context, userID string, d models.PendingDraft) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO email_drafts
			(user_id, email_id, thread_id, message_id, sender, subject, body, draft_reply, category, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, email_id) DO NOTHING
	`, userID, d.EmailID, d.ThreadID, d.MessageID, d.Sender, d.Subject, d.Body, d.DraftReply,
		string(d.Category), string(models.StatusPending))
	if err != nil {
		return false, fmt.Errorf("insert draft: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListApproved returns the user's approved drafts, oldest first.
func (s *Store) ListApproved(ctx context.Context, userID string) ([]models.ApprovalRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, email_id, thread_id, message_id, sender, subject,
		       body, draft_reply, category, status, created_at
		FROM email_drafts
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at, id
	`, userID, string(models.StatusApproved))
	if err != nil {
		return nil, fmt.Errorf("query approved drafts: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// GetDraft retrieves a single draft by id. It returns nil, nil if absent.
func (s *Store) GetDraft(ctx context.Context, id int64) (*models.ApprovalRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, email_id, thread_id, message_id, sender, subject,
		       body, draft_reply, category, status, created_at
		FROM email_drafts
		WHERE id = $1
	`, id)
	return scanRecord(row)
}

// MarkSent moves an approved draft to sent. Drafts in any other state are
// left untouched.
func (s *Store) MarkSent(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE email_drafts
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, string(models.StatusSent), id, string(models.StatusApproved))
	if err != nil {
		return fmt.Errorf("mark draft %d sent: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark draft %d sent: no approved draft with that id", id)
	}
	return nil
}

// recordScanner is satisfied by both pgx.Row and pgx.Rows.
type recordScanner interface {
	Scan(dest ...any) error
}

func scanInto(sc recordScanner) (models.ApprovalRecord, error) {
	var (
		r        models.ApprovalRecord
		category string
		status   string
	)
	if err := sc.Scan(
		&r.ID, &r.UserID, &r.EmailID, &r.ThreadID, &r.MessageID, &r.Sender, &r.Subject,
		&r.Body, &r.DraftReply, &category, &status, &r.CreatedAt,
	); err != nil {
		return r, err
	}
	st, err := models.ParseDraftStatus(status)
	if err != nil {
		return r, err
	}
	r.Category = models.Category(category)
	r.Status = st
	return r, nil
}

// scanRecord scans a single row into an ApprovalRecord.
func scanRecord(row pgx.Row) (*models.ApprovalRecord, error) {
	r, err := scanInto(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// collectRecords scans multiple rows into a slice of ApprovalRecords.
func collectRecords(rows pgx.Rows) ([]models.ApprovalRecord, error) {
	var records []models.ApprovalRecord
	for rows.Next() {
		r, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
