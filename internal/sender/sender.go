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

// Package sender delivers drafts the professional has approved.
package sender

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/clinicdesk/secretary/internal/audit"
	"github.com/clinicdesk/secretary/internal/metrics"
	"github.com/clinicdesk/secretary/internal/models"
)

// Store lists approved drafts and records delivery.
type Store interface {
	ListApproved(ctx context.Context, userID string) ([]models.ApprovalRecord, error)
	GetDraft(ctx context.Context, id int64) (*models.ApprovalRecord, error)
	MarkSent(ctx context.Context, id int64) error
}

// Guard claims a draft for sending. IsNew reports false if the draft was
// claimed before; Delivered then tells a finished send from a claim whose
// send never completed.
type Guard interface {
	IsNew(ctx context.Context, key string) (bool, error)
	MarkDelivered(ctx context.Context, key string) error
	Delivered(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

// Mailer sends a reply from the user's mailbox.
type Mailer interface {
	SendReply(ctx context.Context, reply models.Reply) error
}

// Auditor records send outcomes.
type Auditor interface {
	LogAction(ctx context.Context, action audit.Action, details string)
}

// Result counts what one pass did.
type Result struct {
	Sent      int
	Recovered int
	Skipped   int
	Failed    int
}

// Sender sends approved drafts at most once each.
type Sender struct {
	store   Store
	guard   Guard
	auditor Auditor
}

// New creates a sender.
func New(store Store, guard Guard, auditor Auditor) *Sender {
	return &Sender{store: store, guard: guard, auditor: auditor}
}

// GuardKey is the claim key for a draft.
func GuardKey(id int64) string {
	return "draft:" + strconv.FormatInt(id, 10)
}

// SendApproved sends every approved draft of userID through mailer and marks
// it sent. Individual failures are logged and counted; only a failure to list
// drafts is returned.
func (s *Sender) SendApproved(ctx context.Context, userID string, mailer Mailer) (Result, error) {
	var res Result
	ctx = audit.WithUser(ctx, userID)

	records, err := s.store.ListApproved(ctx, userID)
	if err != nil {
		return res, fmt.Errorf("list approved drafts: %w", err)
	}

	for _, rec := range records {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		key := GuardKey(rec.ID)

		claimed, err := s.guard.IsNew(ctx, key)
		if err != nil {
			slog.Warn("send guard unavailable, skipping draft", "user", userID, "draft_id", rec.ID, "error", err)
			res.Skipped++
			continue
		}

		if !claimed {
			delivered, err := s.guard.Delivered(ctx, key)
			if err != nil {
				slog.Warn("send guard unavailable, skipping draft", "user", userID, "draft_id", rec.ID, "error", err)
				res.Skipped++
				continue
			}
			if !delivered {
				// In flight elsewhere, or a failed send whose claim could not
				// be released. Retried once the claim expires.
				slog.Warn("draft claimed but not delivered, skipping", "user", userID, "draft_id", rec.ID)
				res.Skipped++
				continue
			}
			if err := s.store.MarkSent(ctx, rec.ID); err != nil {
				slog.Error("failed to mark previously sent draft", "user", userID, "draft_id", rec.ID, "error", err)
				res.Failed++
				continue
			}
			slog.Info("recovered sent draft", "user", userID, "draft_id", rec.ID)
			res.Recovered++
			continue
		}

		// The draft may have been edited back or withdrawn since listing.
		current, err := s.store.GetDraft(ctx, rec.ID)
		if err != nil || current == nil || current.Status != models.StatusApproved || current.UserID != userID {
			s.release(ctx, userID, rec.ID, key)
			if err != nil {
				slog.Error("failed to re-read draft before send", "user", userID, "draft_id", rec.ID, "error", err)
				res.Failed++
			} else {
				slog.Info("draft no longer approved, not sending", "user", userID, "draft_id", rec.ID)
				res.Skipped++
			}
			continue
		}

		if err := mailer.SendReply(ctx, current.Reply()); err != nil {
			s.release(ctx, userID, rec.ID, key)
			slog.Error("failed to send reply", "user", userID, "draft_id", rec.ID, "error", err)
			s.auditor.LogAction(ctx, audit.ActionSendFailed, fmt.Sprintf("ID: %d | Error: %v", rec.ID, err))
			metrics.RecordReply("error")
			res.Failed++
			continue
		}
		metrics.RecordReply("ok")

		if err := s.guard.MarkDelivered(ctx, key); err != nil {
			slog.Error("failed to record delivery", "user", userID, "draft_id", rec.ID, "error", err)
		}

		if err := s.store.MarkSent(ctx, rec.ID); err != nil {
			// The delivered marker lets the next pass finish this without resending.
			slog.Error("reply sent but not marked", "user", userID, "draft_id", rec.ID, "error", err)
			res.Failed++
			continue
		}
		s.auditor.LogAction(ctx, audit.ActionReplySent, fmt.Sprintf("ID: %d | To: %s", rec.ID, rec.Sender))
		res.Sent++
	}

	if len(records) > 0 {
		slog.Info("approved drafts processed",
			"user", userID,
			"sent", res.Sent,
			"recovered", res.Recovered,
			"skipped", res.Skipped,
			"failed", res.Failed,
		)
	}
	return res, nil
}

func (s *Sender) release(ctx context.Context, userID string, id int64, key string) {
	if err := s.guard.Forget(ctx, key); err != nil {
		slog.Error("failed to release send guard", "user", userID, "draft_id", id, "error", err)
	}
}
