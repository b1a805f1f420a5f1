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

package models

import (
	"fmt"
	"strings"
	"time"
)

// Category is the advisory label the classifier assigns to a message.
type Category string

const (
	CategoryUrgent       Category = "urgent"
	CategoryScheduling   Category = "scheduling"
	CategoryCancellation Category = "cancellation"
	CategoryBilling      Category = "billing"
	CategoryGeneral      Category = "general"
)

// Known reports whether c is one of the labels the classifier prompt offers.
func (c Category) Known() bool {
	switch c {
	case CategoryUrgent, CategoryScheduling, CategoryCancellation, CategoryBilling, CategoryGeneral:
		return true
	}
	return false
}

// Verdict is the safety reviewer's judgement of a draft.
type Verdict string

const (
	VerdictSafe   Verdict = "safe"
	VerdictUnsafe Verdict = "unsafe"
)

// ParseVerdict accepts "safe" or "unsafe" in any case.
func ParseVerdict(s string) (Verdict, error) {
	switch v := Verdict(strings.ToLower(strings.TrimSpace(s))); v {
	case VerdictSafe, VerdictUnsafe:
		return v, nil
	}
	return "", fmt.Errorf("unknown verdict %q", s)
}

// SafetyVerdict is the structured output of a safety review.
type SafetyVerdict struct {
	Status     Verdict
	Reasons    []string
	Suggestion string
}

// DraftStatus is the approval lifecycle of a stored draft.
type DraftStatus string

const (
	StatusPending  DraftStatus = "pending"
	StatusApproved DraftStatus = "approved"
	StatusSent     DraftStatus = "sent"
)

// ParseDraftStatus maps a stored status column back to a DraftStatus.
func ParseDraftStatus(s string) (DraftStatus, error) {
	switch st := DraftStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusApproved, StatusSent:
		return st, nil
	}
	return "", fmt.Errorf("unknown draft status %q", s)
}

// PendingDraft is what the pipeline hands to persistence for one message.
type PendingDraft struct {
	EmailID    string
	ThreadID   string
	MessageID  string
	Sender     string
	Subject    string
	Body       string
	DraftReply string
	Category   Category
}

// ApprovalRecord is a stored draft awaiting (or past) human approval.
type ApprovalRecord struct {
	ID         int64
	UserID     string
	EmailID    string
	ThreadID   string
	MessageID  string
	Sender     string
	Subject    string
	Body       string
	DraftReply string
	Category   Category
	Status     DraftStatus
	CreatedAt  time.Time
}

// Reply builds the outgoing reply for an approved record.
func (r ApprovalRecord) Reply() Reply {
	thread := r.ThreadID
	if thread == "" {
		thread = r.EmailID
	}
	return Reply{
		To:        r.Sender,
		Subject:   ReplySubject(r.Subject),
		Body:      r.DraftReply,
		ThreadID:  thread,
		InReplyTo: r.MessageID,
	}
}
