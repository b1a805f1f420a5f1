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

package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/clinicdesk/secretary/internal/llm"
	"github.com/clinicdesk/secretary/internal/models"
)

// ErrMalformedVerdict is returned when the reviewer output is not a valid verdict.
var ErrMalformedVerdict = errors.New("malformed safety verdict")

// Reviewer asks the model to judge a draft.
type Reviewer struct {
	client llm.Client
}

// NewReviewer creates a safety reviewer backed by client.
func NewReviewer(client llm.Client) *Reviewer {
	return &Reviewer{client: client}
}

type verdictJSON struct {
	Status     *string  `json:"status"`
	Reasons    []string `json:"reasons"`
	Suggestion *string  `json:"suggestion"`
}

// Review returns the structured verdict for draft. Output that is not a JSON
// object with a safe/unsafe status is rejected with ErrMalformedVerdict.
func (r *Reviewer) Review(ctx context.Context, draft string) (models.SafetyVerdict, error) {
	prompt, err := render(reviewTemplate, struct{ Draft string }{draft})
	if err != nil {
		return models.SafetyVerdict{}, fmt.Errorf("render review prompt: %w", err)
	}

	out, err := r.client.Complete(ctx, llm.Request{
		Stage:       "review",
		Prompt:      prompt,
		Temperature: 0,
		JSON:        true,
	})
	if err != nil {
		return models.SafetyVerdict{}, fmt.Errorf("review draft: %w", err)
	}
	return ParseVerdict(out)
}

// ParseVerdict decodes reviewer output.
func ParseVerdict(raw string) (models.SafetyVerdict, error) {
	var v verdictJSON
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &v); err != nil {
		return models.SafetyVerdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	if v.Status == nil {
		return models.SafetyVerdict{}, fmt.Errorf("%w: missing status", ErrMalformedVerdict)
	}
	status, err := models.ParseVerdict(*v.Status)
	if err != nil {
		return models.SafetyVerdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}

	verdict := models.SafetyVerdict{Status: status}
	for _, reason := range v.Reasons {
		if reason = strings.TrimSpace(reason); reason != "" {
			verdict.Reasons = append(verdict.Reasons, reason)
		}
	}
	if v.Suggestion != nil {
		verdict.Suggestion = strings.TrimSpace(*v.Suggestion)
	}
	return verdict, nil
}

// FlagNotice renders the text that replaces a draft judged unsafe.
func FlagNotice(v models.SafetyVerdict) string {
	suggestion := v.Suggestion
	if suggestion == "" {
		suggestion = "N/A"
	}
	return fmt.Sprintf("⚠️ UNSAFE DRAFT DETECTED:\nReasons: %s\n\nSuggested:\n%s",
		strings.Join(v.Reasons, "; "), suggestion)
}
