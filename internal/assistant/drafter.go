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
	"fmt"

	"github.com/clinicdesk/secretary/internal/llm"
)

// UnknownCalendar stands in for missing calendar context.
const UnknownCalendar = "Unknown"

// DraftInput carries everything the reply prompt refers to.
type DraftInput struct {
	SenderName       string
	EmailBody        string
	CalendarInfo     string
	BusinessName     string
	ProfessionalName string
}

// Practice holds the names used when a DraftInput leaves them empty.
type Practice struct {
	BusinessName     string
	ProfessionalName string
}

// Drafter writes reply drafts.
type Drafter struct {
	client   llm.Client
	practice Practice
}

// NewDrafter creates a drafter with practice defaults.
func NewDrafter(client llm.Client, practice Practice) *Drafter {
	return &Drafter{client: client, practice: practice}
}

// Draft generates a reply at temperature 0.7.
func (d *Drafter) Draft(ctx context.Context, in DraftInput) (string, error) {
	if in.BusinessName == "" {
		in.BusinessName = d.practice.BusinessName
	}
	if in.ProfessionalName == "" {
		in.ProfessionalName = d.practice.ProfessionalName
	}
	if in.CalendarInfo == "" {
		in.CalendarInfo = UnknownCalendar
	}

	prompt, err := render(draftTemplate, in)
	if err != nil {
		return "", fmt.Errorf("render draft prompt: %w", err)
	}

	out, err := d.client.Complete(ctx, llm.Request{
		Stage:       "draft",
		Prompt:      prompt,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("draft reply: %w", err)
	}
	return out, nil
}
