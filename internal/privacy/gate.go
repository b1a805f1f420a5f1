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

// Package privacy implements the forbidden-phrase gate that every generated
// draft must pass before it can be stored for approval.
package privacy

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinicdesk/secretary/internal/audit"
)

// BlockNotice replaces any draft that fails the gate.
const BlockNotice = "[SYSTEM BLOCKED DRAFT DUE TO PRIVACY VIOLATION]"

// DefaultDenylist lists phrases that reveal other clients or the
// professional's private life.
var DefaultDenylist = []string{
	"on a date",
	"his wife",
	"vacation",
	"sleeping",
	"other patient",
	"seeing mr",
	"seeing mrs",
}

// Auditor records gate decisions.
type Auditor interface {
	LogAction(ctx context.Context, action audit.Action, details string)
}

// Gate checks drafts against a lower-cased denylist.
type Gate struct {
	phrases []string
	auditor Auditor
}

// NewGate builds a gate from phrases. Phrases are lower-cased and blanks are
// dropped; if nothing remains the DefaultDenylist is used.
func NewGate(phrases []string, auditor Auditor) *Gate {
	var normalised []string
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			normalised = append(normalised, p)
		}
	}
	if len(normalised) == 0 {
		normalised = append(normalised, DefaultDenylist...)
	}
	return &Gate{phrases: normalised, auditor: auditor}
}

// Match returns the first denylisted phrase contained in draft.
func (g *Gate) Match(draft string) (string, bool) {
	lowered := strings.ToLower(draft)
	for _, p := range g.phrases {
		if strings.Contains(lowered, p) {
			return p, true
		}
	}
	return "", false
}

// Passes reports whether draft is free of denylisted phrases. A match is
// audited as PRIVACY_BLOCK naming only the phrase.
func (g *Gate) Passes(ctx context.Context, draft string) bool {
	phrase, found := g.Match(draft)
	if !found {
		return true
	}
	if g.auditor != nil {
		g.auditor.LogAction(ctx, audit.ActionPrivacyBlock, fmt.Sprintf("Draft contained forbidden phrase: %s", phrase))
	}
	return false
}

// Phrases returns a copy of the active denylist.
func (g *Gate) Phrases() []string {
	return append([]string(nil), g.phrases...)
}
