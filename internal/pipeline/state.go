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

package pipeline

import (
	"github.com/clinicdesk/secretary/internal/assistant"
	"github.com/clinicdesk/secretary/internal/models"
	"github.com/clinicdesk/secretary/internal/privacy"
)

// State is the position of a draft in the gate sequence.
//
//	Drafted --gate fails--> Blocked
//	Drafted --review unsafe--> Flagged
//
// Blocked and Flagged are terminal. A draft that passes both gates stays Drafted.
type State int

const (
	StateDrafted State = iota
	StateBlocked
	StateFlagged
)

func (s State) String() string {
	switch s {
	case StateDrafted:
		return "drafted"
	case StateBlocked:
		return "blocked"
	case StateFlagged:
		return "flagged"
	}
	return "unknown"
}

// Outcome is the result of running one message through the pipeline.
type Outcome struct {
	State    State
	Category models.Category
	// Draft is the model output as generated. It is never persisted for
	// Blocked outcomes.
	Draft   string
	Verdict models.SafetyVerdict
}

// FinalText is the text persisted as the draft reply.
func (o Outcome) FinalText() string {
	switch o.State {
	case StateBlocked:
		return privacy.BlockNotice
	case StateFlagged:
		return assistant.FlagNotice(o.Verdict)
	}
	return o.Draft
}

func (o Outcome) block() Outcome {
	if o.State == StateDrafted {
		o.State = StateBlocked
	}
	return o
}

func (o Outcome) flag(v models.SafetyVerdict) Outcome {
	o.Verdict = v
	if o.State == StateDrafted {
		o.State = StateFlagged
	}
	return o
}
