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
	"strings"

	"github.com/clinicdesk/secretary/internal/llm"
	"github.com/clinicdesk/secretary/internal/models"
)

// Classifier labels inbound messages.
type Classifier struct {
	client llm.Client
}

// NewClassifier creates a classifier backed by client.
func NewClassifier(client llm.Client) *Classifier {
	return &Classifier{client: client}
}

// Classify returns the trimmed, lower-cased label produced by the model.
// Labels outside the known set are returned unchanged.
func (c *Classifier) Classify(ctx context.Context, text string) (models.Category, error) {
	out, err := c.client.Complete(ctx, llm.Request{
		Stage:       "classify",
		System:      classifyPrompt,
		Prompt:      text,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("classify message: %w", err)
	}
	return models.Category(strings.ToLower(strings.TrimSpace(out))), nil
}
