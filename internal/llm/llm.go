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

// Package llm provides chat completion clients for the language model
// providers the secretary can use.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clinicdesk/secretary/internal/metrics"
)

// ErrEmptyCompletion is returned when a provider answers without content.
var ErrEmptyCompletion = errors.New("empty completion")

// Request is a single-turn completion request.
type Request struct {
	// Stage labels the call for metrics (classify, draft, review).
	Stage       string
	System      string
	Prompt      string
	Temperature float32
	// JSON asks the provider to return a single JSON object.
	JSON bool
}

// Client completes prompts.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// StatusError reports a non-200 provider response.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Provider, e.Code, e.Body)
}

// Config selects and configures a provider.
type Config struct {
	Provider string // "openai" or "gemini"
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// New builds the client for cfg.Provider wrapped with latency metrics.
func New(ctx context.Context, cfg Config) (Client, error) {
	var (
		c   Client
		err error
	)
	switch cfg.Provider {
	case "", "openai":
		c, err = NewOpenAIClient(cfg)
	case "gemini":
		c, err = NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(c), nil
}

// Instrument records the latency and status of every call made through c.
func Instrument(c Client) Client {
	return instrumented{next: c}
}

type instrumented struct {
	next Client
}

func (i instrumented) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	out, err := i.next.Complete(ctx, req)
	metrics.RecordModelCall(req.Stage, metrics.Status(err), time.Since(start))
	return out, err
}
