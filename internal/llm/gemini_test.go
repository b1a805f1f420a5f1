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

package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"
)

type generateCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func fakeGemini(reply string, err error, calls *[]generateCall) *GeminiClient {
	return &GeminiClient{
		model: defaultGeminiModel,
		generate: func(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			*calls = append(*calls, generateCall{model: model, contents: contents, config: config})
			if err != nil {
				return nil, err
			}
			return &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content: genai.NewContentFromText(reply, genai.RoleModel),
				}},
			}, nil
		},
	}
}

func contentText(c *genai.Content) string {
	if c == nil {
		return ""
	}
	var out string
	for _, p := range c.Parts {
		out += p.Text
	}
	return out
}

// TestGeminiComplete_RequestShape verifies the Request is mapped onto the
// model, prompt, system instruction, temperature and JSON response type.
func TestGeminiComplete_RequestShape(t *testing.T) {
	var calls []generateCall
	c := fakeGemini(`{"status":"safe"}`, nil, &calls)

	out, err := c.Complete(context.Background(), Request{
		Stage:       "review",
		System:      "be strict",
		Prompt:      "check this",
		Temperature: 0,
		JSON:        true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"status":"safe"}` {
		t.Errorf("output = %q", out)
	}
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}

	call := calls[0]
	if call.model != defaultGeminiModel {
		t.Errorf("model = %q, want %q", call.model, defaultGeminiModel)
	}
	if len(call.contents) != 1 || contentText(call.contents[0]) != "check this" {
		t.Errorf("contents = %+v, want the prompt only", call.contents)
	}
	if call.contents[0].Role != string(genai.RoleUser) {
		t.Errorf("prompt role = %q, want %q", call.contents[0].Role, genai.RoleUser)
	}
	if call.config.Temperature == nil || *call.config.Temperature != 0 {
		t.Errorf("temperature = %v, want explicit 0", call.config.Temperature)
	}
	if got := contentText(call.config.SystemInstruction); got != "be strict" {
		t.Errorf("system instruction = %q, want %q", got, "be strict")
	}
	if call.config.ResponseMIMEType != "application/json" {
		t.Errorf("ResponseMIMEType = %q, want application/json", call.config.ResponseMIMEType)
	}
}

// TestGenerateConfig verifies optional fields are left unset for plain text requests.
func TestGenerateConfig(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		temp     float32
		system   string
		mimeType string
	}{
		{"plain draft", Request{Prompt: "p", Temperature: 0.7}, 0.7, "", ""},
		{"system only", Request{System: "s", Prompt: "p", Temperature: 0.3}, 0.3, "s", ""},
		{"json", Request{Prompt: "p", JSON: true}, 0, "", "application/json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := generateConfig(tt.req)
			if config.Temperature == nil || *config.Temperature != tt.temp {
				t.Errorf("temperature = %v, want %v", config.Temperature, tt.temp)
			}
			if tt.system == "" && config.SystemInstruction != nil {
				t.Errorf("system instruction = %+v, want nil", config.SystemInstruction)
			}
			if got := contentText(config.SystemInstruction); got != tt.system {
				t.Errorf("system instruction = %q, want %q", got, tt.system)
			}
			if diff := cmp.Diff(tt.mimeType, config.ResponseMIMEType); diff != "" {
				t.Errorf("ResponseMIMEType mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestGeminiComplete_Errors verifies SDK failures are wrapped and blank
// answers map to ErrEmptyCompletion.
func TestGeminiComplete_Errors(t *testing.T) {
	sdkErr := errors.New("quota exceeded")
	tests := []struct {
		name    string
		reply   string
		err     error
		wantErr error
	}{
		{"sdk failure", "", sdkErr, sdkErr},
		{"blank answer", "  \n", nil, ErrEmptyCompletion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []generateCall
			_, err := fakeGemini(tt.reply, tt.err, &calls).Complete(context.Background(), Request{Prompt: "p"})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
