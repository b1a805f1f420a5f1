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

// Package assistant implements the three model-backed steps of the draft
// pipeline: classification, drafting and safety review.
package assistant

import (
	"embed"
	"strings"
	"text/template"
)

//go:embed prompts/*
var promptFS embed.FS

var (
	classifyPrompt = mustRead("prompts/classify.txt")
	draftTemplate  = template.Must(template.ParseFS(promptFS, "prompts/draft.tmpl"))
	reviewTemplate = template.Must(template.ParseFS(promptFS, "prompts/review.tmpl"))
)

func mustRead(name string) string {
	data, err := promptFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return strings.TrimSpace(string(data))
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
