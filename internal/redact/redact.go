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

// Package redact scrubs identifying numeric sequences from free text.
package redact

import "regexp"

const (
	IDPlaceholder   = "[ID_REDACTED]"
	CardPlaceholder = "[CC_REDACTED]"
)

var (
	digitRun    = regexp.MustCompile(`[0-9]+`)
	cardPattern = regexp.MustCompile(`[0-9]{4}[- ]?[0-9]{4}[- ]?[0-9]{4}[- ]?[0-9]{4}`)
)

// Sanitize replaces 9-digit identifiers and 16-digit card numbers with
// placeholders. All other text is returned unchanged.
func Sanitize(text string) string {
	if text == "" {
		return text
	}
	text = digitRun.ReplaceAllStringFunc(text, func(run string) string {
		if len(run) == 9 {
			return IDPlaceholder
		}
		return run
	})
	return replaceBounded(text, cardPattern, CardPlaceholder)
}

// replaceBounded replaces matches of re that are not directly preceded or
// followed by a digit.
func replaceBounded(text string, re *regexp.Regexp, placeholder string) string {
	matches := re.FindAllStringIndex(text, -1)
	if matches == nil {
		return text
	}
	out := make([]byte, 0, len(text))
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if start > 0 && isDigit(text[start-1]) {
			continue
		}
		if end < len(text) && isDigit(text[end]) {
			continue
		}
		out = append(out, text[last:start]...)
		out = append(out, placeholder...)
		last = end
	}
	out = append(out, text[last:]...)
	return string(out)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
