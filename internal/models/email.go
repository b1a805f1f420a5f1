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

// Package models defines the data structures shared across the secretary service.
package models

import (
	"strings"
	"unicode/utf8"
)

// maxTextLen bounds the message text handed to the model calls.
const maxTextLen = 8000

// InboundMessage is one unread message as returned by a mailbox provider.
type InboundMessage struct {
	ID        string `json:"id"`
	ThreadID  string `json:"thread_id,omitempty"`
	MessageID string `json:"message_id,omitempty"` // RFC 5322 Message-ID header
	Sender    string `json:"sender"`
	Subject   string `json:"subject"`
	Snippet   string `json:"snippet,omitempty"`
	Body      string `json:"body,omitempty"`
}

// Text returns the message body, falling back to the provider snippet. Long
// text is cut to at most maxTextLen bytes on a character boundary.
func (m InboundMessage) Text() string {
	text := strings.TrimSpace(m.Body)
	if text == "" {
		text = strings.TrimSpace(m.Snippet)
	}
	if len(text) > maxTextLen {
		cut := maxTextLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}

// Reply is an outgoing response to a previously received message.
type Reply struct {
	To        string
	Subject   string
	Body      string
	ThreadID  string
	InReplyTo string
}

// ReplySubject prefixes subject with "Re: " unless it already carries one.
func ReplySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(subject)), "re:") {
		return strings.TrimSpace(subject)
	}
	return "Re: " + subject
}
