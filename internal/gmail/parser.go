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

package gmail

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/clinicdesk/secretary/internal/mailmsg"
	"github.com/clinicdesk/secretary/internal/models"
	"github.com/clinicdesk/secretary/internal/textclean"
)

// gmailMessage represents the relevant fields of a format=full message.
type gmailMessage struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"threadId"`
	Snippet  string    `json:"snippet"`
	Payload  gmailPart `json:"payload"`
}

type gmailPart struct {
	MimeType string `json:"mimeType"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body struct {
		Data string `json:"data"`
	} `json:"body"`
	Parts []gmailPart `json:"parts"`
}

func (p gmailPart) header(name string) string {
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// parseMessage converts a Gmail API message into an InboundMessage.
func parseMessage(body io.Reader) (*models.InboundMessage, error) {
	var msg gmailMessage
	if err := json.NewDecoder(body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("decode gmail message: %w", err)
	}

	sender := msg.Payload.header("From")
	if sender == "" {
		sender = "Unknown"
	}
	subject := msg.Payload.header("Subject")
	if subject == "" {
		subject = "(No Subject)"
	}

	var plain, html []string
	collectBodies(msg.Payload, &plain, &html)

	return &models.InboundMessage{
		ID:        msg.ID,
		ThreadID:  msg.ThreadID,
		MessageID: msg.Payload.header("Message-ID"),
		Sender:    sender,
		Subject:   subject,
		Snippet:   textclean.Collapse(msg.Snippet),
		Body:      mailmsg.Readable(strings.Join(plain, "\n"), strings.Join(html, "\n")),
	}, nil
}

// collectBodies walks the part tree gathering decoded text and HTML bodies.
// Attachments are skipped.
func collectBodies(p gmailPart, plain, html *[]string) {
	if len(p.Parts) > 0 {
		for _, child := range p.Parts {
			collectBodies(child, plain, html)
		}
		return
	}
	if p.Body.Data == "" || strings.HasPrefix(strings.ToLower(p.header("Content-Disposition")), "attachment") {
		return
	}
	data, err := decodeBase64URL(p.Body.Data)
	if err != nil {
		return
	}
	switch strings.ToLower(p.MimeType) {
	case "text/plain":
		*plain = append(*plain, string(data))
	case "text/html":
		*html = append(*html, string(data))
	}
}

// decodeBase64URL accepts Gmail body data with or without padding.
func decodeBase64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
