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

// Package mailmsg composes outgoing RFC 5322 replies and extracts readable
// text from raw MIME messages. It is shared by the mailbox providers.
package mailmsg

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/clinicdesk/secretary/internal/models"
	"github.com/clinicdesk/secretary/internal/textclean"
)

// Compose renders reply as a plain-text message. from may be empty when the
// provider fills it in.
func Compose(from string, reply models.Reply, messageID string, now time.Time) []byte {
	headers := make([]string, 0, 9)
	if from != "" {
		headers = append(headers, "From: "+sanitizeHeader(from))
	}
	headers = append(headers,
		"To: "+sanitizeHeader(reply.To),
		"Subject: "+mime.QEncoding.Encode("utf-8", sanitizeHeader(reply.Subject)),
		"Date: "+now.Format(time.RFC1123Z),
	)
	if id := NormalizeMessageID(messageID); id != "" {
		headers = append(headers, "Message-ID: "+id)
	}
	if parent := NormalizeMessageID(reply.InReplyTo); parent != "" {
		headers = append(headers, "In-Reply-To: "+parent, "References: "+parent)
	}
	headers = append(headers,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"Content-Transfer-Encoding: 8bit",
	)
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + normalizeBody(reply.Body) + "\r\n")
}

// GenerateMessageID returns a unique Message-ID in the sender's domain.
func GenerateMessageID(address string, now time.Time) string {
	domain := "localhost"
	if at := strings.LastIndex(address, "@"); at >= 0 && at < len(address)-1 {
		domain = strings.Trim(address[at+1:], "<> ")
	}
	return fmt.Sprintf("<%d.secretary@%s>", now.UnixNano(), domain)
}

// NormalizeMessageID wraps an id in angle brackets.
func NormalizeMessageID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return "<" + strings.Trim(value, "<>") + ">"
}

// AddressOnly returns the bare address of a From-style value such as
// "Jane <jane@example.com>", or the input when it does not parse.
func AddressOnly(value string) string {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return addr.Address
}

// Extract returns the plain-text and HTML bodies of a raw message.
func Extract(raw []byte) (string, string, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return "", "", fmt.Errorf("read message: %w", err)
	}
	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return "", "", fmt.Errorf("read message body: %w", err)
	}
	text, html, err := extractEntity(textproto.MIMEHeader(msg.Header), body)
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(text), strings.TrimSpace(html), nil
}

// Readable picks the plain-text body, falling back to the HTML body
// converted to text.
func Readable(text, html string) string {
	if t := textclean.Collapse(text); t != "" {
		return t
	}
	return textclean.Clean(html)
}

func extractEntity(header textproto.MIMEHeader, body []byte) (string, string, error) {
	mediaType, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil || mediaType == "" {
		mediaType = "text/plain"
	}

	decoded, err := DecodeTransfer(header.Get("Content-Transfer-Encoding"), body)
	if err != nil {
		return "", "", err
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return "", "", nil
		}
		reader := multipart.NewReader(bytes.NewReader(decoded), boundary)
		var plain, html []string
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", "", fmt.Errorf("read multipart: %w", err)
			}
			partBody, err := io.ReadAll(part)
			if err != nil {
				return "", "", fmt.Errorf("read part: %w", err)
			}
			t, h, err := extractEntity(textproto.MIMEHeader(part.Header), partBody)
			if err != nil {
				return "", "", err
			}
			if t != "" {
				plain = append(plain, t)
			}
			if h != "" {
				html = append(html, h)
			}
		}
		return strings.Join(plain, "\n"), strings.Join(html, "\n"), nil
	}

	switch mediaType {
	case "text/plain":
		return string(decoded), "", nil
	case "text/html":
		return "", string(decoded), nil
	}
	return "", "", nil
}

// DecodeTransfer undoes a Content-Transfer-Encoding. Undecodable base64 is
// returned as-is.
func DecodeTransfer(encoding string, body []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return io.ReadAll(quotedprintable.NewReader(bytes.NewReader(body)))
	case "base64":
		clean := strings.NewReplacer("\r", "", "\n", "").Replace(string(body))
		decoded, err := base64.StdEncoding.DecodeString(clean)
		if err != nil {
			return body, nil
		}
		return decoded, nil
	}
	return body, nil
}

func sanitizeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.TrimSpace(value)
}

func normalizeBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")
	return strings.ReplaceAll(strings.TrimSpace(body), "\n", "\r\n")
}
