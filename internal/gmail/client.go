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

// Package gmail reads and answers a user's mailbox through the Gmail REST API
// using an OAuth2-authorised HTTP client.
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/clinicdesk/secretary/internal/mailmsg"
	"github.com/clinicdesk/secretary/internal/models"
)

const (
	// DefaultBaseURL is the Gmail API root.
	DefaultBaseURL = "https://gmail.googleapis.com/gmail/v1"

	// DefaultMaxResults bounds the unread messages fetched per poll.
	DefaultMaxResults = 10
)

// Client is a Gmail mailbox for one user.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxResults int
	now        func() time.Time
}

// NewClient creates a Gmail client. httpClient must carry the user's OAuth token.
func NewClient(httpClient *http.Client, baseURL string, maxResults int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		maxResults: maxResults,
		now:        time.Now,
	}
}

type listResponse struct {
	Messages []struct {
		ID       string `json:"id"`
		ThreadID string `json:"threadId"`
	} `json:"messages"`
}

// FetchUnread returns today's unread messages, newest first as Gmail lists them.
func (c *Client) FetchUnread(ctx context.Context) ([]models.InboundMessage, error) {
	params := url.Values{}
	params.Set("q", "is:unread after:"+c.now().Format("2006/01/02"))
	params.Set("maxResults", fmt.Sprint(c.maxResults))

	var list listResponse
	if err := c.do(ctx, http.MethodGet, "/users/me/messages?"+params.Encode(), nil, &list); err != nil {
		return nil, fmt.Errorf("list unread: %w", err)
	}

	messages := make([]models.InboundMessage, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := c.GetMessage(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		if msg == nil {
			continue
		}
		messages = append(messages, *msg)
	}
	return messages, nil
}

// GetMessage retrieves one message. It returns nil, nil if the message no
// longer exists.
func (c *Client) GetMessage(ctx context.Context, id string) (*models.InboundMessage, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/users/me/messages/"+url.PathEscape(id)+"?format=full", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		slog.Warn("message not found (may have been deleted)", "message_id", id)
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gmail API returned HTTP %d for message %s", resp.StatusCode, id)
	}

	msg, err := parseMessage(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse message %s: %w", id, err)
	}
	return msg, nil
}

// MarkRead removes the UNREAD label from a message.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	body := map[string][]string{"removeLabelIds": {"UNREAD"}}
	if err := c.do(ctx, http.MethodPost, "/users/me/messages/"+url.PathEscape(id)+"/modify", body, nil); err != nil {
		return fmt.Errorf("mark %s read: %w", id, err)
	}
	return nil
}

// SendReply sends reply in its original thread. Gmail fills in From and Message-ID.
func (c *Client) SendReply(ctx context.Context, reply models.Reply) error {
	raw := mailmsg.Compose("", reply, "", c.now())
	body := map[string]string{
		"raw": base64.URLEncoding.EncodeToString(raw),
	}
	if reply.ThreadID != "" {
		body["threadId"] = reply.ThreadID
	}
	if err := c.do(ctx, http.MethodPost, "/users/me/messages/send", body, nil); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends a request and decodes a 200 response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return fmt.Errorf("gmail API returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
