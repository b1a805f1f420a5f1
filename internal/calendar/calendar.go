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

// Package calendar summarises upcoming events so that drafts can refer to
// availability without exposing event details.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Google Calendar API root.
	DefaultBaseURL = "https://www.googleapis.com/calendar/v3"

	// NoEvents is the summary when nothing is scheduled.
	NoEvents = "No upcoming events found."

	defaultMaxEvents = 10
)

// Client reads a user's primary Google calendar.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxEvents  int
	now        func() time.Time
}

// NewClient creates a calendar client. httpClient must carry the user's OAuth token.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		maxEvents:  defaultMaxEvents,
		now:        time.Now,
	}
}

type eventsResponse struct {
	Items []struct {
		Start struct {
			DateTime string `json:"dateTime"`
			Date     string `json:"date"`
		} `json:"start"`
	} `json:"items"`
}

// Summary lists upcoming start times only; titles, attendees and locations
// never leave this package.
func (c *Client) Summary(ctx context.Context) (string, error) {
	params := url.Values{}
	params.Set("timeMin", c.now().UTC().Format(time.RFC3339))
	params.Set("maxResults", fmt.Sprint(c.maxEvents))
	params.Set("singleEvents", "true")
	params.Set("orderBy", "startTime")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/calendars/primary/events?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build events request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("calendar API returned HTTP %d", resp.StatusCode)
	}

	var events eventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return "", fmt.Errorf("decode events: %w", err)
	}

	starts := make([]string, 0, len(events.Items))
	for _, e := range events.Items {
		start := e.Start.DateTime
		if start == "" {
			start = e.Start.Date
		}
		if start != "" {
			starts = append(starts, start)
		}
	}
	return Format(starts), nil
}

// Format renders start times as the availability summary.
func Format(starts []string) string {
	if len(starts) == 0 {
		return NoEvents
	}
	var b strings.Builder
	b.WriteString("Upcoming Availability Conflicts:\n")
	for _, s := range starts {
		fmt.Fprintf(&b, "- Busy at %s\n", s)
	}
	return b.String()
}

// Static is a calendar that always reports the same summary. It is used by
// providers without calendar access.
type Static string

// Summary implements the pipeline's calendar interface.
func (s Static) Summary(context.Context) (string, error) {
	return string(s), nil
}
