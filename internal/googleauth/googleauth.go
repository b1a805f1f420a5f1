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

// Package googleauth builds per-user OAuth2 HTTP clients for Google APIs from
// stored tokens, persisting refreshed tokens back to the store.
package googleauth

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scopes requested by the connect flow and needed by this service.
var Scopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/gmail.send",
	"https://www.googleapis.com/auth/calendar.readonly",
}

// TokenSaver persists a user's refreshed token.
type TokenSaver interface {
	SaveToken(ctx context.Context, userID string, tok *oauth2.Token) error
}

// Config returns the OAuth2 config for the given client credentials.
func Config(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       Scopes,
	}
}

// Client returns an HTTP client authorised as userID. Whenever the library
// refreshes the access token, the new token is handed to saver.
func Client(ctx context.Context, cfg *oauth2.Config, userID string, tok *oauth2.Token, saver TokenSaver) *http.Client {
	src := &persistingSource{
		ctx:    ctx,
		base:   cfg.TokenSource(ctx, tok),
		userID: userID,
		saver:  saver,
		last:   tok.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src))
}

// persistingSource wraps a refreshing token source and saves new tokens.
type persistingSource struct {
	ctx    context.Context
	base   oauth2.TokenSource
	userID string
	saver  TokenSaver

	mu   sync.Mutex
	last string
}

// Token implements oauth2.TokenSource. A failed save is logged; the fresh
// token is still returned so the current request succeeds.
func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	changed := tok.AccessToken != s.last
	s.last = tok.AccessToken
	s.mu.Unlock()

	if changed && s.saver != nil {
		if err := s.saver.SaveToken(s.ctx, s.userID, tok); err != nil {
			slog.Error("failed to persist refreshed token", "user", s.userID, "error", err)
		} else {
			slog.Info("refreshed mailbox token persisted", "user", s.userID)
		}
	}
	return tok, nil
}
