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

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/oauth2"
)

// ErrNoCredentials means the user has no connected mailbox.
var ErrNoCredentials = errors.New("no connected mailbox credentials")

// Credentials are a user's stored mailbox OAuth credentials.
type Credentials struct {
	UserID       string
	EmailAddress string
	Token        *oauth2.Token
}

// LoadCredentials returns the connected credentials for userID.
func (s *Store) LoadCredentials(ctx context.Context, userID string) (*Credentials, error) {
	c := Credentials{UserID: userID}
	var (
		access  string
		refresh string
		expiry  *time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT email_address, access_token, refresh_token, token_expiry
		FROM gmail_credentials
		WHERE user_id = $1 AND is_connected
	`, userID).Scan(&c.EmailAddress, &access, &refresh, &expiry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials for %s: %w", userID, err)
	}
	if refresh == "" && access == "" {
		return nil, ErrNoCredentials
	}

	c.Token = &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	}
	if expiry != nil {
		c.Token.Expiry = *expiry
	}
	return &c, nil
}

// SaveToken persists a refreshed token. An empty refresh token keeps the
// stored one, since Google only returns it on first consent.
func (s *Store) SaveToken(ctx context.Context, userID string, tok *oauth2.Token) error {
	var expiry *time.Time
	if !tok.Expiry.IsZero() {
		e := tok.Expiry.UTC()
		expiry = &e
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE gmail_credentials
		SET access_token  = $1,
		    refresh_token = COALESCE(NULLIF($2, ''), refresh_token),
		    token_expiry  = $3,
		    updated_at    = NOW()
		WHERE user_id = $4
	`, tok.AccessToken, tok.RefreshToken, expiry, userID)
	if err != nil {
		return fmt.Errorf("save token for %s: %w", userID, err)
	}
	return nil
}
