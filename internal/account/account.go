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

// Package account resolves a user id to the mailbox and calendar the poll
// loop works against.
package account

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/clinicdesk/secretary/internal/assistant"
	"github.com/clinicdesk/secretary/internal/calendar"
	"github.com/clinicdesk/secretary/internal/gmail"
	"github.com/clinicdesk/secretary/internal/googleauth"
	"github.com/clinicdesk/secretary/internal/models"
	"github.com/clinicdesk/secretary/internal/store"
)

// ErrForeignUser means the opener's mailbox belongs to a different user.
var ErrForeignUser = errors.New("mailbox belongs to another user")

// Mailbox reads, marks and answers mail for one account.
type Mailbox interface {
	FetchUnread(ctx context.Context) ([]models.InboundMessage, error)
	MarkRead(ctx context.Context, id string) error
	SendReply(ctx context.Context, reply models.Reply) error
}

// Calendar summarises upcoming busy times.
type Calendar interface {
	Summary(ctx context.Context) (string, error)
}

// Account is one user's connected mailbox.
type Account struct {
	UserID   string
	Address  string
	Mailbox  Mailbox
	Calendar Calendar
}

// Opener builds the account for a user.
type Opener interface {
	Open(ctx context.Context, userID string) (*Account, error)
}

// CredentialStore loads and refreshes stored OAuth tokens.
type CredentialStore interface {
	LoadCredentials(ctx context.Context, userID string) (*store.Credentials, error)
	SaveToken(ctx context.Context, userID string, tok *oauth2.Token) error
}

// GmailOpener opens accounts from per-user Google OAuth credentials.
type GmailOpener struct {
	Store           CredentialStore
	OAuth           *oauth2.Config
	GmailBaseURL    string
	CalendarBaseURL string
	MaxResults      int
}

// Open implements Opener. It returns store.ErrNoCredentials (wrapped) when the
// user has not connected a mailbox.
func (o *GmailOpener) Open(ctx context.Context, userID string) (*Account, error) {
	creds, err := o.Store.LoadCredentials(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("open gmail account: %w", err)
	}

	httpClient := googleauth.Client(ctx, o.OAuth, userID, creds.Token, o.Store)
	return &Account{
		UserID:   userID,
		Address:  creds.EmailAddress,
		Mailbox:  gmail.NewClient(httpClient, o.GmailBaseURL, o.MaxResults),
		Calendar: calendar.NewClient(httpClient, o.CalendarBaseURL),
	}, nil
}

// IMAPOpener serves one preconfigured mailbox to the single user it is bound
// to. It is used with the IMAP provider, which has no per-user credentials or
// calendar.
type IMAPOpener struct {
	UserID  string
	Address string
	Mailbox Mailbox
}

// Open implements Opener. Any user other than UserID gets ErrForeignUser.
func (o *IMAPOpener) Open(_ context.Context, userID string) (*Account, error) {
	if o.Mailbox == nil {
		return nil, fmt.Errorf("open account %s: no mailbox configured", userID)
	}
	if o.UserID == "" || userID != o.UserID {
		return nil, fmt.Errorf("open account %s: %w", userID, ErrForeignUser)
	}
	return &Account{
		UserID:   userID,
		Address:  o.Address,
		Mailbox:  o.Mailbox,
		Calendar: calendar.Static(assistant.UnknownCalendar),
	}, nil
}
