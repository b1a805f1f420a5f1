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

package account

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/clinicdesk/secretary/internal/assistant"
	"github.com/clinicdesk/secretary/internal/googleauth"
	"github.com/clinicdesk/secretary/internal/models"
	"github.com/clinicdesk/secretary/internal/store"
)

type fakeCreds struct {
	creds *store.Credentials
	err   error
}

func (f *fakeCreds) LoadCredentials(_ context.Context, _ string) (*store.Credentials, error) {
	return f.creds, f.err
}

func (f *fakeCreds) SaveToken(_ context.Context, _ string, _ *oauth2.Token) error {
	return nil
}

// TestGmailOpener_UsesStoredToken verifies the opened mailbox authenticates
// with the user's stored access token.
func TestGmailOpener_UsesStoredToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"messages":[]}`))
	}))
	defer srv.Close()

	o := &GmailOpener{
		Store: &fakeCreds{creds: &store.Credentials{
			UserID:       "u1",
			EmailAddress: "office@example.com",
			Token: &oauth2.Token{
				AccessToken:  "access-1",
				RefreshToken: "refresh-1",
				TokenType:    "Bearer",
				Expiry:       time.Now().Add(time.Hour),
			},
		}},
		OAuth:        googleauth.Config("id", "secret"),
		GmailBaseURL: srv.URL,
	}

	acct, err := o.Open(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if acct.Address != "office@example.com" || acct.UserID != "u1" {
		t.Errorf("account = %+v", acct)
	}

	msgs, err := acct.Mailbox.FetchUnread(context.Background())
	if err != nil {
		t.Fatalf("FetchUnread: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d messages, want 0", len(msgs))
	}
	if gotAuth != "Bearer access-1" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer access-1")
	}
}

// TestGmailOpener_NoCredentials verifies the sentinel survives wrapping.
func TestGmailOpener_NoCredentials(t *testing.T) {
	o := &GmailOpener{Store: &fakeCreds{err: store.ErrNoCredentials}, OAuth: googleauth.Config("id", "secret")}
	_, err := o.Open(context.Background(), "u1")
	if !errors.Is(err, store.ErrNoCredentials) {
		t.Errorf("err = %v, want ErrNoCredentials", err)
	}
}

type nopMailbox struct{}

func (nopMailbox) FetchUnread(context.Context) ([]models.InboundMessage, error) { return nil, nil }
func (nopMailbox) MarkRead(context.Context, string) error                       { return nil }
func (nopMailbox) SendReply(context.Context, models.Reply) error                { return nil }

// TestIMAPOpener verifies the bound user gets the mailbox and the unknown calendar.
func TestIMAPOpener(t *testing.T) {
	o := &IMAPOpener{UserID: "owner", Address: "desk@example.com", Mailbox: nopMailbox{}}
	acct, err := o.Open(context.Background(), "owner")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if acct.UserID != "owner" || acct.Address != "desk@example.com" {
		t.Errorf("account = %+v", acct)
	}
	summary, err := acct.Calendar.Summary(context.Background())
	if err != nil || summary != assistant.UnknownCalendar {
		t.Errorf("calendar summary = %q, %v; want %q", summary, err, assistant.UnknownCalendar)
	}

	if _, err := (&IMAPOpener{UserID: "x"}).Open(context.Background(), "x"); err == nil {
		t.Error("expected error without a mailbox")
	}
}

// TestIMAPOpener_RejectsOtherUsers verifies the shared mailbox is never
// handed to a user it does not belong to.
func TestIMAPOpener_RejectsOtherUsers(t *testing.T) {
	tests := []struct {
		name   string
		bound  string
		userID string
	}{
		{"other user", "owner", "intruder"},
		{"case differs", "owner", "Owner"},
		{"unbound opener", "", "owner"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &IMAPOpener{UserID: tt.bound, Address: "desk@example.com", Mailbox: nopMailbox{}}
			acct, err := o.Open(context.Background(), tt.userID)
			if !errors.Is(err, ErrForeignUser) {
				t.Errorf("err = %v, want ErrForeignUser", err)
			}
			if acct != nil {
				t.Errorf("account = %+v, want nil", acct)
			}
		})
	}
}
