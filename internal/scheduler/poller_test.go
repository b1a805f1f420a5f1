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

package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/clinicdesk/secretary/internal/account"
	"github.com/clinicdesk/secretary/internal/models"
	"github.com/clinicdesk/secretary/internal/pipeline"
	"github.com/clinicdesk/secretary/internal/sender"
	"github.com/clinicdesk/secretary/internal/store"
)

type fakeUsers struct {
	mu     sync.Mutex
	users  []string
	err    error
	cycles int
	notify chan struct{}
}

func (f *fakeUsers) DiscoverUsers(context.Context) ([]string, error) {
	f.mu.Lock()
	f.cycles++
	f.mu.Unlock()
	if f.notify != nil {
		select {
		case f.notify <- struct{}{}:
		default:
		}
	}
	return f.users, f.err
}

type nopMailbox struct{}

func (nopMailbox) FetchUnread(context.Context) ([]models.InboundMessage, error) { return nil, nil }
func (nopMailbox) MarkRead(context.Context, string) error                       { return nil }
func (nopMailbox) SendReply(context.Context, models.Reply) error                { return nil }

type fakeOpener struct {
	errs map[string]error
}

func (f *fakeOpener) Open(_ context.Context, userID string) (*account.Account, error) {
	if err := f.errs[userID]; err != nil {
		return nil, err
	}
	return &account.Account{UserID: userID, Mailbox: nopMailbox{}}, nil
}

// recorder logs which stage ran for which user.
type recorder struct {
	calls     []string
	ingestErr map[string]error
}

func (r *recorder) ProcessInbox(_ context.Context, inbox pipeline.Inbox) (pipeline.Summary, error) {
	r.calls = append(r.calls, "ingest:"+inbox.UserID)
	return pipeline.Summary{}, r.ingestErr[inbox.UserID]
}

func (r *recorder) SendApproved(_ context.Context, userID string, _ sender.Mailer) (sender.Result, error) {
	r.calls = append(r.calls, "send:"+userID)
	return sender.Result{}, nil
}

// TestRunCycle_PerUserFailuresContinue verifies users are served in order and
// one user's failure does not stop the others.
func TestRunCycle_PerUserFailuresContinue(t *testing.T) {
	rec := &recorder{ingestErr: map[string]error{"u2": errors.New("gmail 500")}}
	p := NewPoller(Config{
		Users: &fakeUsers{users: []string{"u1", "u2", "u3", "u4"}},
		Accounts: &fakeOpener{errs: map[string]error{
			"u3": store.ErrNoCredentials,
		}},
		Ingest: rec,
		Sender: rec,
	})

	if err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"ingest:u1", "send:u1", "ingest:u2", "ingest:u4", "send:u4"}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

// TestRunCycle_DiscoveryError verifies a listing failure fails the cycle.
func TestRunCycle_DiscoveryError(t *testing.T) {
	rec := &recorder{}
	p := NewPoller(Config{Users: &fakeUsers{err: errors.New("db down")}, Accounts: &fakeOpener{}, Ingest: rec, Sender: rec})

	if err := p.RunCycle(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(rec.calls) != 0 {
		t.Errorf("calls = %v, want none", rec.calls)
	}
}

// TestRun_PollsUntilCancelled verifies the loop runs immediately, repeats on
// the interval, and exits on cancel without leaking goroutines.
func TestRun_PollsUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	users := &fakeUsers{notify: make(chan struct{})}
	rec := &recorder{}
	p := NewPoller(Config{Users: users, Accounts: &fakeOpener{}, Ingest: rec, Sender: rec, Interval: 5 * time.Millisecond, Backoff: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		select {
		case <-users.notify:
		case <-time.After(2 * time.Second):
			t.Fatalf("cycle %d did not run", i+1)
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// TestRun_BacksOffAfterFailure verifies a failed cycle waits the backoff
// rather than the interval.
func TestRun_BacksOffAfterFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	users := &fakeUsers{err: errors.New("db down"), notify: make(chan struct{})}
	rec := &recorder{}
	p := NewPoller(Config{Users: users, Accounts: &fakeOpener{}, Ingest: rec, Sender: rec, Interval: time.Hour, Backoff: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-users.notify:
		case <-time.After(2 * time.Second):
			t.Fatalf("cycle %d did not run; backoff not applied", i+1)
		}
	}
	cancel()
	<-done
}

// TestNewPoller_Defaults verifies zero durations are defaulted.
func TestNewPoller_Defaults(t *testing.T) {
	p := NewPoller(Config{})
	if p.interval != DefaultInterval || p.backoff != DefaultBackoff {
		t.Errorf("interval=%v backoff=%v", p.interval, p.backoff)
	}
}
