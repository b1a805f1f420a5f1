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

// Package imapmail is a single-account mailbox that reads over IMAP and
// replies over SMTP, for deployments that use an app password instead of
// per-user OAuth.
package imapmail

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/clinicdesk/secretary/internal/mailmsg"
	"github.com/clinicdesk/secretary/internal/models"
)

const (
	DefaultIMAPAddr   = "imap.gmail.com:993"
	DefaultSMTPAddr   = "smtp.gmail.com:465"
	DefaultMaxResults = 10
	defaultTimeout    = 30 * time.Second
	snippetLen        = 200
)

// Config holds the account credentials and server addresses.
type Config struct {
	Address    string
	Password   string
	IMAPAddr   string
	SMTPAddr   string
	Folder     string
	MaxResults int
	Timeout    time.Duration
}

// session is the subset of *client.Client used here.
type session interface {
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error
	Logout() error
}

// Mailbox reads and answers one account.
type Mailbox struct {
	cfg      Config
	dialIMAP func() (session, error)
	dialSMTP func() (net.Conn, error)
	now      func() time.Time
}

// New creates a mailbox, applying defaults for empty fields.
func New(cfg Config) (*Mailbox, error) {
	if cfg.Address == "" || cfg.Password == "" {
		return nil, fmt.Errorf("imap address and password are required")
	}
	if cfg.IMAPAddr == "" {
		cfg.IMAPAddr = DefaultIMAPAddr
	}
	if cfg.SMTPAddr == "" {
		cfg.SMTPAddr = DefaultSMTPAddr
	}
	if cfg.Folder == "" {
		cfg.Folder = "INBOX"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	m := &Mailbox{cfg: cfg, now: time.Now}
	m.dialIMAP = m.connectIMAP
	m.dialSMTP = func() (net.Conn, error) {
		dialer := &net.Dialer{Timeout: cfg.Timeout}
		return tls.DialWithDialer(dialer, "tcp", cfg.SMTPAddr, &tls.Config{ServerName: hostOf(cfg.SMTPAddr)})
	}
	return m, nil
}

// Address is the account's email address.
func (m *Mailbox) Address() string {
	return m.cfg.Address
}

func (m *Mailbox) connectIMAP() (session, error) {
	c, err := client.DialWithDialerTLS(&net.Dialer{Timeout: m.cfg.Timeout}, m.cfg.IMAPAddr, &tls.Config{ServerName: hostOf(m.cfg.IMAPAddr)})
	if err != nil {
		return nil, fmt.Errorf("IMAP dial: %w", err)
	}
	c.Timeout = m.cfg.Timeout

	if err := c.Login(m.cfg.Address, m.cfg.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("IMAP login: %w", err)
	}
	if _, err := c.Select(m.cfg.Folder, false); err != nil {
		c.Logout()
		return nil, fmt.Errorf("IMAP select %s: %w", m.cfg.Folder, err)
	}
	return c, nil
}

// FetchUnread returns today's unseen messages, oldest first, without setting
// the \Seen flag.
func (m *Mailbox) FetchUnread(ctx context.Context) ([]models.InboundMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := m.dialIMAP()
	if err != nil {
		return nil, err
	}
	defer s.Logout()

	now := m.now()
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Since = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	uids, err := s.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("IMAP search: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	if len(uids) > m.cfg.MaxResults {
		uids = uids[len(uids)-m.cfg.MaxResults:]
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope, section.FetchItem()}

	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- s.UidFetch(seqSet, items, ch)
	}()

	var out []models.InboundMessage
	for msg := range ch {
		parsed, err := parseFetched(msg, section)
		if err != nil {
			slog.Warn("skipping unparseable message", "uid", msg.Uid, "error", err)
			continue
		}
		out = append(out, parsed)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("IMAP fetch: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return uidOf(out[i].ID) < uidOf(out[j].ID) })
	return out, nil
}

// MarkRead sets \Seen on the message with the given UID.
func (m *Mailbox) MarkRead(ctx context.Context, id string) error {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid message uid %q: %w", id, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := m.dialIMAP()
	if err != nil {
		return err
	}
	defer s.Logout()

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uint32(uid))
	if err := s.UidStore(seqSet, imap.FormatFlagsOp(imap.AddFlags, true), []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("IMAP store \\Seen on %s: %w", id, err)
	}
	return nil
}

func parseFetched(msg *imap.Message, section *imap.BodySectionName) (models.InboundMessage, error) {
	out := models.InboundMessage{ID: strconv.FormatUint(uint64(msg.Uid), 10)}
	if env := msg.Envelope; env != nil {
		out.Subject = env.Subject
		out.MessageID = env.MessageId
		if len(env.From) > 0 {
			out.Sender = formatAddress(env.From[0])
		}
	}
	if out.Sender == "" {
		out.Sender = "Unknown"
	}
	if out.Subject == "" {
		out.Subject = "(No Subject)"
	}

	if literal := msg.GetBody(section); literal != nil {
		raw, err := io.ReadAll(literal)
		if err != nil {
			return out, fmt.Errorf("read body: %w", err)
		}
		text, html, err := mailmsg.Extract(raw)
		if err != nil {
			return out, err
		}
		out.Body = mailmsg.Readable(text, html)
	}
	out.Snippet = snippet(out.Body)
	return out, nil
}

func formatAddress(a *imap.Address) string {
	addr := a.MailboxName + "@" + a.HostName
	if a.PersonalName == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", a.PersonalName, addr)
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) <= snippetLen {
		return s
	}
	return string(r[:snippetLen])
}

func uidOf(id string) uint64 {
	n, _ := strconv.ParseUint(id, 10, 32)
	return n
}

func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return strings.TrimSpace(addr)
	}
	return host
}
