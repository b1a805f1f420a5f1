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

package imapmail

import (
	"context"
	"fmt"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/clinicdesk/secretary/internal/mailmsg"
	"github.com/clinicdesk/secretary/internal/models"
)

// SendReply delivers reply over SMTP with PLAIN authentication.
func (m *Mailbox) SendReply(ctx context.Context, reply models.Reply) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rcpt := mailmsg.AddressOnly(reply.To)
	if rcpt == "" {
		return fmt.Errorf("reply has no recipient")
	}

	now := m.now()
	raw := mailmsg.Compose(m.cfg.Address, reply, mailmsg.GenerateMessageID(m.cfg.Address, now), now)

	conn, err := m.dialSMTP()
	if err != nil {
		return fmt.Errorf("SMTP dial: %w", err)
	}
	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Auth(sasl.NewPlainClient("", m.cfg.Address, m.cfg.Password)); err != nil {
		return fmt.Errorf("SMTP auth: %w", err)
	}
	if err := c.Mail(m.cfg.Address, nil); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}
	if err := c.Rcpt(rcpt, nil); err != nil {
		return fmt.Errorf("SMTP RCPT TO %q: %w", rcpt, err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("SMTP write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("SMTP finalize message: %w", err)
	}
	if err := c.Quit(); err != nil {
		return fmt.Errorf("SMTP QUIT: %w", err)
	}
	return nil
}
