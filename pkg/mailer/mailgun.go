package mailer

import (
	"context"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

const defaultSendTimeout = 10 * time.Second

// Mailgun delivers rendered e-mails through the Mailgun HTTP API.
type Mailgun struct {
	From    string
	Timeout time.Duration
	client  mg.Mailgun
}

// NewMailgun builds a sender for domain. apiBase selects the region
// (e.g. https://api.eu.mailgun.net/v3); empty keeps the US endpoint.
func NewMailgun(domain, apiKey, from, apiBase string) *Mailgun {
	client := mg.NewMailgun(domain, apiKey)
	if apiBase != "" {
		client.SetAPIBase(apiBase)
	}
	return &Mailgun{From: from, Timeout: defaultSendTimeout, client: client}
}

// Send delivers one message; html may be empty for text-only mail.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	msg := m.client.NewMessage(m.From, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	ctx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()
	_, _, err := m.client.Send(ctx, msg)
	return err
}

var _ Sender = (*Mailgun)(nil)
