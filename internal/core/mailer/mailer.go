// Package mailer delivers transactional email over SMTP.
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"natours-api/internal/core/config"
)

type Message struct {
	To      string
	Name    string
	Subject string
	Text    string
}

// SMTP sends messages through one configured relay.
type SMTP struct {
	client   *mail.Client
	from     string
	fromName string
}

func NewSMTP(c config.Mail) (*SMTP, error) {
	opts := []mail.Option{
		mail.WithPort(c.Port),
		mail.WithTimeout(15 * time.Second),
	}
	if c.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if c.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(c.Username),
			mail.WithPassword(c.Password),
		)
	}
	client, err := mail.NewClient(c.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mailer: %w", err)
	}
	return &SMTP{client: client, from: c.From, fromName: c.FromName}, nil
}

func (s *SMTP) Send(ctx context.Context, m Message) error {
	msg, err := s.build(m)
	if err != nil {
		return err
	}
	return s.client.DialAndSendWithContext(ctx, msg)
}

func (s *SMTP) build(m Message) (*mail.Msg, error) {
	return buildMsg(s.from, s.fromName, m)
}

func buildMsg(from, fromName string, m Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(fromName, from); err != nil {
		return nil, fmt.Errorf("mailer: from: %w", err)
	}
	if m.Name != "" {
		if err := msg.AddToFormat(m.Name, m.To); err != nil {
			return nil, fmt.Errorf("mailer: to: %w", err)
		}
	} else if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("mailer: to: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, m.Text)
	return msg, nil
}

// Log writes messages to the logger instead of sending them. Used when no
// SMTP host is configured.
type Log struct {
	L *zap.Logger
}

func (l Log) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.L.Info("mail (not sent)", zap.String("to", m.To), zap.String("subject", m.Subject), zap.String("text", m.Text))
	return nil
}
