// Package mail sends the storefront's transactional email.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends plain-text mail with PLAIN auth.
type SMTPMailer struct {
	host     string
	port     string
	from     string
	password string
	send     sendFunc
}

func NewSMTPMailer(host, port, from, password string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		from:     from,
		password: password,
		send:     smtp.SendMail,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	auth := smtp.PlainAuth("", m.from, m.password, m.host)

	if err := m.send(m.host+":"+m.port, auth, m.from, []string{msg.To}, m.render(msg)); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("to", msg.To).Msg("smtp send failed")
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (m *SMTPMailer) render(msg Message) []byte {
	var b strings.Builder
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("From: " + m.from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body + "\r\n")
	return []byte(b.String())
}

// LogMailer stands in when SMTP is not configured. It logs the subject and
// recipient only.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	zerolog.Ctx(ctx).Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email not sent: smtp disabled")
	return nil
}
