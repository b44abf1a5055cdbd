// Package smtpnotifier delivers cancellation notices as plain-text email.
package smtpnotifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"text/template"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/notify"
)

type Config struct {
	Host      string
	Port      string
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Notifier implements notify.Notifier over SMTP.
type Notifier struct {
	cfg  Config
	send sendFunc
}

func New(cfg Config) (*Notifier, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.FromEmail == "" {
		cfg.FromEmail = cfg.Username
	}
	if cfg.FromEmail == "" {
		return nil, errors.New("smtp from address is required")
	}
	return &Notifier{cfg: cfg, send: smtp.SendMail}, nil
}

var body = template.Must(template.New("cancellation").Parse(`Hi {{.RecipientName}},

Your trip from {{.DepartureLabel}} to {{.ArrivalLabel}} on {{.TripDate}} has been cancelled by the driver.

{{.RefundAmount}} credits have been returned to your balance.
`))

func (n *Notifier) NotifyCancellation(ctx context.Context, c notify.Cancellation) error {
	if c.RecipientEmail == "" {
		return errors.New("recipient has no email address")
	}
	msg, err := n.message(c)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	addr := net.JoinHostPort(n.cfg.Host, n.cfg.Port)

	// net/smtp has no context support; the send runs to completion and ctx bounds the wait.
	done := make(chan error, 1)
	go func() { done <- n.send(addr, auth, n.cfg.FromEmail, []string{c.RecipientEmail}, msg) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) message(c notify.Cancellation) ([]byte, error) {
	c.RecipientName = headerSafe(c.RecipientName)
	c.RecipientEmail = headerSafe(c.RecipientEmail)
	c.DepartureLabel = headerSafe(c.DepartureLabel)
	c.ArrivalLabel = headerSafe(c.ArrivalLabel)
	c.TripDate = headerSafe(c.TripDate)

	var text bytes.Buffer
	if err := body.Execute(&text, c); err != nil {
		return nil, fmt.Errorf("render cancellation email: %w", err)
	}

	from := n.cfg.FromEmail
	if n.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", headerSafe(n.cfg.FromName), n.cfg.FromEmail)
	}
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", c.RecipientEmail)
	fmt.Fprintf(&msg, "Subject: Trip cancelled: %s to %s\r\n", c.DepartureLabel, c.ArrivalLabel)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(strings.ReplaceAll(text.String(), "\n", "\r\n"))
	return msg.Bytes(), nil
}

func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
