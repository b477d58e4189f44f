package transport

import (
	"context"
	"errors"

	"gopkg.in/gomail.v2"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSender delivers HTML mail over SMTP.
type EmailSender struct {
	from   string
	dialer dialer
}

func NewEmailSender(host string, port int, username, password, from string) *EmailSender {
	return &EmailSender{
		from:   from,
		dialer: gomail.NewDialer(host, port, username, password),
	}
}

func (s *EmailSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("email recipient is empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.Body)

	return s.dialer.DialAndSend(m)
}
