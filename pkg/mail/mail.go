package mail

import (
	"context"
	"fmt"
	"net/smtp"
)

// Mailer dispatches plain-text mail to a single recipient.
type Mailer interface {
	SendPlainText(ctx context.Context, recipient, subject, body string) error
}

// SMTPMailer implements Mailer over authenticated SMTP.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// NewSMTPMailer builds a mailer from SMTP credentials.
func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// SendPlainText sends a plain-text message, honoring context cancellation.
func (s *SMTPMailer) SendPlainText(ctx context.Context, recipient, subject, body string) error {
	msg := []byte(
		"From: " + s.from + "\r\n" +
			"To: " + recipient + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"\r\n" +
			body)

	errChan := make(chan error, 1)
	go func() {
		auth := smtp.PlainAuth("", s.username, s.password, s.host)
		errChan <- smtp.SendMail(fmt.Sprintf("%s:%s", s.host, s.port), auth, s.from, []string{recipient}, msg)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
