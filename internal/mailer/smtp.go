package mailer

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	gomail "gopkg.in/mail.v2"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPClient struct {
	fromEmail string
	dialer    dialer
	backoff   time.Duration
}

func NewSMTPClient(host string, port int, username, password, fromEmail string) (*SMTPClient, error) {
	if host == "" || fromEmail == "" {
		return nil, errors.New("smtp host and from email are required")
	}
	d := gomail.NewDialer(host, port, username, password)
	d.Timeout = 10 * time.Second
	return &SMTPClient{fromEmail: fromEmail, dialer: d, backoff: time.Second}, nil
}

// Send renders templateFile and delivers it, retrying with exponential
// backoff. It returns an HTTP-like status for logging.
func (c *SMTPClient) Send(templateFile, username, email string, data any) (int, error) {
	subject, body, err := render(templateFile, data)
	if err != nil {
		return -1, err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", c.fromEmail, FromName)
	m.SetAddressHeader("To", email, username)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	var retryErr error
	for i := 0; i < maxRetires; i++ {
		if retryErr = c.dialer.DialAndSend(m); retryErr == nil {
			return http.StatusOK, nil
		}
		if i < maxRetires-1 {
			time.Sleep(c.backoff * time.Duration(1<<i))
		}
	}
	return -1, fmt.Errorf("failed to send email after %d attempts, error: %w", maxRetires, retryErr)
}
