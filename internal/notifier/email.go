package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// EmailNotifier sends HTML mail through SMTP.
type EmailNotifier struct {
	cfg    EmailConfig
	logger *logrus.Logger

	send func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewEmailNotifier creates an email notifier.
func NewEmailNotifier(cfg EmailConfig, logger *logrus.Logger) *EmailNotifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
		send:   func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
	}
}

func (n *EmailNotifier) Name() string { return "email" }

// Notify mails the message to msg.To, or to the configured recipients.
func (n *EmailNotifier) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to := msg.To
	if len(to) == 0 {
		to = n.cfg.To
	}
	if len(to) == 0 {
		return errors.New("email: no recipients")
	}

	e := email.NewEmail()
	e.From = n.cfg.From
	e.To = to
	e.Subject = msg.Subject
	e.HTML = []byte(msg.HTML)
	e.Text = []byte(stripTags(msg.HTML))

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	if err := n.send(e, addr, auth); err != nil {
		n.logger.Errorf("Failed to send email to %v: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Infof("Email sent to %v: %s", to, e.Subject)
	return nil
}
