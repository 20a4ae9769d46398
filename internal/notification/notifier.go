package notification

import (
	"fmt"
	"net/smtp"
	"strings"

	"ms-support/internal/config"
	"ms-support/internal/logger"
)

// Notifier delivers a rendered message to a recipient.
type Notifier interface {
	Send(to []string, subject, body string) error
}

// SMTPNotifier sends mail through a plain-auth SMTP relay.
type SMTPNotifier struct {
	cfg  config.EmailConfig
	auth smtp.Auth
	addr string
	log  *logger.Logger
}

func NewSMTPNotifier(cfg config.EmailConfig, log *logger.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		cfg:  cfg,
		auth: smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost),
		addr: fmt.Sprintf("%s:%s", cfg.SMTPHost, cfg.SMTPPort),
		log:  log,
	}
}

func (n *SMTPNotifier) Send(to []string, subject, body string) error {
	message := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		n.cfg.FromAddress,
		strings.Join(to, ","),
		subject,
		body,
	))

	if err := smtp.SendMail(n.addr, n.auth, n.cfg.FromAddress, to, message); err != nil {
		n.log.Error("EMAIL", fmt.Sprintf("failed to send mail to %s: %v", strings.Join(to, ","), err))
		return err
	}

	n.log.Info("EMAIL", fmt.Sprintf("mail sent to %s: %s", strings.Join(to, ","), subject))
	return nil
}

// ConsoleNotifier prints messages instead of sending them. Used in local
// development when no SMTP relay is configured.
type ConsoleNotifier struct {
	Logger *logger.Logger
}

func (n *ConsoleNotifier) Send(to []string, subject, body string) error {
	n.Logger.Info("EMAIL", fmt.Sprintf("[console] to=%s subject=%q", strings.Join(to, ","), subject))
	return nil
}
