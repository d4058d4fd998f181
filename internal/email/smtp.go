package email

import (
	"context"
	"crypto/tls"

	"github.com/itchan-dev/community/internal/config"
	"github.com/itchan-dev/community/internal/logger"
	"gopkg.in/gomail.v2"
)

// SMTP delivers messages through an SMTP relay.
// Port 465 uses implicit TLS, every other port upgrades with STARTTLS.
type SMTP struct {
	config *config.Email
	dialer *gomail.Dialer
}

func NewSMTP(cfg *config.Email) *SMTP {
	d := gomail.NewDialer(cfg.SMTPServer, cfg.SMTPPort, cfg.Username, cfg.Password)
	d.SSL = cfg.SMTPPort == 465
	d.TLSConfig = &tls.Config{ServerName: cfg.SMTPServer}
	return &SMTP{config: cfg, dialer: d}
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := s.buildMessage(msg)
	if err := s.dialer.DialAndSend(m); err != nil {
		logger.Log.Error("failed to send email",
			"server", s.config.SMTPServer,
			"recipient", msg.To,
			"error", err)
		return err
	}
	return nil
}

func (s *SMTP) buildMessage(msg Message) *gomail.Message {
	from := msg.From
	if from == "" {
		from = s.config.Username
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", from, s.config.SenderName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)
	return m
}
