package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// SMTP connection security modes.
const (
	SecurityTLS      = "tls"
	SecurityStartTLS = "starttls"
	SecurityNone     = "none"
)

// SMTPConfig holds the SMTP server settings for sending replies.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string

	// Security is one of SecurityTLS, SecurityStartTLS (default) or
	// SecurityNone for local relays.
	Security string
}

// SMTPSender delivers replies through an SMTP submission server.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates an SMTPSender. An empty From uses the username.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Security == "" {
		cfg.Security = SecurityStartTLS
	}
	return &SMTPSender{cfg: cfg}
}

// Send delivers raw to the given recipients. The connection is closed
// when ctx ends.
func (s *SMTPSender) Send(ctx context.Context, to []string, raw []byte) error {
	addr := s.cfg.Host + ":" + s.cfg.Port

	client, err := s.dial(addr)
	if err != nil {
		return fmt.Errorf("connecting to SMTP %s: %w", addr, err)
	}
	defer client.Close()

	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()

	if s.cfg.Username != "" {
		auth := sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth: %w", err)
		}
	}

	if err := client.SendMail(s.cfg.From, to, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}

	return client.Quit()
}

func (s *SMTPSender) dial(addr string) (*smtp.Client, error) {
	tlsConfig := &tls.Config{ServerName: s.cfg.Host}
	switch s.cfg.Security {
	case SecurityTLS:
		return smtp.DialTLS(addr, tlsConfig)
	case SecurityNone:
		return smtp.Dial(addr)
	default:
		return smtp.DialStartTLS(addr, tlsConfig)
	}
}
