// Package ui holds the interactive prompts of the command line.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/appneural-ajith/ai-email-assistant/internal/credential"
	"github.com/appneural-ajith/ai-email-assistant/internal/model"
)

// Answers collects the setup values that are not stored in the config file.
type Answers struct {
	APIKey       string
	IMAPPassword string
	SMTPPassword string
	SafeSenders  string
}

// SetupForm builds the first-run wizard. Values are written into cfg and a;
// call Apply once the form completes.
func SetupForm(cfg *model.AppConfig, a *Answers) *huh.Form {
	a.SafeSenders = strings.Join(cfg.Reply.SafeSenders, ", ")
	notSource := func(t string) func() bool {
		return func() bool { return cfg.Source.Type != t }
	}
	sendsSMTP := func() bool { return cfg.Source.Type == "gmail" }

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Mail Source").
				Description("Where messages are read from").
				Options(
					huh.NewOption("Gmail - Google API with OAuth", "gmail"),
					huh.NewOption("IMAP - any IMAP mailbox", "imap"),
					huh.NewOption("Mbox - local archive file", "mbox"),
				).
				Value(&cfg.Source.Type),
			huh.NewInput().
				Title("Database Path").
				Value(&cfg.Database.Path).
				Validate(validateRequired("Database path")),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("OAuth Client Secret").
				Description("credentials.json downloaded from the Google console").
				Value(&cfg.Source.Gmail.CredentialsFile).
				Validate(validateRequired("Client secret")),
			huh.NewInput().
				Title("OAuth Token File").
				Value(&cfg.Source.Gmail.TokenFile).
				Validate(validateRequired("Token file")),
			huh.NewInput().
				Title("Search Query").
				Description("Optional Gmail search filter").
				Placeholder("is:unread").
				Value(&cfg.Source.Query),
		).WithHideFunc(notSource("gmail")),
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP Host").
				Placeholder("imap.example.com").
				Value(&cfg.Source.IMAP.Host).
				Validate(validateRequired("IMAP Host")),
			huh.NewInput().
				Title("IMAP Port").
				Placeholder("993").
				Value(&cfg.Source.IMAP.Port).
				Validate(validatePort),
			huh.NewInput().
				Title("Username").
				Placeholder("user@example.com").
				Value(&cfg.Source.IMAP.Username).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("Password").
				Description("Stored in the system keyring").
				EchoMode(huh.EchoModePassword).
				Value(&a.IMAPPassword),
			huh.NewConfirm().
				Title("Use TLS").
				Affirmative("Yes").
				Negative("No").
				Value(&cfg.Source.IMAP.TLS),
		).WithHideFunc(notSource("imap")),
		huh.NewGroup(
			huh.NewInput().
				Title("Mbox File").
				Value(&cfg.Source.Mbox.Path).
				Validate(validateRequired("Mbox path")),
		).WithHideFunc(notSource("mbox")),
		huh.NewGroup(
			huh.NewInput().
				Title("SMTP Host").
				Description("Submission server for replies").
				Placeholder("smtp.example.com").
				Value(&cfg.Source.SMTP.Host),
			huh.NewInput().
				Title("SMTP Port").
				Placeholder("587").
				Value(&cfg.Source.SMTP.Port).
				Validate(validatePort),
			huh.NewInput().
				Title("SMTP Username").
				Value(&cfg.Source.SMTP.Username),
			huh.NewInput().
				Title("SMTP Password").
				EchoMode(huh.EchoModePassword).
				Value(&a.SMTPPassword),
		).WithHideFunc(sendsSMTP),
		huh.NewGroup(
			huh.NewInput().
				Title("Time Zone").
				Description("IANA zone for new calendar events").
				Value(&cfg.Calendar.TimeZone).
				Validate(validateTimeZone),
			huh.NewInput().
				Title("Anthropic API Key").
				Description("Stored in the system keyring. Leave empty to keep the current key").
				EchoMode(huh.EchoModePassword).
				Value(&a.APIKey),
			huh.NewInput().
				Title("Safe Senders").
				Description("Comma-separated addresses that get replies without confirmation").
				Value(&a.SafeSenders),
		),
	)
}

// RunSetup runs the wizard on the terminal, then stores the secrets.
func RunSetup(ctx context.Context, cfg *model.AppConfig) error {
	var a Answers
	if err := SetupForm(cfg, &a).RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return fmt.Errorf("setup aborted")
		}
		return err
	}
	Apply(cfg, &a)
	return SaveSecrets(&a, credential.Set)
}

// Apply copies the non-secret answers into cfg.
func Apply(cfg *model.AppConfig, a *Answers) {
	var safe []string
	for _, s := range strings.Split(a.SafeSenders, ",") {
		if s = strings.TrimSpace(s); s != "" {
			safe = append(safe, s)
		}
	}
	cfg.Reply.SafeSenders = safe
	if cfg.Reply.From == "" {
		switch {
		case cfg.Source.SMTP.Username != "":
			cfg.Reply.From = cfg.Source.SMTP.Username
		case cfg.Source.IMAP.Username != "":
			cfg.Reply.From = cfg.Source.IMAP.Username
		}
	}
}

// SaveSecrets stores every non-empty secret with set.
func SaveSecrets(a *Answers, set func(key, value string) error) error {
	secrets := []struct{ key, value string }{
		{credential.KeyAnthropic, a.APIKey},
		{credential.KeyIMAPPassword, a.IMAPPassword},
		{credential.KeySMTPPassword, a.SMTPPassword},
	}
	for _, s := range secrets {
		if s.value == "" {
			continue
		}
		if err := set(s.key, s.value); err != nil {
			return fmt.Errorf("saving %s: %w", s.key, err)
		}
	}
	return nil
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validatePort(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("port is required")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return fmt.Errorf("port must be a number")
		}
	}
	return nil
}

func validateTimeZone(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("time zone is required")
	}
	if _, err := time.LoadLocation(s); err != nil {
		return fmt.Errorf("unknown time zone %q", s)
	}
	return nil
}
