package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"github.com/appneural-ajith/ai-email-assistant/internal/ai"
	"github.com/appneural-ajith/ai-email-assistant/internal/calendar"
	"github.com/appneural-ajith/ai-email-assistant/internal/credential"
	"github.com/appneural-ajith/ai-email-assistant/internal/googleauth"
	"github.com/appneural-ajith/ai-email-assistant/internal/model"
	"github.com/appneural-ajith/ai-email-assistant/internal/reply"
	"github.com/appneural-ajith/ai-email-assistant/internal/retry"
	"github.com/appneural-ajith/ai-email-assistant/internal/schedule"
	"github.com/appneural-ajith/ai-email-assistant/internal/source"
	"github.com/appneural-ajith/ai-email-assistant/internal/source/email"
	"github.com/appneural-ajith/ai-email-assistant/internal/source/gmail"
	"github.com/appneural-ajith/ai-email-assistant/internal/source/mbox"
	"github.com/appneural-ajith/ai-email-assistant/internal/store"
)

// app carries the loaded configuration and builds components on demand.
type app struct {
	configPath string
	logLevel   string

	cfg    *model.AppConfig
	logger *slog.Logger
	google *http.Client
}

func (a *app) load(_ *cobra.Command) error {
	cfg, err := model.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	a.cfg = cfg
	a.logger = setupLogger(cfg.Log.Level)
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(a.cfg.Database.Path, store.Options{
		ReplaceAttachments: a.cfg.Database.ReplaceAttachments,
	}, a.logger)
}

func (a *app) policy() retry.Policy {
	return retry.Policy{
		Attempts: a.cfg.Retry.Attempts,
		Timeout:  time.Duration(a.cfg.Retry.TimeoutSec) * time.Second,
		Logger:   a.logger,
	}
}

func (a *app) location() *time.Location {
	loc, err := time.LoadLocation(a.cfg.Calendar.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (a *app) googleClient(ctx context.Context) (*http.Client, error) {
	if a.google != nil {
		return a.google, nil
	}
	gc := a.cfg.Source.Gmail
	client, err := googleauth.HTTPClient(ctx, gc.CredentialsFile, gc.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("google auth: %w", err)
	}
	a.google = client
	return client, nil
}

func (a *app) source(ctx context.Context) (source.MessageSource, error) {
	sc := a.cfg.Source
	switch sc.Type {
	case "gmail":
		client, err := a.googleClient(ctx)
		if err != nil {
			return nil, err
		}
		srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
		if err != nil {
			return nil, err
		}
		return gmail.New(srv, sc.Query, a.logger), nil

	case "imap":
		password, err := credential.Lookup(credential.KeyIMAPPassword)
		if err != nil {
			return nil, fmt.Errorf("imap password: %w", err)
		}
		client := email.NewIMAPClient(email.IMAPConfig{
			Host:     sc.IMAP.Host,
			Port:     sc.IMAP.Port,
			Username: sc.IMAP.Username,
			Password: password,
			TLS:      sc.IMAP.TLS,
			Mailbox:  sc.IMAP.Mailbox,
		})
		return email.NewSource(client, a.logger), nil

	case "mbox":
		if sc.Mbox.Path == "" {
			return nil, errors.New("mbox path not configured")
		}
		return mbox.New(sc.Mbox.Path, a.logger), nil
	}
	return nil, fmt.Errorf("unknown source type %q", sc.Type)
}

// sender returns the reply transport: the Gmail API for Gmail sources,
// SMTP otherwise.
func (a *app) sender(ctx context.Context) (reply.Sender, error) {
	if a.cfg.Source.Type == "gmail" {
		client, err := a.googleClient(ctx)
		if err != nil {
			return nil, err
		}
		srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
		if err != nil {
			return nil, err
		}
		return gmail.NewSender(srv, a.logger), nil
	}

	sc := a.cfg.Source.SMTP
	if sc.Host == "" {
		return nil, errors.New("smtp host not configured")
	}
	var password string
	if sc.Username != "" {
		var err error
		if password, err = credential.Lookup(credential.KeySMTPPassword); err != nil {
			return nil, fmt.Errorf("smtp password: %w", err)
		}
	}
	return email.NewSMTPSender(email.SMTPConfig{
		Host:     sc.Host,
		Port:     sc.Port,
		Username: sc.Username,
		Password: password,
		From:     sc.From,
		Security: sc.Security,
	}), nil
}

// calendarSink connects to Google Calendar. Calendar access uses the same
// OAuth token as the Gmail source regardless of the configured source.
func (a *app) calendarSink(ctx context.Context) (*calendar.Sink, error) {
	client, err := a.googleClient(ctx)
	if err != nil {
		return nil, err
	}
	return calendar.New(ctx, a.cfg.Calendar.ID, option.WithHTTPClient(client))
}

func (a *app) scheduler(st store.Store, sink schedule.CalendarSink) (*schedule.Scheduler, error) {
	p := a.policy()
	p.Permanent = calendar.IsPermanent
	return schedule.New(st, sink, a.cfg.Calendar.TimeZone,
		schedule.WithRetry(p),
		schedule.WithLogger(a.logger),
	)
}

func (a *app) aiClient() (*ai.Client, error) {
	key, err := credential.Lookup(credential.KeyAnthropic)
	if err != nil {
		return nil, fmt.Errorf("anthropic api key: %w", err)
	}
	return ai.NewClient(key, a.cfg.AI.Model, a.cfg.AI.MaxTokens,
		time.Duration(a.cfg.AI.TimeoutSec)*time.Second), nil
}

func (a *app) analyzer(st store.Store, client *ai.Client) *ai.Analyzer {
	return ai.NewAnalyzer(st, client, client, a.policy(), a.logger)
}
