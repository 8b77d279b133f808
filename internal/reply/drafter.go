// Package reply drafts answers to stored messages and sends them, either
// automatically for trusted senders or after confirmation.
package reply

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/appneural-ajith/ai-email-assistant/internal/ai"
	"github.com/appneural-ajith/ai-email-assistant/internal/model"
	"github.com/appneural-ajith/ai-email-assistant/internal/retry"
	"github.com/appneural-ajith/ai-email-assistant/internal/schedule"
	"github.com/appneural-ajith/ai-email-assistant/internal/store"
)

const (
	replyMaxLen = 150
	replyMinLen = 50
)

// Draft is a reply ready to be sent.
type Draft struct {
	MessageID string
	To        string
	Subject   string
	Body      string

	// Meeting is set when an event was booked while drafting.
	Meeting   *model.SchedulingIntent
	EventLink string
}

// IntentReader describes the tone of a stored message.
type IntentReader interface {
	InferIntent(ctx context.Context, id string) (string, error)
}

// EventBooker books the meeting proposed in a stored message.
type EventBooker interface {
	CreateEvent(ctx context.Context, id string) (string, *model.SchedulingIntent, error)
}

// Sender delivers an RFC 5322 message.
type Sender interface {
	Send(ctx context.Context, to []string, raw []byte) error
}

// Confirmer asks whether a draft may be sent.
type Confirmer interface {
	Confirm(ctx context.Context, d *Draft) (bool, error)
}

// Config holds the collaborators of a Drafter. Booker and Confirmer are
// optional: without a booker no meeting is scheduled, and without a
// confirmer only auto-sent drafts leave.
type Config struct {
	Store       store.Store
	Intents     IntentReader
	Summarizer  ai.Summarizer
	Booker      EventBooker
	Sender      Sender
	Confirmer   Confirmer
	From        string
	SafeSenders []string
	Policy      retry.Policy
	Logger      *slog.Logger
}

// Drafter drafts and sends replies.
type Drafter struct {
	cfg  Config
	safe map[string]bool
	now  func() time.Time
}

// New creates a Drafter.
func New(cfg Config) *Drafter {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Policy.Logger == nil {
		cfg.Policy.Logger = cfg.Logger
	}
	safe := make(map[string]bool, len(cfg.SafeSenders))
	for _, s := range cfg.SafeSenders {
		safe[strings.ToLower(strings.TrimSpace(s))] = true
	}
	return &Drafter{cfg: cfg, safe: safe, now: time.Now}
}

// ShouldReply reports whether a message asks for an answer: the inferred
// intent mentions a request or the body mentions a meeting. Unknown ids
// need no reply.
func (d *Drafter) ShouldReply(ctx context.Context, id string) (bool, error) {
	msg, err := d.cfg.Store.GetMessage(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	intent, err := d.cfg.Intents.InferIntent(ctx, id)
	if err != nil {
		return false, err
	}

	return strings.Contains(strings.ToLower(intent), "request") ||
		strings.Contains(strings.ToLower(msg.Body), "meeting"), nil
}

// Draft writes a reply to a stored message. When a booker is configured,
// the meeting proposed in the message is booked first and the reply
// proposes that time. A failed booking is logged and the reply falls back
// to a general acknowledgment.
func (d *Drafter) Draft(ctx context.Context, id string) (*Draft, error) {
	msg, err := d.cfg.Store.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}

	draft := &Draft{
		MessageID: id,
		To:        msg.Sender,
		Subject:   replySubject(msg.Subject),
	}

	if d.cfg.Booker != nil {
		link, intent, err := d.cfg.Booker.CreateEvent(ctx, id)
		switch {
		case errors.Is(err, schedule.ErrNoIntent):
			d.cfg.Logger.Info("no meeting to book", "id", id)
		case err != nil:
			d.cfg.Logger.Warn("booking meeting failed", "id", id, "error", err)
		default:
			draft.Meeting = intent
			draft.EventLink = link
		}
	}

	prompt := buildPrompt(msg, draft.Meeting)
	err = d.cfg.Policy.Do(ctx, "drafting reply to "+id, func(ctx context.Context) error {
		var err error
		draft.Body, err = d.cfg.Summarizer.Summarize(ctx, prompt, replyMaxLen, replyMinLen)
		return err
	})
	if err != nil {
		return nil, err
	}

	return draft, nil
}

// Send drafts a reply and delivers it. With autoSend set, replies to safe
// senders go out without asking; everything else needs confirmation. The
// returned bool reports whether the reply was sent.
func (d *Drafter) Send(ctx context.Context, id string, autoSend bool) (bool, *Draft, error) {
	draft, err := d.Draft(ctx, id)
	if err != nil {
		return false, nil, err
	}

	d.cfg.Logger.Info("drafted reply",
		"id", id,
		"to", draft.To,
		"subject", draft.Subject,
		"body", draft.Body,
	)

	if !(autoSend && d.isSafe(draft.To)) {
		if d.cfg.Confirmer == nil {
			d.cfg.Logger.Info("reply not sent, no confirmation available", "id", id)
			return false, draft, nil
		}
		ok, err := d.cfg.Confirmer.Confirm(ctx, draft)
		if err != nil {
			return false, draft, fmt.Errorf("confirming reply: %w", err)
		}
		if !ok {
			d.cfg.Logger.Info("reply declined", "id", id)
			return false, draft, nil
		}
	}

	raw, err := Compose(d.cfg.From, draft, d.now())
	if err != nil {
		return false, draft, err
	}

	err = d.cfg.Policy.Do(ctx, "sending reply to "+id, func(ctx context.Context) error {
		return d.cfg.Sender.Send(ctx, []string{addressOf(draft.To)}, raw)
	})
	if err != nil {
		return false, draft, err
	}

	d.cfg.Logger.Info("sent reply", "id", id, "to", draft.To)
	return true, draft, nil
}

func (d *Drafter) isSafe(sender string) bool {
	return d.safe[strings.ToLower(addressOf(sender))]
}

// Compose renders a draft as a plain-text RFC 5322 message.
func Compose(from string, draft *Draft, date time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetSubject(draft.Subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	setAddress(&h, "From", from)
	setAddress(&h, "To", draft.To)

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating reply: %w", err)
	}
	if _, err := w.Write([]byte(draft.Body)); err != nil {
		return nil, fmt.Errorf("writing reply body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing reply: %w", err)
	}
	return buf.Bytes(), nil
}

// setAddress stores a parsed address list, or the raw value when it does
// not parse.
func setAddress(h *mail.Header, key, value string) {
	if value == "" {
		return
	}
	if list, err := mail.ParseAddressList(value); err == nil {
		h.SetAddressList(key, list)
		return
	}
	h.Set(key, value)
}

// addressOf extracts the bare address from a From-style value.
func addressOf(v string) string {
	if a, err := mail.ParseAddress(v); err == nil {
		return a.Address
	}
	return strings.TrimSpace(v)
}

func replySubject(subject string) string {
	return "Re: " + subject
}

func buildPrompt(msg *model.Message, meeting *model.SchedulingIntent) string {
	var sb strings.Builder
	sb.WriteString("Draft a polite email reply to this email:\n")
	fmt.Fprintf(&sb, "From: %s\nSubject: %s\nBody: %s\n\n", msg.Sender, msg.Subject, msg.Body)
	sb.WriteString("Context: ")
	if meeting != nil {
		fmt.Fprintf(&sb, "A meeting was scheduled for %s at %s (%s). Propose this time in the reply.",
			meeting.Date, meeting.Time, meeting.TimeZone)
	} else {
		sb.WriteString("No specific action detected; provide a general acknowledgment.")
	}
	sb.WriteString("\nKeep it concise and professional.")
	return sb.String()
}
