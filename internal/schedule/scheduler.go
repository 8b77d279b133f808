package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/appneural-ajith/ai-email-assistant/internal/model"
	"github.com/appneural-ajith/ai-email-assistant/internal/retry"
	"github.com/appneural-ajith/ai-email-assistant/internal/store"
)

// EventDuration is the fixed length of every booked event.
const EventDuration = time.Hour

// ErrNoIntent is returned when a message carries no scheduling intent.
var ErrNoIntent = errors.New("no scheduling intent detected")

// Event is a calendar entry to be created.
type Event struct {
	Title    string
	Start    time.Time
	End      time.Time
	TimeZone string
}

// CalendarSink creates events on an external calendar and returns a link
// to the created event.
type CalendarSink interface {
	CreateEvent(ctx context.Context, ev Event) (string, error)
}

// Scheduler reads stored messages, extracts intent and books events.
type Scheduler struct {
	store  store.Store
	sink   CalendarSink
	loc    *time.Location
	now    func() time.Time
	policy retry.Policy
	logger *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithRetry sets the policy used for calendar calls.
func WithRetry(p retry.Policy) Option {
	return func(s *Scheduler) { s.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// New creates a Scheduler. sink may be nil when only DetectIntent is used.
// An empty timeZone selects DefaultTimeZone.
func New(st store.Store, sink CalendarSink, timeZone string, opts ...Option) (*Scheduler, error) {
	if timeZone == "" {
		timeZone = DefaultTimeZone
	}
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", timeZone, err)
	}

	s := &Scheduler{
		store: st,
		sink:  sink,
		loc:   loc,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.policy.Logger == nil {
		s.policy.Logger = s.logger
	}
	return s, nil
}

// DetectIntent extracts the scheduling intent of a stored message. It
// returns (nil, nil) when the message has none and a store.ErrNotFound
// wrapped error when the message does not exist.
func (s *Scheduler) DetectIntent(ctx context.Context, id string) (*model.SchedulingIntent, error) {
	msg, err := s.store.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}

	intent := Extract(msg.Body, msg.Subject, msg.Sender, s.now().In(s.loc), s.loc.String())
	if intent == nil {
		s.logger.Info("no scheduling intent", "id", id)
		return nil, nil
	}

	s.logger.Info("detected scheduling intent",
		"id", id,
		"title", intent.Title,
		"date", intent.Date,
		"time", intent.Time,
	)
	return intent, nil
}

// CreateEvent books a one-hour event for the intent found in a stored
// message and returns the calendar link.
func (s *Scheduler) CreateEvent(ctx context.Context, id string) (string, *model.SchedulingIntent, error) {
	if s.sink == nil {
		return "", nil, errors.New("no calendar configured")
	}

	intent, err := s.DetectIntent(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if intent == nil {
		return "", nil, fmt.Errorf("message %s: %w", id, ErrNoIntent)
	}

	ev, err := s.eventFor(intent)
	if err != nil {
		return "", intent, fmt.Errorf("message %s: %w", id, err)
	}

	var link string
	err = s.policy.Do(ctx, "creating calendar event", func(ctx context.Context) error {
		var err error
		link, err = s.sink.CreateEvent(ctx, ev)
		return err
	})
	if err != nil {
		return "", intent, err
	}

	s.logger.Info("event created", "id", id, "link", link)
	return link, intent, nil
}

// eventFor turns the textual date and time of an intent into an Event in
// the scheduler's zone. An hour of 24 rolls over to midnight of the next day.
func (s *Scheduler) eventFor(intent *model.SchedulingIntent) (Event, error) {
	day, err := time.ParseInLocation(dateLayout, intent.Date, s.loc)
	if err != nil {
		return Event{}, fmt.Errorf("invalid intent date %q: %w", intent.Date, err)
	}

	hour, minute, err := parseClock(intent.Time)
	if err != nil {
		return Event{}, err
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, s.loc)
	return Event{
		Title:    intent.Title,
		Start:    start,
		End:      start.Add(EventDuration),
		TimeZone: s.loc.String(),
	}, nil
}

func parseClock(v string) (int, int, error) {
	h, m, ok := strings.Cut(v, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid intent time %q", v)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 24 {
		return 0, 0, fmt.Errorf("invalid intent time %q", v)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid intent time %q", v)
	}
	return hour, minute, nil
}
