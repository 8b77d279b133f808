// Package calendar books events on Google Calendar.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/appneural-ajith/ai-email-assistant/internal/schedule"
)

// DefaultCalendarID selects the authorized user's primary calendar.
const DefaultCalendarID = "primary"

// localLayout is a wall-clock time without offset; the zone travels in
// the TimeZone field of the event.
const localLayout = "2006-01-02T15:04:05"

// ErrPermanent marks failures that a retry cannot fix.
var ErrPermanent = errors.New("calendar request rejected")

// Sink implements schedule.CalendarSink on top of the Calendar v3 API.
type Sink struct {
	srv        *calendar.Service
	calendarID string
}

// New creates a Sink from client options, typically option.WithHTTPClient
// with an authorized client.
func New(ctx context.Context, calendarID string, opts ...option.ClientOption) (*Sink, error) {
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating Calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	return &Sink{srv: srv, calendarID: calendarID}, nil
}

// CreateEvent inserts ev and returns its HTML link.
func (s *Sink) CreateEvent(ctx context.Context, ev schedule.Event) (string, error) {
	created, err := s.srv.Events.Insert(s.calendarID, &calendar.Event{
		Summary: ev.Title,
		Start: &calendar.EventDateTime{
			DateTime: ev.Start.Format(localLayout),
			TimeZone: ev.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: ev.End.Format(localLayout),
			TimeZone: ev.TimeZone,
		},
	}).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 &&
			apiErr.Code != http.StatusTooManyRequests {
			return "", fmt.Errorf("creating event: %w: %w", ErrPermanent, err)
		}
		return "", fmt.Errorf("creating event: %w", err)
	}
	return created.HtmlLink, nil
}

// IsPermanent reports whether err must not be retried.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
