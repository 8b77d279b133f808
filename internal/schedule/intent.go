// Package schedule infers meeting intent from message text and books it on
// a calendar.
package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/appneural-ajith/ai-email-assistant/internal/model"
)

const (
	// DefaultTime is used when no line names a time.
	DefaultTime = "10:00"

	// DefaultTimeZone is the zone intents are reported in unless configured.
	DefaultTimeZone = "Asia/Kolkata"

	dateLayout = "2006-01-02"
)

// gateWords decides whether a body is considered at all. It matches whole
// words so "attached" alone does not count. The per-line rules below match
// plain substrings.
var gateWords = regexp.MustCompile(`(?i)\b(meeting|call|schedule|on|at|next)\b`)

// Extract looks for a meeting proposal in body. It returns nil when none of
// the gating words appear. The heuristic is deliberately narrow: only
// "Friday" moves the date, and a time without am/pm is taken as the first
// five characters after "at" with no validation.
//
// now supplies the current date and is used as-is; callers convert it to
// the zone named by tz first.
func Extract(body, subject, sender string, now time.Time, tz string) *model.SchedulingIntent {
	if !gateWords.MatchString(body) {
		return nil
	}

	title := fmt.Sprintf("Meeting from %s", sender)
	if strings.Contains(strings.ToLower(body), "meeting") {
		title = subject
	}

	date := now.Format(dateLayout)
	clock := DefaultTime

	for _, line := range strings.Split(body, "\n") {
		lower := strings.ToLower(line)

		if strings.Contains(lower, "on") && strings.Contains(lower, "friday") {
			date = nextFriday(now).Format(dateLayout)
		}

		if t, ok := timeAfterAt(lower); ok {
			clock = t
		}
	}

	return &model.SchedulingIntent{
		Title:    title,
		Date:     date,
		Time:     clock,
		TimeZone: tz,
	}
}

// nextFriday returns the first Friday on or after now.
func nextFriday(now time.Time) time.Time {
	weekday := (int(now.Weekday()) + 6) % 7 // Monday = 0
	ahead := ((4-weekday)%7 + 7) % 7
	return now.AddDate(0, 0, ahead)
}

// timeAfterAt reads a time from the text that follows the last "at" in a
// lower-cased line, including an "at" inside a word. ok is false when the
// line has no "at" or an am/pm time has no leading hour.
func timeAfterAt(lower string) (string, bool) {
	i := strings.LastIndex(lower, "at")
	if i < 0 {
		return "", false
	}
	rest := strings.TrimSpace(lower[i+len("at"):])

	switch {
	case strings.Contains(rest, "pm"):
		hour, ok := leadingInt(rest)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%02d:00", hour+12), true
	case strings.Contains(rest, "am"):
		hour, ok := leadingInt(rest)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%02d:00", hour), true
	default:
		r := []rune(rest)
		if len(r) > 5 {
			r = r[:5]
		}
		return string(r), true
	}
}

func leadingInt(s string) (int, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
