package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday.
var wednesday = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func TestExtract_FridayAfternoon(t *testing.T) {
	got := Extract("Can we meet on Friday at 2pm?", "Sync", "a@b.com", wednesday, "Asia/Kolkata")

	require.NotNil(t, got)
	assert.Equal(t, "Meeting from a@b.com", got.Title)
	assert.Equal(t, "2026-10-16", got.Date)
	assert.Equal(t, "14:00", got.Time)
	assert.Equal(t, "Asia/Kolkata", got.TimeZone)
}

func TestExtract_NoGatingWord(t *testing.T) {
	got := Extract("Please review the attached doc.", "Docs", "a@b.com", wednesday, DefaultTimeZone)

	assert.Nil(t, got)
}

func TestExtract_TimeWithoutDate(t *testing.T) {
	got := Extract("Let's talk at 9am", "Hi", "a@b.com", wednesday, DefaultTimeZone)

	require.NotNil(t, got)
	assert.Equal(t, "2026-10-14", got.Date)
	assert.Equal(t, "09:00", got.Time)
}

func TestExtract_Defaults(t *testing.T) {
	got := Extract("Give me a call next week", "Hi", "a@b.com", wednesday, DefaultTimeZone)

	require.NotNil(t, got)
	assert.Equal(t, "2026-10-14", got.Date)
	assert.Equal(t, DefaultTime, got.Time)
}

func TestExtract_TitleFromSubjectWhenMeetingMentioned(t *testing.T) {
	got := Extract("Team MEETING on friday at 3pm", "Weekly sync", "a@b.com", wednesday, DefaultTimeZone)

	require.NotNil(t, got)
	assert.Equal(t, "Weekly sync", got.Title)
	assert.Equal(t, "15:00", got.Time)
}

func TestExtract_LaterLinesWin(t *testing.T) {
	body := "Can we do a call at 9am?\nActually, make it at 4pm."

	got := Extract(body, "s", "a@b.com", wednesday, DefaultTimeZone)

	require.NotNil(t, got)
	assert.Equal(t, "16:00", got.Time)
}

func TestExtract_TimeRules(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"pm adds twelve", "call at 5 pm", "17:00"},
		{"noon is not special", "call at 12pm", "24:00"},
		{"am kept", "call at 11am", "11:00"},
		{"literal fallback", "call at 14:30 sharp", "14:30"},
		{"short literal", "call at 9", "9"},
		{"last at wins", "look at this, call at 7pm", "19:00"},
		{"no leading hour keeps default", "call at about 3pm", DefaultTime},
		{"at inside a word splits too", "that was a great call", "call"},
		{"trailing clause after at", "Meet on Friday at 2pm, that works", "works"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.body, "s", "a@b.com", wednesday, DefaultTimeZone)

			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Time)
		})
	}
}

func TestExtract_OnlyFridayMovesDate(t *testing.T) {
	got := Extract("Meeting on Monday at 11am", "s", "a@b.com", wednesday, DefaultTimeZone)

	require.NotNil(t, got)
	assert.Equal(t, "2026-10-14", got.Date)
	assert.Equal(t, "11:00", got.Time)
}

func TestExtract_FridayNeedsOn(t *testing.T) {
	got := Extract("Friday works, give me a call", "s", "a@b.com", wednesday, DefaultTimeZone)

	require.NotNil(t, got)
	assert.Equal(t, "2026-10-14", got.Date)
}

func TestExtract_OnMatchesInsideWords(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"afternoon", "Can we meet Friday afternoon? Call me."},
		{"monday", "Meeting Monday or Friday works"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.body, "s", "a@b.com", wednesday, DefaultTimeZone)

			require.NotNil(t, got)
			assert.Equal(t, "2026-10-16", got.Date)
		})
	}
}

func TestNextFriday(t *testing.T) {
	tests := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), "2026-10-16"}, // Monday
		{time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), "2026-10-16"}, // Thursday
		{time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), "2026-10-16"}, // Friday
		{time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), "2026-10-23"}, // Saturday
		{time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), "2026-10-23"}, // Sunday
		{time.Date(2026, 12, 28, 0, 0, 0, 0, time.UTC), "2027-01-01"}, // Monday, year end
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, nextFriday(tt.now).Format(dateLayout), tt.now.Weekday().String())
	}
}
