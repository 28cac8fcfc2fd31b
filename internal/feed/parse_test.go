package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//test//EN
BEGIN:VEVENT
UID:timed-1
SUMMARY:Consulta externa
DTSTART:20260302T130000Z
DTEND:20260302T140000Z
END:VEVENT
BEGIN:VEVENT
UID:allday-1
SUMMARY:Feriado
DTSTART;VALUE=DATE:20260303
DTEND;VALUE=DATE:20260304
END:VEVENT
BEGIN:VEVENT
UID:weekly-1
SUMMARY:Reunião semanal
DTSTART:20260302T170000Z
DTEND:20260302T180000Z
RRULE:FREQ=WEEKLY;COUNT=8
END:VEVENT
BEGIN:VEVENT
SUMMARY:sem uid
DTSTART:20260302T100000Z
DTEND:20260302T110000Z
END:VEVENT
END:VCALENDAR
`

func TestParse_Window(t *testing.T) {
	src := Source{ID: "personal", URL: "https://example.com/cal.ics"}
	rangeStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	rangeEnd := rangeStart.AddDate(0, 0, 7)

	blocks, err := Parse(src, []byte(sampleICS), rangeStart, rangeEnd)
	require.NoError(t, err)

	// timed-1, allday-1, and one weekly-1 instance: the Mar 9 17:00
	// repetition falls after the window end at Mar 9 00:00.
	byUID := map[string]int{}
	for _, b := range blocks {
		byUID[b.UID]++
		assert.Equal(t, "personal", b.SourceID)
	}
	assert.Equal(t, 1, byUID["timed-1"])
	assert.Equal(t, 1, byUID["allday-1"])
	assert.Equal(t, 1, byUID["weekly-1"])
	// The UID-less event is skipped, not fatal.
	assert.Len(t, blocks, 3)
}

func TestParse_AllDayNormalized(t *testing.T) {
	src := Source{ID: "holidays"}
	rangeStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := rangeStart.AddDate(0, 0, 14)

	blocks, err := Parse(src, []byte(sampleICS), rangeStart, rangeEnd)
	require.NoError(t, err)

	found := false
	for _, b := range blocks {
		if b.UID == "allday-1" {
			found = true
			assert.True(t, b.AllDay)
			assert.Equal(t, 0, b.Start.Hour())
			assert.Equal(t, 24*time.Hour, b.End.Sub(b.Start))
		}
	}
	require.True(t, found, "all-day block missing")
}

func TestParse_RecurringExpansion(t *testing.T) {
	src := Source{ID: "personal"}
	rangeStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	rangeEnd := rangeStart.AddDate(0, 0, 22)

	blocks, err := Parse(src, []byte(sampleICS), rangeStart, rangeEnd)
	require.NoError(t, err)

	var weekly []time.Time
	for _, b := range blocks {
		if b.UID == "weekly-1" {
			weekly = append(weekly, b.Start)
			assert.Equal(t, time.Hour, b.End.Sub(b.Start))
		}
	}
	require.Len(t, weekly, 4)
	for i := 1; i < len(weekly); i++ {
		assert.Equal(t, 7*24*time.Hour, weekly[i].Sub(weekly[i-1]))
	}
}

func TestParse_EmptyBody(t *testing.T) {
	_, err := Parse(Source{ID: "x"}, nil, time.Now(), time.Now().Add(time.Hour))
	assert.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)",
		redactURL("https://example.com/private/cal.ics?token=abcd"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}
