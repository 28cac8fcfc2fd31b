package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendahof/internal/model"
)

func baseAppt(start time.Time, dur time.Duration) model.Appointment {
	return model.Appointment{
		ID:     uuid.New(),
		Title:  "Maria - Limpeza",
		Start:  start,
		End:    start.Add(dur),
		Status: model.StatusScheduled,
	}
}

func TestExpand_SingleInsideWindow(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, loc)
	appt := baseAppt(start, 30*time.Minute)

	res, err := Expand([]model.Appointment{appt}, ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      start.AddDate(0, 0, -1),
		RangeEnd:        start.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 1)
	assert.True(t, res.Occurrences[0].Start.Equal(start))
	assert.Equal(t, appt.ID, res.Occurrences[0].Appointment.ID)
	assert.NotEmpty(t, res.Occurrences[0].InstanceKey)
}

func TestExpand_SingleOutsideWindowDropped(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, loc)
	appt := baseAppt(start, 30*time.Minute)

	res, err := Expand([]model.Appointment{appt}, ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      start.AddDate(0, 0, 5),
		RangeEnd:        start.AddDate(0, 0, 10),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Occurrences)
}

func TestExpand_WeeklySeries(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 2, 14, 0, 0, 0, loc) // Monday
	appt := baseAppt(start, time.Hour)
	appt.RRule = "FREQ=WEEKLY;COUNT=10"

	res, err := Expand([]model.Appointment{appt}, ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      start,
		RangeEnd:        start.AddDate(0, 0, 21),
	})
	require.NoError(t, err)
	// Weeks 0, 1, 2, 3 fall inside a 21-day inclusive window.
	require.Len(t, res.Occurrences, 4)
	for i, occ := range res.Occurrences {
		assert.True(t, occ.Start.Equal(start.AddDate(0, 0, 7*i)), "occurrence %d", i)
		assert.Equal(t, time.Hour, occ.End.Sub(occ.Start))
	}
	assert.Empty(t, res.TruncatedSeries)
}

func TestExpand_ExDateSkipsInstance(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 2, 14, 0, 0, 0, loc)
	appt := baseAppt(start, time.Hour)
	appt.RRule = "FREQ=WEEKLY;COUNT=4"
	appt.ExDates = []time.Time{start.AddDate(0, 0, 7)}

	res, err := Expand([]model.Appointment{appt}, ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      start,
		RangeEnd:        start.AddDate(0, 0, 28),
	})
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 3)
	for _, occ := range res.Occurrences {
		assert.False(t, occ.Start.Equal(start.AddDate(0, 0, 7)), "excluded instance still present")
	}
}

func TestExpand_SeriesCapRecorded(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, loc)
	appt := baseAppt(start, 30*time.Minute)
	appt.RRule = "FREQ=DAILY"

	res, err := Expand([]model.Appointment{appt}, ExpandConfig{
		DisplayLocation:         loc,
		RangeStart:              start,
		RangeEnd:                start.AddDate(1, 0, 0),
		MaxOccurrencesPerSeries: 5,
	})
	require.NoError(t, err)
	assert.Len(t, res.Occurrences, 5)
	require.Len(t, res.TruncatedSeries, 1)
	assert.Equal(t, appt.ID, res.TruncatedSeries[0])
}

func TestExpand_BadRRuleFallsBackToBase(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, loc)
	appt := baseAppt(start, 30*time.Minute)
	appt.RRule = "FREQ=NOPE"

	res, err := Expand([]model.Appointment{appt}, ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      start.AddDate(0, 0, -1),
		RangeEnd:        start.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 1)
	assert.True(t, res.Occurrences[0].Start.Equal(start))
}

func TestExpand_InvertedRangeRejected(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)
	_, err := Expand(nil, ExpandConfig{RangeStart: now, RangeEnd: now.AddDate(0, 0, -1)})
	assert.Error(t, err)
}

func TestExpand_TimezoneNormalization(t *testing.T) {
	sp, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	start := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	appt := baseAppt(start, time.Hour)

	res, err := Expand([]model.Appointment{appt}, ExpandConfig{
		DisplayLocation: sp,
		RangeStart:      start.AddDate(0, 0, -1),
		RangeEnd:        start.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 1)
	assert.Equal(t, sp, res.Occurrences[0].Start.Location())
	assert.Equal(t, 9, res.Occurrences[0].Start.Hour()) // UTC-3
}
