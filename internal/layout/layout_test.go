package layout

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendahof/internal/model"
)

var testDay = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func occAt(t *testing.T, startHour, startMin, endHour, endMin int) model.Occurrence {
	t.Helper()
	start := testDay.Add(time.Duration(startHour)*time.Hour + time.Duration(startMin)*time.Minute)
	end := testDay.Add(time.Duration(endHour)*time.Hour + time.Duration(endMin)*time.Minute)
	id := uuid.New()
	return model.Occurrence{
		Appointment: model.Appointment{ID: id, Start: start, End: end},
		InstanceKey: start.Format(time.RFC3339),
		Start:       start,
		End:         end,
	}
}

func overlaps(a, b model.Occurrence) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

func TestAssignColumns_Empty(t *testing.T) {
	out := AssignColumns(nil)
	require.NotNil(t, out)
	assert.Empty(t, out)
}

func TestAssignColumns_SingleAppointment(t *testing.T) {
	out := AssignColumns([]model.Occurrence{occAt(t, 9, 0, 10, 0)})
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0].Column)
	assert.Equal(t, 1, out[0].TotalColumns)
}

func TestAssignColumns_BackToBackShareColumnZero(t *testing.T) {
	// A ends exactly when B starts: half-open intervals, no overlap.
	a := occAt(t, 9, 0, 9, 30)
	b := occAt(t, 9, 30, 10, 0)

	out := AssignColumns([]model.Occurrence{a, b})
	require.Len(t, out, 2)
	for _, p := range out {
		assert.Equal(t, 0, p.Column)
		assert.Equal(t, 1, p.TotalColumns)
	}
}

func TestAssignColumns_ThreeWayScenario(t *testing.T) {
	// 09:00-09:30 and 09:15-09:45 overlap, so they split into columns 0/1.
	// 09:40-10:00 overlaps only the second; column 0 is free again by 09:40,
	// so the greedy rule assigns it column 0 and the group stays at 2 wide.
	a := occAt(t, 9, 0, 9, 30)
	b := occAt(t, 9, 15, 9, 45)
	c := occAt(t, 9, 40, 10, 0)

	out := AssignColumns([]model.Occurrence{a, b, c})
	require.Len(t, out, 3)

	byID := map[uuid.UUID]Positioned{}
	for _, p := range out {
		byID[p.Occurrence.Appointment.ID] = p
	}

	assert.Equal(t, 0, byID[a.Appointment.ID].Column)
	assert.Equal(t, 1, byID[b.Appointment.ID].Column)
	assert.Equal(t, 0, byID[c.Appointment.ID].Column)
	for _, p := range out {
		assert.Equal(t, 2, p.TotalColumns)
	}
}

func TestAssignColumns_SeparateGroupsDoNotShareWidth(t *testing.T) {
	// Morning pair overlaps; the afternoon one stands alone and must not
	// inherit the morning group's column count.
	a := occAt(t, 9, 0, 10, 0)
	b := occAt(t, 9, 30, 10, 30)
	c := occAt(t, 14, 0, 15, 0)

	out := AssignColumns([]model.Occurrence{a, b, c})
	require.Len(t, out, 3)

	byID := map[uuid.UUID]Positioned{}
	for _, p := range out {
		byID[p.Occurrence.Appointment.ID] = p
	}
	assert.Equal(t, 2, byID[a.Appointment.ID].TotalColumns)
	assert.Equal(t, 2, byID[b.Appointment.ID].TotalColumns)
	assert.Equal(t, 1, byID[c.Appointment.ID].TotalColumns)
	assert.Equal(t, 0, byID[c.Appointment.ID].Column)
}

func TestAssignColumns_Invariants(t *testing.T) {
	// Random-ish dense day; check the structural invariants hold:
	// columns in range, same-column entries pairwise non-overlapping,
	// and no wasted columns (every column index below TotalColumns used).
	rnd := rand.New(rand.NewSource(42))
	var occs []model.Occurrence
	for i := 0; i < 40; i++ {
		startMin := rnd.Intn(10 * 60) // within a 10h window
		dur := 15 + rnd.Intn(90)
		occs = append(occs, occAt(t, 8+startMin/60, startMin%60, 8+(startMin+dur)/60, (startMin+dur)%60))
	}

	out := AssignColumns(occs)
	require.Len(t, out, len(occs))

	for _, p := range out {
		assert.GreaterOrEqual(t, p.TotalColumns, 1)
		assert.GreaterOrEqual(t, p.Column, 0)
		assert.Less(t, p.Column, p.TotalColumns)
	}

	// Overlapping occurrences must never share a column. Occurrences in
	// different groups never overlap, so this covers the whole output.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if overlaps(out[i].Occurrence, out[j].Occurrence) {
				assert.NotEqual(t, out[i].Column, out[j].Column,
					"overlapping occurrences share column %d", out[i].Column)
			}
		}
	}

	// Output is in sorted order; re-derive the group partition and check
	// each group's TotalColumns is exactly the highest used column + 1.
	groupStart := 0
	maxEnd := out[0].Occurrence.End
	for i := 1; i <= len(out); i++ {
		if i < len(out) && out[i].Occurrence.Start.Before(maxEnd) {
			if out[i].Occurrence.End.After(maxEnd) {
				maxEnd = out[i].Occurrence.End
			}
			continue
		}
		maxCol := 0
		for _, p := range out[groupStart:i] {
			if p.Column > maxCol {
				maxCol = p.Column
			}
		}
		for _, p := range out[groupStart:i] {
			assert.Equal(t, maxCol+1, p.TotalColumns)
		}
		if i < len(out) {
			groupStart = i
			maxEnd = out[i].Occurrence.End
		}
	}
}

func TestAssignColumns_Deterministic(t *testing.T) {
	a := occAt(t, 9, 0, 10, 0)
	b := occAt(t, 9, 0, 10, 0) // identical range; ID breaks the tie
	c := occAt(t, 9, 30, 11, 0)

	first := AssignColumns([]model.Occurrence{a, b, c})
	// Feed the same set in a different order.
	second := AssignColumns([]model.Occurrence{c, b, a})

	require.Len(t, second, len(first))
	firstByID := map[uuid.UUID]Positioned{}
	for _, p := range first {
		firstByID[p.Occurrence.Appointment.ID] = p
	}
	for _, p := range second {
		prev := firstByID[p.Occurrence.Appointment.ID]
		assert.Equal(t, prev.Column, p.Column)
		assert.Equal(t, prev.TotalColumns, p.TotalColumns)
	}
}

func TestApplyGeometry_MinHeightClamp(t *testing.T) {
	// 10 minutes at 2.5 px/min would be 25px raw; the 15-minute floor makes
	// it 37.5px.
	occ := occAt(t, 9, 0, 9, 10)
	items := AssignColumns([]model.Occurrence{occ})
	m := Metrics{PixelsPerMinute: 2.5, MinVisualMinutes: 15, AvailableWidth: 300, DayStartHour: 7}
	ApplyGeometry(items, testDay.Add(7*time.Hour), m)

	require.Len(t, items, 1)
	assert.InDelta(t, 37.5, items[0].Height, 1e-9)
	assert.InDelta(t, 2*60*2.5, items[0].Y, 1e-9) // 09:00 with a 07:00 anchor
}

func TestApplyGeometry_NegativeDurationClamped(t *testing.T) {
	// End before start: rendered at minimum height, never rejected.
	occ := occAt(t, 10, 0, 9, 0)
	items := AssignColumns([]model.Occurrence{occ})
	m := Metrics{PixelsPerMinute: 2, MinVisualMinutes: 15, AvailableWidth: 300}
	ApplyGeometry(items, testDay.Add(7*time.Hour), m)

	require.Len(t, items, 1)
	assert.InDelta(t, 30.0, items[0].Height, 1e-9)
}

func TestApplyGeometry_ColumnWidths(t *testing.T) {
	a := occAt(t, 9, 0, 10, 0)
	b := occAt(t, 9, 30, 10, 30)
	m := Metrics{PixelsPerMinute: 2, MinVisualMinutes: 15, SlotPaddingPx: 2, AvailableWidth: 300, DayStartHour: 7}

	items := Day(testDay, []model.Occurrence{a, b}, m)
	require.Len(t, items, 2)

	for _, p := range items {
		assert.InDelta(t, 150.0-4, p.Width, 1e-9)
		assert.InDelta(t, float64(p.Column)*150+2, p.X, 1e-9)
	}
}

func TestWeek_BucketsByDay(t *testing.T) {
	mon := occAt(t, 9, 0, 10, 0)
	tue := occAt(t, 9, 0, 10, 0)
	tue.Start = tue.Start.AddDate(0, 0, 1)
	tue.End = tue.End.AddDate(0, 0, 1)
	outside := occAt(t, 9, 0, 10, 0)
	outside.Start = outside.Start.AddDate(0, 0, 9)
	outside.End = outside.End.AddDate(0, 0, 9)

	cols := Week(testDay, 7, []model.Occurrence{mon, tue, outside}, Metrics{})
	require.Len(t, cols, 7)
	assert.Len(t, cols[0].Items, 1)
	assert.Len(t, cols[1].Items, 1)
	for d := 2; d < 7; d++ {
		assert.Empty(t, cols[d].Items)
	}
	// Monday and Tuesday do not form one overlap group.
	assert.Equal(t, 1, cols[0].Items[0].TotalColumns)
	assert.Equal(t, 1, cols[1].Items[0].TotalColumns)
}
