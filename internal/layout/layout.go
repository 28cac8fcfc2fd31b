package layout

import (
	"sort"
	"time"

	"agendahof/internal/model"
)

const (
	defaultPixelsPerMinute  = 2.5
	defaultMinVisualMinutes = 15
	defaultDayStartHour     = 7
)

// Metrics controls how time ranges are mapped onto pixel geometry.
// Zero fields fall back to the package defaults, so a zero Metrics is
// usable as-is.
type Metrics struct {
	// PixelsPerMinute is the vertical scale.
	PixelsPerMinute float64

	// MinVisualMinutes floors the rendered height of an appointment so a
	// very short (or malformed) one stays tappable.
	MinVisualMinutes int

	// SlotPaddingPx is subtracted from each side of a column slot.
	SlotPaddingPx float64

	// AvailableWidth is the total horizontal space of one day column.
	AvailableWidth float64

	// DayStartHour is the hour of day the agenda view is anchored at;
	// y = 0 corresponds to this hour.
	DayStartHour int
}

func (m Metrics) withDefaults() Metrics {
	if m.PixelsPerMinute <= 0 {
		m.PixelsPerMinute = defaultPixelsPerMinute
	}
	if m.MinVisualMinutes <= 0 {
		m.MinVisualMinutes = defaultMinVisualMinutes
	}
	if m.AvailableWidth <= 0 {
		m.AvailableWidth = 300
	}
	if m.DayStartHour < 0 || m.DayStartHour > 23 {
		m.DayStartHour = defaultDayStartHour
	}
	return m
}

// Positioned wraps one occurrence with its assigned column and pixel
// geometry. Layout output is derived state: it is recomputed on every pass
// and never stored.
type Positioned struct {
	Occurrence model.Occurrence

	// Column is the 0-based slot inside the overlap group; TotalColumns is
	// shared by every member of the group so all cards get equal width.
	Column       int
	TotalColumns int

	X      float64
	Y      float64
	Width  float64
	Height float64
}

// AssignColumns computes (Column, TotalColumns) for each occurrence.
//
// Occurrences are sorted by start ascending, ties by end ascending, then by
// appointment ID and instance key so the assignment is stable across
// re-renders. They are then partitioned into overlap groups (an occurrence
// joins the active group while its start is before the running maximum end)
// and greedily given the lowest column whose previous occupant has already
// ended. Intervals are half-open: an occurrence starting exactly when
// another ends does not overlap it.
//
// An empty input yields an empty (non-nil) output.
func AssignColumns(occs []model.Occurrence) []Positioned {
	out := make([]Positioned, 0, len(occs))
	if len(occs) == 0 {
		return out
	}

	sorted := make([]model.Occurrence, len(occs))
	copy(sorted, occs)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if !a.End.Equal(b.End) {
			return a.End.Before(b.End)
		}
		if a.Appointment.ID != b.Appointment.ID {
			return a.Appointment.ID.String() < b.Appointment.ID.String()
		}
		return a.InstanceKey < b.InstanceKey
	})

	groupStart := 0
	maxEnd := sorted[0].End
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && sorted[i].Start.Before(maxEnd) {
			// Still chained into the active group.
			if sorted[i].End.After(maxEnd) {
				maxEnd = sorted[i].End
			}
			continue
		}
		out = append(out, assignGroup(sorted[groupStart:i])...)
		if i < len(sorted) {
			groupStart = i
			maxEnd = sorted[i].End
		}
	}

	return out
}

// assignGroup colors one overlap group. Input is already sorted by start,
// so a column is free as soon as its last occupant's end is not after the
// candidate's start (greedy interval coloring, which is optimal for
// interval graphs under start order).
func assignGroup(group []model.Occurrence) []Positioned {
	var columnEnds []time.Time
	placed := make([]Positioned, 0, len(group))

	for _, occ := range group {
		col := -1
		for c, end := range columnEnds {
			if !end.After(occ.Start) {
				col = c
				break
			}
		}
		if col == -1 {
			col = len(columnEnds)
			columnEnds = append(columnEnds, occ.End)
		} else if occ.End.After(columnEnds[col]) {
			columnEnds[col] = occ.End
		}
		placed = append(placed, Positioned{Occurrence: occ, Column: col})
	}

	total := len(columnEnds)
	for i := range placed {
		placed[i].TotalColumns = total
	}
	return placed
}

// ApplyGeometry fills in the pixel fields of already column-assigned
// entries. dayAnchor is the instant mapped to y = 0 (normally the
// configured start hour of the rendered day).
//
// Zero or negative durations are clamped to the minimum visual height
// rather than rejected; this is a rendering path and must stay total.
func ApplyGeometry(items []Positioned, dayAnchor time.Time, m Metrics) {
	m = m.withDefaults()

	for i := range items {
		it := &items[i]

		total := it.TotalColumns
		if total < 1 {
			total = 1
		}
		slotW := m.AvailableWidth / float64(total)

		it.X = float64(it.Column)*slotW + m.SlotPaddingPx
		it.Width = slotW - 2*m.SlotPaddingPx
		if it.Width < 0 {
			it.Width = 0
		}

		it.Y = it.Occurrence.Start.Sub(dayAnchor).Minutes() * m.PixelsPerMinute

		durMin := it.Occurrence.End.Sub(it.Occurrence.Start).Minutes()
		if durMin < float64(m.MinVisualMinutes) {
			durMin = float64(m.MinVisualMinutes)
		}
		it.Height = durMin * m.PixelsPerMinute
	}
}

// Day lays out the occurrences of a single day: column assignment followed
// by pixel geometry anchored at the day's configured start hour. day only
// contributes its calendar date and location.
func Day(day time.Time, occs []model.Occurrence, m Metrics) []Positioned {
	m = m.withDefaults()
	items := AssignColumns(occs)
	anchor := time.Date(day.Year(), day.Month(), day.Day(), m.DayStartHour, 0, 0, 0, day.Location())
	ApplyGeometry(items, anchor, m)
	return items
}

// DayColumn is the layout of one weekday column in the week view.
type DayColumn struct {
	Date  time.Time
	Items []Positioned
}

// Week buckets occurrences by the calendar date of their start (in
// weekStart's location) and lays out each day independently;
// overlap never crosses a day boundary. Occurrences outside the window are
// dropped.
func Week(weekStart time.Time, days int, occs []model.Occurrence, m Metrics) []DayColumn {
	if days <= 0 {
		days = 7
	}
	loc := weekStart.Location()
	first := time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, loc)

	buckets := make([][]model.Occurrence, days)
	for _, occ := range occs {
		y, mo, dd := occ.Start.In(loc).Date()
		midnight := time.Date(y, mo, dd, 0, 0, 0, 0, loc)
		// Rounding keeps the index right across DST transitions.
		d := int(midnight.Sub(first).Hours()/24 + 0.5)
		if d < 0 || d >= days {
			continue
		}
		buckets[d] = append(buckets[d], occ)
	}

	out := make([]DayColumn, days)
	for d := 0; d < days; d++ {
		date := first.AddDate(0, 0, d)
		out[d] = DayColumn{
			Date:  date,
			Items: Day(date, buckets[d], m),
		}
	}
	return out
}
