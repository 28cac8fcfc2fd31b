// Package schedule derives the concrete occurrences of appointments inside
// a visible window. Recurring series (weekly returning patients and the
// like) are stored once with an RFC 5545 RRULE and expanded here at view
// time; nothing derived is ever persisted.
package schedule

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	appLog "agendahof/internal/log"
	"agendahof/internal/model"
)

const defaultMaxOccurrencesPerSeries = 1000

// ExpandConfig controls how expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the timezone to which all occurrences are
	// converted. If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the visible window.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerSeries is a safety cap against runaway rules. If
	// zero, defaultMaxOccurrencesPerSeries is used.
	MaxOccurrencesPerSeries int
}

// ExpandResult wraps the expanded occurrences plus truncation info.
type ExpandResult struct {
	Occurrences []model.Occurrence
	// TruncatedSeries records appointment IDs that hit the cap.
	TruncatedSeries []uuid.UUID
}

// Expand turns a set of stored appointments into concrete occurrences
// within [RangeStart, RangeEnd]. Non-recurring appointments contribute at
// most one occurrence; recurring ones are expanded through their RRULE with
// exception dates applied. All output times are in the display location.
func Expand(appts []model.Appointment, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult
	result.Occurrences = make([]model.Occurrence, 0, len(appts))

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerSeries <= 0 {
		cfg.MaxOccurrencesPerSeries = defaultMaxOccurrencesPerSeries
	}

	for _, appt := range appts {
		if appt.RRule == "" {
			if occ, ok := expandSingle(appt, cfg); ok {
				result.Occurrences = append(result.Occurrences, occ)
			}
			continue
		}

		occs, hitCap := expandSeries(appt, cfg)
		result.Occurrences = append(result.Occurrences, occs...)
		if hitCap {
			result.TruncatedSeries = append(result.TruncatedSeries, appt.ID)
			appLog.Warn("expand: truncated recurring series at cap",
				"appointment_id", appt.ID,
				"cap", cfg.MaxOccurrencesPerSeries,
			)
		}
	}

	return result, nil
}

func expandSingle(appt model.Appointment, cfg ExpandConfig) (model.Occurrence, bool) {
	// Window check. End is compared inclusively so zero-duration
	// (malformed) appointments at the window edge still show up; they are
	// clamped visually, not dropped.
	if !appt.Start.Before(cfg.RangeEnd) || appt.End.Before(cfg.RangeStart) {
		return model.Occurrence{}, false
	}
	return makeOccurrence(appt, appt.Start, appt.End, cfg.DisplayLocation), true
}

func expandSeries(appt model.Appointment, cfg ExpandConfig) ([]model.Occurrence, bool) {
	out := make([]model.Occurrence, 0)

	r, err := rrule.StrToRRule(appt.RRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE; rendering base only", err,
			"appointment_id", appt.ID, "rrule", appt.RRule)
		if occ, ok := expandSingle(appt, cfg); ok {
			out = append(out, occ)
		}
		return out, false
	}

	// Anchor the rule at the series' first start.
	r.DTStart(appt.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range appt.ExDates {
		set.ExDate(ex.In(appt.Start.Location()))
	}

	// Query in the series' own location; occurrences keep the base
	// duration.
	rangeStart := cfg.RangeStart.In(appt.Start.Location())
	rangeEnd := cfg.RangeEnd.In(appt.Start.Location())

	occTimes := set.Between(rangeStart, rangeEnd, true)

	hitCap := false
	if len(occTimes) > cfg.MaxOccurrencesPerSeries {
		occTimes = occTimes[:cfg.MaxOccurrencesPerSeries]
		hitCap = true
	}

	dur := appt.End.Sub(appt.Start)
	for _, start := range occTimes {
		out = append(out, makeOccurrence(appt, start, start.Add(dur), cfg.DisplayLocation))
	}

	return out, hitCap
}

// makeOccurrence builds one occurrence normalized into displayLoc.
func makeOccurrence(appt model.Appointment, start, end time.Time, displayLoc *time.Location) model.Occurrence {
	startLocal := start.In(displayLoc)
	return model.Occurrence{
		Appointment: appt,
		// Stable per-instance key derived from the local start time.
		InstanceKey: startLocal.Format(time.RFC3339Nano),
		Start:       startLocal,
		End:         end.In(displayLoc),
	}
}
