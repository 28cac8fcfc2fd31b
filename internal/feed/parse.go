package feed

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "agendahof/internal/log"
	"agendahof/internal/model"
)

// Per-event expansion cap for recurring feed events. Busy feeds are only
// rendered a couple of weeks at a time, so a low cap is fine.
const maxFeedOccurrences = 500

// Parse converts an ICS payload into busy blocks intersecting
// [rangeStart, rangeEnd). Recurring VEVENTs are expanded through their
// RRULE; individual malformed events are logged and skipped so one bad
// event never drops the whole feed.
func Parse(src Source, body []byte, rangeStart, rangeEnd time.Time) ([]model.BusyBlock, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if rangeEnd.Before(rangeStart) {
		return nil, errors.New("feed: rangeEnd is before rangeStart")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("feed parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	blocks := make([]model.BusyBlock, 0)
	for _, ve := range cal.Events() {
		evBlocks, perr := parseVEvent(src, ve, rangeStart, rangeEnd)
		if perr != nil {
			appLog.Warn("feed vevent skipped", "id", src.ID, "err", perr)
			continue
		}
		blocks = append(blocks, evBlocks...)
	}

	appLog.Debug("feed parse completed", "id", src.ID, "block_count", len(blocks))
	return blocks, nil
}

func parseVEvent(src Source, ve *ical.VEvent, rangeStart, rangeEnd time.Time) ([]model.BusyBlock, error) {
	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return nil, errors.New("missing UID")
	}
	uid := uidProp.Value

	summary := ""
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		summary = p.Value
	}

	// The library's helpers handle VTIMEZONE/TZID resolution.
	start, err := ve.GetStartAt()
	if err != nil {
		return nil, err
	}
	end, _ := ve.GetEndAt()

	allDay := isAllDay(ve)
	if allDay {
		// Normalize to [date 00:00, next day 00:00) in the event's zone.
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
		if !end.After(start) {
			end = start.Add(24 * time.Hour)
		}
	} else if !end.After(start) {
		// DTEND missing or inverted; treat as a point-like block, the
		// layout clamps it to the minimum visual height.
		end = start
	}

	block := func(s, e time.Time) model.BusyBlock {
		return model.BusyBlock{
			SourceID: src.ID,
			UID:      uid,
			Summary:  summary,
			AllDay:   allDay,
			Start:    s,
			End:      e,
		}
	}

	rruleProp := ve.GetProperty(ical.ComponentPropertyRrule)
	if rruleProp == nil || rruleProp.Value == "" {
		if start.Before(rangeEnd) && !end.Before(rangeStart) {
			return []model.BusyBlock{block(start, end)}, nil
		}
		return nil, nil
	}

	r, err := rrule.StrToRRule(rruleProp.Value)
	if err != nil {
		return nil, err
	}
	r.DTStart(start)

	dur := end.Sub(start)
	occTimes := r.Between(rangeStart.In(start.Location()), rangeEnd.In(start.Location()), true)
	if len(occTimes) > maxFeedOccurrences {
		occTimes = occTimes[:maxFeedOccurrences]
	}

	out := make([]model.BusyBlock, 0, len(occTimes))
	for _, s := range occTimes {
		out = append(out, block(s, s.Add(dur)))
	}
	return out, nil
}

// isAllDay reports whether DTSTART is a date-only value (VALUE=DATE or no
// time component).
func isAllDay(ve *ical.VEvent) bool {
	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	if params := p.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			return true
		}
	}
	return !strings.Contains(p.Value, "T")
}
