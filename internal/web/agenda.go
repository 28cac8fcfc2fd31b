package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"agendahof/internal/format"
	"agendahof/internal/layout"
	appLog "agendahof/internal/log"
	"agendahof/internal/model"
	"agendahof/internal/schedule"
)

// positionedDTO is the JSON shape of one laid-out appointment card.
type positionedDTO struct {
	ID          string    `json:"id"`
	InstanceKey string    `json:"instance_key"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	TimeLabel   string    `json:"time_label"`

	Column       int     `json:"column"`
	TotalColumns int     `json:"total_columns"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
}

type dayDTO struct {
	Date  string          `json:"date"`
	Label string          `json:"label"`
	Items []positionedDTO `json:"items"`
}

type busyDTO struct {
	SourceID string    `json:"source_id"`
	Summary  string    `json:"summary"`
	AllDay   bool      `json:"all_day"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// agendaResponse is the JSON response shape for /api/agenda.
type agendaResponse struct {
	Days            []dayDTO  `json:"days"`
	Busy            []busyDTO `json:"busy"`
	RangeStart      time.Time `json:"range_start"`
	RangeEnd        time.Time `json:"range_end"`
	DisplayTimeZone string    `json:"display_timezone"`
	WeekStart       string    `json:"week_start"`
	DayStartHour    int       `json:"day_start_hour"`
	DayEndHour      int       `json:"day_end_hour"`
	PixelsPerMinute float64   `json:"pixels_per_minute"`
	DayWidth        float64   `json:"day_width"`
	TruncatedSeries []string  `json:"truncated_series,omitempty"`
}

func (s *Server) metrics() layout.Metrics {
	return layout.Metrics{
		PixelsPerMinute:  s.cfg.Agenda.PixelsPerMinute,
		MinVisualMinutes: s.cfg.Agenda.MinVisualMinutes,
		SlotPaddingPx:    s.cfg.Agenda.SlotPaddingPx,
		AvailableWidth:   s.cfg.Agenda.DayWidth,
		DayStartHour:     s.cfg.Agenda.DayStartHour,
	}
}

// buildAgenda assembles the laid-out week: stored appointments are
// expanded into occurrences, laid out per day, and external busy blocks
// are attached. It is shared by /api/agenda and /week.
func (s *Server) buildAgenda(ctx context.Context, weekStart time.Time, days int) (agendaResponse, error) {
	loc := weekStart.Location()
	rangeStart := weekStart
	rangeEnd := weekStart.AddDate(0, 0, days)

	appts, err := s.store.ListRange(ctx, rangeStart, rangeEnd)
	if err != nil {
		return agendaResponse{}, err
	}

	expandRes, err := schedule.Expand(appts, schedule.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
	})
	if err != nil {
		return agendaResponse{}, err
	}

	cols := layout.Week(weekStart, days, expandRes.Occurrences, s.metrics())

	resp := agendaResponse{
		Days:            make([]dayDTO, 0, len(cols)),
		Busy:            []busyDTO{},
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
		DisplayTimeZone: loc.String(),
		WeekStart:       s.cfg.WeekStart,
		DayStartHour:    s.cfg.Agenda.DayStartHour,
		DayEndHour:      s.cfg.Agenda.DayEndHour,
		PixelsPerMinute: s.cfg.Agenda.PixelsPerMinute,
		DayWidth:        s.cfg.Agenda.DayWidth,
	}

	for _, id := range expandRes.TruncatedSeries {
		resp.TruncatedSeries = append(resp.TruncatedSeries, id.String())
	}

	for _, col := range cols {
		day := dayDTO{
			Date:  col.Date.Format("2006-01-02"),
			Label: format.DayLabel(col.Date),
			Items: make([]positionedDTO, 0, len(col.Items)),
		}
		for _, it := range col.Items {
			day.Items = append(day.Items, positionedDTO{
				ID:           it.Occurrence.Appointment.ID.String(),
				InstanceKey:  it.Occurrence.InstanceKey,
				Title:        it.Occurrence.Appointment.Title,
				Status:       it.Occurrence.Appointment.Status,
				Start:        it.Occurrence.Start,
				End:          it.Occurrence.End,
				TimeLabel:    format.TimeRange(it.Occurrence.Start, it.Occurrence.End),
				Column:       it.Column,
				TotalColumns: it.TotalColumns,
				X:            it.X,
				Y:            it.Y,
				Width:        it.Width,
				Height:       it.Height,
			})
		}
		resp.Days = append(resp.Days, day)
	}

	// Busy blocks are decorative; a feed outage must not break the agenda.
	if s.busy != nil {
		blocks, err := s.busy.Busy(ctx, rangeStart, rangeEnd)
		if err != nil {
			appLog.Warn("agenda: busy feeds unavailable", "err", err)
		}
		for _, b := range blocks {
			resp.Busy = append(resp.Busy, busyDTO{
				SourceID: b.SourceID,
				Summary:  b.Summary,
				AllDay:   b.AllDay,
				Start:    b.Start,
				End:      b.End,
			})
		}
	}

	return resp, nil
}

// handleAgenda returns the laid-out agenda for a week.
//
// GET /api/agenda?date=2026-03-02&days=7
//   - date: any day inside the wanted week (default today); snapped back
//     to the configured week start
//   - days: number of day columns (default 7, max 31)
func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx := r.Context()
	loc := s.location()

	days := parseIntDefault(r.URL.Query().Get("days"), 7)
	if days <= 0 || days > 31 {
		days = 7
	}

	ref := time.Now().In(loc)
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.ParseInLocation("2006-01-02", d, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
			return
		}
		ref = parsed
	}
	weekStart := weekStartFor(ref, s.cfg.WeekStart)

	cacheKey := weekStart.Format("2006-01-02") + "/" + strconv.Itoa(days)
	now := time.Now()

	s.agendaMu.RLock()
	entry, ok := s.agendaCache[cacheKey]
	s.agendaMu.RUnlock()
	if ok && now.Sub(entry.updatedAt) < agendaCacheTTL {
		writeJSON(w, http.StatusOK, entry.resp)
		return
	}

	resp, err := s.buildAgenda(ctx, weekStart, days)
	if err != nil {
		appLog.Error("agenda build failed", err)
		writeError(w, http.StatusInternalServerError, "failed to build agenda")
		return
	}

	s.agendaMu.Lock()
	s.agendaCache[cacheKey] = agendaCacheEntry{resp: resp, updatedAt: time.Now()}
	s.agendaMu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// createAppointmentRequest is the POST /api/appointments body.
type createAppointmentRequest struct {
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
	PatientID   string    `json:"patient_id"`
	ProcedureID string    `json:"procedure_id"`
	RRule       string    `json:"rrule"`
}

func (req createAppointmentRequest) toModel() (model.Appointment, error) {
	if req.Title == "" {
		return model.Appointment{}, errors.New("title is required")
	}
	if req.Start.IsZero() || req.End.IsZero() {
		return model.Appointment{}, errors.New("start and end are required")
	}
	// Stored appointments must be well-formed; only the rendering path is
	// lenient about inverted ranges.
	if !req.End.After(req.Start) {
		return model.Appointment{}, errors.New("end must be after start")
	}

	appt := model.Appointment{
		Title:  req.Title,
		Start:  req.Start,
		End:    req.End,
		Status: req.Status,
		Notes:  req.Notes,
		RRule:  req.RRule,
	}
	if appt.Status == "" {
		appt.Status = model.StatusScheduled
	}

	if req.PatientID != "" {
		id, err := uuid.Parse(req.PatientID)
		if err != nil {
			return model.Appointment{}, errors.New("invalid patient_id")
		}
		appt.PatientID = &id
	}
	if req.ProcedureID != "" {
		id, err := uuid.Parse(req.ProcedureID)
		if err != nil {
			return model.Appointment{}, errors.New("invalid procedure_id")
		}
		appt.ProcedureID = &id
	}
	return appt, nil
}

// handleAppointments lists raw appointments for a window (GET) or creates
// one (POST).
func (s *Server) handleAppointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listAppointments(w, r)
	case http.MethodPost:
		s.createAppointment(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type appointmentDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	PatientID   string    `json:"patient_id,omitempty"`
	ProcedureID string    `json:"procedure_id,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	RRule       string    `json:"rrule,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toAppointmentDTO(a model.Appointment) appointmentDTO {
	dto := appointmentDTO{
		ID:        a.ID.String(),
		Title:     a.Title,
		Start:     a.Start,
		End:       a.End,
		Status:    a.Status,
		Notes:     a.Notes,
		RRule:     a.RRule,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.PatientID != nil {
		dto.PatientID = a.PatientID.String()
	}
	if a.ProcedureID != nil {
		dto.ProcedureID = a.ProcedureID.String()
	}
	return dto
}

func (s *Server) listAppointments(w http.ResponseWriter, r *http.Request) {
	loc := s.location()
	days := parseIntDefault(r.URL.Query().Get("days"), 7)
	if days <= 0 || days > 31 {
		days = 7
	}

	start := time.Now().In(loc)
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.ParseInLocation("2006-01-02", d, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
			return
		}
		start = parsed
	}

	appts, err := s.store.ListRange(r.Context(), start, start.AddDate(0, 0, days))
	if err != nil {
		appLog.Error("appointment list failed", err)
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}

	dtos := make([]appointmentDTO, 0, len(appts))
	for _, a := range appts {
		dtos = append(dtos, toAppointmentDTO(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": dtos})
}

func (s *Server) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	appt, err := req.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.store.Create(r.Context(), &appt)
	if err != nil {
		appLog.Error("appointment create failed", err)
		writeError(w, http.StatusInternalServerError, "failed to create appointment")
		return
	}
	appt.ID = id

	// New data invalidates cached agendas.
	s.agendaMu.Lock()
	s.agendaCache = make(map[string]agendaCacheEntry)
	s.agendaMu.Unlock()

	appLog.Info("appointment created", "id", id, "start", appt.Start.Format(time.RFC3339))
	writeJSON(w, http.StatusCreated, toAppointmentDTO(appt))
}
