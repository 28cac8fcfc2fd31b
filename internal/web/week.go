package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"agendahof/internal/format"
	appLog "agendahof/internal/log"
)

//go:embed week.html.tmpl
var weekTemplateFS embed.FS

var weekTmpl = template.Must(template.ParseFS(weekTemplateFS, "week.html.tmpl"))

type hourMark struct {
	Label string
	Y     float64
}

// weekView is the template payload for /week.
type weekView struct {
	Title       string
	GeneratedAt string
	Days        []dayDTO
	Hours       []hourMark
	DayWidth    float64
	TotalHeight float64
}

// handleWeekPage renders the positioned week view as HTML. The root
// element carries data-ready="true" once rendered so the capture pipeline
// knows when to screenshot.
func (s *Server) handleWeekPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
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

	resp, err := s.buildAgenda(r.Context(), weekStart, days)
	if err != nil {
		appLog.Error("week page build failed", err)
		http.Error(w, "failed to build agenda", http.StatusInternalServerError)
		return
	}

	view := weekView{
		Title:       "Agenda - semana de " + format.Date(weekStart),
		GeneratedAt: time.Now().In(loc).Format("02/01/2006 15:04"),
		Days:        resp.Days,
		DayWidth:    resp.DayWidth,
	}

	minutes := float64((resp.DayEndHour - resp.DayStartHour) * 60)
	view.TotalHeight = minutes * resp.PixelsPerMinute
	for h := resp.DayStartHour; h <= resp.DayEndHour; h++ {
		view.Hours = append(view.Hours, hourMark{
			Label: fmt.Sprintf("%02d:00", h),
			Y:     float64((h-resp.DayStartHour)*60) * resp.PixelsPerMinute,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := weekTmpl.Execute(w, view); err != nil {
		appLog.Error("week template render failed", err)
	}
}
