package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"agendahof/internal/config"
	appLog "agendahof/internal/log"
	"agendahof/internal/model"
)

// AppointmentStore is the slice of the repository the HTTP layer needs.
// internal/store satisfies it; tests plug in a fake.
type AppointmentStore interface {
	ListRange(ctx context.Context, start, end time.Time) ([]model.Appointment, error)
	Create(ctx context.Context, appt *model.Appointment) (uuid.UUID, error)
}

// BusyProvider supplies external busy blocks for a window. May be nil when
// no feeds are configured.
type BusyProvider interface {
	Busy(ctx context.Context, start, end time.Time) ([]model.BusyBlock, error)
}

// Server provides the HTTP API and the server-rendered week view.
type Server struct {
	cfg     *config.Config
	store   AppointmentStore
	catalog CatalogStore
	busy    BusyProvider
	debug   bool
	mux     *http.ServeMux

	// In-memory cache for /api/agenda responses so bursts of UI requests
	// do not repeat the expand+layout work.
	agendaMu    sync.RWMutex
	agendaCache map[string]agendaCacheEntry
}

type agendaCacheEntry struct {
	resp      agendaResponse
	updatedAt time.Time
}

const agendaCacheTTL = 30 * time.Second

// NewServer constructs a new Server. catalog may be nil, in which case
// the patient and procedure endpoints answer 503.
func NewServer(cfg *config.Config, store AppointmentStore, catalog CatalogStore, busy BusyProvider, debug bool) *Server {
	s := &Server{
		cfg:         cfg,
		store:       store,
		catalog:     catalog,
		busy:        busy,
		debug:       debug,
		mux:         http.NewServeMux(),
		agendaCache: make(map[string]agendaCacheEntry),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password is treated as disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="AgendaHOF", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer starts an HTTP server bound to cfg.Listen.
func StartServer(_ context.Context, cfg *config.Config, store AppointmentStore, catalog CatalogStore, busy BusyProvider, debug bool) error {
	s := NewServer(cfg, store, catalog, busy, debug)
	appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen, "debug", debug)
	return http.ListenAndServe(cfg.Listen, s.Handler())
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/agenda", s.handleAgenda)
	s.mux.HandleFunc("/api/appointments", s.handleAppointments)
	s.mux.HandleFunc("/api/patients", s.handlePatients)
	s.mux.HandleFunc("/api/procedures", s.handleProcedures)
	s.mux.HandleFunc("/week", s.handleWeekPage)
	s.mux.HandleFunc("/preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves the last rendered PNG preview from disk. The path
// rule matches the capture pipeline in cmd/agendahof:
//   - default: /var/lib/agendahof/preview.png
//   - debug:   ./cache/preview.png
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	previewPath := "/var/lib/agendahof/preview.png"
	if s.debug {
		previewPath = "./cache/preview.png"
	}
	http.ServeFile(w, r, previewPath)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func (s *Server) location() *time.Location {
	return resolveLocationOrLocal(s.cfg.Timezone)
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

// weekStartFor snaps t back to the configured first day of the week, at
// midnight in t's location.
func weekStartFor(t time.Time, weekStart string) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	first := time.Monday
	if weekStart == "sunday" {
		first = time.Sunday
	}
	for day.Weekday() != first {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
