package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FeedConfig describes a single external ICS busy-calendar source
// (the professional's personal calendar, clinic holidays, ...).
type FeedConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label shown in the UI.
	Name string `yaml:"name" json:"name"`
}

// AgendaConfig controls the week-view geometry.
type AgendaConfig struct {
	// DayStartHour / DayEndHour bound the visible day window.
	DayStartHour int `yaml:"day_start_hour" json:"day_start_hour"`
	DayEndHour   int `yaml:"day_end_hour" json:"day_end_hour"`

	// PixelsPerMinute is the vertical scale of the rendered agenda.
	PixelsPerMinute float64 `yaml:"pixels_per_minute" json:"pixels_per_minute"`

	// MinVisualMinutes floors the rendered height of short appointments.
	MinVisualMinutes int `yaml:"min_visual_minutes" json:"min_visual_minutes"`

	// SlotPaddingPx is the horizontal padding on each side of a card.
	SlotPaddingPx float64 `yaml:"slot_padding_px" json:"slot_padding_px"`

	// DayWidth is the pixel width of one weekday column.
	DayWidth float64 `yaml:"day_width" json:"day_width"`
}

// ReminderConfig drives the in-process reminder jobs.
type ReminderConfig struct {
	// Cron is a cron-style schedule for the reminder scan
	// (e.g. "*/10 * * * *"). Empty disables the scheduler.
	Cron string `yaml:"cron" json:"cron"`

	// WebhookURL receives one JSON POST per due appointment.
	WebhookURL string `yaml:"webhook_url" json:"webhook_url"`

	// LeadHours is how far ahead of the appointment start the reminder
	// fires.
	LeadHours int `yaml:"lead_hours" json:"lead_hours"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used as canonical display zone
	// (e.g. "America/Sao_Paulo").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart controls which weekday opens the week view. Supported
	// values: "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// LogLevel is one of debug/info/warn/error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string `yaml:"database_url" json:"database_url"`

	Agenda   AgendaConfig   `yaml:"agenda" json:"agenda"`
	Reminder ReminderConfig `yaml:"reminder" json:"reminder"`

	// Feeds is the list of subscribed external busy calendars.
	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:    "127.0.0.1:8080",
		Timezone:  "America/Sao_Paulo",
		WeekStart: "monday",
		LogLevel:  "info",
		Agenda: AgendaConfig{
			DayStartHour:     7,
			DayEndHour:       21,
			PixelsPerMinute:  2.5,
			MinVisualMinutes: 15,
			SlotPaddingPx:    2,
			DayWidth:         180,
		},
		Reminder: ReminderConfig{
			Cron:      "*/10 * * * *",
			LeadHours: 24,
		},
		Feeds:     []FeedConfig{},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "America/Sao_Paulo"
	}
	switch c.WeekStart {
	case "monday", "sunday":
		// ok
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	// A zero DayStartHour counts as unset; the agenda never anchors at
	// midnight.
	if c.Agenda.DayStartHour <= 0 || c.Agenda.DayStartHour > 23 {
		c.Agenda.DayStartHour = 7
	}
	if c.Agenda.DayEndHour <= c.Agenda.DayStartHour || c.Agenda.DayEndHour > 24 {
		c.Agenda.DayEndHour = 21
		if c.Agenda.DayEndHour <= c.Agenda.DayStartHour {
			c.Agenda.DayEndHour = 24
		}
	}
	if c.Agenda.PixelsPerMinute <= 0 {
		c.Agenda.PixelsPerMinute = 2.5
	}
	if c.Agenda.MinVisualMinutes <= 0 {
		c.Agenda.MinVisualMinutes = 15
	}
	if c.Agenda.SlotPaddingPx < 0 {
		c.Agenda.SlotPaddingPx = 0
	}
	if c.Agenda.DayWidth <= 0 {
		c.Agenda.DayWidth = 180
	}

	if c.Reminder.LeadHours <= 0 {
		c.Reminder.LeadHours = 24
	}

	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600 (DatabaseURL and basic auth
//     credentials may be embedded in the file).
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".agendahof-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Set permissions to 0600 on temp file before rename.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	// Rename over the target path.
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the
// package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
