// Package notify runs the appointment reminder jobs. The scan fires on a
// cron schedule, picks every appointment entering the reminder window that
// has not been notified yet, and delivers one JSON webhook per
// appointment. Sent reminders are recorded through the store so a
// re-run (or a restart mid-scan) never double-notifies.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"agendahof/internal/config"
	"agendahof/internal/format"
	appLog "agendahof/internal/log"
	"agendahof/internal/model"
)

// Store is the slice of the appointment repository the notifier needs.
type Store interface {
	ListDueReminders(ctx context.Context, from, to time.Time) ([]model.Appointment, error)
	MarkReminderSent(ctx context.Context, appointmentID uuid.UUID) error
}

// Payload is the webhook body sent per due appointment.
type Payload struct {
	AppointmentID string    `json:"appointment_id"`
	Title         string    `json:"title"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Status        string    `json:"status"`

	// StartLabel / TimeLabel are pre-formatted pt-BR strings so simple
	// webhook consumers (message templates) need no date logic.
	StartLabel string `json:"start_label"`
	TimeLabel  string `json:"time_label"`
}

type Notifier struct {
	store      Store
	client     *http.Client
	webhookURL string
	lead       time.Duration

	// now is injected for tests.
	now func() time.Time
}

// New builds a Notifier from the reminder config. A missing webhook URL is
// allowed; RunOnce then only logs what it would have sent.
func New(store Store, cfg config.ReminderConfig) *Notifier {
	lead := time.Duration(cfg.LeadHours) * time.Hour
	if lead <= 0 {
		lead = 24 * time.Hour
	}
	return &Notifier{
		store:      store,
		client:     &http.Client{Timeout: 10 * time.Second},
		webhookURL: cfg.WebhookURL,
		lead:       lead,
		now:        time.Now,
	}
}

// RunOnce performs one reminder scan. Individual delivery failures are
// logged and skipped; the appointment stays unmarked and is retried on the
// next tick.
func (n *Notifier) RunOnce(ctx context.Context) error {
	now := n.now()
	due, err := n.store.ListDueReminders(ctx, now, now.Add(n.lead))
	if err != nil {
		return fmt.Errorf("notify: listing due reminders: %w", err)
	}
	if len(due) == 0 {
		appLog.Debug("reminder scan: nothing due")
		return nil
	}

	appLog.Info("reminder scan", "due_count", len(due), "lead", n.lead.String())

	var failed int
	for _, appt := range due {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := n.deliver(ctx, appt); err != nil {
			failed++
			appLog.Error("reminder delivery failed", err, "appointment_id", appt.ID)
			continue
		}
		if err := n.store.MarkReminderSent(ctx, appt.ID); err != nil {
			// Delivery happened but the mark did not; next run may send a
			// duplicate. Log loudly rather than fail the whole scan.
			appLog.Error("reminder sent but not recorded", err, "appointment_id", appt.ID)
		}
	}

	if failed > 0 {
		return fmt.Errorf("notify: %d of %d reminders failed", failed, len(due))
	}
	return nil
}

func (n *Notifier) deliver(ctx context.Context, appt model.Appointment) error {
	payload := Payload{
		AppointmentID: appt.ID.String(),
		Title:         appt.Title,
		Start:         appt.Start,
		End:           appt.End,
		Status:        appt.Status,
		StartLabel:    format.DayLong(appt.Start),
		TimeLabel:     format.TimeRange(appt.Start, appt.End),
	}

	if n.webhookURL == "" {
		appLog.Info("reminder (no webhook configured)",
			"appointment_id", appt.ID, "start", appt.Start.Format(time.RFC3339))
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New("webhook returned " + resp.Status)
	}
	return nil
}

// Start registers RunOnce on the given cron schedule and starts the
// scheduler. The returned cron is already running; the caller stops it on
// shutdown. An empty spec disables the scheduler and returns nil.
func (n *Notifier) Start(ctx context.Context, spec string) (*cron.Cron, error) {
	if spec == "" {
		appLog.Info("reminder scheduler disabled (empty cron spec)")
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := n.RunOnce(ctx); err != nil {
			appLog.Error("reminder run failed", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("notify: invalid cron spec %q: %w", spec, err)
	}

	c.Start()
	appLog.Info("reminder scheduler started", "cron", spec)
	return c, nil
}
