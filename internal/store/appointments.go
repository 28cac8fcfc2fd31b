package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"agendahof/internal/model"
)

type AppointmentRepository struct {
	pool *Pool
}

func NewAppointmentRepository(pool *Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

const appointmentColumns = `
	id::text, title,
	patient_id::text, procedure_id::text,
	start_time, end_time,
	status, COALESCE(notes, ''),
	COALESCE(rrule, ''), COALESCE(exdates, '{}'),
	created_at, updated_at`

// Create inserts a new appointment and returns its generated ID.
func (r *AppointmentRepository) Create(ctx context.Context, appt *model.Appointment) (uuid.UUID, error) {
	var idText string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO appointments
			(title, patient_id, procedure_id, start_time, end_time, status, notes, rrule, exdates)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id::text
	`, appt.Title, uuidPtrText(appt.PatientID), uuidPtrText(appt.ProcedureID),
		appt.Start, appt.End, appt.Status, appt.Notes, appt.RRule, appt.ExDates,
	).Scan(&idText)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(idText)
}

// Get fetches one appointment by ID.
func (r *AppointmentRepository) Get(ctx context.Context, id uuid.UUID) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id.String())
	return scanAppointment(row)
}

// ListRange returns appointments relevant to the window [start, end):
// every appointment whose time range intersects it, plus every recurring
// series anchored before the window end (the series may repeat into the
// window even when its base occurrence is long past). Ordered by start
// time for deterministic layout input.
func (r *AppointmentRepository) ListRange(ctx context.Context, start, end time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status <> 'cancelled'
			AND ((start_time < $2 AND end_time > $1)
				OR (COALESCE(rrule, '') <> '' AND start_time < $2))
		ORDER BY start_time ASC, end_time ASC, id ASC
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// UpdateStatus sets the status string of one appointment.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = $2, updated_at = now()
		WHERE id = $1
	`, id.String(), status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Cancel marks an appointment cancelled, keeping the row for history.
func (r *AppointmentRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	return r.UpdateStatus(ctx, id, model.StatusCancelled)
}

// ListDueReminders returns non-cancelled appointments starting inside
// [from, to) that have not had a reminder recorded yet.
func (r *AppointmentRepository) ListDueReminders(ctx context.Context, from, to time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.status IN ('scheduled', 'confirmed')
			AND a.start_time >= $1 AND a.start_time < $2
			AND NOT EXISTS (
				SELECT 1 FROM appointment_reminders rem
				WHERE rem.appointment_id = a.id
			)
		ORDER BY a.start_time ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// MarkReminderSent records that a reminder went out, making the reminder
// job idempotent across runs. Duplicate marks are ignored.
func (r *AppointmentRepository) MarkReminderSent(ctx context.Context, appointmentID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment_reminders (appointment_id)
		VALUES ($1)
		ON CONFLICT (appointment_id) DO NOTHING
	`, appointmentID.String())
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (model.Appointment, error) {
	var appt model.Appointment
	var idText string
	var patientText, procedureText *string

	err := row.Scan(
		&idText,
		&appt.Title,
		&patientText,
		&procedureText,
		&appt.Start,
		&appt.End,
		&appt.Status,
		&appt.Notes,
		&appt.RRule,
		&appt.ExDates,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}

	if appt.ID, err = uuid.Parse(idText); err != nil {
		return model.Appointment{}, err
	}
	if appt.PatientID, err = parseOptionalUUID(patientText); err != nil {
		return model.Appointment{}, err
	}
	if appt.ProcedureID, err = parseOptionalUUID(procedureText); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func parseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func uuidPtrText(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
