package model

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses as stored in the database. Status is free-form on
// purpose (the mobile clients historically sent arbitrary strings); these
// constants only cover the values the server itself writes.
const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusDone      = "done"
	StatusCancelled = "cancelled"
)

// Appointment is a single booked time block in a professional's agenda.
type Appointment struct {
	ID uuid.UUID

	// Title is the display name shown on the agenda card, usually the
	// patient name followed by the procedure ("Maria - Botox").
	Title string

	// PatientID / ProcedureID link to the registered patient and procedure
	// records when the appointment was created from them; both are optional
	// for ad-hoc blocks typed directly into the agenda.
	PatientID   *uuid.UUID
	ProcedureID *uuid.UUID

	Start time.Time
	End   time.Time

	Status string
	Notes  string

	// RRule, when non-empty, makes this appointment the base of a recurring
	// series (RFC 5545 RRULE, e.g. "FREQ=WEEKLY;COUNT=10"). Concrete
	// occurrences are derived at view time, never stored.
	RRule   string
	ExDates []time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Duration returns the appointment length. It can be zero or negative for
// malformed rows; layout code clamps rather than rejects.
func (a Appointment) Duration() time.Duration {
	return a.End.Sub(a.Start)
}

// Patient is a registered patient record.
type Patient struct {
	ID        uuid.UUID
	Name      string
	Phone     string // digits only; masked at display time
	CPF       string // digits only; masked at display time
	CreatedAt time.Time
}

// Procedure is a billable procedure offered by the clinic.
type Procedure struct {
	ID              uuid.UUID
	Name            string
	PriceCents      int64
	DurationMinutes int
	CreatedAt       time.Time
}

// Occurrence is a single concrete instance of an appointment inside a
// visible window, after recurrence expansion. For non-recurring
// appointments there is exactly one occurrence equal to the base record.
type Occurrence struct {
	Appointment Appointment

	// InstanceKey uniquely identifies one occurrence of a recurring series,
	// derived from the local start time.
	InstanceKey string

	Start time.Time
	End   time.Time
}

// BusyBlock is a read-only busy interval merged in from an external
// calendar feed (personal calendar, clinic holidays). Busy blocks render
// behind appointments and never participate in column assignment.
type BusyBlock struct {
	SourceID string
	UID      string
	Summary  string
	AllDay   bool
	Start    time.Time
	End      time.Time
}
