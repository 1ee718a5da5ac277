package appointments

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status tracks the lifecycle of an appointment.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Appointment represents a booked session at the practice.
// StartTime is naive local time; the practice operates in a single zone.
type Appointment struct {
	ID           uuid.UUID     `json:"id"`
	PatientID    uuid.UUID     `json:"patient_id"`
	StartTime    time.Time     `json:"start_time"`
	Duration     time.Duration `json:"duration"`
	Reason       string        `json:"reason"`
	Location     string        `json:"location"`
	Status       Status        `json:"status"`
	ReminderSent bool          `json:"reminder_sent"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// End returns the nominal end of the session, without the displacement buffer.
func (a *Appointment) End() time.Time {
	return a.StartTime.Add(a.Duration)
}

// Sentinel errors returned by the scheduler. Callers match with errors.Is
// and decide whether a NotFound is fatal for their flow.
var (
	ErrNotFound     = errors.New("appointments: not found")
	ErrConflict     = errors.New("appointments: slot unavailable")
	ErrInvalidState = errors.New("appointments: transition not permitted")
	ErrValidation   = errors.New("appointments: invalid input")
)
