package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types written to the outbox. Versioned so consumers can evolve.
const (
	TypeAppointmentBooked      = "appointment.booked.v1"
	TypeAppointmentConfirmed   = "appointment.confirmed.v1"
	TypeAppointmentCancelled   = "appointment.cancelled.v1"
	TypeAppointmentRescheduled = "appointment.rescheduled.v1"
	TypeAppointmentCompleted   = "appointment.completed.v1"
)

type AppointmentBookedV1 struct {
	AppointmentID   uuid.UUID `json:"appointment_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int64     `json:"duration_minutes"`
	Location        string    `json:"location"`
	BookedAt        time.Time `json:"booked_at"`
}

type AppointmentConfirmedV1 struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	StartTime     time.Time `json:"start_time"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

type AppointmentCancelledV1 struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	StartTime     time.Time `json:"start_time"`
	CancelledAt   time.Time `json:"cancelled_at"`
}

type AppointmentRescheduledV1 struct {
	AppointmentID   uuid.UUID `json:"appointment_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	PreviousStart   time.Time `json:"previous_start"`
	NewStart        time.Time `json:"new_start"`
	DurationMinutes int64     `json:"duration_minutes"`
	RescheduledAt   time.Time `json:"rescheduled_at"`
}

type AppointmentCompletedV1 struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	StartTime     time.Time `json:"start_time"`
	CompletedAt   time.Time `json:"completed_at"`
}
