package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/elihu-analytics/clinic-scheduler/internal/events"
	"github.com/elihu-analytics/clinic-scheduler/internal/observability/metrics"
	"github.com/elihu-analytics/clinic-scheduler/pkg/logging"
)

var tracer = otel.Tracer("clinic.internal.appointments")

const (
	maxReasonLen   = 500
	maxLocationLen = 255
)

// AppointmentStore is the persistence surface the scheduler depends on.
// *Store implements it against Postgres; tests use an in-memory fake.
type AppointmentStore interface {
	Insert(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListStartingBetween(ctx context.Context, from, to time.Time, statuses []Status) ([]Appointment, error)
	ListByPatientBetween(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]Appointment, error)
	ListPastDue(ctx context.Context, now time.Time, statuses []Status) ([]Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to Status, from ...Status) (*Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time, duration time.Duration) (*Appointment, error)
	SetReminderSent(ctx context.Context, id uuid.UUID) error
	WithDayLock(ctx context.Context, day time.Time, fn func(ctx context.Context, tx AppointmentStore) error) error
}

// Notifier delivers appointment messages. The scheduler logs delivery
// failures and never lets them abort a state transition.
type Notifier interface {
	BookingNotice(ctx context.Context, a *Appointment) error
	Confirmation(ctx context.Context, a *Appointment, message string) error
	CancellationNotice(ctx context.Context, a *Appointment) error
	RescheduleNotice(ctx context.Context, a *Appointment, previousStart time.Time) error
}

// EventPublisher appends lifecycle events for downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// Clock supplies the current time so business-time rules are testable.
type Clock func() time.Time

// Scheduler owns availability computation and the appointment state machine.
type Scheduler struct {
	store     AppointmentStore
	patients  PatientRegistry
	rules     Rules
	holidays  HolidayCalendar
	notifier  Notifier
	publisher EventPublisher
	metrics   *metrics.SchedulerMetrics
	clock     Clock
	logger    *logging.Logger
}

// NewScheduler creates a scheduler with the reference rules, the Colombian
// holiday calendar and a wall clock. Collaborators attach via With*.
func NewScheduler(store AppointmentStore, logger *logging.Logger) *Scheduler {
	if store == nil {
		panic("appointments: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		store:    store,
		rules:    DefaultRules(),
		holidays: NewColombiaHolidays(),
		clock:    time.Now,
		logger:   logger,
	}
}

func (s *Scheduler) WithRules(r Rules) *Scheduler {
	if r.DefaultDuration > 0 {
		s.rules = r
	}
	return s
}

// WithPatients attaches a patient registry; bookings for unknown patient
// ids are then rejected up front. The database foreign key remains the
// backstop when no registry is wired.
func (s *Scheduler) WithPatients(p PatientRegistry) *Scheduler {
	s.patients = p
	return s
}

func (s *Scheduler) WithHolidays(h HolidayCalendar) *Scheduler {
	if h != nil {
		s.holidays = h
	}
	return s
}

func (s *Scheduler) WithNotifier(n Notifier) *Scheduler {
	s.notifier = n
	return s
}

func (s *Scheduler) WithPublisher(p EventPublisher) *Scheduler {
	s.publisher = p
	return s
}

func (s *Scheduler) WithMetrics(m *metrics.SchedulerMetrics) *Scheduler {
	s.metrics = m
	return s
}

func (s *Scheduler) WithClock(c Clock) *Scheduler {
	if c != nil {
		s.clock = c
	}
	return s
}

// BookingRequest carries the patient-facing booking form.
type BookingRequest struct {
	PatientID uuid.UUID
	StartTime time.Time
	Duration  time.Duration
	Reason    string
	Location  string
}

// IsAvailable reports whether a slot can be booked. Pure query.
// excludeID skips one appointment so a reschedule never conflicts with
// itself; pass uuid.Nil otherwise.
func (s *Scheduler) IsAvailable(ctx context.Context, start time.Time, duration time.Duration, excludeID uuid.UUID) (bool, error) {
	if duration <= 0 {
		duration = s.rules.DefaultDuration
	}
	return s.availableOn(ctx, s.store, start, duration, excludeID)
}

// availableOn runs the availability check against the given store view so
// the booking path can reuse it inside the day-locked transaction.
func (s *Scheduler) availableOn(ctx context.Context, store AppointmentStore, start time.Time, duration time.Duration, excludeID uuid.UUID) (bool, error) {
	now := s.clock()
	if !start.After(now) {
		return false, nil
	}
	if start.Weekday() == time.Sunday || s.holidays.IsHoliday(start) {
		return false, nil
	}
	if !s.rules.withinWorkday(start, duration) {
		return false, nil
	}

	// Fetch a window wide enough to see earlier sessions that run into the
	// proposed slot, not just ones starting inside it.
	margin := s.rules.DefaultDuration + s.rules.DisplacementBuffer
	windowEnd := start.Add(duration).Add(s.rules.DisplacementBuffer)
	existing, err := store.ListStartingBetween(ctx, start.Add(-margin), windowEnd,
		[]Status{StatusScheduled, StatusConfirmed})
	if err != nil {
		return false, err
	}
	return !s.rules.conflicts(start, duration, existing, excludeID), nil
}

// Book validates and persists a new appointment. The availability check and
// the insert run in one transaction under an advisory lock on the day, so
// two concurrent requests for overlapping slots cannot both succeed.
func (s *Scheduler) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.book")
	defer span.End()

	if err := s.validateBooking(req); err != nil {
		s.metrics.ObserveBooking("create", "invalid")
		return nil, err
	}
	if s.patients != nil {
		known, err := s.patients.Exists(ctx, req.PatientID)
		if err != nil {
			return nil, err
		}
		if !known {
			s.metrics.ObserveBooking("create", "invalid")
			return nil, fmt.Errorf("%w: unknown patient %s", ErrValidation, req.PatientID)
		}
	}
	duration := req.Duration
	if duration <= 0 {
		duration = s.rules.DefaultDuration
	}

	appt := &Appointment{
		ID:        uuid.New(),
		PatientID: req.PatientID,
		StartTime: req.StartTime,
		Duration:  duration,
		Reason:    strings.TrimSpace(req.Reason),
		Location:  strings.TrimSpace(req.Location),
		Status:    StatusScheduled,
	}
	span.SetAttributes(
		attribute.String("clinic.appointment_id", appt.ID.String()),
		attribute.String("clinic.patient_id", appt.PatientID.String()),
	)

	err := s.store.WithDayLock(ctx, startOfDay(req.StartTime), func(ctx context.Context, tx AppointmentStore) error {
		ok, err := s.availableOn(ctx, tx, req.StartTime, duration, uuid.Nil)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConflict
		}
		return tx.Insert(ctx, appt)
	})
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking("create", resultLabel(err))
		return nil, err
	}
	s.metrics.ObserveBooking("create", "ok")
	s.logger.Info("appointment booked",
		"appointment_id", appt.ID, "patient_id", appt.PatientID, "start", appt.StartTime)

	s.publish(ctx, events.TypeAppointmentBooked, events.AppointmentBookedV1{
		AppointmentID:   appt.ID,
		PatientID:       appt.PatientID,
		StartTime:       appt.StartTime,
		DurationMinutes: int64(appt.Duration / time.Minute),
		Location:        appt.Location,
		BookedAt:        s.clock(),
	})
	if s.notifier != nil {
		if err := s.notifier.BookingNotice(ctx, appt); err != nil {
			s.logger.Error("booking notice failed", "appointment_id", appt.ID, "error", err)
		}
	}
	return appt, nil
}

// Confirm transitions scheduled → confirmed. ErrNotFound if the id does
// not exist, ErrInvalidState from any other status.
func (s *Scheduler) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.confirm")
	defer span.End()

	a, err := s.store.UpdateStatus(ctx, id, StatusConfirmed, StatusScheduled)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking("confirm", resultLabel(err))
		return nil, err
	}
	s.metrics.ObserveBooking("confirm", "ok")
	s.logger.Info("appointment confirmed", "appointment_id", a.ID)

	s.publish(ctx, events.TypeAppointmentConfirmed, events.AppointmentConfirmedV1{
		AppointmentID: a.ID,
		PatientID:     a.PatientID,
		StartTime:     a.StartTime,
		ConfirmedAt:   s.clock(),
	})
	if s.notifier != nil {
		msg := fmt.Sprintf("Your appointment on %s at %s is confirmed. See you at %s.",
			a.StartTime.Format("02/01/2006"), a.StartTime.Format("15:04"), a.Location)
		if err := s.notifier.Confirmation(ctx, a, msg); err != nil {
			s.logger.Error("confirmation notice failed", "appointment_id", a.ID, "error", err)
		}
	}
	return a, nil
}

// Cancel transitions any non-terminal appointment to cancelled. Cancelling
// an already-cancelled appointment is a no-op; a completed one is
// ErrInvalidState.
func (s *Scheduler) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.cancel")
	defer span.End()

	a, err := s.store.UpdateStatus(ctx, id, StatusCancelled, StatusScheduled, StatusConfirmed)
	if errors.Is(err, ErrInvalidState) {
		cur, gerr := s.store.GetByID(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		if cur.Status == StatusCancelled {
			s.logger.Warn("appointment already cancelled", "appointment_id", id)
			return cur, nil
		}
		return nil, err
	}
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking("cancel", resultLabel(err))
		return nil, err
	}
	s.metrics.ObserveBooking("cancel", "ok")
	s.logger.Info("appointment cancelled", "appointment_id", a.ID)

	s.publish(ctx, events.TypeAppointmentCancelled, events.AppointmentCancelledV1{
		AppointmentID: a.ID,
		PatientID:     a.PatientID,
		StartTime:     a.StartTime,
		CancelledAt:   s.clock(),
	})
	if s.notifier != nil {
		if err := s.notifier.CancellationNotice(ctx, a); err != nil {
			s.logger.Error("cancellation notice failed", "appointment_id", a.ID, "error", err)
		}
	}
	return a, nil
}

// Reschedule moves a scheduled or confirmed appointment to a new slot and
// resets it to scheduled; a moved appointment needs re-confirmation. The
// current slot never conflicts with itself.
func (s *Scheduler) Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time, duration time.Duration) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.reschedule")
	defer span.End()

	if duration <= 0 {
		duration = s.rules.DefaultDuration
	}
	prev, err := s.store.GetByID(ctx, id)
	if err != nil {
		s.metrics.ObserveBooking("reschedule", resultLabel(err))
		return nil, err
	}
	if prev.Status != StatusScheduled && prev.Status != StatusConfirmed {
		s.metrics.ObserveBooking("reschedule", "invalid_state")
		return nil, ErrInvalidState
	}

	var updated *Appointment
	err = s.store.WithDayLock(ctx, startOfDay(newStart), func(ctx context.Context, tx AppointmentStore) error {
		ok, err := s.availableOn(ctx, tx, newStart, duration, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConflict
		}
		updated, err = tx.Reschedule(ctx, id, newStart, duration)
		return err
	})
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking("reschedule", resultLabel(err))
		return nil, err
	}
	s.metrics.ObserveBooking("reschedule", "ok")
	s.logger.Info("appointment rescheduled",
		"appointment_id", id, "previous_start", prev.StartTime, "new_start", newStart)

	s.publish(ctx, events.TypeAppointmentRescheduled, events.AppointmentRescheduledV1{
		AppointmentID:   updated.ID,
		PatientID:       updated.PatientID,
		PreviousStart:   prev.StartTime,
		NewStart:        updated.StartTime,
		DurationMinutes: int64(updated.Duration / time.Minute),
		RescheduledAt:   s.clock(),
	})
	if s.notifier != nil {
		if err := s.notifier.RescheduleNotice(ctx, updated, prev.StartTime); err != nil {
			s.logger.Error("reschedule notice failed", "appointment_id", updated.ID, "error", err)
		}
	}
	return updated, nil
}

// CanConfirmNow gates the patient-facing confirm action: only on the
// appointment's own calendar day, and strictly more than the cutoff before
// the start.
func (s *Scheduler) CanConfirmNow(a *Appointment) bool {
	now := s.clock()
	return sameDay(now, a.StartTime) && now.Before(a.StartTime.Add(-s.rules.ConfirmCutoff))
}

// AvailableSlots lists bookable start times for a date at the default
// duration, stepping through the working day. Empty for past dates,
// Sundays and holidays.
func (s *Scheduler) AvailableSlots(ctx context.Context, date time.Time) ([]time.Time, error) {
	now := s.clock()
	day := startOfDay(date)
	if day.Before(startOfDay(now)) {
		return nil, nil
	}
	if day.Weekday() == time.Sunday || s.holidays.IsHoliday(day) {
		return nil, nil
	}

	existing, err := s.store.ListStartingBetween(ctx, day, day.AddDate(0, 0, 1),
		[]Status{StatusScheduled, StatusConfirmed})
	if err != nil {
		return nil, err
	}

	var slots []time.Time
	close := day.Add(s.rules.workdayEnd(day.Weekday()))
	for t := day.Add(s.rules.WorkdayStart); !t.Add(s.rules.DefaultDuration).After(close); t = t.Add(s.rules.SlotStep) {
		if !t.After(now) {
			continue
		}
		if s.rules.conflicts(t, s.rules.DefaultDuration, existing, uuid.Nil) {
			continue
		}
		slots = append(slots, t)
	}
	return slots, nil
}

// ListDay returns a patient's appointments for one date.
func (s *Scheduler) ListDay(ctx context.Context, patientID uuid.UUID, date time.Time) ([]Appointment, error) {
	day := startOfDay(date)
	return s.store.ListByPatientBetween(ctx, patientID, day, day.AddDate(0, 0, 1))
}

// ListMonth returns a patient's appointments for one calendar month.
func (s *Scheduler) ListMonth(ctx context.Context, patientID uuid.UUID, year int, month time.Month) ([]Appointment, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	return s.store.ListByPatientBetween(ctx, patientID, from, from.AddDate(0, 1, 0))
}

// Get loads one appointment.
func (s *Scheduler) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.store.GetByID(ctx, id)
}

// CompletePastDue transitions past-due scheduled/confirmed appointments to
// completed. Per-record failures are logged and skipped; the pass reports
// succeeded and attempted counts.
func (s *Scheduler) CompletePastDue(ctx context.Context, now time.Time) (succeeded, attempted int, err error) {
	due, err := s.store.ListPastDue(ctx, now, []Status{StatusScheduled, StatusConfirmed})
	if err != nil {
		return 0, 0, fmt.Errorf("appointments: list past due: %w", err)
	}
	if len(due) == 0 {
		return 0, 0, nil
	}

	for i := range due {
		a := &due[i]
		attempted++
		updated, uerr := s.store.UpdateStatus(ctx, a.ID, StatusCompleted, StatusScheduled, StatusConfirmed)
		if uerr != nil {
			s.logger.Warn("failed to mark appointment completed", "appointment_id", a.ID, "error", uerr)
			continue
		}
		succeeded++
		s.publish(ctx, events.TypeAppointmentCompleted, events.AppointmentCompletedV1{
			AppointmentID: updated.ID,
			PatientID:     updated.PatientID,
			StartTime:     updated.StartTime,
			CompletedAt:   now,
		})
	}
	if succeeded < attempted {
		s.logger.Warn("completion pass finished with failures", "succeeded", succeeded, "attempted", attempted)
	} else {
		s.logger.Info("completion pass finished", "succeeded", succeeded, "attempted", attempted)
	}
	return succeeded, attempted, nil
}

func (s *Scheduler) validateBooking(req BookingRequest) error {
	if req.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient id required", ErrValidation)
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return fmt.Errorf("%w: reason required", ErrValidation)
	}
	if len(reason) > maxReasonLen {
		return fmt.Errorf("%w: reason exceeds %d characters", ErrValidation, maxReasonLen)
	}
	location := strings.TrimSpace(req.Location)
	if location == "" {
		return fmt.Errorf("%w: location required", ErrValidation)
	}
	if len(location) > maxLocationLen {
		return fmt.Errorf("%w: location exceeds %d characters", ErrValidation, maxLocationLen)
	}
	if !req.StartTime.After(s.clock()) {
		return fmt.Errorf("%w: start time must be in the future", ErrValidation)
	}
	return nil
}

func (s *Scheduler) publish(ctx context.Context, eventType string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, payload); err != nil {
		s.logger.Error("event publish failed", "type", eventType, "error", err)
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
