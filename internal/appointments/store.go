package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const appointmentColumns = `id, patient_id, start_time, duration_minutes, reason, location, status, reminder_sent, created_at, updated_at`

// Store provides persistence for appointments.
type Store struct {
	db DB
}

// NewStore creates an appointment store backed by a pgx pool or transaction.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Insert persists a new appointment.
func (s *Store) Insert(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = StatusScheduled
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO appointments (id, patient_id, start_time, duration_minutes, reason, location, status, reminder_sent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.PatientID, a.StartTime, int64(a.Duration/time.Minute), a.Reason, a.Location,
		string(a.Status), a.ReminderSent, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	return nil
}

// GetByID loads one appointment, ErrNotFound when the id does not exist.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: get by id: %w", err)
	}
	return a, nil
}

// ListStartingBetween returns appointments with start_time in [from, to)
// and one of the given statuses, ordered by start time.
func (s *Store) ListStartingBetween(ctx context.Context, from, to time.Time, statuses []Status) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE start_time >= $1 AND start_time < $2 AND status = ANY($3)
		ORDER BY start_time ASC`, from, to, statusStrings(statuses))
	if err != nil {
		return nil, fmt.Errorf("appointments: list starting between: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ListByPatientBetween returns a patient's appointments with start_time in [from, to).
func (s *Store) ListByPatientBetween(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time ASC`, patientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("appointments: list by patient: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ListPastDue returns appointments that started before now and still carry
// one of the given statuses.
func (s *Store) ListPastDue(ctx context.Context, now time.Time, statuses []Status) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE start_time < $1 AND status = ANY($2)
		ORDER BY start_time ASC`, now, statusStrings(statuses))
	if err != nil {
		return nil, fmt.Errorf("appointments: list past due: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// UpdateStatus transitions an appointment to the target status, guarded by
// the set of statuses the transition is legal from. Returns ErrNotFound if
// the id does not exist and ErrInvalidState when the guard fails.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, to Status, from ...Status) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE appointments SET status = $1, updated_at = $2
		WHERE id = $3 AND status = ANY($4)
		RETURNING `+appointmentColumns,
		string(to), time.Now(), id, statusStrings(from))
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.explainMissedUpdate(ctx, id)
		}
		return nil, fmt.Errorf("appointments: update status: %w", err)
	}
	return a, nil
}

// Reschedule moves an appointment to a new start time, resets it to
// scheduled and clears the reminder flag so a new reminder goes out.
func (s *Store) Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time, duration time.Duration) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE appointments
		SET start_time = $1, duration_minutes = $2, status = $3, reminder_sent = FALSE, updated_at = $4
		WHERE id = $5 AND status = ANY($6)
		RETURNING `+appointmentColumns,
		newStart, int64(duration/time.Minute), string(StatusScheduled), time.Now(),
		id, statusStrings([]Status{StatusScheduled, StatusConfirmed}))
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.explainMissedUpdate(ctx, id)
		}
		return nil, fmt.Errorf("appointments: reschedule: %w", err)
	}
	return a, nil
}

// SetReminderSent flags an appointment so the reminder sweep skips it.
func (s *Store) SetReminderSent(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments SET reminder_sent = TRUE, updated_at = $1
		WHERE id = $2`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("appointments: set reminder sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// WithDayLock runs fn inside a transaction holding an advisory lock on the
// calendar day, serializing availability checks against concurrent writers
// for the same window.
func (s *Store) WithDayLock(ctx context.Context, day time.Time, fn func(ctx context.Context, tx AppointmentStore) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("appointments: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, dayLockKey(day)); err != nil {
		return fmt.Errorf("appointments: day lock: %w", err)
	}
	if err := fn(ctx, &Store{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("appointments: commit: %w", err)
	}
	return nil
}

// explainMissedUpdate distinguishes a missing row from a status guard miss.
func (s *Store) explainMissedUpdate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return ErrInvalidState
}

func dayLockKey(day time.Time) int64 {
	y, m, d := day.Date()
	return int64(y)*10000 + int64(m)*100 + int64(d)
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*Appointment, error) {
	var a Appointment
	var status string
	var durationMinutes int64
	err := row.Scan(
		&a.ID, &a.PatientID, &a.StartTime, &durationMinutes,
		&a.Reason, &a.Location, &status, &a.ReminderSent,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = Status(status)
	a.Duration = time.Duration(durationMinutes) * time.Minute
	return &a, nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}
