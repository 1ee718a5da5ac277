package appointments

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// memStore is an in-memory AppointmentStore for service tests.
type memStore struct {
	appts map[uuid.UUID]*Appointment
}

func newMemStore() *memStore {
	return &memStore{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *memStore) Insert(_ context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) ListStartingBetween(_ context.Context, from, to time.Time, statuses []Status) ([]Appointment, error) {
	var out []Appointment
	for _, a := range m.appts {
		if a.StartTime.Before(from) || !a.StartTime.Before(to) {
			continue
		}
		if !statusIn(a.Status, statuses) {
			continue
		}
		out = append(out, *a)
	}
	sortByStart(out)
	return out, nil
}

func (m *memStore) ListByPatientBetween(_ context.Context, patientID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	var out []Appointment
	for _, a := range m.appts {
		if a.PatientID != patientID {
			continue
		}
		if a.StartTime.Before(from) || !a.StartTime.Before(to) {
			continue
		}
		out = append(out, *a)
	}
	sortByStart(out)
	return out, nil
}

func (m *memStore) ListPastDue(_ context.Context, now time.Time, statuses []Status) ([]Appointment, error) {
	var out []Appointment
	for _, a := range m.appts {
		if !a.StartTime.Before(now) {
			continue
		}
		if !statusIn(a.Status, statuses) {
			continue
		}
		out = append(out, *a)
	}
	sortByStart(out)
	return out, nil
}

func (m *memStore) UpdateStatus(ctx context.Context, id uuid.UUID, to Status, from ...Status) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !statusIn(a.Status, from) {
		return nil, ErrInvalidState
	}
	a.Status = to
	cp := *a
	return &cp, nil
}

func (m *memStore) Reschedule(_ context.Context, id uuid.UUID, newStart time.Time, duration time.Duration) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if a.Status != StatusScheduled && a.Status != StatusConfirmed {
		return nil, ErrInvalidState
	}
	a.StartTime = newStart
	a.Duration = duration
	a.Status = StatusScheduled
	a.ReminderSent = false
	cp := *a
	return &cp, nil
}

func (m *memStore) SetReminderSent(_ context.Context, id uuid.UUID) error {
	a, ok := m.appts[id]
	if !ok {
		return ErrNotFound
	}
	a.ReminderSent = true
	return nil
}

func (m *memStore) WithDayLock(ctx context.Context, _ time.Time, fn func(ctx context.Context, tx AppointmentStore) error) error {
	return fn(ctx, m)
}

func statusIn(s Status, set []Status) bool {
	for _, st := range set {
		if s == st {
			return true
		}
	}
	return false
}

func sortByStart(appts []Appointment) {
	sort.Slice(appts, func(i, j int) bool { return appts[i].StartTime.Before(appts[j].StartTime) })
}
