package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tuesday 2025-03-11, 08:00 local. A regular working day in Colombia.
var testNow = time.Date(2025, 3, 11, 8, 0, 0, 0, time.Local)

type recordingNotifier struct {
	bookings      int
	confirmations []string
	cancellations int
	reschedules   []time.Time
}

func (r *recordingNotifier) BookingNotice(context.Context, *Appointment) error {
	r.bookings++
	return nil
}

func (r *recordingNotifier) Confirmation(_ context.Context, _ *Appointment, msg string) error {
	r.confirmations = append(r.confirmations, msg)
	return nil
}

func (r *recordingNotifier) CancellationNotice(context.Context, *Appointment) error {
	r.cancellations++
	return nil
}

func (r *recordingNotifier) RescheduleNotice(_ context.Context, _ *Appointment, prev time.Time) error {
	r.reschedules = append(r.reschedules, prev)
	return nil
}

type recordingPublisher struct {
	types []string
}

func (r *recordingPublisher) Publish(_ context.Context, eventType string, _ any) error {
	r.types = append(r.types, eventType)
	return nil
}

func newTestScheduler() (*Scheduler, *memStore, *recordingNotifier, *recordingPublisher) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	publisher := &recordingPublisher{}
	sched := NewScheduler(store, nil).
		WithClock(func() time.Time { return testNow }).
		WithNotifier(notifier).
		WithPublisher(publisher)
	return sched, store, notifier, publisher
}

func bookAt(t *testing.T, s *Scheduler, start time.Time) *Appointment {
	t.Helper()
	a, err := s.Book(context.Background(), BookingRequest{
		PatientID: uuid.New(),
		StartTime: start,
		Duration:  time.Hour,
		Reason:    "follow-up session",
		Location:  "Main office",
	})
	require.NoError(t, err)
	return a
}

func at(hour, min int) time.Time {
	return time.Date(2025, 3, 11, hour, min, 0, 0, time.Local)
}

func TestBookRejectsSlotInsideDisplacementBuffer(t *testing.T) {
	s, _, notifier, publisher := newTestScheduler()
	ctx := context.Background()

	// 10:00 for 1h occupies 09:30–11:30 once padded with the buffer.
	bookAt(t, s, at(10, 0))
	assert.Equal(t, 1, notifier.bookings)
	assert.Contains(t, publisher.types, "appointment.booked.v1")

	_, err := s.Book(ctx, BookingRequest{
		PatientID: uuid.New(),
		StartTime: at(11, 15),
		Duration:  time.Hour,
		Reason:    "first visit",
		Location:  "Main office",
	})
	assert.ErrorIs(t, err, ErrConflict)

	// A slot running into the leading buffer is rejected too.
	_, err = s.Book(ctx, BookingRequest{
		PatientID: uuid.New(),
		StartTime: at(9, 0),
		Duration:  time.Hour,
		Reason:    "first visit",
		Location:  "Main office",
	})
	assert.ErrorIs(t, err, ErrConflict)

	// Both buffer boundaries themselves are free.
	bookAt(t, s, at(11, 30))
	bookAt(t, s, at(8, 30))
}

func TestBookValidation(t *testing.T) {
	s, _, _, _ := newTestScheduler()
	ctx := context.Background()

	cases := []struct {
		name string
		req  BookingRequest
	}{
		{"missing patient", BookingRequest{StartTime: at(10, 0), Reason: "x", Location: "y"}},
		{"blank reason", BookingRequest{PatientID: uuid.New(), StartTime: at(10, 0), Reason: "   ", Location: "y"}},
		{"blank location", BookingRequest{PatientID: uuid.New(), StartTime: at(10, 0), Reason: "x", Location: ""}},
		{"past start", BookingRequest{PatientID: uuid.New(), StartTime: testNow.Add(-time.Hour), Reason: "x", Location: "y"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Book(ctx, tc.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

type memRegistry struct {
	known map[uuid.UUID]bool
}

func (r *memRegistry) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return r.known[id], nil
}

func TestBookRejectsUnknownPatient(t *testing.T) {
	s, _, notifier, _ := newTestScheduler()
	ctx := context.Background()

	registered := uuid.New()
	s.WithPatients(&memRegistry{known: map[uuid.UUID]bool{registered: true}})

	_, err := s.Book(ctx, BookingRequest{
		PatientID: uuid.New(),
		StartTime: at(10, 0),
		Duration:  time.Hour,
		Reason:    "first visit",
		Location:  "Main office",
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, notifier.bookings)

	_, err = s.Book(ctx, BookingRequest{
		PatientID: registered,
		StartTime: at(10, 0),
		Duration:  time.Hour,
		Reason:    "first visit",
		Location:  "Main office",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, notifier.bookings)
}

func TestBookOutsideWorkingHours(t *testing.T) {
	s, _, _, _ := newTestScheduler()
	ctx := context.Background()

	// Thursday 07:00 is in the future but before the doors open.
	_, err := s.Book(ctx, BookingRequest{
		PatientID: uuid.New(),
		StartTime: at(7, 0).AddDate(0, 0, 2),
		Duration:  time.Hour,
		Reason:    "early bird",
		Location:  "Main office",
	})
	assert.ErrorIs(t, err, ErrConflict)

	// Tuesday closes at 17:00; a session ending exactly at close is fine.
	bookAt(t, s, at(16, 0))

	_, err = s.Book(ctx, BookingRequest{
		PatientID: uuid.New(),
		StartTime: at(16, 30),
		Duration:  time.Hour,
		Reason:    "too late",
		Location:  "Main office",
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestIsAvailableSundayAndHoliday(t *testing.T) {
	s, _, _, _ := newTestScheduler()
	ctx := context.Background()

	sunday := time.Date(2025, 3, 16, 10, 0, 0, 0, time.Local)
	ok, err := s.IsAvailable(ctx, sunday, time.Hour, uuid.Nil)
	require.NoError(t, err)
	assert.False(t, ok)

	// 2025-03-24 is the Monday observance of San José.
	holiday := time.Date(2025, 3, 24, 10, 0, 0, 0, time.Local)
	ok, err = s.IsAvailable(ctx, holiday, time.Hour, uuid.Nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsAvailablePastStart(t *testing.T) {
	s, _, _, _ := newTestScheduler()
	ok, err := s.IsAvailable(context.Background(), testNow.Add(-time.Minute), time.Hour, uuid.Nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConfirmTransitions(t *testing.T) {
	s, _, notifier, publisher := newTestScheduler()
	ctx := context.Background()

	a := bookAt(t, s, at(10, 0))

	confirmed, err := s.Confirm(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	require.Len(t, notifier.confirmations, 1)
	assert.Contains(t, notifier.confirmations[0], "11/03/2025")
	assert.Contains(t, publisher.types, "appointment.confirmed.v1")

	// Confirming again is not permitted.
	_, err = s.Confirm(ctx, a.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = s.Confirm(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelIsIdempotent(t *testing.T) {
	s, store, notifier, _ := newTestScheduler()
	ctx := context.Background()

	a := bookAt(t, s, at(10, 0))

	cancelled, err := s.Cancel(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, 1, notifier.cancellations)

	// Cancelling again is a silent no-op and sends nothing.
	again, err := s.Cancel(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, again.Status)
	assert.Equal(t, 1, notifier.cancellations)

	// Completed appointments are terminal.
	done := &Appointment{PatientID: uuid.New(), StartTime: at(9, 0), Duration: time.Hour, Status: StatusCompleted}
	require.NoError(t, store.Insert(ctx, done))
	_, err = s.Cancel(ctx, done.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = s.Cancel(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRescheduleDoesNotConflictWithItself(t *testing.T) {
	s, _, _, _ := newTestScheduler()
	ctx := context.Background()

	a := bookAt(t, s, at(10, 0))

	moved, err := s.Reschedule(ctx, a.ID, at(10, 0), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, at(10, 0), moved.StartTime)
	assert.Equal(t, StatusScheduled, moved.Status)
}

func TestRescheduleConfirmedRequiresReconfirmation(t *testing.T) {
	s, _, notifier, publisher := newTestScheduler()
	ctx := context.Background()

	a := bookAt(t, s, at(10, 0))
	_, err := s.Confirm(ctx, a.ID)
	require.NoError(t, err)

	moved, err := s.Reschedule(ctx, a.ID, at(14, 0), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, moved.Status)
	assert.False(t, moved.ReminderSent)
	require.Len(t, notifier.reschedules, 1)
	assert.Equal(t, at(10, 0), notifier.reschedules[0])
	assert.Contains(t, publisher.types, "appointment.rescheduled.v1")
}

func TestRescheduleFailures(t *testing.T) {
	s, _, _, _ := newTestScheduler()
	ctx := context.Background()

	_, err := s.Reschedule(ctx, uuid.New(), at(10, 0), time.Hour)
	assert.ErrorIs(t, err, ErrNotFound)

	a := bookAt(t, s, at(10, 0))
	b := bookAt(t, s, at(13, 0))

	// b's slot (and its trailing buffer) is taken.
	_, err = s.Reschedule(ctx, a.ID, at(13, 30), time.Hour)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.Cancel(ctx, b.ID)
	require.NoError(t, err)
	_, err = s.Cancel(ctx, a.ID)
	require.NoError(t, err)

	// Terminal appointments cannot be moved.
	_, err = s.Reschedule(ctx, a.ID, at(15, 0), time.Hour)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCanConfirmNow(t *testing.T) {
	s, _, _, _ := newTestScheduler()

	threeDaysOut := &Appointment{StartTime: testNow.AddDate(0, 0, 3)}
	assert.False(t, s.CanConfirmNow(threeDaysOut))

	// Same day, more than two hours of lead.
	laterToday := &Appointment{StartTime: at(11, 0)}
	assert.True(t, s.CanConfirmNow(laterToday))

	// Same day but inside the two-hour cutoff.
	soon := &Appointment{StartTime: at(9, 0)}
	assert.False(t, s.CanConfirmNow(soon))

	// Exactly at the cutoff boundary: strictly-before fails.
	boundary := &Appointment{StartTime: at(10, 0)}
	assert.False(t, s.CanConfirmNow(boundary))
}

func TestCompletePastDue(t *testing.T) {
	s, store, _, publisher := newTestScheduler()
	ctx := context.Background()

	past := &Appointment{PatientID: uuid.New(), StartTime: testNow.Add(-time.Hour), Duration: time.Hour, Status: StatusScheduled}
	future := &Appointment{PatientID: uuid.New(), StartTime: testNow.Add(time.Hour), Duration: time.Hour, Status: StatusScheduled}
	require.NoError(t, store.Insert(ctx, past))
	require.NoError(t, store.Insert(ctx, future))

	succeeded, attempted, err := s.CompletePastDue(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, attempted)

	got, err := store.GetByID(ctx, past.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)

	got, err = store.GetByID(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, got.Status)

	assert.Contains(t, publisher.types, "appointment.completed.v1")
}

func TestNoDoubleBookingAfterMixedOperations(t *testing.T) {
	s, store, _, _ := newTestScheduler()
	ctx := context.Background()

	a := bookAt(t, s, at(9, 0))
	bookAt(t, s, at(11, 0))
	_, err := s.Reschedule(ctx, a.ID, at(13, 0), time.Hour)
	require.NoError(t, err)
	bookAt(t, s, at(9, 0)) // a's old slot is free again

	day := time.Date(2025, 3, 11, 0, 0, 0, 0, time.Local)
	all, err := store.ListStartingBetween(ctx, day, day.AddDate(0, 0, 1), []Status{StatusScheduled, StatusConfirmed})
	require.NoError(t, err)

	buffer := 30 * time.Minute
	for i := range all {
		for j := range all {
			if i == j {
				continue
			}
			ai, aj := all[i], all[j]
			overlap := ai.StartTime.Before(aj.End().Add(buffer)) && aj.StartTime.Before(ai.End().Add(buffer))
			assert.False(t, overlap, "appointments %s and %s overlap", ai.StartTime, aj.StartTime)
		}
	}
}

func TestAvailableSlots(t *testing.T) {
	s, _, _, _ := newTestScheduler()
	ctx := context.Background()

	bookAt(t, s, at(10, 0))

	slots, err := s.AvailableSlots(ctx, at(0, 0))
	require.NoError(t, err)

	// 08:00 has already struck, so the grid starts at 08:30.
	assert.Contains(t, slots, at(8, 30))
	assert.NotContains(t, slots, at(8, 0))
	// 09:00–11:00 collide with the 10:00 session and its buffer on either side.
	assert.NotContains(t, slots, at(9, 0))
	assert.NotContains(t, slots, at(9, 30))
	assert.NotContains(t, slots, at(10, 0))
	assert.NotContains(t, slots, at(10, 30))
	assert.NotContains(t, slots, at(11, 0))
	assert.Contains(t, slots, at(11, 30))
	// Tuesday closes at 17:00: last slot for a 1h session is 16:00.
	assert.Contains(t, slots, at(16, 0))
	assert.NotContains(t, slots, at(16, 30))
}

func TestAvailableSlotsEmptyDays(t *testing.T) {
	s, _, _, _ := newTestScheduler()
	ctx := context.Background()

	sunday := time.Date(2025, 3, 16, 0, 0, 0, 0, time.Local)
	slots, err := s.AvailableSlots(ctx, sunday)
	require.NoError(t, err)
	assert.Empty(t, slots)

	yesterday := testNow.AddDate(0, 0, -1)
	slots, err = s.AvailableSlots(ctx, yesterday)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestAvailableSlotsShortDay(t *testing.T) {
	s, _, _, _ := newTestScheduler()
	ctx := context.Background()

	// Wednesday closes at 14:00.
	wednesday := time.Date(2025, 3, 12, 0, 0, 0, 0, time.Local)
	slots, err := s.AvailableSlots(ctx, wednesday)
	require.NoError(t, err)
	assert.Contains(t, slots, wednesday.Add(13*time.Hour))
	assert.NotContains(t, slots, wednesday.Add(13*time.Hour+30*time.Minute))
}

func TestListDayAndMonth(t *testing.T) {
	s, store, _, _ := newTestScheduler()
	ctx := context.Background()

	patientID := uuid.New()
	first := &Appointment{PatientID: patientID, StartTime: at(10, 0), Duration: time.Hour, Status: StatusScheduled}
	second := &Appointment{PatientID: patientID, StartTime: at(10, 0).AddDate(0, 0, 5), Duration: time.Hour, Status: StatusScheduled}
	other := &Appointment{PatientID: uuid.New(), StartTime: at(12, 0), Duration: time.Hour, Status: StatusScheduled}
	for _, a := range []*Appointment{first, second, other} {
		require.NoError(t, store.Insert(ctx, a))
	}

	day, err := s.ListDay(ctx, patientID, at(0, 0))
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, first.ID, day[0].ID)

	month, err := s.ListMonth(ctx, patientID, 2025, time.March)
	require.NoError(t, err)
	assert.Len(t, month, 2)
}
