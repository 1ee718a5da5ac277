package sweep

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/elihu-analytics/clinic-scheduler/internal/appointments"
	"github.com/elihu-analytics/clinic-scheduler/internal/notify"
	"github.com/elihu-analytics/clinic-scheduler/internal/observability/metrics"
	"github.com/elihu-analytics/clinic-scheduler/pkg/logging"
)

const reminderLease = "reminder"

// ReminderStore lists upcoming appointments and flags them reminded.
type ReminderStore interface {
	ListStartingBetween(ctx context.Context, from, to time.Time, statuses []appointments.Status) ([]appointments.Appointment, error)
	SetReminderSent(ctx context.Context, id uuid.UUID) error
}

// ReminderSender delivers one reminder to one recipient role.
type ReminderSender interface {
	SendReminder(ctx context.Context, a *appointments.Appointment, role string) error
}

// SentLog is the persistent dedup guard for reminders.
type SentLog interface {
	HasBeenSent(ctx context.Context, apptID uuid.UUID, kind string, since time.Time) (bool, error)
	RecordSent(ctx context.Context, apptID uuid.UUID, kind, channel string) error
}

// Reminder sends pre-appointment reminders. Each pass covers confirmed
// appointments starting within the lead window, plus an evening pass that
// warns about tomorrow's early-morning appointments, which the regular
// lead window would only reach outside office hours.
type Reminder struct {
	store   ReminderStore
	sender  ReminderSender
	sentLog SentLog
	lease   *Lease
	logger  *logging.Logger
	metrics *metrics.SchedulerMetrics

	interval    time.Duration
	lead        time.Duration
	halfWindow  time.Duration
	nightAt     time.Duration // offset from midnight of the evening pass
	earlyCutoff time.Duration // appointments before this offset get the evening pass
	now         func() time.Time
}

// NewReminder creates the reminder sweep.
func NewReminder(store ReminderStore, sender ReminderSender, sentLog SentLog, logger *logging.Logger) *Reminder {
	if logger == nil {
		logger = logging.Default()
	}
	return &Reminder{
		store:       store,
		sender:      sender,
		sentLog:     sentLog,
		logger:      logger,
		interval:    10 * time.Minute,
		lead:        2 * time.Hour,
		halfWindow:  5 * time.Minute,
		nightAt:     19 * time.Hour,
		earlyCutoff: 9 * time.Hour,
		now:         time.Now,
	}
}

func (r *Reminder) WithInterval(d time.Duration) *Reminder {
	if d > 0 {
		r.interval = d
	}
	return r
}

func (r *Reminder) WithLead(d time.Duration) *Reminder {
	if d > 0 {
		r.lead = d
	}
	return r
}

func (r *Reminder) WithHalfWindow(d time.Duration) *Reminder {
	if d > 0 {
		r.halfWindow = d
	}
	return r
}

// WithNightPass sets when the evening pass fires and which start-of-day
// offset counts as early morning.
func (r *Reminder) WithNightPass(at, earlyCutoff time.Duration) *Reminder {
	if at > 0 {
		r.nightAt = at
	}
	if earlyCutoff > 0 {
		r.earlyCutoff = earlyCutoff
	}
	return r
}

func (r *Reminder) WithLease(l *Lease) *Reminder {
	r.lease = l
	return r
}

func (r *Reminder) WithMetrics(m *metrics.SchedulerMetrics) *Reminder {
	r.metrics = m
	return r
}

func (r *Reminder) WithClock(now func() time.Time) *Reminder {
	if now != nil {
		r.now = now
	}
	return r
}

// Run sweeps once immediately, then on every tick until ctx is done.
func (r *Reminder) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	r.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep performs one reminder pass.
func (r *Reminder) Sweep(ctx context.Context) {
	ok, err := r.lease.Acquire(ctx, reminderLease)
	if err != nil {
		r.logger.Error("reminder sweep: lease", "error", err)
		r.metrics.ObserveSweepRun("reminder", "error")
		return
	}
	if !ok {
		r.metrics.ObserveSweepRun("reminder", "skipped")
		return
	}
	defer func() {
		if err := r.lease.Release(ctx, reminderLease); err != nil {
			r.logger.Warn("reminder sweep: release lease", "error", err)
		}
	}()

	now := r.now()
	sent, failed := r.leadPass(ctx, now)

	if r.inNightWindow(now) {
		s, f := r.nightPass(ctx, now)
		sent += s
		failed += f
	}

	if sent > 0 || failed > 0 {
		r.logger.Info("reminder sweep", "sent", sent, "failed", failed)
	}
	result := "ok"
	if failed > 0 {
		result = "partial"
	}
	r.metrics.ObserveSweepRun("reminder", result)
	r.metrics.ObserveSweepRecords("reminder", "succeeded", sent)
	r.metrics.ObserveSweepRecords("reminder", "failed", failed)
}

// leadPass reminds about confirmed appointments starting in about r.lead.
func (r *Reminder) leadPass(ctx context.Context, now time.Time) (sent, failed int) {
	from := now.Add(r.lead - r.halfWindow)
	to := now.Add(r.lead + r.halfWindow)
	appts, err := r.store.ListStartingBetween(ctx, from, to, []appointments.Status{appointments.StatusConfirmed})
	if err != nil {
		r.logger.Error("reminder sweep: list upcoming", "error", err)
		return 0, 1
	}
	for i := range appts {
		a := &appts[i]
		if a.ReminderSent {
			continue
		}
		delivered, err := r.remindOne(ctx, a, notify.KindReminder, now.Add(-24*time.Hour))
		if err != nil {
			failed++
			continue
		}
		if delivered {
			if err := r.store.SetReminderSent(ctx, a.ID); err != nil {
				r.logger.Warn("reminder sweep: mark reminded", "appointment_id", a.ID, "error", err)
			}
			sent++
		}
	}
	return sent, failed
}

// nightPass reminds tonight about tomorrow's early-morning appointments.
func (r *Reminder) nightPass(ctx context.Context, now time.Time) (sent, failed int) {
	tomorrow := startOfDay(now).AddDate(0, 0, 1)
	appts, err := r.store.ListStartingBetween(ctx, tomorrow, tomorrow.Add(r.earlyCutoff),
		[]appointments.Status{appointments.StatusConfirmed})
	if err != nil {
		r.logger.Error("reminder sweep: list early morning", "error", err)
		return 0, 1
	}
	for i := range appts {
		a := &appts[i]
		delivered, err := r.remindOne(ctx, a, notify.KindNightBefore, startOfDay(now))
		if err != nil {
			failed++
			continue
		}
		if delivered {
			sent++
		}
	}
	return sent, failed
}

// remindOne sends both reminders for one appointment unless the sent log
// already has an entry of this kind. Reports whether anything went out.
func (r *Reminder) remindOne(ctx context.Context, a *appointments.Appointment, kind string, since time.Time) (bool, error) {
	already, err := r.sentLog.HasBeenSent(ctx, a.ID, kind, since)
	if err != nil {
		r.logger.Error("reminder sweep: dedup lookup", "appointment_id", a.ID, "error", err)
		return false, err
	}
	if already {
		return false, nil
	}

	if err := r.sender.SendReminder(ctx, a, notify.RolePatient); err != nil {
		r.logger.Error("reminder sweep: patient reminder", "appointment_id", a.ID, "error", err)
		return false, err
	}
	r.metrics.ObserveReminder(notify.RolePatient)

	if err := r.sender.SendReminder(ctx, a, notify.RolePractitioner); err != nil {
		// Patient already got theirs, keep going.
		r.logger.Warn("reminder sweep: practitioner reminder", "appointment_id", a.ID, "error", err)
	} else {
		r.metrics.ObserveReminder(notify.RolePractitioner)
	}

	if err := r.sentLog.RecordSent(ctx, a.ID, kind, "email"); err != nil {
		r.logger.Warn("reminder sweep: record sent", "appointment_id", a.ID, "error", err)
	}
	return true, nil
}

// inNightWindow reports whether now falls inside the evening pass window.
// The window is one interval wide so the pass fires on exactly one tick.
func (r *Reminder) inNightWindow(now time.Time) bool {
	offset := now.Sub(startOfDay(now))
	return offset >= r.nightAt && offset < r.nightAt+r.interval
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
