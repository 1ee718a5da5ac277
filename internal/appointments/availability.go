package appointments

import (
	"time"

	"github.com/google/uuid"
)

// Rules holds the booking-policy knobs for the scheduler.
type Rules struct {
	// DisplacementBuffer is the idle window reserved around each booked
	// session for travel and cleanup. It pads both sides of every existing
	// appointment when checking a proposed slot.
	DisplacementBuffer time.Duration
	DefaultDuration    time.Duration
	ConfirmCutoff      time.Duration

	// Clock offsets from local midnight bounding the working day.
	// Monday, Wednesday and Friday close at WorkdayEndShortDays.
	WorkdayStart        time.Duration
	WorkdayEnd          time.Duration
	WorkdayEndShortDays time.Duration
	SlotStep            time.Duration
}

// DefaultRules returns the practice's reference policy.
func DefaultRules() Rules {
	return Rules{
		DisplacementBuffer:  30 * time.Minute,
		DefaultDuration:     time.Hour,
		ConfirmCutoff:       2 * time.Hour,
		WorkdayStart:        8 * time.Hour,
		WorkdayEnd:          17 * time.Hour,
		WorkdayEndShortDays: 14 * time.Hour,
		SlotStep:            30 * time.Minute,
	}
}

func (r Rules) workdayEnd(day time.Weekday) time.Duration {
	switch day {
	case time.Monday, time.Wednesday, time.Friday:
		return r.WorkdayEndShortDays
	default:
		return r.WorkdayEnd
	}
}

// conflicts reports whether a proposed slot [start, start+duration) lands
// inside the busy window of any of the given appointments. Each existing
// appointment occupies [start-buffer, end+buffer); the proposed slot itself
// is not extended, so a session may begin exactly where a buffer ends.
// Cancelled appointments and the excluded id never count.
func (r Rules) conflicts(start time.Time, duration time.Duration, existing []Appointment, excludeID uuid.UUID) bool {
	end := start.Add(duration)
	for i := range existing {
		s := &existing[i]
		if excludeID != uuid.Nil && s.ID == excludeID {
			continue
		}
		if s.Status == StatusCancelled {
			continue
		}
		dur := s.Duration
		if dur <= 0 {
			dur = r.DefaultDuration
		}
		busyStart := s.StartTime.Add(-r.DisplacementBuffer)
		busyEnd := s.StartTime.Add(dur).Add(r.DisplacementBuffer)
		if busyStart.Before(end) && busyEnd.After(start) {
			return true
		}
	}
	return false
}

// withinWorkday reports whether the whole session fits the working hours
// of its weekday. A session ending exactly at close is allowed.
func (r Rules) withinWorkday(start time.Time, duration time.Duration) bool {
	open := startOfDay(start).Add(r.WorkdayStart)
	close := startOfDay(start).Add(r.workdayEnd(start.Weekday()))
	return !start.Before(open) && !start.Add(duration).After(close)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
