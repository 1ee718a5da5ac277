package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulerMetrics exposes counters for booking flows and background sweeps.
type SchedulerMetrics struct {
	bookingsTotal  *prometheus.CounterVec
	sweepRuns      *prometheus.CounterVec
	sweepRecords   *prometheus.CounterVec
	remindersTotal *prometheus.CounterVec
}

func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	m := &SchedulerMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduler",
			Name:      "bookings_total",
			Help:      "Booking attempts by operation and result",
		}, []string{"operation", "result"}),
		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduler",
			Name:      "sweep_runs_total",
			Help:      "Background sweep passes by sweep name and result",
		}, []string{"sweep", "result"}),
		sweepRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduler",
			Name:      "sweep_records_total",
			Help:      "Records touched by background sweeps",
		}, []string{"sweep", "result"}),
		remindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduler",
			Name:      "reminders_sent_total",
			Help:      "Reminder notifications sent by recipient role",
		}, []string{"role"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.sweepRuns, m.sweepRecords, m.remindersTotal)
	return m
}

// ObserveBooking counts one scheduler operation outcome, e.g. ("create", "conflict").
func (m *SchedulerMetrics) ObserveBooking(operation, result string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(operation, result).Inc()
}

func (m *SchedulerMetrics) ObserveSweepRun(sweep, result string) {
	if m == nil {
		return
	}
	m.sweepRuns.WithLabelValues(sweep, result).Inc()
}

func (m *SchedulerMetrics) ObserveSweepRecords(sweep, result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sweepRecords.WithLabelValues(sweep, result).Add(float64(n))
}

func (m *SchedulerMetrics) ObserveReminder(role string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(role).Inc()
}
