package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSchedulerMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulerMetrics(reg)
	m.ObserveBooking("create", "ok")
	m.ObserveBooking("reschedule", "conflict")
	m.ObserveSweepRun("completion", "ok")
	m.ObserveSweepRecords("completion", "succeeded", 3)
	m.ObserveSweepRecords("completion", "failed", 0)
	m.ObserveReminder("patient")
}

func TestSchedulerMetricsNilSafe(t *testing.T) {
	var m *SchedulerMetrics
	m.ObserveBooking("create", "ok")
	m.ObserveSweepRun("reminder", "skipped")
	m.ObserveSweepRecords("reminder", "succeeded", 1)
	m.ObserveReminder("practitioner")
}
