package sweep

import (
	"context"
	"time"

	"github.com/elihu-analytics/clinic-scheduler/internal/observability/metrics"
	"github.com/elihu-analytics/clinic-scheduler/pkg/logging"
)

const completionLease = "completion"

// CompletionService marks past-due appointments completed.
type CompletionService interface {
	CompletePastDue(ctx context.Context, now time.Time) (succeeded, attempted int, err error)
}

// Completer periodically closes out appointments whose start time has
// passed while they were still scheduled or confirmed.
type Completer struct {
	svc      CompletionService
	lease    *Lease
	logger   *logging.Logger
	metrics  *metrics.SchedulerMetrics
	interval time.Duration
	now      func() time.Time
}

// NewCompleter creates the completion sweep.
func NewCompleter(svc CompletionService, logger *logging.Logger) *Completer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Completer{
		svc:      svc,
		logger:   logger,
		interval: 10 * time.Minute,
		now:      time.Now,
	}
}

func (c *Completer) WithInterval(d time.Duration) *Completer {
	if d > 0 {
		c.interval = d
	}
	return c
}

func (c *Completer) WithLease(l *Lease) *Completer {
	c.lease = l
	return c
}

func (c *Completer) WithMetrics(m *metrics.SchedulerMetrics) *Completer {
	c.metrics = m
	return c
}

func (c *Completer) WithClock(now func() time.Time) *Completer {
	if now != nil {
		c.now = now
	}
	return c
}

// Run sweeps once immediately, then on every tick until ctx is done.
func (c *Completer) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	c.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep performs one completion pass.
func (c *Completer) Sweep(ctx context.Context) {
	ok, err := c.lease.Acquire(ctx, completionLease)
	if err != nil {
		c.logger.Error("completion sweep: lease", "error", err)
		c.metrics.ObserveSweepRun("completion", "error")
		return
	}
	if !ok {
		c.metrics.ObserveSweepRun("completion", "skipped")
		return
	}
	defer func() {
		if err := c.lease.Release(ctx, completionLease); err != nil {
			c.logger.Warn("completion sweep: release lease", "error", err)
		}
	}()

	succeeded, attempted, err := c.svc.CompletePastDue(ctx, c.now())
	if err != nil {
		c.logger.Error("completion sweep failed", "error", err)
		c.metrics.ObserveSweepRun("completion", "error")
		return
	}
	if attempted > 0 {
		c.logger.Info("completion sweep", "succeeded", succeeded, "attempted", attempted)
	}
	c.metrics.ObserveSweepRun("completion", "ok")
	c.metrics.ObserveSweepRecords("completion", "succeeded", succeeded)
	c.metrics.ObserveSweepRecords("completion", "failed", attempted-succeeded)
}
