package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

type MonitorConfig struct {
	Interval    time.Duration
	StallWindow time.Duration
	// Tolerance is how far the pending count may move and still count as
	// unchanged.
	Tolerance   int
	MinPending  int
	HistorySize int
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:    30 * time.Second,
		StallWindow: 2 * time.Minute,
		Tolerance:   0,
		MinPending:  1,
		HistorySize: 20,
	}
}

// Monitor samples the backlog and triggers recovery when it stops moving.
type Monitor struct {
	log      *slog.Logger
	cfg      MonitorConfig
	backlog  BacklogCounter
	recovery Drainer
	events   EventPublisher
	now      func() time.Time

	mu           sync.RWMutex
	history      []domain.BacklogSample
	stalled      bool
	recovering   bool
	lastRecovery *domain.RecoveryReport
}

func NewMonitor(
	log *slog.Logger,
	cfg MonitorConfig,
	backlog BacklogCounter,
	recovery Drainer,
	events EventPublisher,
) *Monitor {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultMonitorConfig().HistorySize
	}

	return &Monitor{
		log:      log,
		cfg:      cfg,
		backlog:  backlog,
		recovery: recovery,
		events:   events,
		now:      time.Now,
	}
}

// WithClock replaces the monitor's time source.
func (m *Monitor) WithClock(now func() time.Time) *Monitor {
	m.now = now
	return m
}

func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.Sample(ctx); err != nil {
				m.log.ErrorContext(ctx, "failed to sample backlog", slog.String("err", err.Error()))
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Sample records the current pending count and runs recovery synchronously
// when a stall is detected. A failed recovery is kept in the status and
// logged, not returned.
func (m *Monitor) Sample(ctx context.Context) error {
	pending, err := m.backlog.PendingCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count pending rows: %w", err)
	}

	sample := domain.BacklogSample{At: m.now(), Pending: pending}

	m.mu.Lock()
	m.history = append(m.history, sample)
	if len(m.history) > m.cfg.HistorySize {
		m.history = slices.Delete(m.history, 0, len(m.history)-m.cfg.HistorySize)
	}

	stalled := m.detectStall(sample)
	m.stalled = stalled
	m.mu.Unlock()

	m.log.DebugContext(ctx, "backlog sampled", slog.Int("pending", pending), slog.Bool("stalled", stalled))

	if !stalled {
		return nil
	}

	m.log.WarnContext(ctx, "backlog stalled, starting recovery",
		slog.Int("pending", pending),
		slog.Duration("stall_window", m.cfg.StallWindow),
	)

	if m.events != nil {
		m.events.Publish(ctx, domain.Event{Type: domain.EventBacklogStalled, At: sample.At, Pending: pending})
	}

	m.recover(ctx)

	return nil
}

// detectStall must be called with mu held. The count is stalled when every
// sample within the window stays within tolerance of the latest one and the
// history covers the whole window.
func (m *Monitor) detectStall(latest domain.BacklogSample) bool {
	if latest.Pending == 0 || latest.Pending < m.cfg.MinPending || m.recovering {
		return false
	}

	windowStart := latest.At.Add(-m.cfg.StallWindow)
	covered := false

	for i := len(m.history) - 1; i >= 0; i-- {
		s := m.history[i]

		if abs(s.Pending-latest.Pending) > m.cfg.Tolerance {
			return false
		}

		if !s.At.After(windowStart) {
			covered = true
			break
		}
	}

	return covered
}

func (m *Monitor) recover(ctx context.Context) {
	m.mu.Lock()
	m.recovering = true
	m.mu.Unlock()

	report, err := m.recovery.Drain(ctx)
	if err != nil {
		m.log.ErrorContext(ctx, "backlog recovery did not drain the backlog", slog.String("err", err.Error()))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.recovering = false
	m.lastRecovery = report
	m.history = nil
	if report != nil && report.Drained {
		m.stalled = false
	}
}

// Status is a snapshot for observability collaborators.
func (m *Monitor) Status() domain.BacklogStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := domain.BacklogStatus{
		History:      slices.Clone(m.history),
		Stalled:      m.stalled,
		Recovering:   m.recovering,
		LastRecovery: m.lastRecovery,
	}

	if n := len(m.history); n > 0 {
		last := m.history[n-1]
		status.Pending = last.Pending
		status.LastSampleAt = &last.At
	}

	if status.History == nil {
		status.History = []domain.BacklogSample{}
	}

	return status
}

func abs(n int) int {
	if n < 0 {
		return -n
	}

	return n
}
