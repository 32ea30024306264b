package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/stakemint/node/internal/mediator"
)

const sweepTimeout = 30 * time.Second

// connectionTester is the slice of Diagnostics the monitor needs.
type connectionTester interface {
	TestConnection(ctx context.Context) *mediator.ConnectionReport
}

// Monitor runs periodic connection sweeps and logs degradation. It is purely
// observational: a failed sweep changes nothing, callers retry their own
// operations.
type Monitor struct {
	diag     connectionTester
	interval time.Duration
	logger   *zap.Logger

	stateMu   sync.Mutex
	scheduler *gocron.Scheduler
}

// New builds a monitor sweeping at the given interval.
func New(diag connectionTester, interval time.Duration, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.L()
	}
	return &Monitor{
		diag:     diag,
		interval: interval,
		logger:   logger.Named("monitor"),
	}
}

// Start begins the periodic sweep. It fails if the interval is not positive
// or the monitor is already running.
func (m *Monitor) Start() error {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	if m.interval <= 0 {
		return fmt.Errorf("monitor interval must be positive, got %s", m.interval)
	}
	if m.scheduler != nil {
		return fmt.Errorf("monitor already started")
	}

	s := gocron.NewScheduler(time.UTC)
	if _, err := s.Every(m.interval).Do(m.Sweep); err != nil {
		return fmt.Errorf("schedule connection sweep: %w", err)
	}
	s.StartAsync()
	m.scheduler = s

	m.logger.Info("connection monitor started", zap.Duration("interval", m.interval))
	return nil
}

// Stop halts the sweep. Safe to call when not started.
func (m *Monitor) Stop() {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	if m.scheduler != nil {
		m.scheduler.Stop()
		m.scheduler = nil
		m.logger.Info("connection monitor stopped")
	}
}

// Sweep runs one diagnostic pass.
func (m *Monitor) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	report := m.diag.TestConnection(ctx)
	if report.Success {
		m.logger.Debug("connection sweep healthy",
			zap.String("network", report.Network.Name))
		return
	}
	m.logger.Warn("connection sweep degraded",
		zap.String("network", report.Network.Name),
		zap.String("attestation_error", report.Contracts.Attestation.Error),
		zap.String("staking_error", report.Contracts.Staking.Error))
}
