package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PendingSweeperConfig holds configuration for the pending sweeper
type PendingSweeperConfig struct {
	BatchSize int
	Interval  time.Duration
	// Grace is how long an attempt or event may stay pending before polling.
	Grace time.Duration
}

// DefaultPendingSweeperConfig returns default configuration
func DefaultPendingSweeperConfig() PendingSweeperConfig {
	return PendingSweeperConfig{
		BatchSize: 50,
		Interval:  5 * time.Minute,
		Grace:     15 * time.Minute,
	}
}

// PendingSweeper polls the processor for attempts whose notification never
// arrived and retries journaled events that failed to apply.
type PendingSweeper struct {
	ledger     *LedgerService
	settlement *SettlementService
	config     PendingSweeperConfig
	now        func() time.Time
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPendingSweeper creates a new pending sweeper
func NewPendingSweeper(
	ledger *LedgerService,
	settlement *SettlementService,
	config PendingSweeperConfig,
	logger *zap.Logger,
) *PendingSweeper {
	defaults := DefaultPendingSweeperConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Grace <= 0 {
		config.Grace = defaults.Grace
	}
	return &PendingSweeper{
		ledger:     ledger,
		settlement: settlement,
		config:     config,
		now:        utcNow,
		logger:     logger,
	}
}

// WithClock replaces the clock used to compute the grace cutoff
func (p *PendingSweeper) WithClock(now func() time.Time) *PendingSweeper {
	p.now = now
	return p
}

// Start starts the background sweep loop
func (p *PendingSweeper) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.sweepLoop(ctx)

	p.logger.Info("Pending sweeper started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("interval", p.config.Interval),
		zap.Duration("grace", p.config.Grace))

	return nil
}

// Stop waits for the running sweep to finish or ctx to expire
func (p *PendingSweeper) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Pending sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *PendingSweeper) sweepLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Sweep(ctx)
		}
	}
}

// SweepStats counts what one sweep did
type SweepStats struct {
	Polled   int
	Settled  int
	Retried  int
	Failures int
}

// Sweep runs one pass over stale pending attempts and the event journal
func (p *PendingSweeper) Sweep(ctx context.Context) SweepStats {
	var stats SweepStats
	cutoff := p.now().Add(-p.config.Grace)

	attempts, err := p.ledger.PendingBefore(ctx, cutoff, p.config.BatchSize)
	if err != nil {
		p.logger.Error("Failed to list pending attempts", zap.Error(err))
	}

	for _, attempt := range attempts {
		if ctx.Err() != nil {
			return stats
		}
		stats.Polled++

		result, err := p.settlement.ReconcileAttempt(ctx, attempt)
		if err != nil {
			stats.Failures++
			p.logger.Warn("Failed to reconcile pending attempt",
				zap.String("attempt_id", attempt.ID.String()),
				zap.String("session_id", attempt.CheckoutSessionID),
				zap.Error(err))
			continue
		}
		if result.Applied {
			stats.Settled++
		}
	}

	retried, err := p.settlement.RetryJournal(ctx, cutoff, p.config.BatchSize)
	if err != nil {
		p.logger.Error("Failed to retry journaled events", zap.Error(err))
	}
	stats.Retried = retried

	if stats.Polled > 0 || stats.Retried > 0 {
		p.logger.Info("Pending sweep finished",
			zap.Int("polled", stats.Polled),
			zap.Int("settled", stats.Settled),
			zap.Int("retried", stats.Retried),
			zap.Int("failures", stats.Failures))
	}
	return stats
}
