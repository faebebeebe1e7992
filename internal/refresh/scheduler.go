package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tpotops/threatbrief/pkg/models"
)

// CycleFunc runs one refresh cycle.
type CycleFunc func(ctx context.Context) error

// Scheduler triggers refresh cycles: once after a short initial delay so
// the process finishes starting before doing network work, then at a
// fixed interval, indefinitely. A compare-and-swap guard keeps cycles
// strictly serial — a tick that lands while a cycle is still running is
// dropped, never queued or run concurrently.
type Scheduler struct {
	initialDelay time.Duration
	interval     time.Duration
	run          CycleFunc
	logger       *slog.Logger
	metrics      *Metrics

	running atomic.Bool
}

// NewScheduler builds a scheduler around one cycle function.
func NewScheduler(initialDelay, interval time.Duration, run CycleFunc, logger *slog.Logger, metrics *Metrics) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		initialDelay: initialDelay,
		interval:     interval,
		run:          run,
		logger:       logger,
		metrics:      metrics,
	}
}

// Start launches the scheduling loop. It returns immediately; the loop
// stops when ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	timer := time.NewTimer(s.initialDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	s.Tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
			// A cycle that outlasted the interval left one buffered tick
			// behind; running it now would start cycles back-to-back, so it
			// is dropped like a concurrent one.
			select {
			case <-ticker.C:
				s.dropTick()
			default:
			}
		}
	}
}

func (s *Scheduler) dropTick() {
	s.logger.Warn("previous refresh cycle still running, dropping tick")
	if s.metrics != nil {
		s.metrics.TicksDropped.Inc()
	}
}

// Tick runs one cycle unless another is already in flight. Exported so a
// cycle can also be forced outside the schedule (tests, operational
// tooling) without ever breaking the no-overlap guarantee.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.dropTick()
		return
	}
	defer s.running.Store(false)

	start := time.Now()
	err := s.run(ctx)
	took := time.Since(start)

	result := classify(err)
	if s.metrics != nil {
		s.metrics.Cycles.WithLabelValues(result).Inc()
		s.metrics.CycleDuration.Observe(took.Seconds())
	}

	switch {
	case err == nil:
		s.logger.Info("analysis cache updated", "took", took)
	case errors.Is(err, models.ErrEmptyWindow):
		s.logger.Info("refresh skipped: no new events to analyze")
	default:
		s.logger.Error("refresh cycle skipped", "reason", result, "error", err)
	}
}
