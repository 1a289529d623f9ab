// Package sweep runs the periodic resolution pass that refreshes
// due/overdue/missed transitions without waiting for a write.
package sweep

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/careops/careops/internal/platform/metrics"
)

// Target is a domain service that can re-resolve its active entities.
type Target interface {
	Sweep(ctx context.Context, now time.Time) (resolved, failed int, err error)
}

type target struct {
	name string
	t    Target
}

// Runner drives sweeps over the registered targets on a fixed interval.
type Runner struct {
	interval time.Duration
	logger   zerolog.Logger
	targets  []target
}

func NewRunner(interval time.Duration, logger zerolog.Logger) *Runner {
	return &Runner{interval: interval, logger: logger}
}

// Register adds a target. Targets run in registration order.
func (r *Runner) Register(name string, t Target) {
	r.targets = append(r.targets, target{name: name, t: t})
}

// Run sweeps until the context is cancelled. The first pass fires
// immediately.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.RunOnce(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("sweep runner stopped")
			return
		case now := <-ticker.C:
			r.RunOnce(ctx, now)
		}
	}
}

// RunOnce performs a single pass over every target and returns the
// aggregate resolved/failed counts. A failing target is logged and
// skipped; the pass continues for the others.
func (r *Runner) RunOnce(ctx context.Context, now time.Time) (totalResolved, totalFailed int) {
	start := time.Now()
	for _, tg := range r.targets {
		resolved, failed, err := tg.t.Sweep(ctx, now)
		if err != nil {
			metrics.SweepErrors.Inc()
			r.logger.Error().Err(err).Str("target", tg.name).Msg("sweep target failed")
			totalFailed++
			continue
		}
		totalResolved += resolved
		totalFailed += failed
		evt := r.logger.Debug()
		if failed > 0 {
			evt = r.logger.Warn()
		}
		evt.Str("target", tg.name).
			Int("resolved", resolved).
			Int("failed", failed).
			Msg("sweep pass")
	}
	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	return totalResolved, totalFailed
}
