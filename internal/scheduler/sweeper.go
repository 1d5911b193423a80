package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/sso-handoff/internal/metrics"
	"github.com/robfig/cron/v3"
)

// Sweepable is a token store that can drop its expired records.
type Sweepable interface {
	Sweep() int
	Len() int
}

// Sweeper evicts expired handoff tokens on a cron schedule. Consumed tokens
// are left until they expire so that replays keep reporting them as used.
type Sweeper struct {
	store    Sweepable
	spec     string
	schedule cron.Schedule
	logger   *slog.Logger
}

// NewSweeper accepts a standard 5-field cron expression or a descriptor
// such as "@every 1m".
func NewSweeper(store Sweepable, spec string, logger *slog.Logger) (*Sweeper, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", spec, err)
	}
	return &Sweeper{
		store:    store,
		spec:     spec,
		schedule: sched,
		logger:   logger.With("component", "sweeper"),
	}, nil
}

// Start blocks, sweeping at each scheduled instant until ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("sweeper started", "schedule", s.spec)

	for {
		next := s.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("sweeper shut down")
			return
		case <-timer.C:
			s.SweepOnce()
		}
	}
}

// SweepOnce runs a single eviction pass and returns the number removed.
func (s *Sweeper) SweepOnce() int {
	start := time.Now()
	evicted := s.store.Sweep()
	live := s.store.Len()

	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	metrics.SweepEvictedTotal.Add(float64(evicted))
	metrics.TokensLive.Set(float64(live))

	if evicted > 0 {
		s.logger.Debug("swept expired tokens", "evicted", evicted, "live", live)
	}
	return evicted
}
