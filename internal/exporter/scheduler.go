package exporter

import (
	"context"
	"log"
	"time"
)

// Scheduler runs a job on a fixed interval. Ticks are never run concurrently:
// if a run overlaps the next tick, the ticker's one-element buffer holds
// exactly one missed occurrence, which is compensated promptly afterwards —
// unless it is already older than the misfire grace, in which case it is
// dropped and the next regular tick supersedes it.
type Scheduler struct {
	interval time.Duration
	grace    time.Duration
	job      func(ctx context.Context) error
}

func NewScheduler(interval, grace time.Duration, job func(ctx context.Context) error) *Scheduler {
	return &Scheduler{
		interval: interval,
		grace:    grace,
		job:      job,
	}
}

// misfired reports whether a tick waited in the ticker buffer for longer than
// the grace window while the previous run was still executing.
func misfired(fired time.Time, grace time.Duration) bool {
	return time.Since(fired) > grace
}

// Run blocks until the context is cancelled. Job errors are logged, never
// retried within the tick; the next tick naturally re-exports current state.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("✓ Scheduler started: interval=%s, misfire grace=%s", s.interval, s.grace)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Scheduler stopped")
			return
		case fired := <-ticker.C:
			if misfired(fired, s.grace) {
				log.Printf("Skipping misfired tick (fired %s ago, grace %s)", time.Since(fired), s.grace)
				continue
			}
			if err := s.job(ctx); err != nil {
				log.Printf("✗ Scheduled run failed: %v", err)
			}
		}
	}
}
