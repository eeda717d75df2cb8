package checkin

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically expires stale pending requests. It runs on its own
// schedule and never blocks the request path; approve/reject stay safe
// against it through the store's conditional transitions.
type Sweeper struct {
	store    RequestStore
	clock    func() time.Time
	interval time.Duration

	// Notify, when set, receives the ids of requests expired by a sweep.
	Notify func(requestIDs []string)
}

// NewSweeper builds a sweeper over the request store.
func NewSweeper(store RequestStore, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		store:    store,
		clock:    time.Now,
		interval: interval,
	}
}

// SweepOnce expires every pending request whose TTL has elapsed and returns
// their ids. Sweeping an empty set is a no-op, so repeated runs with the
// same cutoff are harmless.
func (s *Sweeper) SweepOnce(ctx context.Context) ([]string, error) {
	sweepRuns.Inc()
	now := s.clock().UTC()
	ids, err := s.store.ExpireBefore(ctx, now)
	if err != nil {
		return nil, err
	}
	for range ids {
		requestTransitions.WithLabelValues(string(StatusExpired)).Inc()
	}
	if len(ids) > 0 && s.Notify != nil {
		s.Notify(ids)
	}
	return ids, nil
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ids, err := s.SweepOnce(ctx)
			if err != nil {
				log.Printf("sweep failed: %v", err)
				continue
			}
			if len(ids) > 0 {
				log.Printf("expired %d stale request(s)", len(ids))
			}
		}
	}
}
