package lifecycle

import (
	"context"
	"time"
)

// Scheduler runs the sweep once on start and then every Interval until ctx is done.
type Scheduler struct {
	Sweeper  Sweeper
	Interval time.Duration
	Now      func() time.Time
	// Ran, when set, receives the outcome of every pass.
	Ran func(count int, err error)
}

func (s Scheduler) Run(ctx context.Context) {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	interval := s.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	s.tick(ctx, now())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, now())
		}
	}
}

func (s Scheduler) tick(ctx context.Context, now time.Time) {
	count, err := s.Sweeper.Sweep(ctx, now)
	if err != nil && ctx.Err() == nil {
		s.Sweeper.logger().Printf("scheduled sweep: %v", err)
	}
	if s.Ran != nil {
		s.Ran(count, err)
	}
}
