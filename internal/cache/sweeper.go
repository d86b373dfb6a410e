package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval bounds memory growth for entries that are never
// read again after they expire.
const DefaultSweepInterval = 15 * time.Minute

type sweepable interface {
	Sweep() int
}

// Sweeper periodically drops expired entries from a cache. It runs as one
// long-lived goroutine next to request handling and never blocks it.
type Sweeper struct {
	cache    sweepable
	interval time.Duration
	logger   *zap.Logger
}

func NewSweeper(cache sweepable, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		cache:    cache,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.cache.Sweep(); removed > 0 {
				s.logger.Debug("swept expired cache entries",
					zap.Int("removed", removed),
				)
			}
		}
	}
}
