package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicrpm/rpm-portal/internal/api/metrics"
)

const defaultSweepInterval = 15 * time.Minute

// ExpiredSweeper is implemented by session stores that can purge expired records.
type ExpiredSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Sweeper periodically removes expired sessions from the store.
type Sweeper struct {
	store    ExpiredSweeper
	interval time.Duration
	log      zerolog.Logger
}

func NewSweeper(store ExpiredSweeper, interval time.Duration, log zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{store: store, interval: interval, log: log}
}

// Run sweeps once per interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce performs a single sweep and returns the number of removed sessions.
func (s *Sweeper) SweepOnce(ctx context.Context) int64 {
	n, err := s.store.SweepExpired(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("session sweep failed")
		return 0
	}
	if n > 0 {
		metrics.SessionsSweptTotal.Add(float64(n))
		s.log.Debug().Int64("removed", n).Msg("expired sessions swept")
	}
	return n
}
