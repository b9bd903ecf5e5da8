package game

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/gauntlet/internal/channel"
	"github.com/ashureev/gauntlet/internal/store"
	"golang.org/x/sync/errgroup"
)

const sweepWarnConcurrency = 8

// Sweeper periodically scans for sessions idling inside the warning
// window and sends each a single inactivity warning. Expiry itself is
// handled lazily by the lifecycle manager on the next inbound message.
type Sweeper struct {
	store     store.Store
	deliverer channel.Deliverer
	warnAfter time.Duration
	timeout   time.Duration
	interval  time.Duration
}

// NewSweeper creates a warning sweeper.
func NewSweeper(st store.Store, d channel.Deliverer, warnAfter, timeout, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:     st,
		deliverer: d,
		warnAfter: warnAfter,
		timeout:   timeout,
		interval:  interval,
	}
}

// Start runs the sweep loop in a background goroutine until ctx is
// cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Warning sweeper started", "interval", s.interval, "warn_after", s.warnAfter, "timeout", s.timeout)

		for {
			select {
			case <-ticker.C:
				s.SweepOnce(ctx, time.Now())
			case <-ctx.Done():
				slog.Info("Warning sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// SweepOnce performs one pass: select warnable identities, deliver the
// warning and mark each as warned. Best-effort per identity - one
// failure never aborts the rest. Idempotent: a warned identity is not
// selected again until a new user message clears the flag.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) {
	ids, err := s.store.ListForWarning(ctx, now, s.warnAfter, s.timeout)
	if err != nil {
		slog.Error("Sweep failed to list sessions", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	slog.Info("Sweep found sessions to warn", "count", len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepWarnConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			warnCtx, cancel := context.WithTimeout(gctx, 5*time.Second)
			defer cancel()

			if err := s.deliverer.Deliver(warnCtx, id, warningText(), nil); err != nil {
				slog.Warn("Failed to deliver inactivity warning", "identity", id, "error", err)
				return nil
			}
			if err := s.store.MarkWarned(warnCtx, id, now); err != nil {
				slog.Warn("Failed to mark session warned", "identity", id, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
