package qrauth

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper periodically purges expired tickets for the lifetime of the
// process. It runs concurrently with request-driven store operations; the
// store's own locking keeps the map consistent.
type Sweeper struct {
	store    *TicketStore
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(store *TicketStore, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: SweepInterval,
		logger:   logger,
	}
}

// Start launches the sweep loop. It returns immediately.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.store.SweepExpired(time.Now()); removed > 0 {
					s.logger.Debug("swept expired tickets", "removed", removed)
				}
			}
		}
	}()
}

// Stop halts the sweep loop and waits for it to exit.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
