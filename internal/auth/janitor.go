package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Janitor periodically deletes expired sessions.
type Janitor struct {
	gate     *Gate
	interval time.Duration
	clock    clockwork.Clock
	wg       sync.WaitGroup
}

func NewJanitor(gate *Gate, interval time.Duration) *Janitor {
	return &Janitor{
		gate:     gate,
		interval: interval,
		clock:    gate.clock,
	}
}

func (j *Janitor) Start(ctx context.Context) {
	j.wg.Add(1)
	go j.run(ctx)
}

func (j *Janitor) run(ctx context.Context) {
	defer j.wg.Done()
	slog.Info("starting session janitor", "interval", j.interval)

	ticker := j.clock.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session janitor shutting down")
			return
		case <-ticker.Chan():
			n, err := j.gate.PurgeExpired(ctx)
			if err != nil {
				slog.Error("session purge failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("purged expired sessions", "count", n)
			}
		}
	}
}

// Stop waits for the janitor to exit. Cancel the context passed to Start first.
func (j *Janitor) Stop() {
	j.wg.Wait()
}
