package planner

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Detached runs best-effort operations whose outcome is only logged.
// Callers never wait on them; Wait exists for shutdown and tests.
type Detached struct {
	log     *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDetached(log *slog.Logger, timeout time.Duration) *Detached {
	return &Detached{log: log, timeout: timeout}
}

// Go starts fn with its own timeout, detached from any caller context.
func (d *Detached) Go(name string, fn func(ctx context.Context) error, attrs ...any) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			args := append([]any{"op", name, "class", Class(err), "error", err}, attrs...)
			d.log.Warn("detached operation failed", args...)
			return
		}
		d.log.Debug("detached operation done", append([]any{"op", name}, attrs...)...)
	}()
}

// Wait blocks until every started operation has returned.
func (d *Detached) Wait() {
	d.wg.Wait()
}
