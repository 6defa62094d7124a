package store

import (
	"context"
	"log/slog"
	"sync"

	"stacknote/internal/logging"
	"stacknote/internal/model"
)

// AsyncSlot makes Save fire-and-forget. A single writer persists states in order;
// when several saves queue up while a write is in flight only the newest is
// written next, so the slot always ends up holding the last saved state.
type AsyncSlot struct {
	slot   Slot
	logger *slog.Logger

	mu      sync.Mutex
	pending *model.WorkspaceState
	running bool
	closed  bool
	idle    chan struct{}
	lastErr error
}

func NewAsyncSlot(slot Slot, logger *slog.Logger) *AsyncSlot {
	return &AsyncSlot{slot: slot, logger: logging.OrDiscard(logger)}
}

func (a *AsyncSlot) Load(ctx context.Context) (model.WorkspaceState, error) {
	return a.slot.Load(ctx)
}

func (a *AsyncSlot) Save(_ context.Context, st model.WorkspaceState) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	c := st.Clone()
	a.pending = &c
	if !a.running {
		a.running = true
		a.idle = make(chan struct{})
		go a.run()
	}
	return nil
}

func (a *AsyncSlot) run() {
	for {
		a.mu.Lock()
		if a.pending == nil {
			a.running = false
			close(a.idle)
			a.mu.Unlock()
			return
		}
		st := *a.pending
		a.pending = nil
		a.mu.Unlock()

		err := a.slot.Save(context.Background(), st)
		if err != nil {
			a.logger.Error("persist workspace failed", "err", err)
		}
		a.mu.Lock()
		a.lastErr = err
		a.mu.Unlock()
	}
}

// Flush waits until every queued state has been written. It returns the error of the
// most recent write, if any.
func (a *AsyncSlot) Flush(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		err := a.lastErr
		a.mu.Unlock()
		return err
	}
	idle := a.idle
	a.mu.Unlock()

	select {
	case <-idle:
	case <-ctx.Done():
		return ctx.Err()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Close flushes and rejects further saves.
func (a *AsyncSlot) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	return a.Flush(ctx)
}
