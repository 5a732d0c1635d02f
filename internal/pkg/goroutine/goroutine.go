// Package goroutine runs long lived background tasks, such as broker
// consumers, under a global limit and waits for them on shutdown.
package goroutine

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"

	"github.com/shandysiswandi/wapilot/internal/pkg/stacktrace"
	"golang.org/x/sync/semaphore"
)

// perCPU sizes the limit when none is configured.
const perCPU = 100

type Manager struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup

	mu     sync.Mutex
	closed bool
	errs   []error
}

// NewManager allows limit tasks at once. A non positive limit scales with
// the number of CPUs.
func NewManager(limit int) *Manager {
	if limit < 1 {
		limit = runtime.NumCPU() * perCPU
	}
	return &Manager{sem: semaphore.NewWeighted(int64(limit))}
}

// Go starts f unless the manager is waiting or full, and reports whether it
// did. Errors of f are kept for Wait; panics are logged and swallowed.
func (m *Manager) Go(ctx context.Context, f func(ctx context.Context) error) bool {
	if m == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		slog.WarnContext(ctx, "goroutine manager closed, task dropped")
		return false
	}
	if !m.sem.TryAcquire(1) {
		slog.WarnContext(ctx, "goroutine limit reached, task dropped")
		return false
	}

	m.wg.Go(func() {
		defer m.sem.Release(1)
		defer func() {
			if rvr := recover(); rvr != nil {
				slog.ErrorContext(ctx, "panic occurred in goroutine", "because", rvr, "stack", stacktrace.Frames())
			}
		}()

		if ctx.Err() != nil {
			slog.WarnContext(ctx, "goroutine canceled before start", "because", ctx.Err())
			return
		}
		if err := f(ctx); err != nil {
			m.mu.Lock()
			m.errs = append(m.errs, err)
			m.mu.Unlock()
		}
	})

	return true
}

// Wait refuses new tasks, blocks until running ones return and joins their
// errors.
func (m *Manager) Wait() error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	return errors.Join(m.errs...)
}
