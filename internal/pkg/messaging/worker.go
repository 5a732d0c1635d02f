package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/shandysiswandi/wapilot/internal/pkg/stacktrace"
)

// settleOnce guards a message against being settled twice.
type settleOnce struct {
	done atomic.Bool
}

func (s *settleOnce) settled() bool { return s.done.Load() }

// claim reports whether the caller is the first to settle.
func (s *settleOnce) claim() bool { return !s.done.Swap(true) }

type delivery interface {
	Message
	settled() bool
}

// dispatch runs the configured number of workers over in. Workers stop when
// in is closed or ctx is done; the returned func waits for them.
func dispatch[T any](ctx context.Context, kind string, co consumeOptions, in <-chan T, wrap func(T) delivery, handler Handler) (wait func()) {
	var wg sync.WaitGroup

	for range co.workers() {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case raw, ok := <-in:
					if !ok {
						return
					}
					msg := wrap(raw)
					err := safeHandle(ctx, kind, handler, msg)
					if co.autoAck && !msg.settled() {
						settle(ctx, kind, msg, err)
					}
				}
			}
		})
	}

	return wg.Wait
}

func safeHandle(ctx context.Context, kind string, handler Handler, msg Message) (err error) {
	defer func() {
		rvr := recover()
		if rvr == nil {
			return
		}

		slog.ErrorContext(ctx, "panic in messaging handler",
			"kind", kind, "subject", msg.Subject(), "panic", rvr, "stack", stacktrace.Frames())
		err = fmt.Errorf("messaging: panic in %s handler: %v", kind, rvr)
	}()

	return handler(ctx, msg)
}

func settle(ctx context.Context, kind string, msg Message, handlerErr error) {
	fn := msg.Ack
	if handlerErr != nil {
		fn = msg.Nack
	}
	if err := fn(ctx); err != nil {
		slog.WarnContext(ctx, "failed to settle message", "kind", kind, "subject", msg.Subject(), "error", err)
	}
}
