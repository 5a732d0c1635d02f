package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

// Start serves the API and the notification streams. The returned channel
// closes on SIGINT, SIGTERM or SIGHUP.
func (a *App) Start() <-chan struct{} {
	for name, srv := range map[string]*http.Server{"http": a.httpServer, "sse": a.sseServer} {
		go func() {
			slog.Info(name+" server listening", "address", srv.Addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				slog.Error("server stopped unexpectedly", "server", name, "error", err)
				os.Exit(1)
			}
		}()
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		<-sigCtx.Done()
		stop()
		slog.Info("termination signal received")
	}()

	return sigCtx.Done()
}

// Stop cancels the app context first so open streams and consumers return,
// then drains both servers and releases resources.
func (a *App) Stop(ctx context.Context) {
	a.cancel()

	for name, srv := range map[string]*http.Server{"http": a.httpServer, "sse": a.sseServer} {
		if err := srv.Shutdown(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to shutdown server", "server", name, "error", err)
		}
	}

	if err := a.goroutine.Wait(); err != nil {
		slog.ErrorContext(ctx, "background task failed", "error", err)
	}

	a.close(ctx)
	slog.InfoContext(ctx, "application stopped")
}
