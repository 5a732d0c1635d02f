// Package app assembles the wapilot service from configuration.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/wapilot/internal/pkg/clock"
	"github.com/shandysiswandi/wapilot/internal/pkg/config"
	"github.com/shandysiswandi/wapilot/internal/pkg/goroutine"
	"github.com/shandysiswandi/wapilot/internal/pkg/idempotency"
	"github.com/shandysiswandi/wapilot/internal/pkg/instrument"
	"github.com/shandysiswandi/wapilot/internal/pkg/jwt"
	"github.com/shandysiswandi/wapilot/internal/pkg/messaging"
	"github.com/shandysiswandi/wapilot/internal/pkg/router"
	"github.com/shandysiswandi/wapilot/internal/pkg/session"
	"github.com/shandysiswandi/wapilot/internal/pkg/storage"
	"github.com/shandysiswandi/wapilot/internal/pkg/uid"
	"github.com/shandysiswandi/wapilot/internal/pkg/validator"
)

type closer struct {
	name string
	fn   func(context.Context) error
}

type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	config config.Config
	ins    instrument.Instrumentation

	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	uuid      uid.StringID
	jwt       jwt.JWT

	redis     *redis.Client
	session   session.Storage
	idemp     idempotency.Idempotency
	messaging messaging.Messaging
	storage   storage.Storage // nil when storage.driver is none

	router     *router.Router
	httpServer *http.Server
	sseServer  *http.Server

	// closers run in reverse registration order on Stop.
	closers []closer
}

// New builds every resource and module. Any failure is logged and exits the
// process after releasing what was already opened.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{ctx: ctx, cancel: cancel}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"config", a.initConfig},
		{"instrument", a.initInstrument},
		{"libraries", a.initLibraries},
		{"redis", a.initRedis},
		{"session", a.initSession},
		{"storage", a.initStorage},
		{"messaging", a.initMessaging},
		{"http server", a.initHTTPServer},
		{"modules", a.initModules},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			slog.Error("failed to init "+step.name, "error", err)
			cancel()
			a.close(context.Background())
			os.Exit(1)
		}
	}

	return a
}

func (a *App) onClose(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

func (a *App) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resource", "name", c.name, "error", err)
		}
	}
	a.closers = nil
}
