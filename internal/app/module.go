package app

import (
	"fmt"

	"github.com/shandysiswandi/wapilot/internal/connect"
	"github.com/shandysiswandi/wapilot/internal/notification"
	"github.com/shandysiswandi/wapilot/internal/wa"
)

// initModules registers the routes and consumers of every enabled module.
func (a *App) initModules() error {
	enabled := func(name string) bool { return a.config.GetBool("modules." + name + ".enabled") }

	if enabled("notification") {
		err := notification.New(notification.Dependency{
			Ctx:        a.ctx,
			Redis:      a.redis,
			Messaging:  a.messaging,
			Config:     a.config,
			Instrument: a.ins,
			UUID:       a.uuid,
			Clock:      a.clock,
			Goroutine:  a.goroutine,
			Validator:  a.validator,
			Router:     a.router,
		})
		if err != nil {
			return fmt.Errorf("notification: %w", err)
		}
	}

	if enabled("connect") {
		err := connect.New(connect.Dependency{
			Session:     a.session,
			Idempotency: a.idemp,
			Messaging:   a.messaging,
			Config:      a.config,
			Instrument:  a.ins,
			UUID:        a.uuid,
			Clock:       a.clock,
			Validator:   a.validator,
			Router:      a.router,
		})
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
	}

	if enabled("wa") {
		err := wa.New(wa.Dependency{
			Storage:    a.storage,
			Config:     a.config,
			Instrument: a.ins,
			UUID:       a.uuid,
			Clock:      a.clock,
			Validator:  a.validator,
			Router:     a.router,
		})
		if err != nil {
			return fmt.Errorf("wa: %w", err)
		}
	}

	return nil
}
