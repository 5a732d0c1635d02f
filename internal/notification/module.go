package notification

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/wapilot/internal/notification/inbound"
	"github.com/shandysiswandi/wapilot/internal/notification/outbound/cache"
	"github.com/shandysiswandi/wapilot/internal/notification/usecase"
	"github.com/shandysiswandi/wapilot/internal/pkg/clock"
	"github.com/shandysiswandi/wapilot/internal/pkg/config"
	"github.com/shandysiswandi/wapilot/internal/pkg/goroutine"
	"github.com/shandysiswandi/wapilot/internal/pkg/instrument"
	"github.com/shandysiswandi/wapilot/internal/pkg/messaging"
	"github.com/shandysiswandi/wapilot/internal/pkg/router"
	"github.com/shandysiswandi/wapilot/internal/pkg/uid"
	"github.com/shandysiswandi/wapilot/internal/pkg/validator"
)

type Dependency struct {
	// Ctx bounds the broker consumers. Without it none are started.
	Ctx        context.Context
	Redis      redis.UniversalClient      `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	Router     *router.Router             `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	uc := usecase.NewNotification(usecase.Dependency{
		RepoCache:  cache.New(dep.Redis, dep.Config.GetHour("modules.notification.ttl_hours"), dep.Instrument),
		UUID:       dep.UUID,
		Clock:      dep.Clock,
		Validator:  dep.Validator,
		Instrument: dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)
	if dep.Ctx == nil {
		return nil
	}

	inbound.RegisterMQConsumer(dep.Ctx,
		inbound.ConsumerConfig{
			Enabled:     dep.Config.GetArray("modules.notification.consumer_names"),
			Concurrency: max(dep.Config.GetInt("modules.notification.consumer_concurrency"), 1),
		},
		inbound.MQDeps{
			Routine:    dep.Goroutine,
			Messaging:  dep.Messaging,
			UUID:       dep.UUID,
			Instrument: dep.Instrument,
		},
		uc,
	)

	return nil
}
