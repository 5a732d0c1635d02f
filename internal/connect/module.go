package connect

import (
	"time"

	"github.com/shandysiswandi/wapilot/internal/connect/entity"
	"github.com/shandysiswandi/wapilot/internal/connect/inbound"
	"github.com/shandysiswandi/wapilot/internal/connect/outbound/api"
	"github.com/shandysiswandi/wapilot/internal/connect/outbound/mq"
	"github.com/shandysiswandi/wapilot/internal/connect/usecase"
	"github.com/shandysiswandi/wapilot/internal/pkg/clock"
	"github.com/shandysiswandi/wapilot/internal/pkg/config"
	"github.com/shandysiswandi/wapilot/internal/pkg/idempotency"
	"github.com/shandysiswandi/wapilot/internal/pkg/instrument"
	"github.com/shandysiswandi/wapilot/internal/pkg/messaging"
	"github.com/shandysiswandi/wapilot/internal/pkg/router"
	"github.com/shandysiswandi/wapilot/internal/pkg/session"
	"github.com/shandysiswandi/wapilot/internal/pkg/uid"
	"github.com/shandysiswandi/wapilot/internal/pkg/validator"
	"golang.org/x/oauth2"
)

// DefaultSetupGrace applies when connect.meta.setup_grace_ms is not set.
const DefaultSetupGrace = 1500 * time.Millisecond

type Dependency struct {
	Session     session.Storage            `validate:"required"`
	Idempotency idempotency.Idempotency    `validate:"required"`
	Messaging   messaging.Messaging        `validate:"required"`
	Config      config.Config              `validate:"required"`
	Instrument  instrument.Instrumentation `validate:"required"`
	UUID        uid.StringID               `validate:"required"`
	Clock       clock.Clocker              `validate:"required"`
	Validator   validator.Validator        `validate:"required"`
	Router      *router.Router             `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoBackend, err := api.New(api.Config{
		BaseURL:      dep.Config.GetString("backend.base_url"),
		RegisterPath: dep.Config.GetString("backend.register_path"),
		Timeout:      dep.Config.GetSecond("backend.timeout_seconds"),
	}, dep.Instrument)
	if err != nil {
		return err
	}

	grace := DefaultSetupGrace
	if dep.Config.GetString("connect.meta.setup_grace_ms") != "" {
		grace = dep.Config.GetMillisecond("connect.meta.setup_grace_ms")
	}

	uc := usecase.New(usecase.Dependency{
		Storage:       dep.Session,
		RepoBackend:   repoBackend,
		RepoMessaging: mq.NewMessaging(dep.Messaging, dep.Instrument),
		Idempotency:   dep.Idempotency,
		Validator:     dep.Validator,
		UUID:          dep.UUID,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
		Config: usecase.Config{
			FrontendURL:    dep.Config.GetString("connect.frontend_url"),
			ErrorDelay:     dep.Config.GetMillisecond("connect.redirect.error_delay_ms"),
			SuccessDelay:   dep.Config.GetMillisecond("connect.redirect.success_delay_ms"),
			SetupGrace:     grace,
			SetupPoll:      dep.Config.GetMillisecond("connect.meta.setup_poll_ms"),
			IdempotencyTTL: dep.Config.GetMinute("connect.idempotency.ttl_minutes"),
			Providers:      providers(dep.Config),
		},
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}

// providers reads connect.providers.<name>. A provider without client_id is
// left out and its authorize endpoint answers not found.
func providers(cfg config.Config) map[string]usecase.Provider {
	out := make(map[string]usecase.Provider)
	for _, name := range []string{
		entity.ProviderMeta,
		entity.ProviderInstagram,
		entity.ProviderShopify,
		entity.ProviderGoogleSheets,
	} {
		prefix := "connect.providers." + name + "."
		clientID := cfg.GetString(prefix + "client_id")
		if clientID == "" {
			continue
		}

		extras := cfg.GetMap(prefix + "extras")
		if id := cfg.GetString(prefix + "config_id"); id != "" {
			extras["config_id"] = id
		}

		out[name] = usecase.Provider{
			OAuth: oauth2.Config{
				ClientID:     clientID,
				ClientSecret: cfg.GetString(prefix + "client_secret"),
				RedirectURL:  cfg.GetString(prefix + "redirect_url"),
				Scopes:       cfg.GetArray(prefix + "scopes"),
				Endpoint:     usecase.ProviderEndpoint(name),
			},
			Extras: extras,
		}
	}
	return out
}
