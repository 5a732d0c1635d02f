package usecase

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/shandysiswandi/wapilot/internal/connect/entity"
	"github.com/shandysiswandi/wapilot/internal/pkg/clock"
	"github.com/shandysiswandi/wapilot/internal/pkg/goerror"
	"github.com/shandysiswandi/wapilot/internal/pkg/idempotency"
	"github.com/shandysiswandi/wapilot/internal/pkg/instrument"
	"github.com/shandysiswandi/wapilot/internal/pkg/session"
	"github.com/shandysiswandi/wapilot/internal/pkg/uid"
	"github.com/shandysiswandi/wapilot/internal/pkg/validator"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type ConnectWhatsAppEvent struct {
	SessionID     string
	Outcome       string
	Message       string
	WabaID        string
	PhoneNumberID string
	PhoneNumber   string
}

type ConnectConnectorEvent struct {
	SessionID string
	Provider  string
	Connected bool
	Error     string
}

type repoMessaging interface {
	PublishConnectWhatsApp(ctx context.Context, msg ConnectWhatsAppEvent) error
	PublishConnectConnector(ctx context.Context, msg ConnectConnectorEvent) error
}

type repoBackend interface {
	ExchangeCode(ctx context.Context, sid string, in entity.ExchangeRequest) (*entity.ExchangeResponse, error)
	RegisterPhone(ctx context.Context, sid, pin string) (*entity.RegisterResponse, error)
	ConnectorCallback(ctx context.Context, sid, provider string, p entity.CallbackParams) (*entity.ConnectorResponse, error)
	MetaCallbackURL(code, state string) string
}

// Config tunes the callback flows. Zero values fall back to the defaults below.
type Config struct {
	// FrontendURL prefixes the settings and integrations pages. Empty keeps
	// redirects relative.
	FrontendURL    string
	ErrorDelay     time.Duration
	SuccessDelay   time.Duration
	SetupGrace     time.Duration
	SetupPoll      time.Duration
	IdempotencyTTL time.Duration
	Providers      map[string]Provider
}

const (
	DefaultErrorDelay     = 2 * time.Second
	DefaultSuccessDelay   = 1500 * time.Millisecond
	DefaultSetupPoll      = 250 * time.Millisecond
	DefaultIdempotencyTTL = 10 * time.Minute
)

type Usecase struct {
	storage       session.Storage
	repoBackend   repoBackend
	repoMessaging repoMessaging
	idemp         idempotency.Idempotency
	validator     validator.Validator
	uuid          uid.StringID
	clock         clock.Clocker
	ins           instrument.Instrumentation
	cfg           Config
	pin           *PinFlow

	outcomes metric.Int64Counter
}

type Dependency struct {
	Storage       session.Storage
	RepoBackend   repoBackend
	RepoMessaging repoMessaging
	Idempotency   idempotency.Idempotency
	Validator     validator.Validator
	UUID          uid.StringID
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
	Config        Config
}

func New(dep Dependency) *Usecase {
	cfg := dep.Config
	if cfg.ErrorDelay <= 0 {
		cfg.ErrorDelay = DefaultErrorDelay
	}
	if cfg.SuccessDelay <= 0 {
		cfg.SuccessDelay = DefaultSuccessDelay
	}
	if cfg.SetupPoll <= 0 {
		cfg.SetupPoll = DefaultSetupPoll
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = DefaultIdempotencyTTL
	}
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")

	outcomes, err := dep.Instrument.Meter("connect.usecase").Int64Counter(
		"connect.callback.outcomes",
		metric.WithDescription("Number of callback flows settled per state"),
	)
	if err != nil {
		slog.Error("failed to create callback outcome counter", "error", err)
	}

	return &Usecase{
		storage:       dep.Storage,
		repoBackend:   dep.RepoBackend,
		repoMessaging: dep.RepoMessaging,
		idemp:         dep.Idempotency,
		validator:     dep.Validator,
		uuid:          dep.UUID,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		cfg:           cfg,
		pin: &PinFlow{
			backend:   dep.RepoBackend,
			validator: dep.Validator,
			ins:       dep.Instrument,
		},
		outcomes: outcomes,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("connect.usecase").Start(ctx, name)
}

// bind returns the session storage of the browser session in ctx.
func (s *Usecase) bind(ctx context.Context) (*session.Store, error) {
	sid := session.IDFromContext(ctx)
	if sid == "" {
		return nil, goerror.NewBusiness("session required", goerror.CodeUnauthorized)
	}

	return session.Bind(s.storage, sid), nil
}

func (s *Usecase) countOutcome(ctx context.Context, flow string, state entity.State) {
	if s.outcomes == nil {
		return
	}
	s.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.String("state", state.String()),
	))
}

func (s *Usecase) settingsURL(kv ...string) string {
	return s.pageURL("/settings", kv...)
}

func (s *Usecase) integrationsURL(kv ...string) string {
	return s.pageURL("/integrations", kv...)
}

// pageURL keeps the query keys in the given order.
func (s *Usecase) pageURL(path string, kv ...string) string {
	var b strings.Builder
	b.WriteString(s.cfg.FrontendURL)
	b.WriteString(path)
	for i := 0; i+1 < len(kv); i += 2 {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv[i]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv[i+1]))
	}
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
