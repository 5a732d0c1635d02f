package usecase

import (
	"context"
	"time"

	"github.com/shandysiswandi/wapilot/internal/pkg/clock"
	"github.com/shandysiswandi/wapilot/internal/pkg/instrument"
	"github.com/shandysiswandi/wapilot/internal/pkg/uid"
	"github.com/shandysiswandi/wapilot/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type repoObject interface {
	PutQRCode(ctx context.Context, key string, png []byte) error
	PresignQRCode(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Config struct {
	// ShareTTL is how long a shared QR code URL stays valid.
	ShareTTL  time.Duration
	KeyPrefix string
}

const DefaultShareTTL = 24 * time.Hour

type Dependency struct {
	// RepoObject is nil when object storage is disabled.
	RepoObject repoObject
	UUID       uid.StringID
	Clock      clock.Clocker
	Validator  validator.Validator
	Instrument instrument.Instrumentation
	Config     Config
}

type Usecase struct {
	repoObject repoObject
	uuid       uid.StringID
	clock      clock.Clocker
	validator  validator.Validator
	ins        instrument.Instrumentation
	cfg        Config
}

func New(dep Dependency) *Usecase {
	cfg := dep.Config
	if cfg.ShareTTL <= 0 {
		cfg.ShareTTL = DefaultShareTTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "qrcodes/"
	}

	return &Usecase{
		repoObject: dep.RepoObject,
		uuid:       dep.UUID,
		clock:      dep.Clock,
		validator:  dep.Validator,
		ins:        dep.Instrument,
		cfg:        cfg,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("wa.usecase").Start(ctx, name)
}
