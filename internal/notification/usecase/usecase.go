package usecase

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/shandysiswandi/wapilot/internal/notification/entity"
	"github.com/shandysiswandi/wapilot/internal/pkg/clock"
	"github.com/shandysiswandi/wapilot/internal/pkg/goerror"
	"github.com/shandysiswandi/wapilot/internal/pkg/instrument"
	"github.com/shandysiswandi/wapilot/internal/pkg/session"
	"github.com/shandysiswandi/wapilot/internal/pkg/uid"
	"github.com/shandysiswandi/wapilot/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type repoCache interface {
	GetNotifications(ctx context.Context, owner string) ([]entity.Notification, error)
	SaveNotifications(ctx context.Context, owner string, list []entity.Notification) error
	DeleteNotifications(ctx context.Context, owner string) error
}

type Usecase struct {
	repoCache repoCache
	uuid      uid.StringID
	clock     clock.Clocker
	validator validator.Validator
	ins       instrument.Instrumentation

	// owners are serialized on a fixed set of stripes so a read-modify-write
	// of one list is not interleaved with another on the same instance.
	locks [32]sync.Mutex

	streamMu sync.RWMutex
	streams  map[string]map[*subscriber]struct{}
}

type Dependency struct {
	RepoCache  repoCache
	UUID       uid.StringID
	Clock      clock.Clocker
	Validator  validator.Validator
	Instrument instrument.Instrumentation
}

func NewNotification(dep Dependency) *Usecase {
	return &Usecase{
		repoCache: dep.RepoCache,
		uuid:      dep.UUID,
		clock:     dep.Clock,
		validator: dep.Validator,
		ins:       dep.Instrument,
		streams:   make(map[string]map[*subscriber]struct{}),
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}

func (s *Usecase) requireOwner(ctx context.Context) (string, error) {
	owner := session.IDFromContext(ctx)
	if owner == "" {
		return "", goerror.NewBusiness("session required", goerror.CodeUnauthorized)
	}

	return owner, nil
}

func (s *Usecase) lock(owner string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(owner))
	mu := &s.locks[h.Sum32()%uint32(len(s.locks))]
	mu.Lock()
	return mu.Unlock
}

// load returns the owner's list without expired entries. Backend failures and
// malformed data yield an empty list.
func (s *Usecase) load(ctx context.Context, owner string) []entity.Notification {
	list, err := s.repoCache.GetNotifications(ctx, owner)
	if err != nil {
		slog.WarnContext(ctx, "failed to repo get notifications", "owner", owner, "error", err)
		return []entity.Notification{}
	}

	return entity.Prune(list, s.clock.Now())
}

// save persists the list. Failures are logged and swallowed.
func (s *Usecase) save(ctx context.Context, owner string, list []entity.Notification) {
	if err := s.repoCache.SaveNotifications(ctx, owner, entity.Truncate(list)); err != nil {
		slog.WarnContext(ctx, "failed to repo save notifications", "owner", owner, "error", err)
	}
}
