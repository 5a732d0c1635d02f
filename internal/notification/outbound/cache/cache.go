package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/wapilot/internal/notification/entity"
	"github.com/shandysiswandi/wapilot/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// KeyPrefix namespaces the per-owner notification list.
const KeyPrefix = "notifications:"

// Cache keeps each owner's list as one JSON array under KeyPrefix+owner.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
	ins    instrument.Instrumentation
}

// New returns a Cache. A zero ttl keeps lists until they are cleared.
func New(client redis.UniversalClient, ttl time.Duration, ins instrument.Instrumentation) *Cache {
	return &Cache{client: client, ttl: ttl, ins: ins}
}

func (c *Cache) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.ins.Tracer("notification.outbound.cache").Start(ctx, name)
}

func (c *Cache) endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// GetNotifications returns nil when the owner has no list yet.
func (c *Cache) GetNotifications(ctx context.Context, owner string) (_ []entity.Notification, err error) {
	ctx, span := c.startSpan(ctx, "GetNotifications")
	defer func() { c.endSpan(span, err) }()

	raw, err := c.client.Get(ctx, KeyPrefix+owner).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var list []entity.Notification
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}

	return list, nil
}

func (c *Cache) SaveNotifications(ctx context.Context, owner string, list []entity.Notification) (err error) {
	ctx, span := c.startSpan(ctx, "SaveNotifications")
	defer func() { c.endSpan(span, err) }()

	if list == nil {
		list = []entity.Notification{}
	}

	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, KeyPrefix+owner, raw, c.ttl).Err()
}

func (c *Cache) DeleteNotifications(ctx context.Context, owner string) (err error) {
	ctx, span := c.startSpan(ctx, "DeleteNotifications")
	defer func() { c.endSpan(span, err) }()

	return c.client.Del(ctx, KeyPrefix+owner).Err()
}
