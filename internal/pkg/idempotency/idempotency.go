// Package idempotency lets a keyed operation run at most once, e.g. redeeming
// an OAuth authorization code. Outcomes are kept in Redis for a while so
// replays are rejected instead of repeated.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrAlreadyInProgress = errors.New("operation already in progress")
	ErrAlreadyCompleted  = errors.New("operation already completed")
	ErrAlreadyFailed     = errors.New("operation already failed")
	ErrInvalidState      = errors.New("invalid idempotency state")
)

type State string

const (
	StateNone       State = ""
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// err maps a state found on a key to the error Exec returns for it.
func (s State) err() error {
	switch s {
	case StateNone:
		return nil
	case StateInProgress:
		return ErrAlreadyInProgress
	case StateCompleted:
		return ErrAlreadyCompleted
	case StateFailed:
		return ErrAlreadyFailed
	default:
		return fmt.Errorf("%w: %q", ErrInvalidState, string(s))
	}
}

type Idempotency interface {
	// Exec runs fn unless key was seen before. The error of fn is returned
	// unchanged once the failed state is stored.
	Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error
}

// acquire claims KEYS[1] with ARGV[1] for ARGV[2] milliseconds. It returns
// an empty string when claimed, otherwise the state already stored.
var acquire = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
  return cur
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return ''
`)

const (
	defaultPrefix       = "idempotency:"
	defaultLockDuration = time.Minute
	defaultStateTTL     = time.Minute
)

type Redis struct {
	client redis.UniversalClient
	prefix string
}

func New(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

type Option func(*options)

type options struct {
	lock time.Duration
	ttl  time.Duration
}

// WithLockDuration bounds how long a running operation blocks its key.
func WithLockDuration(d time.Duration) Option {
	return func(o *options) { o.lock = d }
}

// WithStateTTL sets how long the outcome is remembered.
func WithStateTTL(d time.Duration) Option {
	return func(o *options) { o.ttl = d }
}

// Acquire claims key for lock, or reports the state another caller left.
func (r *Redis) Acquire(ctx context.Context, key string, lock time.Duration) (State, error) {
	cur, err := acquire.Run(ctx, r.client, []string{r.prefix + key},
		string(StateInProgress), lock.Milliseconds()).Text()
	if err != nil {
		return StateNone, err
	}
	return State(cur), nil
}

func (r *Redis) mark(ctx context.Context, key string, s State, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, string(s), ttl).Err()
}

func (r *Redis) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	o := options{lock: defaultLockDuration, ttl: defaultStateTTL}
	for _, opt := range opts {
		opt(&o)
	}
	o.lock = max(o.lock, time.Millisecond)
	if o.ttl <= 0 {
		o.ttl = defaultStateTTL
	}

	state, err := r.Acquire(ctx, key, o.lock)
	if err != nil {
		return err
	}
	if err := state.err(); err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		return errors.Join(err, r.mark(ctx, key, StateFailed, o.ttl))
	}
	return r.mark(ctx, key, StateCompleted, o.ttl)
}
