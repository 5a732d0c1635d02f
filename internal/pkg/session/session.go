// Package session is the per-browser-session key-value store.
//
// Values are plain strings keyed by name inside one session. A missing key is
// not an error: it means the value is not known yet. Writes are last-write-wins.
package session

import (
	"context"
	"errors"
)

// ErrMissingID is returned when an operation is attempted without a session id.
var ErrMissingID = errors.New("session: missing session id")

// Storage stores string values scoped by session id.
type Storage interface {
	Get(ctx context.Context, sid, key string) (string, bool, error)
	Set(ctx context.Context, sid, key, value string) error
	Remove(ctx context.Context, sid string, keys ...string) error
	Clear(ctx context.Context, sid string) error
}

// Store is a Storage bound to one session id.
type Store struct {
	storage Storage
	sid     string
}

// Bind returns a Store bound to sid.
func Bind(storage Storage, sid string) *Store {
	return &Store{storage: storage, sid: sid}
}

// ID returns the bound session id.
func (s *Store) ID() string {
	return s.sid
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if s.sid == "" {
		return "", false, ErrMissingID
	}
	return s.storage.Get(ctx, s.sid, key)
}

// Set writes key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if s.sid == "" {
		return ErrMissingID
	}
	return s.storage.Set(ctx, s.sid, key, value)
}

// Remove deletes keys. Missing keys are ignored.
func (s *Store) Remove(ctx context.Context, keys ...string) error {
	if s.sid == "" {
		return ErrMissingID
	}
	if len(keys) == 0 {
		return nil
	}
	return s.storage.Remove(ctx, s.sid, keys...)
}

// Clear deletes every key of the session.
func (s *Store) Clear(ctx context.Context) error {
	if s.sid == "" {
		return ErrMissingID
	}
	return s.storage.Clear(ctx, s.sid)
}

type sessionIDKey struct{}

// WithID stores the browser session id in ctx.
func WithID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sid)
}

// IDFromContext returns the browser session id stored in ctx or "".
func IDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(sessionIDKey{}).(string)
	return sid
}
