// Package uid generates identifiers for notifications, sessions, OAuth state
// and correlation ids.
package uid

import "github.com/google/uuid"

type StringID interface {
	Generate() string
}

// UUID yields time ordered version 7 ids, or random version 4 ids when the
// v7 generator fails.
type UUID struct{}

func NewUUID() UUID { return UUID{} }

func (UUID) Generate() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
