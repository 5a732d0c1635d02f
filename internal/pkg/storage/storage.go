// Package storage keeps objects in one bucket of an S3 compatible store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	DriverMinIO = "minio"
	DriverNone  = "none"
)

var (
	ErrUnknownDriver = errors.New("storage: unknown driver")
	// ErrDisabled is returned by Open for DriverNone.
	ErrDisabled = errors.New("storage: disabled")
	ErrOffline  = errors.New("storage: endpoint offline")
)

// Object is a small payload uploaded in one request.
type Object struct {
	Key         string
	ContentType string
	Body        []byte
	Metadata    map[string]string
}

type Storage interface {
	io.Closer

	Put(ctx context.Context, obj Object) error
	// PresignGet returns a download URL valid for expiry.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	// Ping fails while the endpoint is unreachable.
	Ping(ctx context.Context) error
}

// Open builds the backend named by driver. An empty driver means none.
func Open(ctx context.Context, driver string, opts MinIOOptions) (Storage, error) {
	switch d := strings.ToLower(strings.TrimSpace(driver)); d {
	case DriverMinIO:
		return NewMinIO(ctx, opts)
	case DriverNone, "":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, d)
	}
}
