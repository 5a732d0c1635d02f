package objstore

import (
	"context"
	"time"

	"github.com/shandysiswandi/wapilot/internal/pkg/instrument"
	"github.com/shandysiswandi/wapilot/internal/pkg/storage"
	"go.opentelemetry.io/otel/codes"
)

// Store keeps shared QR codes in the object storage bucket.
type Store struct {
	client storage.Storage
	ins    instrument.Instrumentation
}

func New(client storage.Storage, ins instrument.Instrumentation) *Store {
	return &Store{client: client, ins: ins}
}

func (s *Store) PutQRCode(ctx context.Context, key string, png []byte) error {
	ctx, span := s.ins.Tracer("wa.outbound.objstore").Start(ctx, "PutQRCode")
	defer span.End()

	err := s.client.Put(ctx, storage.Object{Key: key, ContentType: "image/png", Body: png})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (s *Store) PresignQRCode(ctx context.Context, key string, ttl time.Duration) (string, error) {
	ctx, span := s.ins.Tracer("wa.outbound.objstore").Start(ctx, "PresignQRCode")
	defer span.End()

	url, err := s.client.PresignGet(ctx, key, ttl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return url, nil
}
