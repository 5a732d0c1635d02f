package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOOptions struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
	Region       string
	UseSSL       bool

	Bucket string
	// CreateBucket makes Bucket on start when it does not exist yet.
	CreateBucket bool
	// HealthInterval enables background probing used by Ping. Zero disables it.
	HealthInterval time.Duration
}

type MinIO struct {
	client   *minio.Client
	bucket   string
	stopPing func()
}

func NewMinIO(ctx context.Context, opts MinIOOptions) (*MinIO, error) {
	if opts.Bucket == "" {
		return nil, errors.New("storage: minio bucket is required")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, opts.SessionToken),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: minio client: %w", err)
	}

	m := &MinIO{client: client, bucket: opts.Bucket, stopPing: func() {}}

	if opts.CreateBucket {
		if err := m.ensureBucket(ctx, opts.Region); err != nil {
			return nil, err
		}
	}

	if opts.HealthInterval > 0 {
		cancel, err := client.HealthCheck(opts.HealthInterval)
		if err != nil {
			return nil, fmt.Errorf("storage: minio health check: %w", err)
		}
		m.stopPing = cancel
	}

	return m, nil
}

func (m *MinIO) ensureBucket(ctx context.Context, region string) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("storage: bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}

	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("storage: make bucket %s: %w", m.bucket, err)
	}
	return nil
}

func (m *MinIO) Put(ctx context.Context, obj Object) error {
	_, err := m.client.PutObject(ctx, m.bucket, obj.Key, bytes.NewReader(obj.Body), int64(len(obj.Body)),
		minio.PutObjectOptions{
			ContentType:  obj.ContentType,
			UserMetadata: obj.Metadata,
		})
	return err
}

func (m *MinIO) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, expiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Ping reports the last background probe. Without probing it always passes.
func (m *MinIO) Ping(context.Context) error {
	if m.client.IsOffline() {
		return ErrOffline
	}
	return nil
}

func (m *MinIO) Close() error {
	m.stopPing()
	return nil
}
