package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/uroflux/intake-api/internal/config"
)

// BlobStore uploads a byte payload under a key and returns a locator the
// messaging recipient can dereference.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// S3Store talks to any S3-compatible endpoint (AWS, MinIO). When a public
// base URL is configured the locator is stable; otherwise a presigned GET URL
// is issued and cached until shortly before it expires.
type S3Store struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	presignExpiry time.Duration
	presignCache  *gocache.Cache
	logger        zerolog.Logger
}

func NewS3Store(cfg config.StorageConfig, logger zerolog.Logger) (*S3Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	// Cached presigned URLs must expire before the URLs themselves do.
	cacheTTL := cfg.PresignExpiry / 2

	return &S3Store{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		presignExpiry: cfg.PresignExpiry,
		presignCache:  gocache.New(cacheTTL, 10*time.Minute),
		logger:        logger.With().Str("component", "storage").Logger(),
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	s.logger.Debug().Str("key", key).Int("size", len(data)).Msg("object uploaded")

	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key, nil
	}
	return s.presignedURL(ctx, key)
}

func (s *S3Store) presignedURL(ctx context.Context, key string) (string, error) {
	if cached, ok := s.presignCache.Get(key); ok {
		return cached.(string), nil
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.presignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}

	locator := u.String()
	s.presignCache.SetDefault(key, locator)
	return locator, nil
}
