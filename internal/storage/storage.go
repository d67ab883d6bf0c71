package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BerylCAtieno/web-accessibility-api/internal/config"
)

// Storage holds uploaded documents that are handed to the model by URL.
type Storage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	// PresignGet returns a URL granting read access to key for ttl.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// New builds the backend selected by cfg.StorageBackend.
func New(ctx context.Context, cfg config.Config) (Storage, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendMinio:
		return NewMinioStorage(ctx, cfg)
	case config.StorageBackendS3:
		return NewS3Storage(ctx, S3Config{
			Endpoint:        endpointURL(cfg.StorageEndpoint, cfg.StorageUseSSL),
			Region:          cfg.StorageRegion,
			Bucket:          cfg.StorageBucket,
			AccessKeyID:     cfg.StorageAccessKey,
			SecretAccessKey: cfg.StorageSecretKey,
			UsePathStyle:    cfg.StorageEndpoint != "",
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// endpointURL adds a scheme to a host:port endpoint. An empty endpoint stays
// empty so the AWS default resolver is used.
func endpointURL(endpoint string, useSSL bool) string {
	if endpoint == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}
