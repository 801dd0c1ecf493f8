package domain

import (
	"context"
	"time"
)

// ArtifactStore is the durable blob storage the pipeline writes QR images
// and wallet archives to (infrastructure port).
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Presign returns a time-bounded URL for the object at key.
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
}
