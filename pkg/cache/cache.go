// Package cache stores replacement service results so an unchanged photo,
// color and outfit are not sent to the service twice.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store keyed by string. A ttl of zero never expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
