package cache

import (
	"context"
	"time"
)

// BytesCache is a key-value store; ok is false when the key is absent.
// A zero ttl keeps the value until the store evicts it.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
