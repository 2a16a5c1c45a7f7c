package idempotency

import (
	"context"
	"time"

	"github.com/BearBump/OrderSync/internal/cache"
	"github.com/pkg/errors"
)

const keyPrefix = "uploaded-"

var marker = []byte("1")

// Guard records once-only markers in the cache. Seen and Mark are separate
// calls, so two concurrent deliveries can both pass Seen before either marks.
type Guard struct {
	c cache.BytesCache
}

func New(c cache.BytesCache) *Guard {
	return &Guard{c: c}
}

// Key is uploaded-<yyyy-MM-dd>-<changelogID>, dated in UTC.
func Key(now time.Time, changelogID string) string {
	return keyPrefix + now.UTC().Format("2006-01-02") + "-" + changelogID
}

func (g *Guard) Seen(ctx context.Context, key string) (bool, error) {
	_, ok, err := g.c.Get(ctx, key)
	if err != nil {
		return false, errors.Wrap(err, "idempotency get")
	}
	return ok, nil
}

// Mark stores the key with no expiry.
func (g *Guard) Mark(ctx context.Context, key string) error {
	if err := g.c.Set(ctx, key, marker, 0); err != nil {
		return errors.Wrap(err, "idempotency set")
	}
	return nil
}
