// Package matchcache stores final match results per request fingerprint with
// a TTL. Staleness is bounded purely by expiry; there is no
// invalidation-by-dependency.
package matchcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/matchd/internal/db"
	"github.com/kailas-cloud/matchd/internal/domain/matching"
)

// store is the consumer interface for result persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache persists match results in a TTL'd key-value store.
type Cache struct {
	db        store
	keyPrefix string
	logger    *zap.Logger
}

// New creates a match result cache.
func New(dbStore store, keyPrefix string, logger *zap.Logger) *Cache {
	return &Cache{db: dbStore, keyPrefix: keyPrefix, logger: logger}
}

// Get returns the cached result for a fingerprint, reporting a miss via ok.
// Backend failures degrade to a miss: the pipeline recomputes rather than fails.
func (c *Cache) Get(ctx context.Context, fingerprint string) (matching.Result, bool) {
	data, err := c.db.Get(ctx, c.key(fingerprint))
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Result cache read failed", zap.String("fingerprint", fingerprint), zap.Error(err))
		}
		return matching.Result{}, false
	}

	var res matching.Result
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.Warn("Corrupt cached result", zap.String("fingerprint", fingerprint), zap.Error(err))
		return matching.Result{}, false
	}
	return res, true
}

// Put stores a result under its fingerprint for the result's TTL.
func (c *Cache) Put(ctx context.Context, res matching.Result) error {
	if res.TTL <= 0 {
		return fmt.Errorf("result ttl must be positive, got %s", res.TTL)
	}

	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := c.db.SetWithTTL(ctx, c.key(res.Fingerprint), data, res.TTL); err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	return nil
}

func (c *Cache) key(fingerprint string) string {
	return c.keyPrefix + "match:" + fingerprint
}
