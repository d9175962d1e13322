package cache

import (
	"context"
	"crypto/sha1"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
)

// AuthClass separates cache entries by what the caller is allowed to see.
type AuthClass string

const (
	ClassStaff AuthClass = "staff"
	ClassUser  AuthClass = "user"
)

func ClassFor(isStaff bool) AuthClass {
	if isStaff {
		return ClassStaff
	}
	return ClassUser
}

// ListingCache stores serialized flight listings under one namespace that is
// invalidated as a whole. Entry keys carry a namespace version kept in the
// store, so an invalidation made by any process orphans entries that other
// processes are still computing.
type ListingCache struct {
	store          Store
	namespace      string
	versionKey     string
	computeTimeout time.Duration
	logger         *slog.Logger
	group          singleflight.Group
}

func NewListingCache(store Store, prefix string, logger *slog.Logger) *ListingCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingCache{
		store:          store,
		namespace:      prefix + ":list",
		versionKey:     prefix + ":list-version",
		computeTimeout: 30 * time.Second,
		logger:         logger,
	}
}

// Key derives the entry key from the caller's class and the canonical
// rendering of the request filter.
func (c *ListingCache) Key(class AuthClass, fingerprint string) string {
	sum := sha1.Sum([]byte(fingerprint))
	return fmt.Sprintf("%s:%x", class, sum[:])
}

func (c *ListingCache) entryKey(version int64, key string) string {
	return c.namespace + ":v" + strconv.FormatInt(version, 10) + ":" + key
}

func (c *ListingCache) version(ctx context.Context) (int64, error) {
	data, ok, err := c.store.Get(ctx, c.versionKey)
	if err != nil || !ok {
		return 0, err
	}
	return strconv.ParseInt(string(data), 10, 64)
}

// GetOrCompute returns the cached value for key or runs compute and stores
// its result for ttl. Concurrent misses on one entry share a single compute,
// which does not inherit the first caller's cancellation. Store failures
// degrade to computing.
func (c *ListingCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	version, err := c.version(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "listing cache version read failed", slog.Any("error", err))
		return compute(ctx)
	}

	entry := c.entryKey(version, key)
	if data, ok, err := c.store.Get(ctx, entry); err != nil {
		c.logger.WarnContext(ctx, "listing cache read failed", slog.String("key", entry), slog.Any("error", err))
	} else if ok {
		return data, nil
	}

	ch := c.group.DoChan(entry, func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.computeTimeout)
		defer cancel()

		data, err := compute(cctx)
		if err != nil {
			return nil, err
		}
		// an invalidation during compute has moved readers to a newer
		// version; this write then lands on a key nobody reads
		if err := c.store.Set(cctx, entry, data, ttl); err != nil {
			c.logger.WarnContext(ctx, "listing cache write failed", slog.String("key", entry), slog.Any("error", err))
		}
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// InvalidateAll bumps the namespace version and then evicts the entries it
// orphaned. Once the bump succeeds no reader sees an older listing, so an
// eviction failure is only logged.
func (c *ListingCache) InvalidateAll(ctx context.Context) error {
	version, err := c.store.Incr(ctx, c.versionKey)
	if err != nil {
		return fmt.Errorf("failed to bump %s version: %w", c.namespace, err)
	}

	n, err := c.store.EvictMatching(ctx, c.namespace+":*")
	if err != nil {
		c.logger.WarnContext(ctx, "listing cache eviction failed", slog.Int64("version", version), slog.Any("error", err))
		return nil
	}
	c.logger.DebugContext(ctx, "listing cache invalidated", slog.Int64("version", version), slog.Int("evicted", n))
	return nil
}
