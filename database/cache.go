package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/CrowderSoup/kanban-board/kanban"
)

// Cache puts redis in front of a SnapshotService for reads. Writes go to
// sqlite first and then evict the cached copy.
type Cache struct {
	base  *SnapshotService
	redis *redis.Client
	ttl   time.Duration
}

type cachedSnapshot struct {
	Version int64        `json:"version"`
	State   kanban.State `json:"state"`
}

// NewCache wraps base. A nil client or a zero ttl turns the cache into a pass-through.
func NewCache(base *SnapshotService, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("database.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) Load(ctx context.Context, key string) (kanban.State, int64, error) {
	if snap, ok := c.loadFromCache(ctx, key); ok {
		return snap.State, snap.Version, nil
	}

	state, version, err := c.base.Load(ctx, key)
	if err != nil {
		return kanban.State{}, 0, err
	}

	c.store(ctx, key, cachedSnapshot{Version: version, State: state})
	return state, version, nil
}

func (c *Cache) Save(ctx context.Context, key string, state kanban.State, version int64) (int64, error) {
	next, err := c.base.Save(ctx, key, state, version)
	if err != nil && !errors.Is(err, ErrStaleSnapshot) {
		return 0, err
	}

	// A stale save means the cached copy may be stale too.
	c.evict(ctx, key)
	return next, err
}

func (c *Cache) loadFromCache(ctx context.Context, key string) (cachedSnapshot, bool) {
	if c.redis == nil || c.ttl == 0 {
		return cachedSnapshot{}, false
	}
	data, err := c.redis.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// On redis errors fall back to sqlite without failing.
			log.WithError(err).Warn("snapshot cache read failed")
			_ = c.redis.Del(ctx, cacheKey(key)).Err()
		}
		return cachedSnapshot{}, false
	}
	var snap cachedSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		_ = c.redis.Del(ctx, cacheKey(key)).Err()
		return cachedSnapshot{}, false
	}
	snap.State = snap.State.Normalize()
	return snap, true
}

func (c *Cache) store(ctx context.Context, key string, snap cachedSnapshot) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, cacheKey(key), data, c.ttl).Err(); err != nil {
		log.WithError(err).Warn("snapshot cache fill failed")
	}
}

func (c *Cache) evict(ctx context.Context, key string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, cacheKey(key)).Result()
}

func cacheKey(key string) string {
	return "snapshot:" + key
}
