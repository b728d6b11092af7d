// Package cache holds the practice profile cache shared by the API and the
// registration workflow.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/metrics"
)

const profileKeyPrefix = "dentist-profile:"

var errMiss = errors.New("cache miss")

// ProfileKey is the cache key of a user's practice profile.
func ProfileKey(userID uuid.UUID) string {
	return profileKeyPrefix + userID.String()
}

// store holds encoded profiles.
type store interface {
	get(ctx context.Context, key string) ([]byte, error)
	set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	del(ctx context.Context, key string) error
}

type localStore struct {
	c *gocache.Cache
}

func (s localStore) get(ctx context.Context, key string) ([]byte, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, errMiss
	}
	return v.([]byte), nil
}

func (s localStore) set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	s.c.Set(key, data, ttl)
	return nil
}

func (s localStore) del(ctx context.Context, key string) error {
	s.c.Delete(key)
	return nil
}

type redisStore struct {
	client *redis.Client
}

func (s redisStore) get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errMiss
	}
	return data, err
}

func (s redisStore) set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s redisStore) del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// ProfileCache keeps encoded practice profiles. With a redis client every
// API instance reads and invalidates the same entries; without one the
// cache is process local. Get always decodes a fresh copy.
type ProfileCache struct {
	store   store
	name    string
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// NewProfileCache builds the cache. client may be nil.
func NewProfileCache(client *redis.Client, ttl, cleanupInterval time.Duration, m *metrics.Metrics, log *logger.Logger) *ProfileCache {
	if client == nil {
		return newProfileCache(localStore{c: gocache.New(ttl, cleanupInterval)}, "local", ttl, m, log)
	}
	return newProfileCache(redisStore{client: client}, "redis", ttl, m, log)
}

func newProfileCache(s store, name string, ttl time.Duration, m *metrics.Metrics, log *logger.Logger) *ProfileCache {
	if m == nil {
		m = metrics.NewNop()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ProfileCache{
		store:   s,
		name:    name,
		ttl:     ttl,
		metrics: m,
		logger:  log,
	}
}

// Get returns a copy of the cached profile. Store errors count as a miss.
func (c *ProfileCache) Get(ctx context.Context, userID uuid.UUID) (*model.PracticeProfile, bool) {
	key := ProfileKey(userID)

	data, err := c.store.get(ctx, key)
	if err != nil {
		if !errors.Is(err, errMiss) {
			c.logger.Warn("profile cache read failed", "key", key, "error", err.Error())
		}
		c.metrics.CacheLookups.WithLabelValues(c.name, "miss").Inc()
		return nil, false
	}

	var profile model.PracticeProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		c.logger.Warn("dropping undecodable profile cache entry", "key", key, "error", err.Error())
		_ = c.store.del(ctx, key)
		c.metrics.CacheLookups.WithLabelValues(c.name, "miss").Inc()
		return nil, false
	}
	c.metrics.CacheLookups.WithLabelValues(c.name, "hit").Inc()
	return &profile, true
}

func (c *ProfileCache) Set(ctx context.Context, userID uuid.UUID, profile *model.PracticeProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := c.store.set(ctx, ProfileKey(userID), data, c.ttl); err != nil {
		return fmt.Errorf("failed to set in cache: %w", err)
	}
	return nil
}

// InvalidateProfile drops the user's entry for every reader of the store.
func (c *ProfileCache) InvalidateProfile(ctx context.Context, userID uuid.UUID) error {
	if err := c.store.del(ctx, ProfileKey(userID)); err != nil {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}
