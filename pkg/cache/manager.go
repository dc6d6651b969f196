package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the key is not in the cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a stored entry could not be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// DefaultStaleGrace is how long a stale entry stays available for
// revalidation.
const DefaultStaleGrace = 10 * time.Minute

// Manager stores entries in Redis.
type Manager struct {
	redis      *redis.Client
	staleGrace time.Duration
}

// NewManager creates a cache manager. It panics on a nil client.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{
		redis:      redisClient,
		staleGrace: DefaultStaleGrace,
	}
}

// SetStaleGrace changes how long stale entries are kept.
func (m *Manager) SetStaleGrace(d time.Duration) {
	if d < 0 {
		d = 0
	}
	m.staleGrace = d
}

// Get returns the entry for key. The entry may be stale; callers check
// IsExpired and revalidate. Returns ErrCacheMiss when nothing is stored.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		_ = m.Delete(ctx, key)
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	return &entry, nil
}

// Set stores entry until it expires plus the stale grace period. Entries
// that are already stale are not stored.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl+m.staleGrace).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues("redis").Add(float64(len(data)))
	return nil
}

// Delete removes the entry for key.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Refresh extends a stored entry after a 304 Not Modified response.
func (m *Manager) Refresh(ctx context.Context, key Key, newExpires time.Time) (*Entry, error) {
	entry, err := m.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	entry.Expires = newExpires
	if err := m.Set(ctx, key, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
