package schedules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/experiment-scheduler/internal/availability"
	"github.com/wolfman30/experiment-scheduler/internal/observability/metrics"
	"github.com/wolfman30/experiment-scheduler/pkg/logging"
)

const snapshotKey = "scheduler:snapshot:v1"

// SnapshotCache keeps the JSON encoded booking snapshot in Redis.
type SnapshotCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewSnapshotCache creates a cache with the given entry lifetime.
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	if client == nil {
		panic("schedules: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SnapshotCache{redis: client, ttl: ttl}
}

// Get returns the cached snapshot. ok is false on a miss.
func (c *SnapshotCache) Get(ctx context.Context) (records []availability.BookingRecord, ok bool, err error) {
	data, err := c.redis.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("schedules: load snapshot cache: %w", err)
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, false, fmt.Errorf("schedules: decode snapshot cache: %w", err)
	}
	return records, true, nil
}

// Set stores records for the cache lifetime.
func (c *SnapshotCache) Set(ctx context.Context, records []availability.BookingRecord) error {
	if records == nil {
		records = []availability.BookingRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("schedules: encode snapshot cache: %w", err)
	}
	if err := c.redis.Set(ctx, snapshotKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("schedules: persist snapshot cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached snapshot so the next read goes to the store.
func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	if err := c.redis.Del(ctx, snapshotKey).Err(); err != nil {
		return fmt.Errorf("schedules: invalidate snapshot cache: %w", err)
	}
	return nil
}

// Snapshotter is the store side of a snapshot source.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]availability.BookingRecord, error)
}

// SnapshotSource serves booking snapshots from the cache when possible. A nil cache
// sends every read to the store.
type SnapshotSource struct {
	store   Snapshotter
	cache   *SnapshotCache
	metrics *metrics.SchedulerMetrics
	logger  *logging.Logger
}

// NewSnapshotSource combines a store with an optional cache.
func NewSnapshotSource(store Snapshotter, cache *SnapshotCache, m *metrics.SchedulerMetrics, logger *logging.Logger) *SnapshotSource {
	if logger == nil {
		logger = logging.Default()
	}
	return &SnapshotSource{store: store, cache: cache, metrics: m, logger: logger.Component("snapshots")}
}

// Cached returns a possibly stale snapshot. Cache failures fall through to the store.
func (s *SnapshotSource) Cached(ctx context.Context) ([]availability.BookingRecord, error) {
	if s.cache != nil {
		records, ok, err := s.cache.Get(ctx)
		if err == nil && ok {
			s.metrics.ObserveCache(true)
			return records, nil
		}
		s.metrics.ObserveCache(false)
	}
	return s.Fresh(ctx)
}

// Fresh reads the authoritative snapshot from the store and refreshes the cache.
func (s *SnapshotSource) Fresh(ctx context.Context) ([]availability.BookingRecord, error) {
	records, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, records); err != nil {
			s.logger.Warn("snapshot cache refresh failed", "error", err)
		}
	}
	return records, nil
}

// Invalidate drops any cached snapshot after a write.
func (s *SnapshotSource) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}
