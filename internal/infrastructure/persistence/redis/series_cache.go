package redis

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/internal/domain/repository"
	"github.com/turtacn/astragrid/pkg/constants"
	"github.com/turtacn/astragrid/pkg/logger"
)

// SeriesCache is a read-through cache in front of a HistoricalStore. A
// component's cached windows live in one hash so an append drops them all.
// Redis failures degrade to the backing store.
type SeriesCache struct {
	cache   *CacheManager
	backing repository.HistoricalStore
	ttl     time.Duration
	logger  logger.Logger
}

// NewSeriesCache wraps backing.
func NewSeriesCache(conn *RedisConnection, backing repository.HistoricalStore, ttl time.Duration, log logger.Logger) *SeriesCache {
	log = log.WithComponent("SeriesCache")
	return &SeriesCache{
		cache:   NewCacheManager(conn, log),
		backing: backing,
		ttl:     ttl,
		logger:  log,
	}
}

var _ repository.HistoricalStore = (*SeriesCache)(nil)

func seriesKey(componentID string) string {
	return constants.CacheKeySeriesPrefix + componentID
}

func (s *SeriesCache) GetSeries(ctx context.Context, componentID string, window time.Duration) (models.Series, error) {
	var cached models.Series
	err := s.cache.hgetJSON(ctx, seriesKey(componentID), window.String(), &cached)
	switch {
	case err == nil:
		return cached, nil
	case !stderrors.Is(err, errCacheMiss):
		s.logger.Warn(ctx, "series cache read failed", logger.String("component_id", componentID), logger.Error(err))
	}

	series, err := s.backing.GetSeries(ctx, componentID, window)
	if err != nil {
		return series, err
	}
	if err := s.cache.hsetJSON(ctx, seriesKey(componentID), window.String(), series, s.ttl); err != nil {
		s.logger.Warn(ctx, "series cache write failed", logger.String("component_id", componentID), logger.Error(err))
	}
	return series, nil
}

// Append writes through and invalidates the component's cached windows.
func (s *SeriesCache) Append(ctx context.Context, reading models.Reading) error {
	if err := s.backing.Append(ctx, reading); err != nil {
		return err
	}
	if err := s.cache.delete(ctx, seriesKey(reading.ComponentID)); err != nil {
		s.logger.Warn(ctx, "series cache invalidation failed", logger.String("component_id", reading.ComponentID), logger.Error(err))
	}
	return nil
}
