package redis

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/pkg/constants"
	"github.com/turtacn/astragrid/pkg/logger"
)

// TwinMirror keeps the latest twin state of recently synced components for
// fast single-component reads.
type TwinMirror struct {
	cache  *CacheManager
	ttl    time.Duration
	logger logger.Logger
}

// NewTwinMirror creates a mirror whose entries expire after ttl.
func NewTwinMirror(conn *RedisConnection, ttl time.Duration, log logger.Logger) *TwinMirror {
	log = log.WithComponent("TwinMirror")
	return &TwinMirror{cache: NewCacheManager(conn, log), ttl: ttl, logger: log}
}

// Put stores a component's state.
func (m *TwinMirror) Put(ctx context.Context, component *models.TwinComponent) error {
	return m.cache.setJSON(ctx, constants.CacheKeyTwinPrefix+component.ComponentID, component, m.ttl)
}

// Get returns the mirrored state; ok is false on a miss.
func (m *TwinMirror) Get(ctx context.Context, componentID string) (*models.TwinComponent, bool, error) {
	var c models.TwinComponent
	if err := m.cache.getJSON(ctx, constants.CacheKeyTwinPrefix+componentID, &c); err != nil {
		if stderrors.Is(err, errCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &c, true, nil
}
