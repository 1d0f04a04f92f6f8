package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/internal/domain/repository"
	"github.com/turtacn/astragrid/pkg/errors"
	"github.com/turtacn/astragrid/pkg/logger"
)

// SeriesRepository implements repository.HistoricalStore on the readings table.
type SeriesRepository struct {
	db     *gorm.DB
	limit  int
	now    func() time.Time
	logger logger.Logger
}

// NewSeriesRepository creates a history store returning at most limit samples per window.
func NewSeriesRepository(db *gorm.DB, limit int, log logger.Logger) *SeriesRepository {
	return &SeriesRepository{
		db:     db,
		limit:  limit,
		now:    time.Now,
		logger: log.WithComponent("SeriesRepository"),
	}
}

// WithClock replaces the clock the window is measured from.
func (r *SeriesRepository) WithClock(now func() time.Time) *SeriesRepository {
	r.now = now
	return r
}

var _ repository.HistoricalStore = (*SeriesRepository)(nil)

// GetSeries returns the newest samples of the window, oldest first.
func (r *SeriesRepository) GetSeries(ctx context.Context, componentID string, window time.Duration) (models.Series, error) {
	since := r.now().Add(-window).UTC()

	var rows []readingRecord
	q := r.db.WithContext(ctx).
		Where("component_id = ? AND captured_at >= ?", componentID, since).
		Order("captured_at DESC").Order("id DESC")
	if r.limit > 0 {
		q = q.Limit(r.limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		r.logger.Error(ctx, "Failed to load series", err, logger.String("component_id", componentID))
		return models.Series{}, errors.ErrDependencyUnavailable("historical store", err)
	}

	readings := make([]models.Reading, len(rows))
	for i := range rows {
		readings[len(rows)-1-i] = rows[i].toDomain()
	}
	return models.Series{ComponentID: componentID, Readings: readings}, nil
}

// Append inserts one reading.
func (r *SeriesRepository) Append(ctx context.Context, reading models.Reading) error {
	if reading.ComponentID == "" {
		return errors.ErrMalformedInput("reading has no component id")
	}
	if err := r.db.WithContext(ctx).Create(readingFromDomain(reading)).Error; err != nil {
		r.logger.Error(ctx, "Failed to append reading", err, logger.String("component_id", reading.ComponentID))
		return errors.ErrDependencyUnavailable("historical store", err)
	}
	return nil
}
