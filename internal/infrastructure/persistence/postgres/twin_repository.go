package postgres

import (
	"context"
	stderrors "errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/internal/domain/repository"
	"github.com/turtacn/astragrid/pkg/errors"
	"github.com/turtacn/astragrid/pkg/logger"
)

// TwinRepository is the gorm implementation of repository.TwinRepository.
type TwinRepository struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewTwinRepository creates a new TwinRepository.
func NewTwinRepository(db *gorm.DB, log logger.Logger) *TwinRepository {
	return &TwinRepository{db: db, logger: log.WithComponent("TwinRepository")}
}

var _ repository.TwinRepository = (*TwinRepository)(nil)

// Upsert creates or replaces the twin row of a component.
func (r *TwinRepository) Upsert(ctx context.Context, component *models.TwinComponent) error {
	rec, err := twinFromDomain(component)
	if err != nil {
		return errors.ErrMalformedInput("twin component cannot be encoded").WithCause(err)
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "component_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"sector_id", "status", "temperature_c", "voltage_v", "current_a", "position",
			"ocr_confidence", "risk_score", "risk_category", "time_to_failure_hours",
			"risk_factors", "compliant", "violations", "last_scanned", "updated_at",
		}),
	}).Create(rec).Error
	if err != nil {
		r.logger.Error(ctx, "Failed to upsert twin component", err, logger.String("component_id", component.ComponentID))
		return errors.ErrDependencyUnavailable("twin store", err)
	}
	return nil
}

// Get loads one component.
func (r *TwinRepository) Get(ctx context.Context, componentID string) (*models.TwinComponent, error) {
	var rec twinRecord
	if err := r.db.WithContext(ctx).Where("component_id = ?", componentID).First(&rec).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrComponentNotFound(componentID)
		}
		return nil, errors.ErrDependencyUnavailable("twin store", err)
	}
	c, err := rec.toDomain()
	if err != nil {
		return nil, errors.ErrInternal("corrupt twin row", err)
	}
	return c, nil
}

// ListBySector lists components ordered by id.
func (r *TwinRepository) ListBySector(ctx context.Context, sectorID string) ([]*models.TwinComponent, error) {
	q := r.db.WithContext(ctx).Order("component_id")
	if sectorID != "" {
		q = q.Where("sector_id = ?", sectorID)
	}
	var rows []twinRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.ErrDependencyUnavailable("twin store", err)
	}
	out := make([]*models.TwinComponent, 0, len(rows))
	for i := range rows {
		c, err := rows[i].toDomain()
		if err != nil {
			return nil, errors.ErrInternal("corrupt twin row", err)
		}
		out = append(out, c)
	}
	return out, nil
}
