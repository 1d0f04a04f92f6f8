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

// ScanRepository archives terminal workflows in the scans table.
type ScanRepository struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewScanRepository creates a new ScanRepository.
func NewScanRepository(db *gorm.DB, log logger.Logger) *ScanRepository {
	return &ScanRepository{db: db, logger: log.WithComponent("ScanRepository")}
}

var _ repository.ScanRepository = (*ScanRepository)(nil)

// Save replaces any earlier snapshot of the same scan.
func (r *ScanRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	rec, err := scanFromDomain(workflow)
	if err != nil {
		return errors.ErrMalformedInput("workflow cannot be encoded").WithCause(err)
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scan_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"sector_id", "stage", "payload", "updated_at"}),
	}).Create(rec).Error
	if err != nil {
		return errors.ErrDependencyUnavailable("scan store", err)
	}
	return nil
}

// Get loads one archived scan.
func (r *ScanRepository) Get(ctx context.Context, scanID string) (*models.Workflow, error) {
	var rec scanRecord
	if err := r.db.WithContext(ctx).Where("scan_id = ?", scanID).First(&rec).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrScanNotFound(scanID)
		}
		return nil, errors.ErrDependencyUnavailable("scan store", err)
	}
	w, err := rec.toDomain()
	if err != nil {
		return nil, errors.ErrInternal("corrupt scan row", err)
	}
	return w, nil
}

// List returns up to limit scans, newest first.
func (r *ScanRepository) List(ctx context.Context, limit int) ([]*models.Workflow, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC").Order("scan_id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []scanRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.ErrDependencyUnavailable("scan store", err)
	}
	out := make([]*models.Workflow, 0, len(rows))
	for i := range rows {
		w, err := rows[i].toDomain()
		if err != nil {
			r.logger.Warn(ctx, "Skipping corrupt scan row", logger.String("scan_id", rows[i].ScanID), logger.Error(err))
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

//Personal.AI order the ending
