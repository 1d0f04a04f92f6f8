package repository

import (
	"context"

	"github.com/turtacn/astragrid/internal/domain/models"
)

//go:generate mockery --name TwinRepository --output ../repository/mocks --filename twin_repository.go
// TwinRepository persists the digital twin's component table.
type TwinRepository interface {
	// Upsert creates or replaces the twin state of a component.
	Upsert(ctx context.Context, component *models.TwinComponent) error

	// Get returns the latest twin state of a component.
	// It returns a not_found GridError when the component was never synced.
	Get(ctx context.Context, componentID string) (*models.TwinComponent, error)

	// ListBySector returns the components of a sector ordered by id. An empty
	// sector lists every component.
	ListBySector(ctx context.Context, sectorID string) ([]*models.TwinComponent, error)
}
