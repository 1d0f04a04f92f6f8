package repository

import (
	"context"

	"github.com/turtacn/astragrid/internal/domain/models"
)

//go:generate mockery --name ScanRepository --output ../repository/mocks --filename scan_repository.go
// ScanRepository archives terminal workflows so they survive the in-memory registry.
type ScanRepository interface {
	// Save stores a terminal workflow snapshot, replacing any earlier copy.
	Save(ctx context.Context, workflow *models.Workflow) error

	// Get loads an archived workflow by scan id.
	Get(ctx context.Context, scanID string) (*models.Workflow, error)

	// List returns up to limit archived workflows, newest first.
	List(ctx context.Context, limit int) ([]*models.Workflow, error)
}
