package repository

import (
	"context"
	"time"

	"github.com/turtacn/astragrid/internal/domain/models"
)

//go:generate mockery --name HistoricalStore --output ../repository/mocks --filename historical_store.go
// HistoricalStore is the append-only, time-ordered reading history of every component.
type HistoricalStore interface {
	// GetSeries returns the readings of componentID captured within window of now,
	// oldest first. An unknown component yields an empty series, not an error.
	GetSeries(ctx context.Context, componentID string, window time.Duration) (models.Series, error)

	// Append adds one reading to the end of its component's series.
	Append(ctx context.Context, reading models.Reading) error
}
