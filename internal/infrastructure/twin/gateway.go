// Package twin implements the digital twin gateway: durable component state in
// the twin repository, an optional Redis mirror for hot reads and sync events.
package twin

import (
	"context"

	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/internal/domain/repository"
	"github.com/turtacn/astragrid/internal/domain/service"
	"github.com/turtacn/astragrid/pkg/errors"
	"github.com/turtacn/astragrid/pkg/logger"
)

// Mirror is a cache of single components. *redis.TwinMirror implements it.
type Mirror interface {
	Put(ctx context.Context, component *models.TwinComponent) error
	Get(ctx context.Context, componentID string) (*models.TwinComponent, bool, error)
}

// Gateway implements service.TwinGateway.
type Gateway struct {
	repo      repository.TwinRepository
	mirror    Mirror
	publisher service.EventPublisher
	logger    logger.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithMirror enables the read mirror.
func WithMirror(m Mirror) Option {
	return func(g *Gateway) { g.mirror = m }
}

// WithPublisher enables sync events.
func WithPublisher(p service.EventPublisher) Option {
	return func(g *Gateway) { g.publisher = p }
}

// NewGateway creates a gateway over repo.
func NewGateway(repo repository.TwinRepository, log logger.Logger, opts ...Option) *Gateway {
	g := &Gateway{repo: repo, logger: log.WithComponent("TwinGateway")}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ service.TwinGateway = (*Gateway)(nil)

// Upsert stores the folded state. Only the repository write decides success;
// mirror and event failures are logged.
func (g *Gateway) Upsert(ctx context.Context, scanID string, reading models.Reading, record *models.ComplianceRecord, assessment *models.RiskAssessment) error {
	if record == nil || assessment == nil {
		return errors.ErrMalformedInput("twin upsert needs a compliance record and an assessment").
			WithMetadata("component_id", reading.ComponentID)
	}
	component := models.NewTwinComponent(&reading, record, assessment)
	if err := g.repo.Upsert(ctx, component); err != nil {
		return err
	}

	if g.mirror != nil {
		if err := g.mirror.Put(ctx, component); err != nil {
			g.logger.Warn(ctx, "twin mirror write failed", logger.String("component_id", component.ComponentID), logger.Error(err))
		}
	}
	if g.publisher != nil {
		event := models.NewTwinSyncEvent(component).WithScan(scanID)
		if err := g.publisher.PublishTwinSync(ctx, event); err != nil {
			g.logger.Warn(ctx, "twin sync event not published", logger.String("component_id", component.ComponentID), logger.Error(err))
		}
	}

	g.logger.Debug(ctx, "twin component synced",
		logger.String("component_id", component.ComponentID),
		logger.String("risk_category", string(component.RiskCategory)),
	)
	return nil
}

// Components lists the twin components known in a sector, straight from the repository.
func (g *Gateway) Components(ctx context.Context, sectorID string) ([]*models.TwinComponent, error) {
	return g.repo.ListBySector(ctx, sectorID)
}

// Component prefers the mirror and falls back to the repository.
func (g *Gateway) Component(ctx context.Context, componentID string) (*models.TwinComponent, error) {
	if g.mirror != nil {
		c, ok, err := g.mirror.Get(ctx, componentID)
		if err != nil {
			g.logger.Warn(ctx, "twin mirror read failed", logger.String("component_id", componentID), logger.Error(err))
		} else if ok {
			return c, nil
		}
	}
	c, err := g.repo.Get(ctx, componentID)
	if err != nil {
		return nil, err
	}
	if g.mirror != nil {
		_ = g.mirror.Put(ctx, c)
	}
	return c, nil
}
