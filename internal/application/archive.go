package application

import (
	"context"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/internal/domain/repository"
	"github.com/turtacn/astragrid/pkg/logger"
)

// Archive keeps terminal workflows queryable: recent ones in a TTL cache and,
// when a ScanRepository is configured, all of them in storage.
type Archive struct {
	cache  *gocache.Cache
	repo   repository.ScanRepository
	logger logger.Logger
}

// NewArchive creates an archive. repo may be nil.
func NewArchive(ttl time.Duration, repo repository.ScanRepository, log logger.Logger) *Archive {
	return &Archive{
		cache:  gocache.New(ttl, 2*ttl),
		repo:   repo,
		logger: log.WithComponent("Archive"),
	}
}

// Remember caches a terminal snapshot.
func (a *Archive) Remember(w *models.Workflow) {
	a.cache.SetDefault(w.ScanID, w)
}

// Persist writes a terminal snapshot to storage. Failures are logged; the cached
// copy stays authoritative until it expires.
func (a *Archive) Persist(ctx context.Context, w *models.Workflow) {
	if a.repo == nil {
		return
	}
	if err := a.repo.Save(ctx, w); err != nil {
		a.logger.Error(ctx, "failed to persist scan", err, logger.String("scan_id", w.ScanID))
	}
}

// Cached returns a copy of a cached workflow.
func (a *Archive) Cached(scanID string) (*models.Workflow, bool) {
	v, ok := a.cache.Get(scanID)
	if !ok {
		return nil, false
	}
	return v.(*models.Workflow).Snapshot(), true
}

// Get looks in the cache, then in storage.
func (a *Archive) Get(ctx context.Context, scanID string) (*models.Workflow, error) {
	if w, ok := a.Cached(scanID); ok {
		return w, nil
	}
	if a.repo == nil {
		return nil, nil
	}
	return a.repo.Get(ctx, scanID)
}

// List returns cached workflows merged with up to limit stored ones, oldest first.
func (a *Archive) List(ctx context.Context, limit int) []*models.Workflow {
	seen := make(map[string]bool)
	out := make([]*models.Workflow, 0, a.cache.ItemCount())
	for id, item := range a.cache.Items() {
		seen[id] = true
		out = append(out, item.Object.(*models.Workflow).Snapshot())
	}
	if a.repo != nil {
		stored, err := a.repo.List(ctx, limit)
		if err != nil {
			a.logger.Warn(ctx, "failed to list stored scans", logger.Error(err))
		}
		for _, w := range stored {
			if !seen[w.ScanID] {
				seen[w.ScanID] = true
				out = append(out, w)
			}
		}
	}
	sortWorkflows(out)
	return out
}

func sortWorkflows(ws []*models.Workflow) {
	sort.Slice(ws, func(i, j int) bool {
		if ws[i].CreatedAt.Equal(ws[j].CreatedAt) {
			return ws[i].ScanID < ws[j].ScanID
		}
		return ws[i].CreatedAt.Before(ws[j].CreatedAt)
	})
}
