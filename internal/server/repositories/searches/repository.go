package searches

import (
	"context"
	"time"

	"github.com/dmitrijs2005/aiexplorer/internal/server/models"
)

type Repository interface {
	// Create persists rec and fills its ID and CreatedAt.
	Create(ctx context.Context, rec *models.SearchRecord) (*models.SearchRecord, error)
	// ListByOwner returns ownerID's records newest first.
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]models.SearchRecord, error)
	// Delete removes id if it belongs to ownerID or asAdmin is set. A record
	// that is missing or owned by someone else yields common.ErrorNotFound.
	Delete(ctx context.Context, id, ownerID string, asAdmin bool) error
	// CountByOwner aggregates ownerID's records; Today counts rows created at
	// or after since.
	CountByOwner(ctx context.Context, ownerID string, since time.Time) (models.ActivityCounts, error)
	// CountAll aggregates every user's records.
	CountAll(ctx context.Context, since time.Time) (models.ActivityCounts, error)
}
