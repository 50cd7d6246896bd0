package images

import (
	"context"
	"time"

	"github.com/dmitrijs2005/aiexplorer/internal/server/models"
)

// Repository mirrors searches.Repository for image generation history.
type Repository interface {
	Create(ctx context.Context, rec *models.ImageRecord) (*models.ImageRecord, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]models.ImageRecord, error)
	Delete(ctx context.Context, id, ownerID string, asAdmin bool) error
	CountByOwner(ctx context.Context, ownerID string, since time.Time) (models.ActivityCounts, error)
	CountAll(ctx context.Context, since time.Time) (models.ActivityCounts, error)
}
