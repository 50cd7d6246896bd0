package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/aiexplorer/internal/common"
	"github.com/dmitrijs2005/aiexplorer/internal/logging"
	"github.com/dmitrijs2005/aiexplorer/internal/server/config"
	"github.com/dmitrijs2005/aiexplorer/internal/server/models"
	"github.com/dmitrijs2005/aiexplorer/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/aiexplorer/internal/timex"
)

// AdminService is the administrator's read-only view across all users.
type AdminService struct {
	persistence
	now func() time.Time
}

func NewAdminService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *AdminService {
	return &AdminService{
		persistence: persistence{
			db:             db,
			repomanager:    m,
			acquireTimeout: cfg.DBAcquireTimeout,
			log:            log.With("module", "admin"),
		},
		now: time.Now,
	}
}

// ListUsers returns every account, newest first.
func (s *AdminService) ListUsers(ctx context.Context, caller Caller) ([]models.User, error) {
	if !caller.IsAdmin() {
		return nil, common.ErrorForbidden
	}

	dctx, cancel := s.bounded(ctx)
	defer cancel()

	users, err := s.repomanager.Users(s.db).List(dctx)
	if err != nil {
		return nil, s.internal(ctx, "list users", err)
	}
	return users, nil
}

// SystemStats returns global totals and today's (UTC) activity.
func (s *AdminService) SystemStats(ctx context.Context, caller Caller) (*models.SystemStats, error) {
	if !caller.IsAdmin() {
		return nil, common.ErrorForbidden
	}

	since := timex.StartOfDay(s.now())

	dctx, cancel := s.bounded(ctx)
	defer cancel()

	users, err := s.repomanager.Users(s.db).Count(dctx)
	if err != nil {
		return nil, s.internal(ctx, "count users", err)
	}
	searches, err := s.repomanager.Searches(s.db).CountAll(dctx, since)
	if err != nil {
		return nil, s.internal(ctx, "count searches", err)
	}
	images, err := s.repomanager.Images(s.db).CountAll(dctx, since)
	if err != nil {
		return nil, s.internal(ctx, "count images", err)
	}

	return &models.SystemStats{
		TotalUsers:    users,
		TotalSearches: searches.Total,
		TotalImages:   images.Total,
		SearchesToday: searches.Today,
		ImagesToday:   images.Today,
	}, nil
}
