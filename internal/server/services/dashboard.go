package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/aiexplorer/internal/logging"
	"github.com/dmitrijs2005/aiexplorer/internal/server/config"
	"github.com/dmitrijs2005/aiexplorer/internal/server/models"
	"github.com/dmitrijs2005/aiexplorer/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/aiexplorer/internal/timex"
)

// RecentLimit is how many of each record kind the dashboard shows.
const RecentLimit = 5

// DashboardService aggregates a caller's activity. Nothing is cached; every
// call reads current state.
type DashboardService struct {
	persistence
	store ArtifactStore
	now   func() time.Time
}

func NewDashboardService(db *sql.DB, m repomanager.RepositoryManager, store ArtifactStore, cfg *config.Config, log logging.Logger) *DashboardService {
	return &DashboardService{
		persistence: persistence{
			db:             db,
			repomanager:    m,
			acquireTimeout: cfg.DBAcquireTimeout,
			log:            log.With("module", "dashboard"),
		},
		store: store,
		now:   time.Now,
	}
}

// Dashboard returns the caller's counters and most recent records. "Today"
// is the current UTC calendar day.
func (s *DashboardService) Dashboard(ctx context.Context, caller Caller) (*models.Dashboard, error) {
	since := timex.StartOfDay(s.now())

	dctx, cancel := s.bounded(ctx)
	defer cancel()

	user, err := s.repomanager.Users(s.db).GetByID(dctx, caller.UserID)
	if err != nil {
		return nil, s.passThrough(ctx, "load user", err)
	}

	searchRepo := s.repomanager.Searches(s.db)
	imageRepo := s.repomanager.Images(s.db)

	searchCounts, err := searchRepo.CountByOwner(dctx, caller.UserID, since)
	if err != nil {
		return nil, s.internal(ctx, "count searches", err)
	}
	imageCounts, err := imageRepo.CountByOwner(dctx, caller.UserID, since)
	if err != nil {
		return nil, s.internal(ctx, "count images", err)
	}

	recentSearches, err := searchRepo.ListByOwner(dctx, caller.UserID, RecentLimit, 0)
	if err != nil {
		return nil, s.internal(ctx, "recent searches", err)
	}
	recentImages, err := imageRepo.ListByOwner(dctx, caller.UserID, RecentLimit, 0)
	if err != nil {
		return nil, s.internal(ctx, "recent images", err)
	}
	resolveArtifacts(ctx, s.store, s.log, recentImages)

	return &models.Dashboard{
		Stats: models.DashboardStats{
			TotalSearches: searchCounts.Total,
			TotalImages:   imageCounts.Total,
			SearchesToday: searchCounts.Today,
			ImagesToday:   imageCounts.Today,
			MemberSince:   user.CreatedAt,
			LastActivity:  latest(searchCounts.LastActivity, imageCounts.LastActivity),
		},
		RecentSearches: recentSearches,
		RecentImages:   recentImages,
	}, nil
}

func latest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	default:
		return a
	}
}
