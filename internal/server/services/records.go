package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/aiexplorer/internal/common"
	"github.com/dmitrijs2005/aiexplorer/internal/logging"
	"github.com/dmitrijs2005/aiexplorer/internal/server/config"
	"github.com/dmitrijs2005/aiexplorer/internal/server/models"
	"github.com/dmitrijs2005/aiexplorer/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Pagination selects a page of history. A zero Limit means the default.
type Pagination struct {
	Limit  int
	Offset int
}

// History is one page of a caller's records of a single kind.
type History struct {
	Kind     models.RecordKind     `json:"kind"`
	Limit    int                   `json:"limit"`
	Offset   int                   `json:"offset"`
	Searches []models.SearchRecord `json:"searches,omitempty"`
	Images   []models.ImageRecord  `json:"images,omitempty"`
}

// RecordService lists and deletes persisted search and image records.
type RecordService struct {
	persistence
	store ArtifactStore
}

func NewRecordService(db *sql.DB, m repomanager.RepositoryManager, store ArtifactStore, cfg *config.Config, log logging.Logger) *RecordService {
	return &RecordService{
		persistence: persistence{
			db:             db,
			repomanager:    m,
			acquireTimeout: cfg.DBAcquireTimeout,
			log:            log.With("module", "records"),
		},
		store: store,
	}
}

func normalizePagination(p Pagination) (Pagination, error) {
	if p.Limit == 0 {
		p.Limit = DefaultHistoryLimit
	}
	if p.Limit < 1 || p.Limit > MaxHistoryLimit {
		return p, validationError("limit must be between 1 and %d", MaxHistoryLimit)
	}
	if p.Offset < 0 {
		return p, validationError("offset must not be negative")
	}
	return p, nil
}

// ListHistory returns the caller's own records, newest first.
func (s *RecordService) ListHistory(ctx context.Context, caller Caller, kind models.RecordKind, page Pagination) (*History, error) {
	page, err := normalizePagination(page)
	if err != nil {
		return nil, err
	}

	dctx, cancel := s.bounded(ctx)
	defer cancel()

	h := &History{Kind: kind, Limit: page.Limit, Offset: page.Offset}

	switch kind {
	case models.KindSearch:
		recs, err := s.repomanager.Searches(s.db).ListByOwner(dctx, caller.UserID, page.Limit, page.Offset)
		if err != nil {
			return nil, s.internal(ctx, "list searches", err)
		}
		h.Searches = recs
	case models.KindImage:
		recs, err := s.repomanager.Images(s.db).ListByOwner(dctx, caller.UserID, page.Limit, page.Offset)
		if err != nil {
			return nil, s.internal(ctx, "list images", err)
		}
		resolveArtifacts(ctx, s.store, s.log, recs)
		h.Images = recs
	default:
		return nil, validationError("unknown record kind %q", kind)
	}

	return h, nil
}

// DeleteRecord removes a record owned by the caller, or any record when the
// caller is an admin. Someone else's record is reported as not found.
func (s *RecordService) DeleteRecord(ctx context.Context, caller Caller, kind models.RecordKind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrorNotFound
	}

	dctx, cancel := s.bounded(ctx)
	defer cancel()

	var err error
	switch kind {
	case models.KindSearch:
		err = s.repomanager.Searches(s.db).Delete(dctx, id, caller.UserID, caller.IsAdmin())
	case models.KindImage:
		err = s.repomanager.Images(s.db).Delete(dctx, id, caller.UserID, caller.IsAdmin())
	default:
		return validationError("unknown record kind %q", kind)
	}
	if err != nil {
		return s.passThrough(ctx, "delete record", err)
	}

	s.log.Info(ctx, "record deleted", "kind", kind, "record_id", id, "user_id", caller.UserID)
	return nil
}
