package services

import (
	"context"
	"database/sql"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/aiexplorer/internal/logging"
	"github.com/dmitrijs2005/aiexplorer/internal/server/config"
	"github.com/dmitrijs2005/aiexplorer/internal/server/models"
	"github.com/dmitrijs2005/aiexplorer/internal/server/repositories/repomanager"
)

const (
	maxQueryLen      = 500
	minSearchResults = 1
	maxSearchResults = 50
)

// SearchProvider is the external search capability.
type SearchProvider interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.ResultItem, error)
}

// SearchResult is the outcome of PerformSearch. ID is empty unless saved.
type SearchResult struct {
	models.SearchRecord
	Saved bool `json:"saved"`
}

type SearchService struct {
	persistence
	provider SearchProvider
	timeout  time.Duration
	now      func() time.Time
}

func NewSearchService(db *sql.DB, m repomanager.RepositoryManager, p SearchProvider, cfg *config.Config, log logging.Logger) *SearchService {
	return &SearchService{
		persistence: persistence{
			db:             db,
			repomanager:    m,
			acquireTimeout: cfg.DBAcquireTimeout,
			log:            log.With("module", "search"),
		},
		provider: p,
		timeout:  cfg.SearchTimeout,
		now:      time.Now,
	}
}

func validateSearch(query string, maxResults int) error {
	if strings.TrimSpace(query) == "" {
		return validationError("query must not be empty")
	}
	if utf8.RuneCountInString(query) > maxQueryLen {
		return validationError("query must be at most %d characters", maxQueryLen)
	}
	if maxResults < minSearchResults || maxResults > maxSearchResults {
		return validationError("max_results must be between %d and %d", minSearchResults, maxSearchResults)
	}
	return nil
}

// PerformSearch validates, calls the provider under the search deadline and
// optionally persists the outcome. A failed save is reported as an internal
// error; the provider is not called again.
func (s *SearchService) PerformSearch(ctx context.Context, caller Caller, query string, maxResults int, save bool) (*SearchResult, error) {
	if err := validateSearch(query, maxResults); err != nil {
		return nil, err
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	items, err := s.provider.Search(pctx, query, maxResults)
	if err != nil {
		s.log.Warn(ctx, "search provider failed", "user_id", caller.UserID, "error", err)
		return nil, err
	}

	rec := models.SearchRecord{
		OwnerID:    caller.UserID,
		Query:      query,
		MaxResults: maxResults,
		Results:    items,
		CreatedAt:  s.now().UTC(),
	}

	if !save {
		return &SearchResult{SearchRecord: rec}, nil
	}

	dctx, dcancel := s.bounded(ctx)
	defer dcancel()

	saved, err := s.repomanager.Searches(s.db).Create(dctx, &rec)
	if err != nil {
		return nil, s.internal(ctx, "save search", err)
	}

	s.log.Info(ctx, "search saved", "user_id", caller.UserID, "record_id", saved.ID, "results", len(saved.Results))
	return &SearchResult{SearchRecord: *saved, Saved: true}, nil
}
