// Package searches provides PostgreSQL-backed persistence for search history.
package searches

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/aiexplorer/internal/common"
	"github.com/dmitrijs2005/aiexplorer/internal/dbx"
	"github.com/dmitrijs2005/aiexplorer/internal/server/models"
)

// PostgresRepository implements search record storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the record. Results are stored as a JSONB array in order.
func (r *PostgresRepository) Create(ctx context.Context, rec *models.SearchRecord) (*models.SearchRecord, error) {
	results := rec.Results
	if results == nil {
		results = []models.ResultItem{}
	}
	payload, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("marshal results: %w", err)
	}

	query := `
		INSERT INTO search_records (owner_id, query, max_results, results)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err = r.db.QueryRowContext(ctx, query, rec.OwnerID, rec.Query, rec.MaxResults, string(payload)).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	rec.Results = results
	return rec, nil
}

// ListByOwner returns a page of the owner's records ordered by created_at
// descending. Ties are broken by id so pages are stable.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]models.SearchRecord, error) {
	query := `
		SELECT id, owner_id, query, max_results, results, created_at
		FROM search_records
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.SearchRecord, 0)
	for rows.Next() {
		var (
			item models.SearchRecord
			raw  []byte
		)
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.Query, &item.MaxResults, &raw, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if err := json.Unmarshal(raw, &item.Results); err != nil {
			return nil, fmt.Errorf("decode results of %s: %w", item.ID, err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// Delete is a single conditional statement so the ownership check and the
// removal cannot interleave with another writer.
func (r *PostgresRepository) Delete(ctx context.Context, id, ownerID string, asAdmin bool) error {
	query := `
		DELETE FROM search_records
		WHERE id = $1 AND (owner_id = $2 OR $3)
	`
	res, err := r.db.ExecContext(ctx, query, id, ownerID, asAdmin)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) CountByOwner(ctx context.Context, ownerID string, since time.Time) (models.ActivityCounts, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE created_at >= $2), MAX(created_at)
		FROM search_records
		WHERE owner_id = $1
	`
	return scanCounts(r.db.QueryRowContext(ctx, query, ownerID, since))
}

func (r *PostgresRepository) CountAll(ctx context.Context, since time.Time) (models.ActivityCounts, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE created_at >= $1), MAX(created_at)
		FROM search_records
	`
	return scanCounts(r.db.QueryRowContext(ctx, query, since))
}

func scanCounts(row *sql.Row) (models.ActivityCounts, error) {
	var (
		c    models.ActivityCounts
		last sql.NullTime
	)
	if err := row.Scan(&c.Total, &c.Today, &last); err != nil {
		return models.ActivityCounts{}, fmt.Errorf("db error: %w", err)
	}
	if last.Valid {
		t := last.Time
		c.LastActivity = &t
	}
	return c, nil
}
