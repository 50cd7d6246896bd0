// Package images provides PostgreSQL-backed persistence for image
// generation history. The artifact is stored in exactly one of three
// columns: image_url, image_data (data URI) or storage_key (archived blob).
package images

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/aiexplorer/internal/common"
	"github.com/dmitrijs2005/aiexplorer/internal/dbx"
	"github.com/dmitrijs2005/aiexplorer/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.ImageRecord) (*models.ImageRecord, error) {
	if !rec.Artifact.Valid() {
		return nil, fmt.Errorf("%w: image artifact must have exactly one representation", common.ErrorValidation)
	}

	query := `
		INSERT INTO image_records (owner_id, prompt, width, height, steps, image_url, image_data, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	p := rec.Parameters
	a := rec.Artifact
	err := r.db.QueryRowContext(ctx, query,
		rec.OwnerID, rec.Prompt, p.Width, p.Height, p.Steps,
		nullString(a.URL), nullString(a.Data), nullString(a.StorageKey),
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]models.ImageRecord, error) {
	query := `
		SELECT id, owner_id, prompt, width, height, steps, image_url, image_data, storage_key, created_at
		FROM image_records
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.ImageRecord, 0)
	for rows.Next() {
		var (
			item              models.ImageRecord
			url, data, stored sql.NullString
		)
		if err := rows.Scan(
			&item.ID, &item.OwnerID, &item.Prompt,
			&item.Parameters.Width, &item.Parameters.Height, &item.Parameters.Steps,
			&url, &data, &stored, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		item.Artifact = models.Artifact{URL: url.String, Data: data.String, StorageKey: stored.String}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id, ownerID string, asAdmin bool) error {
	query := `
		DELETE FROM image_records
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
		FROM image_records
		WHERE owner_id = $1
	`
	return scanCounts(r.db.QueryRowContext(ctx, query, ownerID, since))
}

func (r *PostgresRepository) CountAll(ctx context.Context, since time.Time) (models.ActivityCounts, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE created_at >= $1), MAX(created_at)
		FROM image_records
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

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
