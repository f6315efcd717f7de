package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tidecraft/tides-server/internal/model"
)

var _ model.TideIndex = (*TideRepository)(nil)

// TideRepository persists tide summary records, the metadata index side of
// the hybrid store.
type TideRepository struct {
	db *Connection
}

func NewTideRepository(db *Connection) *TideRepository {
	return &TideRepository{
		db: db,
	}
}

func (r *TideRepository) Create(ctx context.Context, summary model.TideSummary) error {
	query := `INSERT INTO tides (id, owner_id, name, category, status, document_key, session_count, last_activity_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		summary.ID, summary.OwnerID, summary.Name, summary.Category, string(summary.Status),
		summary.DocumentKey, summary.SessionCount, summary.LastActivityAt,
		summary.CreatedAt, summary.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tide summary: %w", err)
	}

	return nil
}

func (r *TideRepository) Update(ctx context.Context, summary model.TideSummary) error {
	query := `UPDATE tides
			  SET name = $2, category = $3, status = $4, session_count = $5, last_activity_at = $6, updated_at = NOW()
			  WHERE id = $1`

	cmd, err := r.db.Exec(ctx, query,
		summary.ID, summary.Name, summary.Category, string(summary.Status),
		summary.SessionCount, summary.LastActivityAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update tide summary: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (r *TideRepository) GetByID(ctx context.Context, id string) (model.TideSummary, error) {
	query := `SELECT id, owner_id, name, category, status, document_key, session_count, last_activity_at, created_at, updated_at
			  FROM tides WHERE id = $1`

	var summary model.TideSummary
	err := r.db.QueryRow(ctx, query, id).Scan(
		&summary.ID, &summary.OwnerID, &summary.Name, &summary.Category, &summary.Status,
		&summary.DocumentKey, &summary.SessionCount, &summary.LastActivityAt,
		&summary.CreatedAt, &summary.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TideSummary{}, model.ErrNotFound
		}
		return model.TideSummary{}, err
	}

	return summary, nil
}

// All returns every tide summary across all owners. Used only by the
// reconciler; list views go through GetByOwner.
func (r *TideRepository) All(ctx context.Context) ([]model.TideSummary, error) {
	query := `SELECT id, owner_id, name, category, status, document_key, session_count, last_activity_at, created_at, updated_at
			  FROM tides
			  ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []model.TideSummary
	for rows.Next() {
		var summary model.TideSummary
		err := rows.Scan(
			&summary.ID, &summary.OwnerID, &summary.Name, &summary.Category, &summary.Status,
			&summary.DocumentKey, &summary.SessionCount, &summary.LastActivityAt,
			&summary.CreatedAt, &summary.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}

func (r *TideRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID, filter model.ListFilter) ([]model.TideSummary, error) {
	query := `SELECT id, owner_id, name, category, status, document_key, session_count, last_activity_at, created_at, updated_at
			  FROM tides
			  WHERE owner_id = $1
			    AND ($2 = '' OR category = $2)
			    AND (NOT $3 OR status = 'active')
			  ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, ownerID, filter.Category, filter.ActiveOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []model.TideSummary
	for rows.Next() {
		var summary model.TideSummary
		err := rows.Scan(
			&summary.ID, &summary.OwnerID, &summary.Name, &summary.Category, &summary.Status,
			&summary.DocumentKey, &summary.SessionCount, &summary.LastActivityAt,
			&summary.CreatedAt, &summary.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}
