package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tidecraft/tides-server/internal/model"
)

var _ model.CredentialStore = (*CredentialRepository)(nil)

type CredentialRepository struct {
	db *Connection
}

func NewCredentialRepository(db *Connection) *CredentialRepository {
	return &CredentialRepository{
		db: db,
	}
}

func (r *CredentialRepository) Create(ctx context.Context, credential model.Credential) (model.Credential, error) {
	query := `INSERT INTO credentials (id, user_id, label, fingerprint, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id, user_id, label, fingerprint, last_used_at, created_at, updated_at`

	var saved model.Credential
	err := r.db.QueryRow(ctx, query,
		credential.ID, credential.UserID, credential.Label, credential.Fingerprint,
		credential.CreatedAt, credential.UpdatedAt,
	).Scan(
		&saved.ID, &saved.UserID, &saved.Label, &saved.Fingerprint,
		&saved.LastUsedAt, &saved.CreatedAt, &saved.UpdatedAt,
	)
	if err != nil {
		return model.Credential{}, fmt.Errorf("failed to create credential: %w", err)
	}

	return saved, nil
}

// GetByFingerprint looks a credential up by the full SHA-256 fingerprint of
// the presented key. The unique index comparison is a whole-value equality
// check, so lookup timing does not depend on how much of the key matches.
func (r *CredentialRepository) GetByFingerprint(ctx context.Context, fingerprint []byte) (model.Credential, error) {
	var credential model.Credential
	query := `SELECT id, user_id, label, fingerprint, last_used_at, created_at, updated_at
			  FROM credentials WHERE fingerprint = $1`

	err := r.db.QueryRow(ctx, query, fingerprint).Scan(
		&credential.ID, &credential.UserID, &credential.Label, &credential.Fingerprint,
		&credential.LastUsedAt, &credential.CreatedAt, &credential.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Credential{}, model.ErrNotFound
		}
		return model.Credential{}, fmt.Errorf("failed to get credential by fingerprint: %w", err)
	}

	return credential, nil
}

func (r *CredentialRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	const query = `UPDATE credentials SET last_used_at = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, id, usedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
