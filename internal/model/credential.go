package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CredentialStore defines persistence operations for API key credentials.
// Keys are stored as a SHA-256 fingerprint, never as plaintext.
type CredentialStore interface {
	Create(ctx context.Context, credential Credential) (Credential, error)
	GetByFingerprint(ctx context.Context, fingerprint []byte) (Credential, error)
	TouchLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error
}

// Credential represents one API key belonging to one user.
type Credential struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Label       string
	Fingerprint []byte
	LastUsedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
