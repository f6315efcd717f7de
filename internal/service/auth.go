package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tidecraft/tides-server/internal/logger"
	"github.com/tidecraft/tides-server/internal/model"
)

// keyPrefix marks plaintext API keys so they are recognizable in configs
// and logs redaction rules. Only the SHA-256 fingerprint is ever stored.
const keyPrefix = "tide_sk_"

const touchTimeout = 3 * time.Second

// Auth validates presented API keys and provisions users and keys.
type Auth struct {
	userStore       model.UserStore
	credentialStore model.CredentialStore
	logger          *logger.Logger
}

func NewAuth(
	userStore model.UserStore,
	credentialStore model.CredentialStore,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		userStore:       userStore,
		credentialStore: credentialStore,
		logger:          logger,
	}
}

// ValidateKey resolves a presented API key to the identity owning it. The
// lookup compares the full SHA-256 fingerprint, never the key itself, so an
// unknown key costs the same as a near-miss. The last-used timestamp update
// is fire-and-forget: its failure never fails validation.
func (a *Auth) ValidateKey(ctx context.Context, presented string) (model.AuthContext, error) {
	if presented == "" {
		return model.AuthContext{}, model.ErrInvalidCredential
	}

	credential, err := a.credentialStore.GetByFingerprint(ctx, Fingerprint(presented))
	if errors.Is(err, model.ErrNotFound) {
		return model.AuthContext{}, model.ErrInvalidCredential
	}
	if err != nil {
		return model.AuthContext{}, fmt.Errorf("failed to get credential: %w: %w", model.ErrStorageUnavailable, err)
	}

	go a.touchLastUsed(ctx, credential)

	return model.AuthContext{
		UserID:   credential.UserID,
		KeyLabel: credential.Label,
	}, nil
}

func (a *Auth) touchLastUsed(ctx context.Context, credential model.Credential) {
	touchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), touchTimeout)
	defer cancel()

	if err := a.credentialStore.TouchLastUsed(touchCtx, credential.ID, time.Now().UTC()); err != nil {
		a.logger.Warn("Auth service: failed to update credential last-used timestamp",
			"credential_id", credential.ID,
			"error", err.Error())
	}
}

// ProvisionUser creates a new user account. Provisioning happens out-of-band
// relative to request handling.
func (a *Auth) ProvisionUser(ctx context.Context, email string) (model.User, error) {
	if email == "" {
		return model.User{}, fmt.Errorf("email is required")
	}

	existing, err := a.userStore.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}
	if existing.ID != uuid.Nil {
		return model.User{}, fmt.Errorf("email %s is already taken", email)
	}

	now := time.Now().UTC()
	user := model.User{
		ID:        uuid.New(),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	user, err = a.userStore.Create(ctx, user)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	a.logger.Info("Auth service: user provisioned",
		"user_id", user.ID,
		"email", user.Email)

	return user, nil
}

// ProvisionKey generates a new API key for a user and stores its
// fingerprint. The plaintext key is returned exactly once and never stored.
func (a *Auth) ProvisionKey(ctx context.Context, userID uuid.UUID, label string) (string, model.Credential, error) {
	if label == "" {
		return "", model.Credential{}, fmt.Errorf("label is required")
	}

	_, err := a.userStore.GetByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return "", model.Credential{}, model.ErrNotFound
	}
	if err != nil {
		return "", model.Credential{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	plaintext, err := generateKey()
	if err != nil {
		return "", model.Credential{}, fmt.Errorf("failed to generate key: %w", err)
	}

	now := time.Now().UTC()
	credential := model.Credential{
		ID:          uuid.New(),
		UserID:      userID,
		Label:       label,
		Fingerprint: Fingerprint(plaintext),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	credential, err = a.credentialStore.Create(ctx, credential)
	if err != nil {
		return "", model.Credential{}, fmt.Errorf("failed to create credential: %w", err)
	}

	a.logger.Info("Auth service: API key provisioned",
		"user_id", userID,
		"label", label)

	return plaintext, credential, nil
}

// Fingerprint computes the stored lookup hash for an API key.
func Fingerprint(key string) []byte {
	sum := sha256.Sum256([]byte(key))
	return sum[:]
}

func generateKey() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return keyPrefix + hex.EncodeToString(raw), nil
}
