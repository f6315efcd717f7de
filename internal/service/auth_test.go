package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tidecraft/tides-server/internal/model"
	"github.com/tidecraft/tides-server/internal/testutil"
)

// MockUserStore mocks the UserStore interface
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) Create(ctx context.Context, user model.User) (model.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(model.User), args.Error(1)
}

// MockCredentialStore mocks the CredentialStore interface
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) Create(ctx context.Context, credential model.Credential) (model.Credential, error) {
	args := m.Called(ctx, credential)
	return args.Get(0).(model.Credential), args.Error(1)
}

func (m *MockCredentialStore) GetByFingerprint(ctx context.Context, fingerprint []byte) (model.Credential, error) {
	args := m.Called(ctx, fingerprint)
	return args.Get(0).(model.Credential), args.Error(1)
}

func (m *MockCredentialStore) TouchLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	args := m.Called(ctx, id, usedAt)
	return args.Error(0)
}

func TestAuthService_ValidateKey(t *testing.T) {
	userID := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	credentialID := uuid.MustParse("550e8400-e29b-41d4-a716-446655440001")
	key := "tide_sk_0011223344556677"

	t.Run("valid key resolves to owner", func(t *testing.T) {
		credStore := &MockCredentialStore{}
		touched := make(chan struct{}, 1)

		credStore.On("GetByFingerprint", mock.Anything, Fingerprint(key)).Return(model.Credential{
			ID:     credentialID,
			UserID: userID,
			Label:  "laptop",
		}, nil)
		credStore.On("TouchLastUsed", mock.Anything, credentialID, mock.Anything).
			Run(func(_ mock.Arguments) { touched <- struct{}{} }).
			Return(nil)

		auth := NewAuth(&MockUserStore{}, credStore, testutil.MakeNoopLogger())

		got, err := auth.ValidateKey(context.Background(), key)
		require.NoError(t, err)
		assert.Equal(t, userID, got.UserID)
		assert.Equal(t, "laptop", got.KeyLabel)

		select {
		case <-touched:
		case <-time.After(time.Second):
			t.Fatal("last-used timestamp was never touched")
		}
		credStore.AssertExpectations(t)
	})

	t.Run("touch failure does not fail validation", func(t *testing.T) {
		credStore := &MockCredentialStore{}
		touched := make(chan struct{}, 1)

		credStore.On("GetByFingerprint", mock.Anything, mock.Anything).Return(model.Credential{
			ID:     credentialID,
			UserID: userID,
			Label:  "laptop",
		}, nil)
		credStore.On("TouchLastUsed", mock.Anything, credentialID, mock.Anything).
			Run(func(_ mock.Arguments) { touched <- struct{}{} }).
			Return(errors.New("deadlock detected"))

		auth := NewAuth(&MockUserStore{}, credStore, testutil.MakeNoopLogger())

		got, err := auth.ValidateKey(context.Background(), key)
		require.NoError(t, err)
		assert.True(t, got.Valid())
		<-touched
	})

	t.Run("unknown key", func(t *testing.T) {
		credStore := &MockCredentialStore{}
		credStore.On("GetByFingerprint", mock.Anything, mock.Anything).Return(model.Credential{}, model.ErrNotFound)

		auth := NewAuth(&MockUserStore{}, credStore, testutil.MakeNoopLogger())

		got, err := auth.ValidateKey(context.Background(), "not-a-real-key")
		assert.ErrorIs(t, err, model.ErrInvalidCredential)
		assert.False(t, got.Valid())
	})

	t.Run("empty key skips the store", func(t *testing.T) {
		credStore := &MockCredentialStore{}
		auth := NewAuth(&MockUserStore{}, credStore, testutil.MakeNoopLogger())

		_, err := auth.ValidateKey(context.Background(), "")
		assert.ErrorIs(t, err, model.ErrInvalidCredential)
		credStore.AssertNotCalled(t, "GetByFingerprint", mock.Anything, mock.Anything)
	})

	t.Run("store failure is retryable, not invalid", func(t *testing.T) {
		credStore := &MockCredentialStore{}
		credStore.On("GetByFingerprint", mock.Anything, mock.Anything).Return(model.Credential{}, errors.New("connection refused"))

		auth := NewAuth(&MockUserStore{}, credStore, testutil.MakeNoopLogger())

		_, err := auth.ValidateKey(context.Background(), key)
		assert.ErrorIs(t, err, model.ErrStorageUnavailable)
		assert.NotErrorIs(t, err, model.ErrInvalidCredential)
	})
}

func TestAuthService_ProvisionUser(t *testing.T) {
	t.Run("creates user", func(t *testing.T) {
		userStore := &MockUserStore{}
		userStore.On("GetByEmail", mock.Anything, "drift@example.com").Return(model.User{}, model.ErrNotFound)
		userStore.On("Create", mock.Anything, mock.MatchedBy(func(u model.User) bool {
			return u.Email == "drift@example.com" && u.ID != uuid.Nil
		})).Return(model.User{ID: uuid.New(), Email: "drift@example.com"}, nil)

		auth := NewAuth(userStore, &MockCredentialStore{}, testutil.MakeNoopLogger())

		user, err := auth.ProvisionUser(context.Background(), "drift@example.com")
		require.NoError(t, err)
		assert.Equal(t, "drift@example.com", user.Email)
		userStore.AssertExpectations(t)
	})

	t.Run("email taken", func(t *testing.T) {
		userStore := &MockUserStore{}
		userStore.On("GetByEmail", mock.Anything, "drift@example.com").Return(model.User{ID: uuid.New()}, nil)

		auth := NewAuth(userStore, &MockCredentialStore{}, testutil.MakeNoopLogger())

		_, err := auth.ProvisionUser(context.Background(), "drift@example.com")
		assert.Error(t, err)
		userStore.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestAuthService_ProvisionKey(t *testing.T) {
	userID := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")

	t.Run("issues key and stores only the fingerprint", func(t *testing.T) {
		userStore := &MockUserStore{}
		userStore.On("GetByID", mock.Anything, userID).Return(model.User{ID: userID}, nil)

		var stored model.Credential
		credStore := &MockCredentialStore{}
		credStore.On("Create", mock.Anything, mock.AnythingOfType("model.Credential")).
			Run(func(args mock.Arguments) { stored = args.Get(1).(model.Credential) }).
			Return(model.Credential{ID: uuid.New(), UserID: userID, Label: "laptop"}, nil)

		auth := NewAuth(userStore, credStore, testutil.MakeNoopLogger())

		plaintext, credential, err := auth.ProvisionKey(context.Background(), userID, "laptop")
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(plaintext, "tide_sk_"))
		assert.Equal(t, "laptop", credential.Label)
		assert.Equal(t, Fingerprint(plaintext), stored.Fingerprint)
	})

	t.Run("unknown user", func(t *testing.T) {
		userStore := &MockUserStore{}
		userStore.On("GetByID", mock.Anything, userID).Return(model.User{}, model.ErrNotFound)

		auth := NewAuth(userStore, &MockCredentialStore{}, testutil.MakeNoopLogger())

		_, _, err := auth.ProvisionKey(context.Background(), userID, "laptop")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("label required", func(t *testing.T) {
		auth := NewAuth(&MockUserStore{}, &MockCredentialStore{}, testutil.MakeNoopLogger())

		_, _, err := auth.ProvisionKey(context.Background(), userID, "")
		assert.Error(t, err)
	})
}

func TestFingerprint(t *testing.T) {
	sum := sha256.Sum256([]byte("tide_sk_abc"))
	assert.Equal(t, sum[:], Fingerprint("tide_sk_abc"))
	assert.NotEqual(t, Fingerprint("tide_sk_abc"), Fingerprint("tide_sk_abd"))
}
