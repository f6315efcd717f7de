//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tidecraft/tides-server/internal/model"
	repo "github.com/tidecraft/tides-server/internal/repository/postgres"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "tides_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/tides_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestRepositories_CRUD(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	now := time.Now().UTC()

	t.Run("user_repository", func(t *testing.T) {
		ur := repo.NewUserRepository(conn)
		u := model.User{
			ID:        uuid.New(),
			Email:     "user@example.com",
			CreatedAt: now,
			UpdatedAt: now,
		}
		saved, err := ur.Create(ctx, u)
		require.NoError(t, err)
		require.Equal(t, u.ID, saved.ID)

		byEmail, err := ur.GetByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.Equal(t, u.ID, byEmail.ID)

		byID, err := ur.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.Email, byID.Email)

		_, err = ur.GetByEmail(ctx, "absent@example.com")
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("credential_repository", func(t *testing.T) {
		ur := repo.NewUserRepository(conn)
		cr := repo.NewCredentialRepository(conn)

		owner, err := ur.Create(ctx, model.User{ID: uuid.New(), Email: "keys@example.com", CreatedAt: now, UpdatedAt: now})
		require.NoError(t, err)

		fingerprint := make([]byte, 32)
		fingerprint[0] = 0xAB
		c := model.Credential{
			ID:          uuid.New(),
			UserID:      owner.ID,
			Label:       "laptop",
			Fingerprint: fingerprint,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		saved, err := cr.Create(ctx, c)
		require.NoError(t, err)
		require.Equal(t, c.ID, saved.ID)
		require.Nil(t, saved.LastUsedAt)

		byFP, err := cr.GetByFingerprint(ctx, fingerprint)
		require.NoError(t, err)
		require.Equal(t, owner.ID, byFP.UserID)
		require.Equal(t, "laptop", byFP.Label)

		_, err = cr.GetByFingerprint(ctx, make([]byte, 32))
		require.ErrorIs(t, err, model.ErrNotFound)

		usedAt := now.Add(time.Minute)
		require.NoError(t, cr.TouchLastUsed(ctx, c.ID, usedAt))
		touched, err := cr.GetByFingerprint(ctx, fingerprint)
		require.NoError(t, err)
		require.NotNil(t, touched.LastUsedAt)
		require.WithinDuration(t, usedAt, *touched.LastUsedAt, time.Second)

		require.ErrorIs(t, cr.TouchLastUsed(ctx, uuid.New(), usedAt), model.ErrNotFound)
	})

	t.Run("tide_repository", func(t *testing.T) {
		ur := repo.NewUserRepository(conn)
		tr := repo.NewTideRepository(conn)

		owner, err := ur.Create(ctx, model.User{ID: uuid.New(), Email: "tides@example.com", CreatedAt: now, UpdatedAt: now})
		require.NoError(t, err)

		mkSummary := func(id, category string, status model.TideStatus) model.TideSummary {
			return model.TideSummary{
				ID:          id,
				OwnerID:     owner.ID,
				Name:        "n-" + id,
				Category:    category,
				Status:      status,
				DocumentKey: fmt.Sprintf("user-%s/tide-%s.json", owner.ID, id),
				CreatedAt:   now,
				UpdatedAt:   now,
			}
		}

		require.NoError(t, tr.Create(ctx, mkSummary("tide_a", "daily", model.TideStatusActive)))
		require.NoError(t, tr.Create(ctx, mkSummary("tide_b", "daily", model.TideStatusPaused)))
		require.NoError(t, tr.Create(ctx, mkSummary("tide_c", "weekly", model.TideStatusActive)))

		got, err := tr.GetByID(ctx, "tide_a")
		require.NoError(t, err)
		require.Equal(t, owner.ID, got.OwnerID)
		require.Equal(t, model.TideStatusActive, got.Status)

		_, err = tr.GetByID(ctx, "tide_absent")
		require.ErrorIs(t, err, model.ErrNotFound)

		all, err := tr.GetByOwner(ctx, owner.ID, model.ListFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)

		daily, err := tr.GetByOwner(ctx, owner.ID, model.ListFilter{Category: "daily"})
		require.NoError(t, err)
		require.Len(t, daily, 2)

		active, err := tr.GetByOwner(ctx, owner.ID, model.ListFilter{ActiveOnly: true})
		require.NoError(t, err)
		require.Len(t, active, 2)

		none, err := tr.GetByOwner(ctx, uuid.New(), model.ListFilter{})
		require.NoError(t, err)
		require.Empty(t, none)

		activityAt := now.Add(time.Hour)
		updated := mkSummary("tide_a", "daily", model.TideStatusActive)
		updated.SessionCount = 3
		updated.LastActivityAt = &activityAt
		require.NoError(t, tr.Update(ctx, updated))

		got, err = tr.GetByID(ctx, "tide_a")
		require.NoError(t, err)
		require.Equal(t, 3, got.SessionCount)
		require.NotNil(t, got.LastActivityAt)

		require.ErrorIs(t, tr.Update(ctx, mkSummary("tide_absent", "", model.TideStatusActive)), model.ErrNotFound)

		scan, err := tr.All(ctx)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(scan), 3)
	})
}
