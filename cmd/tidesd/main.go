package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"

	"github.com/tidecraft/tides-server/database"
	"github.com/tidecraft/tides-server/internal/config"
	"github.com/tidecraft/tides-server/internal/logger"
	"github.com/tidecraft/tides-server/internal/repository/postgres"
	"github.com/tidecraft/tides-server/internal/service"
	storage "github.com/tidecraft/tides-server/internal/storage/minio"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	l := logger.New(cfg.LogLevel)

	root := &cobra.Command{
		Use:           "tidesd",
		Short:         "Tide storage core daemon and provisioning tool",
		Version:       fmt.Sprintf("%s (%s, %s)", buildVersion, buildCommit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		runCmd(cfg, l),
		migrateCmd(cfg),
		reconcileCmd(cfg, l),
		provisionUserCmd(cfg, l),
		provisionKeyCmd(cfg, l),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		l.Fatal("command failed", "error", err)
	}
}

// runCmd starts the reconciler daemon: a periodic pass verifying every
// index record resolves to a document, repairing dual-write gaps.
func runCmd(cfg *config.Config, l *logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the periodic index/document reconciler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, docs, err := connectStores(ctx, cfg, l)
			if err != nil {
				return err
			}
			defer db.Close()

			tideRepo := postgres.NewTideRepository(db)
			reconciler := service.NewReconciler(tideRepo, docs, l, cfg.Reconcile.Repair)

			l.Info("Starting reconciler",
				"interval", cfg.Reconcile.Interval.String(),
				"repair", cfg.Reconcile.Repair)

			reconciler.Run(ctx, cfg.Reconcile.Interval)

			l.Info("received interruption signal, shutting down")
			return nil
		},
	}
}

func migrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return database.Migrate(cmd.Context(), cfg.Database.DSN)
		},
	}
}

func reconcileCmd(cfg *config.Config, l *logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run a single reconciliation pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, docs, err := connectStores(ctx, cfg, l)
			if err != nil {
				return err
			}
			defer db.Close()

			tideRepo := postgres.NewTideRepository(db)
			reconciler := service.NewReconciler(tideRepo, docs, l, cfg.Reconcile.Repair)

			result, err := reconciler.RunOnce(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("checked=%d missing=%d repaired=%d corrupted=%d\n",
				result.Checked, result.Missing, result.Repaired, result.Corrupted)
			return nil
		},
	}
}

func provisionUserCmd(cfg *config.Config, l *logger.Logger) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "provision-user",
		Short: "Create a new user account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer db.Close()

			auth := service.NewAuth(postgres.NewUserRepository(db), postgres.NewCredentialRepository(db), l)

			user, err := auth.ProvisionUser(ctx, email)
			if err != nil {
				return err
			}

			fmt.Printf("user_id=%s email=%s\n", user.ID, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address of the new user")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func provisionKeyCmd(cfg *config.Config, l *logger.Logger) *cobra.Command {
	var (
		userIDStr string
		label     string
	)

	cmd := &cobra.Command{
		Use:   "provision-key",
		Short: "Issue a new API key for a user",
		Long:  "Issues a new API key and prints its plaintext exactly once. Only the key's fingerprint is stored.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			userID, err := uuid.Parse(userIDStr)
			if err != nil {
				return fmt.Errorf("invalid user id: %w", err)
			}

			db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer db.Close()

			auth := service.NewAuth(postgres.NewUserRepository(db), postgres.NewCredentialRepository(db), l)

			plaintext, credential, err := auth.ProvisionKey(ctx, userID, label)
			if err != nil {
				return err
			}

			fmt.Printf("api_key=%s label=%s credential_id=%s\n", plaintext, credential.Label, credential.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&userIDStr, "user", "", "id of the owning user")
	cmd.Flags().StringVar(&label, "label", "", "human-readable label for the key")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("label")

	return cmd
}

func connectStores(ctx context.Context, cfg *config.Config, l *logger.Logger) (*postgres.Connection, *storage.Client, error) {
	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	docs, err := storage.NewClient(ctx, minioClient, cfg.Storage.Bucket)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to initialize document store: %w", err)
	}

	return db, docs, nil
}
