package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pyquiz-service/internal/config"
	"pyquiz-service/internal/infra/memory"
	"pyquiz-service/internal/infra/postgres"
	"pyquiz-service/internal/logger"
)

// NewSeedCmd loads the bundled catalog into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the bundled question catalog into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath)
		},
	}
}

func runSeed(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
		return err
	}

	catalog, err := memory.DefaultCatalog()
	if err != nil {
		return err
	}

	db := postgres.OpenDB(cfg.Postgres.URL)
	defer db.Close()

	n, err := postgres.SeedCategories(ctx, db, catalog.All())
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	log.Info("catalog seeded", zap.Int("categories", n))
	return nil
}
