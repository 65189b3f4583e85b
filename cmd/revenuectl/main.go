// Command revenuectl runs maintenance tasks against the revenuehub database.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"revenuehub/internal/geo"
	geoservice "revenuehub/internal/geo/service"
	geostore "revenuehub/internal/geo/store"
	"revenuehub/internal/identity/revocation"
	identityservice "revenuehub/internal/identity/service"
	identitystore "revenuehub/internal/identity/store"
	"revenuehub/internal/identity/token"
	"revenuehub/internal/platform/config"
	"revenuehub/internal/platform/logger"
	"revenuehub/internal/platform/postgres"
)

const commandTimeout = 2 * time.Minute

var (
	cfg *config.Config
	log *slog.Logger

	seedDistrict string
	seedUsers    bool
)

var rootCmd = &cobra.Command{
	Use:   "revenuectl",
	Short: "Maintenance commands for revenuehub",
	Long: `revenuectl prepares a revenuehub database.

Available commands:
  migrate - apply pending schema migrations
  seed    - load the district catalog and the demo accounts`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		log = logger.New(cfg.Log)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runMigrate,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed districts and demo users",
	Long: `Seed creates a district for every catalog entry and, unless
--users=false, one demo account per role. Every demo account uses the
password Test1234!. Existing rows are left untouched.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedDistrict, "district", "Accra Metropolitan", "district assigned to district-bound demo accounts")
	seedCmd.Flags().BoolVar(&seedUsers, "users", true, "create the demo accounts")
	rootCmd.AddCommand(migrateCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDB(ctx context.Context) (*sql.DB, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	return postgres.Open(ctx, cfg.Database)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := postgres.Migrate(ctx, db, log)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		return nil
	}
	for _, name := range applied {
		fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
	}
	return nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := postgres.Migrate(ctx, db, log); err != nil {
		return err
	}

	catalog := geo.NewGhanaCatalog()
	districts := geostore.NewPostgres(db)
	created, err := geostore.SeedFromCatalog(ctx, districts, catalog, time.Now())
	if err != nil {
		return fmt.Errorf("seed districts: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "districts created: %d\n", created)

	if !seedUsers {
		return nil
	}
	districtService := geoservice.New(districts, catalog, geoservice.WithLogger(log))
	if err := districtService.SyncCatalog(ctx); err != nil {
		return err
	}
	if _, ok := catalog.RegionOf(seedDistrict); !ok {
		return fmt.Errorf("unknown district %q", seedDistrict)
	}
	users := identityservice.New(
		identitystore.NewPostgres(db),
		token.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL),
		revocation.NewPostgresTRL(db),
		catalog,
		identityservice.WithLogger(log),
		identityservice.WithDistrictChecker(districtService),
	)
	accounts, err := users.SeedDemoUsers(ctx, seedDistrict)
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "demo accounts created: %d (password %s)\n", accounts, identityservice.DemoPassword)
	return nil
}
