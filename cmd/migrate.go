package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/cmlre/marine-platform/db"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run db migration files under db/migrations directory",
	}
	migrateRollback bool
	migrateDir      string
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
	migrateCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "", "sql migrations directory (defaults to the embedded migrations)")
}

func runMigration(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sqlDB, err := goose.OpenDBWithDriver(sqlDriverName(cfg.Database.Driver), cfg.Database.GetDSN())
	if err != nil {
		return fmt.Errorf("goose: failed to open DB: %w", err)
	}
	defer sqlDB.Close()

	return migrate(ctx, sqlDB, cfg.Database.Driver, migrateDir, migrateRollback)
}

// migrate applies every pending migration, or rolls back the latest one. An
// empty dir selects the migrations embedded in the binary.
func migrate(ctx context.Context, sqlDB *sql.DB, driver, dir string, rollback bool) error {
	if err := goose.SetDialect(sqlDriverName(driver)); err != nil {
		return fmt.Errorf("goose: %w", err)
	}
	goose.SetTableName("schema_migrations")

	if dir == "" {
		goose.SetBaseFS(db.Migrations)
		dir = db.MigrationsDir
	} else {
		goose.SetBaseFS(os.DirFS(dir))
		dir = "."
	}

	if rollback {
		if err := goose.DownContext(ctx, sqlDB, dir); err != nil {
			return fmt.Errorf("goose down: %w", err)
		}
		return nil
	}

	if err := goose.UpContext(ctx, sqlDB, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
