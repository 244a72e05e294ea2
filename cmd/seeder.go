package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cmlre/marine-platform/internal"
	"github.com/cmlre/marine-platform/internal/auth"
	"github.com/cmlre/marine-platform/internal/user"
	userPostgres "github.com/cmlre/marine-platform/internal/user/postgres"
	"github.com/cmlre/marine-platform/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

const demoPassword = "password"

// demoAccounts mirror the email rule of the mock authenticator, so switching
// auth.mode between mock and accounts keeps the same logins working.
var demoAccounts = []user.RegisterDTO{
	{Email: "user@cmlre.gov.in", Name: "Demo User", Role: auth.RoleUser},
	{Email: "researcher@cmlre.gov.in", Name: "Demo Researcher", Role: auth.RoleResearcher},
	{Email: "admin@cmlre.gov.in", Name: "Demo Administrator", Role: auth.RoleAdmin},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with demo accounts for development and testing purposes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		lg := logger.Configure(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format, os.Stderr)

		_, db, err := openDatabase(cfg.Database, lg)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		defer db.Close()

		if clearData {
			if err := clearDemoAccounts(ctx, db, cmd.OutOrStdout()); err != nil {
				return err
			}
		}

		accounts := user.NewService(userPostgres.NewUserRepository(db), cfg.Security.BCryptCost, lg)
		return seedDemoAccounts(ctx, accounts, cmd.OutOrStdout())
	},
}

type accountRegistrar interface {
	Register(ctx context.Context, dto user.RegisterDTO) (*user.User, error)
}

func seedDemoAccounts(ctx context.Context, accounts accountRegistrar, out io.Writer) error {
	for _, dto := range demoAccounts {
		dto.Password = demoPassword
		u, err := accounts.Register(ctx, dto)
		if errors.Is(err, internal.ErrEmailTaken) {
			fmt.Fprintf(out, "%s already exists; skipping\n", dto.Email)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to seed %s: %w", dto.Email, err)
		}
		fmt.Fprintf(out, "Seeded %s account: %s\n", u.Role, u.Email)
	}
	return nil
}

func clearDemoAccounts(ctx context.Context, db *sqlx.DB, out io.Writer) error {
	emails := make([]string, 0, len(demoAccounts))
	for _, dto := range demoAccounts {
		emails = append(emails, dto.Email)
	}

	query, args, err := sqlx.In("DELETE FROM users WHERE email IN (?)", emails)
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}
	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to clear demo accounts: %w", err)
	}
	n, _ := res.RowsAffected()
	fmt.Fprintf(out, "Removed %d demo accounts\n", n)
	return nil
}
