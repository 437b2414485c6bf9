package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/bootstrap"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ticketctl",
		Short:         "Administrative commands for the support desk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newMigrateCommand(), newSeedCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env holds what every subcommand needs.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required")
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.App.Name, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &env{cfg: cfg, logger: logger, pg: pg}, nil
}

func (e *env) close() {
	e.pg.Close()
	_ = e.logger.Sync()
}

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				e, err := openEnv(cmd.Context())
				if err != nil {
					return err
				}
				defer e.close()
				return persistence.RunMigrations(cmd.Context(), e.pg.PoolHandle(), e.logger)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			RunE: func(cmd *cobra.Command, _ []string) error {
				e, err := openEnv(cmd.Context())
				if err != nil {
					return err
				}
				defer e.close()
				return persistence.MigrationStatus(cmd.Context(), e.pg.PoolHandle())
			},
		},
	)
	return cmd
}

func newSeedCommand() *cobra.Command {
	var in bootstrap.SeedInput
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the first provider, admin, client organization and contact",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			if err := persistence.RunMigrations(cmd.Context(), e.pg.PoolHandle(), e.logger); err != nil {
				return err
			}
			in.BcryptCost = e.cfg.Auth.BcryptCost
			result, err := bootstrap.Seed(cmd.Context(), repository.NewPostgresStore(e.pg.PoolHandle()), in)
			if err != nil {
				return err
			}
			if result.Skipped {
				e.logger.Info("admin already exists; nothing seeded", zap.String("email", in.AdminEmail))
				return nil
			}
			fields := []zap.Field{
				zap.String("provider_id", result.Provider.ID),
				zap.String("admin_id", result.Admin.ID),
			}
			if result.Client != nil {
				fields = append(fields, zap.String("client_id", result.Client.ID))
			}
			if result.Contact != nil {
				fields = append(fields, zap.String("contact_id", result.Contact.ID))
			}
			e.logger.Info("seed complete", fields...)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&in.ProviderName, "provider", "IT Services", "provider organization name")
	flags.StringVar(&in.AdminName, "admin-name", "Administrator", "admin display name")
	flags.StringVar(&in.AdminEmail, "admin-email", "", "admin email (required)")
	flags.StringVar(&in.AdminPassword, "admin-password", "", "admin password (required)")
	flags.StringVar(&in.ClientName, "client", "", "client organization name")
	flags.StringVar(&in.ContactName, "contact-name", "", "client contact display name")
	flags.StringVar(&in.ContactEmail, "contact-email", "", "client contact email")
	flags.StringVar(&in.ContactPassword, "contact-password", "", "client contact password")
	_ = cmd.MarkFlagRequired("admin-email")
	_ = cmd.MarkFlagRequired("admin-password")
	return cmd
}
