package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mutisyag/ozone-sub000/internal/infrastructure/database/postgres"
)

// newMigrateCommand manages schema migrations without opening the pool.
func newMigrateCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if err := postgres.RunMigrations(cfg.Database.URL(), cfg.Database.MigrationPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations by --steps",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if err := postgres.RollbackMigration(cfg.Database.URL(), cfg.Database.MigrationPath, steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d step(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			version, dirty, err := postgres.MigrationStatus(cfg.Database.URL(), cfg.Database.MigrationPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version: %d, dirty: %v\n", version, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}
