// cmd/matchctl/migrate.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"exchange-matcher/migrations"
)

func init() {
	migrateCmd := &cobra.Command{Use: "migrate", Short: "Apply or inspect database migrations"}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := migrations.Up(cfg.Database.Postgres.MigrateURL()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	migrateCmd.AddCommand(upCmd)

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return fmt.Errorf("--steps must be positive")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := migrations.Down(cfg.Database.Postgres.MigrateURL(), steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	downCmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to roll back")
	migrateCmd.AddCommand(downCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			version, dirty, err := migrations.Version(cfg.Database.Postgres.MigrateURL())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{"version": version, "dirty": dirty})
		},
	}
	migrateCmd.AddCommand(versionCmd)

	rootCmd.AddCommand(migrateCmd)
}
