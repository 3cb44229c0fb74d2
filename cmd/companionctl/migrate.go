package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HeadupandFace/cbt-companion-app/internal/config"
	"github.com/HeadupandFace/cbt-companion-app/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	Long: `Apply or roll back schema migrations.

Examples:
  companionctl migrate up
  companionctl migrate down --steps 1
  companionctl migrate version`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE:  runMigrateDown,
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE:  runMigrateVersion,
}

func init() {
	migrateDownCmd.Flags().Int("steps", 1, "number of migrations to roll back")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)

	rootCmd.AddCommand(migrateCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := database.RunMigrations(cfg.Database); err != nil {
		return err
	}
	fmt.Println("Migrations applied")
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	steps, _ := cmd.Flags().GetInt("steps")
	if steps < 1 {
		return fmt.Errorf("--steps must be at least 1")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := database.MigrateDown(cfg.Database, steps); err != nil {
		return err
	}
	fmt.Printf("Rolled back %d migration(s)\n", steps)
	return nil
}

func runMigrateVersion(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	version, dirty, err := database.MigrationVersion(cfg.Database)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(map[string]any{"version": version, "dirty": dirty})
	}
	if dirty {
		fmt.Printf("%d (dirty)\n", version)
		return nil
	}
	fmt.Println(version)
	return nil
}
