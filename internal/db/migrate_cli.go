package db

import (
	"fmt"
	"io"
	"log"
)

// RunMigrateCommand handles the 'migrate' subcommand: up, down or status.
func RunMigrateCommand(args []string, dbPath string, out io.Writer) error {
	if len(args) < 1 {
		PrintMigrateHelp(out)
		return fmt.Errorf("missing migrate action")
	}

	database, err := OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	migrationsFS := MigrationsFS()
	switch action := args[0]; action {
	case "up":
		log.Printf("Running migrations...")
		if err := database.MigrateUp(migrationsFS); err != nil {
			return err
		}
	case "down":
		log.Printf("Rolling back one migration...")
		if err := database.MigrateDown(migrationsFS); err != nil {
			return err
		}
	case "status":
	case "help":
		PrintMigrateHelp(out)
		return nil
	default:
		PrintMigrateHelp(out)
		return fmt.Errorf("unknown migrate action: %s", action)
	}

	version, dirty, err := database.MigrateVersion(migrationsFS)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	latest, err := LatestMigrationVersion(migrationsFS)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Current version: %d\n", version)
	fmt.Fprintf(out, "Latest available: %d\n", latest)
	fmt.Fprintf(out, "Dirty: %v\n", dirty)
	if dirty {
		fmt.Fprintln(out, "WARNING: a migration failed mid-execution; inspect the database before retrying.")
	}
	return nil
}

// PrintMigrateHelp prints usage for the migrate subcommand.
func PrintMigrateHelp(out io.Writer) {
	fmt.Fprintln(out, `Usage: trajprep migrate <action> -db <path>

Actions:
  up       Apply all pending migrations
  down     Roll back the most recent migration
  status   Show the current and latest schema versions
  help     Show this message`)
}
