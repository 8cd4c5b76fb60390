package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mkarren/cadenza/internal/migrate"
	"github.com/mkarren/cadenza/internal/prefs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Reconcile store keys written by older releases",
	Long: `Migrate the library stores to canonical path keys.

Older releases addressed files by lower-cased paths. This command rewrites
every store so entries use the canonical form, recovering the true on-disk
casing where the files still exist. The run is idempotent and skipped
entirely when nothing changed since the last successful pass.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	setupLogging()

	dataDir := viper.GetString("data-dir")
	if dataDir == "" {
		return fmt.Errorf("data directory is required (use --data-dir or set in config)")
	}
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		return fmt.Errorf("data directory does not exist: %s", dataDir)
	}

	store, err := prefs.Open(prefsPath())
	if err != nil {
		return fmt.Errorf("failed to open preferences: %w", err)
	}
	defer store.Close()

	result := migrate.NewRunner(dataDir, store).Run()
	fmt.Println(migrationSummary(result))
	if result.Failed() {
		return fmt.Errorf("migration failed for: %s", strings.Join(result.FailedFiles, ", "))
	}
	return nil
}

// migrationSummary renders the one-line aggregate for the host log.
func migrationSummary(result migrate.Result) string {
	if result.Failed() {
		return fmt.Sprintf("Migrated %d entries in %d files; %d failed (%s)",
			result.ChangedEntries, result.ChangedFiles,
			len(result.FailedFiles), strings.Join(result.FailedFiles, ", "))
	}
	if result.ChangedFiles == 0 {
		return "Library stores already use canonical keys"
	}
	return fmt.Sprintf("Migrated %d entries in %d files", result.ChangedEntries, result.ChangedFiles)
}
