package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mkarren/cadenza/internal/migrate"
	"github.com/mkarren/cadenza/internal/prefs"
	"github.com/mkarren/cadenza/internal/scan"
	"github.com/mkarren/cadenza/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the music library and fill the metadata cache",
	Long: `Scan the configured library directory for audio files and cache their tag
metadata under canonical path keys.

Path migration runs first, so the scan never writes alongside stale keys.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringP("library", "l", "", "music library directory")
	viper.BindPFlag("library", scanCmd.Flags().Lookup("library"))
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	setupLogging()

	library := viper.GetString("library")
	if library == "" {
		return fmt.Errorf("library directory is required (use --library/-l or set in config)")
	}
	if _, err := os.Stat(library); os.IsNotExist(err) {
		return fmt.Errorf("library directory does not exist: %s", library)
	}

	dataDir := viper.GetString("data-dir")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := prefs.Open(prefsPath())
	if err != nil {
		return fmt.Errorf("failed to open preferences: %w", err)
	}
	defer store.Close()

	// Stores must be migrated before anything writes to them
	if result := migrate.NewRunner(dataDir, store).Run(); result.Failed() {
		return fmt.Errorf("migration failed for: %s", strings.Join(result.FailedFiles, ", "))
	}

	showProgress := util.IsTerminal(os.Stderr.Fd()) && !viper.GetBool("quiet")
	stats, err := scan.New(library, dataDir, showProgress).Run()
	if err != nil {
		return err
	}

	util.SuccessLog("Scanned %d files, tagged %d new (%d errors) in %s",
		stats.FilesSeen, stats.FilesTagged, stats.Errors,
		stats.Duration.Round(time.Millisecond))
	return nil
}
