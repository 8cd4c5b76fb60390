package main

import (
	"fmt"

	"github.com/mkarren/cadenza/internal/caches"
	"github.com/mkarren/cadenza/internal/migrate"
	"github.com/mkarren/cadenza/internal/prefs"
	"github.com/mkarren/cadenza/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show library store sizes and migration state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	setupLogging()
	dataDir := viper.GetString("data-dir")

	fmt.Printf("Data directory: %s\n", dataDir)
	fmt.Printf("  metadata entries:  %d\n", countOrWarn(func() (int, error) {
		c, err := caches.LoadMetadata(dataDir)
		if err != nil {
			return 0, err
		}
		return len(c.Entries), nil
	}))
	fmt.Printf("  duration entries:  %d\n", countOrWarn(func() (int, error) {
		c, err := caches.LoadDurations(dataDir)
		if err != nil {
			return 0, err
		}
		return len(c.Entries), nil
	}))
	fmt.Printf("  loudness entries:  %d\n", countOrWarn(func() (int, error) {
		c, err := caches.LoadVolume(dataDir)
		if err != nil {
			return 0, err
		}
		return len(c.LoudnessDbByPath), nil
	}))
	fmt.Printf("  queue length:      %d\n", countOrWarn(func() (int, error) {
		s, err := caches.LoadSnapshot(dataDir)
		if err != nil {
			return 0, err
		}
		return len(s.Paths), nil
	}))
	fmt.Printf("  playlists:         %d\n", countOrWarn(func() (int, error) {
		p, err := caches.LoadPlaylists(dataDir)
		if err != nil {
			return 0, err
		}
		return len(p.Playlists), nil
	}))

	store, err := prefs.Open(prefsPath())
	if err != nil {
		return fmt.Errorf("failed to open preferences: %w", err)
	}
	defer store.Close()

	if state, ok := migrate.StoredState(store); ok {
		present := 0
		for _, sig := range state.Signatures {
			if sig.Present {
				present++
			}
		}
		fmt.Printf("Migration state: recorded (version %d, %d of %d stores present)\n",
			state.Version, present, len(state.Signatures))
	} else {
		fmt.Println("Migration state: none (migration will run on next start)")
	}
	return nil
}

// countOrWarn runs one store count, logging and zeroing on failure so status
// output stays complete even with a corrupt store.
func countOrWarn(count func() (int, error)) int {
	n, err := count()
	if err != nil {
		util.WarnLog("%v", err)
		return 0
	}
	return n
}
