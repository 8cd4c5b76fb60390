package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mkarren/cadenza/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "cadenza",
		Short: "Cadenza music player library tools",
		Long: `cadenza maintains the Cadenza music player's on-disk library state: the
metadata, duration and loudness caches, playback weights, the queue snapshot
and the user playlists.

Stores address files by canonical path keys. The migrate command reconciles
stores written by older releases that used lower-cased keys.`,
		Version: Version,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/cadenza/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", defaultDataDir(), "directory holding the library stores")
	rootCmd.PersistentFlags().String("prefs", "", "preferences database (default <data-dir>/prefs.db)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	viper.BindPFlag("data-dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("prefs", rootCmd.PersistentFlags().Lookup("prefs"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common locations
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "cadenza"))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Read in environment variables that match
	viper.SetEnvPrefix("CADENZA")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "cadenza")
	}
	return "."
}

// setupLogging applies the global output flags.
func setupLogging() {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))
	util.SetColors(util.IsTerminal(os.Stderr.Fd()))
}

// prefsPath returns the preferences database location.
func prefsPath() string {
	if path := viper.GetString("prefs"); path != "" {
		return path
	}
	return filepath.Join(viper.GetString("data-dir"), "prefs.db")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
