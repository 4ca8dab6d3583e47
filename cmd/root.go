/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// cfgFile overrides the default config location for every command
var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mpris-scrobbler",
	Short: "Scrobble media players to Last.fm, Libre.fm and ListenBrainz",
	Long: `mpris-scrobbler submits what your media players are playing to one or
more audioscrobbler-compatible services.

It runs as a background daemon that watches every MPRIS player on the
session bus (or Apple Music on macOS), announces the current track as
"now playing" and scrobbles it once it has been played long enough.

It also provides a CLI command to query the currently playing track,
useful for displaying in tmux status lines or other status bars.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.config/mpris-scrobbler/config.yaml)")
}
