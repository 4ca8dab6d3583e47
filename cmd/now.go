/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/jeff-mclean/mpris-scrobbler/internal/config"
	"github.com/jeff-mclean/mpris-scrobbler/internal/player"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Display the currently playing track",
	Long: `Query the media players and display the currently playing track.

The output format can be customized in ~/.config/mpris-scrobbler/config.yaml
using a Go template. Available fields: .Player, .Title, .Artist, .Album,
.AlbumArtist, .TrackNumber, .Length, .Position, .Volume and .Status.
The "clock" function formats a duration as m:ss.

Exit codes:
  0 - Track is currently playing
  1 - No track playing, paused, or no player running`,
	RunE: runNow,
}

func init() {
	rootCmd.AddCommand(nowCmd)

	// Add format flag to override config
	nowCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	// Add width flag to set fixed output width
	nowCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled, overrides config)")
	nowCmd.Flags().StringP("player", "p", "", "Only consider this player")
}

func runNow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Check for format flag override
	format := cfg.OutputFormat
	if f, _ := cmd.Flags().GetString("format"); f != "" {
		format = f
	}

	source, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer source.Close()

	snaps, err := source.Snapshots(ctx)
	if err != nil {
		return fmt.Errorf("failed to read players: %w", err)
	}

	only, _ := cmd.Flags().GetString("player")
	snap, ok := pickPlaying(snaps, only, cfg.IgnorePlayers)
	if !ok {
		os.Exit(1)
		return nil
	}

	output, err := formatSnapshot(snap, format)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	width, _ := cmd.Flags().GetInt("width")
	if width == 0 {
		width = cfg.OutputWidth
	}

	fmt.Println(padToWidth(output, width))
	return nil
}

// pickPlaying returns the first playing snapshot with a title. When only is
// set, other players are skipped.
func pickPlaying(snaps []player.Snapshot, only string, ignore []string) (player.Snapshot, bool) {
	for _, s := range snaps {
		if s.Status != player.StatusPlaying || s.Title == "" {
			continue
		}
		if only != "" && !player.Ignored(s.Player, []string{only}) {
			continue
		}
		if player.Ignored(s.Player, ignore) {
			continue
		}
		return s, true
	}
	return player.Snapshot{}, false
}

var nowFuncs = template.FuncMap{
	"clock": func(d time.Duration) string {
		secs := int(d.Round(time.Second).Seconds())
		return fmt.Sprintf("%d:%02d", secs/60, secs%60)
	},
}

// formatSnapshot applies the template to the snapshot
func formatSnapshot(snap player.Snapshot, templateStr string) (string, error) {
	tmpl, err := template.New("output").Funcs(nowFuncs).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, snap); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// padToWidth pads or truncates text to a fixed display width, measured in
// terminal columns. Truncated text ends in "...".
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	const ellipsis = "..."
	if width <= runewidth.StringWidth(ellipsis) && runewidth.StringWidth(text) > width {
		return runewidth.Truncate(ellipsis, width, "")
	}

	text = runewidth.Truncate(text, width, ellipsis)
	if pad := width - runewidth.StringWidth(text); pad > 0 {
		text += strings.Repeat(" ", pad)
	}
	return text
}
