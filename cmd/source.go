package cmd

import (
	"fmt"

	"github.com/jeff-mclean/mpris-scrobbler/internal/config"
	"github.com/jeff-mclean/mpris-scrobbler/internal/player"
)

// openSource returns the player source named by the configuration.
func openSource(cfg *config.Config) (player.Source, error) {
	switch cfg.Source {
	case "applescript":
		return player.NewAppleScriptSource(), nil
	case "mpris":
		src, err := player.NewMPRISSource(cfg.IgnorePlayers)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to the session bus: %w", err)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}
