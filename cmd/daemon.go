package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jeff-mclean/mpris-scrobbler/internal/config"
	"github.com/jeff-mclean/mpris-scrobbler/internal/daemon"
	"github.com/jeff-mclean/mpris-scrobbler/internal/history"
	"github.com/jeff-mclean/mpris-scrobbler/internal/scrobbler"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	daemonLogFile  string
	daemonLogLevel string
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the scrobbling daemon",
	Long: `Run the scrobbling daemon that watches media players and scrobbles tracks
to every configured endpoint.

The daemon will:
- Poll the players every few seconds to detect track and status changes
- Send "now playing" updates while a track plays
- Queue a track once half of it (or 4 minutes) has been played
- Flush queued scrobbles every minute and on every track change
- Reload credentials on SIGHUP or when the config file changes
- Stop on SIGINT/SIGTERM without sending what is still queued

The daemon runs in the foreground and logs to stderr by default.
Use the --log-file flag to log to a file (useful for service managers).`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	// Command-line flags
	daemonCmd.Flags().StringVar(&daemonLogFile, "log-file", "", "Log file path (default: stderr)")
	daemonCmd.Flags().StringVar(&daemonLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	creds := cfg.Credentials()
	if len(creds) == 0 {
		return fmt.Errorf("no endpoints configured. Run 'mpris-scrobbler auth' first")
	}

	// Set up logging
	logger := setupLogger(daemonLogFile, daemonLogLevel)

	logger.Info().
		Str("version", version).
		Str("config", cfg.Path()).
		Str("source", cfg.Source).
		Msg("Starting mpris-scrobbler daemon")

	source, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer source.Close()

	var (
		store   *history.Store
		journal scrobbler.Journal
	)
	if cfg.History.Enabled {
		dataDir := config.DataDir()
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		store, err = history.Open(filepath.Join(dataDir, "history.db"))
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer store.Close()
		journal = store
		logger.Info().Str("data_dir", dataDir).Msg("Recording submission history")
	}

	dispatcher := scrobbler.NewDispatcher(creds, scrobbler.Options{
		Journal:   journal,
		OnSession: saveSession(cfg.Path(), logger),
		Logger:    logger,
	})

	daemonCfg := daemon.Config{
		PollInterval:    time.Duration(cfg.PollInterval) * time.Second,
		NowPlayingDelay: time.Duration(cfg.NowPlayingDelay) * time.Second,
		FlushInterval:   time.Duration(cfg.FlushInterval) * time.Second,
		QueueSize:       cfg.QueueSize,
		IgnorePlayers:   cfg.IgnorePlayers,
		Reload: func() ([]scrobbler.Credentials, error) {
			fresh, err := config.Load(cfg.Path())
			if err != nil {
				return nil, err
			}
			return fresh.Credentials(), nil
		},
	}

	if changes, err := config.Watch(cfg.Path()); err != nil {
		logger.Debug().Err(err).Msg("Config file not watched")
	} else {
		daemonCfg.Changes = changes
	}

	d := daemon.New(daemonCfg, source, dispatcher, logger)

	// Run daemon (blocks until shutdown signal)
	if err := d.Run(); err != nil {
		return fmt.Errorf("daemon error: %w", err)
	}

	for _, c := range dispatcher.Snapshot() {
		logger.Info().
			Str("endpoint", c.Endpoint.String()).
			Bool("enabled", c.Enabled).
			Bool("authenticated", c.Authenticated).
			Str("user", c.UserName).
			Msg("Endpoint state at exit")
	}

	if store != nil && cfg.History.RetentionDays > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		retention := time.Duration(cfg.History.RetentionDays) * 24 * time.Hour
		if n, err := store.Cleanup(ctx, retention); err != nil {
			logger.Error().Err(err).Msg("Failed to clean up history")
		} else if n > 0 {
			logger.Info().Int64("deleted", n).Msg("Cleaned up old history entries")
		}
	}

	return nil
}

// saveSession writes a freshly exchanged session key back to the config
// file.
func saveSession(path string, logger zerolog.Logger) func(scrobbler.Credentials) {
	return func(c scrobbler.Credentials) {
		cfg, err := config.Load(path)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to load config for saving session")
			return
		}
		cfg.SetCredentials(c)
		if err := cfg.Save(); err != nil {
			logger.Error().Err(err).Str("endpoint", c.Endpoint.String()).Msg("Failed to save session key")
			return
		}
		logger.Info().Str("endpoint", c.Endpoint.String()).Str("user", c.UserName).Msg("Session key saved")
	}
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	// Set up output
	var output *os.File
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}
