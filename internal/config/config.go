package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/jeff-mclean/mpris-scrobbler/internal/scrobbler"
	"github.com/jeff-mclean/mpris-scrobbler/pkg/audioscrobbler"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// MPRIS_SCROBBLER_ENDPOINTS_LASTFM_SESSION_KEY.
const EnvPrefix = "MPRIS_SCROBBLER"

// Config holds application configuration. A loaded Config is never
// mutated by the daemon; reloading produces a new one.
type Config struct {
	// Poll interval for the daemon (in seconds)
	PollInterval int

	// Seconds between now playing refreshes
	NowPlayingDelay int

	// Seconds between queue flushes
	FlushInterval int

	// Plays held in memory before a forced flush
	QueueSize int

	// Player source: "mpris" or "applescript"
	Source string

	// Player ids that are never tracked
	IgnorePlayers []string

	History HistoryConfig

	// Output format template for the now command
	// Default: "{{.Artist}} - {{.Title}}"
	OutputFormat string
	OutputWidth  int

	Endpoints map[audioscrobbler.Endpoint]EndpointConfig

	path string
}

// HistoryConfig controls the local submission journal
type HistoryConfig struct {
	Enabled       bool
	RetentionDays int
}

// EndpointConfig holds the account of one scrobbling service
type EndpointConfig struct {
	Enabled    bool
	APIKey     string
	APISecret  string
	SessionKey string
	Token      string
	UserName   string
	BaseURL    string
}

// Load reads configuration from path, the environment and .env files.
// An empty path means DefaultPath(). A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	// .env values never override the real environment
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))
	_ = godotenv.Load()

	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		PollInterval:    v.GetInt("poll_interval"),
		NowPlayingDelay: v.GetInt("now_playing_delay"),
		FlushInterval:   v.GetInt("flush_interval"),
		QueueSize:       v.GetInt("queue_size"),
		Source:          strings.ToLower(v.GetString("source")),
		IgnorePlayers:   v.GetStringSlice("ignore_players"),
		History: HistoryConfig{
			Enabled:       v.GetBool("history.enabled"),
			RetentionDays: v.GetInt("history.retention_days"),
		},
		OutputFormat: v.GetString("output_format"),
		OutputWidth:  v.GetInt("output_width"),
		Endpoints:    make(map[audioscrobbler.Endpoint]EndpointConfig),
		path:         path,
	}

	for _, e := range audioscrobbler.Endpoints() {
		key := "endpoints." + string(e)
		ec := EndpointConfig{
			Enabled:    v.GetBool(key + ".enabled"),
			APIKey:     v.GetString(key + ".api_key"),
			APISecret:  v.GetString(key + ".api_secret"),
			SessionKey: v.GetString(key + ".session_key"),
			Token:      v.GetString(key + ".token"),
			UserName:   v.GetString(key + ".user_name"),
			BaseURL:    v.GetString(key + ".base_url"),
		}
		if ec == (EndpointConfig{}) {
			continue
		}
		cfg.Endpoints[e] = ec
	}

	if cfg.Source != "mpris" && cfg.Source != "applescript" {
		return nil, fmt.Errorf("unknown source %q (want mpris or applescript)", cfg.Source)
	}

	return cfg, nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("poll_interval", 3)
	v.SetDefault("now_playing_delay", 65)
	v.SetDefault("flush_interval", 60)
	v.SetDefault("queue_size", scrobbler.DefaultQueueSize)
	v.SetDefault("source", defaultSource())
	v.SetDefault("ignore_players", []string{})
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.retention_days", 90)
	v.SetDefault("output_format", "{{.Artist}} - {{.Title}}")
	v.SetDefault("output_width", 0)

	// Endpoint keys need defaults so AutomaticEnv can see them
	for _, e := range audioscrobbler.Endpoints() {
		key := "endpoints." + string(e)
		v.SetDefault(key+".enabled", false)
		for _, field := range []string{"api_key", "api_secret", "session_key", "token", "user_name", "base_url"} {
			v.SetDefault(key+"."+field, "")
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func defaultSource() string {
	if runtime.GOOS == "darwin" {
		return "applescript"
	}
	return "mpris"
}

// Path returns the file this configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Credentials converts the endpoint sections into dispatcher accounts.
// Sections without an API key are skipped.
func (c *Config) Credentials() []scrobbler.Credentials {
	var out []scrobbler.Credentials
	for _, e := range audioscrobbler.Endpoints() {
		ec, ok := c.Endpoints[e]
		if !ok || ec.APIKey == "" {
			continue
		}
		out = append(out, scrobbler.Credentials{
			Endpoint:   e,
			Enabled:    ec.Enabled,
			APIKey:     ec.APIKey,
			Secret:     ec.APISecret,
			SessionKey: ec.SessionKey,
			Token:      ec.Token,
			UserName:   ec.UserName,
			BaseURL:    ec.BaseURL,
		})
	}
	return out
}

// SetCredentials stores an account back into its endpoint section.
func (c *Config) SetCredentials(cr scrobbler.Credentials) {
	if c.Endpoints == nil {
		c.Endpoints = make(map[audioscrobbler.Endpoint]EndpointConfig)
	}
	baseURL := cr.BaseURL
	if baseURL == "" {
		baseURL = c.Endpoints[cr.Endpoint].BaseURL
	}
	c.Endpoints[cr.Endpoint] = EndpointConfig{
		Enabled:    cr.Enabled,
		APIKey:     cr.APIKey,
		APISecret:  cr.Secret,
		SessionKey: cr.SessionKey,
		Token:      cr.Token,
		UserName:   cr.UserName,
		BaseURL:    baseURL,
	}
}

// Save writes configuration to file
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.Set("poll_interval", c.PollInterval)
	v.Set("now_playing_delay", c.NowPlayingDelay)
	v.Set("flush_interval", c.FlushInterval)
	v.Set("queue_size", c.QueueSize)
	v.Set("source", c.Source)
	v.Set("ignore_players", c.IgnorePlayers)
	v.Set("history.enabled", c.History.Enabled)
	v.Set("history.retention_days", c.History.RetentionDays)
	v.Set("output_format", c.OutputFormat)
	v.Set("output_width", c.OutputWidth)

	for e, ec := range c.Endpoints {
		key := "endpoints." + string(e)
		v.Set(key+".enabled", ec.Enabled)
		v.Set(key+".api_key", ec.APIKey)
		v.Set(key+".api_secret", ec.APISecret)
		v.Set(key+".session_key", ec.SessionKey)
		v.Set(key+".token", ec.Token)
		v.Set(key+".user_name", ec.UserName)
		if ec.BaseURL != "" {
			v.Set(key+".base_url", ec.BaseURL)
		}
	}

	// Secrets live here, keep the file private
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return os.Chmod(path, 0600)
}

// Watch reports changes to the config file at path. The channel never
// closes and holds at most one pending notification.
func Watch(path string) (<-chan struct{}, error) {
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cannot watch config: %w", err)
	}

	changes := make(chan struct{}, 1)
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	v.WatchConfig()

	return changes, nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "mpris-scrobbler")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".config", "mpris-scrobbler")
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// DefaultPath returns the config file used when none is given.
func DefaultPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DataDir returns where the history database lives.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "mpris-scrobbler")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".local", "share", "mpris-scrobbler")
}
