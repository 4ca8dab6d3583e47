package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jeff-mclean/mpris-scrobbler/internal/scrobbler"
	"github.com/jeff-mclean/mpris-scrobbler/pkg/audioscrobbler"
)

const sample = `
poll_interval: 5
now_playing_delay: 30
queue_size: 10
source: mpris
ignore_players:
  - chromium
  - firefox
history:
  enabled: false
endpoints:
  lastfm:
    enabled: true
    api_key: lf-key
    api_secret: lf-secret
    session_key: lf-session
    user_name: alice
  librefm:
    enabled: true
    api_key: lb-key
    api_secret: lb-secret
    token: lb-token
  listenbrainz:
    enabled: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.PollInterval != 5 || cfg.NowPlayingDelay != 30 || cfg.QueueSize != 10 {
		t.Errorf("unexpected intervals: %+v", cfg)
	}
	if cfg.FlushInterval != 60 {
		t.Errorf("FlushInterval = %d, want default 60", cfg.FlushInterval)
	}
	if cfg.History.Enabled || cfg.History.RetentionDays != 90 {
		t.Errorf("History = %+v", cfg.History)
	}
	if len(cfg.IgnorePlayers) != 2 || cfg.IgnorePlayers[1] != "firefox" {
		t.Errorf("IgnorePlayers = %v", cfg.IgnorePlayers)
	}
	if cfg.OutputFormat != "{{.Artist}} - {{.Title}}" {
		t.Errorf("OutputFormat = %q", cfg.OutputFormat)
	}
	if _, ok := cfg.Endpoints[audioscrobbler.ListenBrainz]; ok {
		t.Error("empty endpoint section should be skipped")
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "absent.yaml"))
	if err != nil {
		t.Fatalf("missing config must not fail: %v", err)
	}
	if cfg.PollInterval != 3 || cfg.NowPlayingDelay != 65 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if len(cfg.Credentials()) != 0 {
		t.Errorf("expected no credentials, got %v", cfg.Credentials())
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "poll_interval: [\n"},
		{"unknown source", "source: winamp\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadEnvironment(t *testing.T) {
	path := writeConfig(t, sample)
	t.Setenv("MPRIS_SCROBBLER_POLL_INTERVAL", "9")
	t.Setenv("MPRIS_SCROBBLER_ENDPOINTS_LASTFM_SESSION_KEY", "from-env")
	t.Setenv("MPRIS_SCROBBLER_ENDPOINTS_LISTENBRAINZ_API_KEY", "lz-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PollInterval != 9 {
		t.Errorf("PollInterval = %d, want 9", cfg.PollInterval)
	}
	if got := cfg.Endpoints[audioscrobbler.LastFM].SessionKey; got != "from-env" {
		t.Errorf("SessionKey = %q, want from-env", got)
	}
	if got := cfg.Endpoints[audioscrobbler.ListenBrainz].APIKey; got != "lz-key" {
		t.Errorf("env-only endpoint not loaded: %q", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := writeConfig(t, "")
	const key = "MPRIS_SCROBBLER_OUTPUT_WIDTH"
	os.Unsetenv(key)
	t.Cleanup(func() { os.Unsetenv(key) })

	if err := os.WriteFile(filepath.Join(filepath.Dir(path), ".env"), []byte(key+"=42\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OutputWidth != 42 {
		t.Errorf("OutputWidth = %d, want 42 from .env", cfg.OutputWidth)
	}
}

func TestCredentials(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	creds := cfg.Credentials()
	if len(creds) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(creds))
	}
	lastfm, librefm := creds[0], creds[1]
	if lastfm.Endpoint != audioscrobbler.LastFM || librefm.Endpoint != audioscrobbler.LibreFM {
		t.Errorf("unexpected order: %s, %s", lastfm.Endpoint, librefm.Endpoint)
	}
	if lastfm.Secret != "lf-secret" || lastfm.SessionKey != "lf-session" || lastfm.UserName != "alice" {
		t.Errorf("lastfm = %+v", lastfm)
	}
	if !librefm.NeedsSession() {
		t.Errorf("librefm should need a session: %+v", librefm)
	}
}

func TestSave(t *testing.T) {
	path := writeConfig(t, sample)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cfg.SetCredentials(scrobbler.Credentials{
		Endpoint:   audioscrobbler.LibreFM,
		Enabled:    true,
		APIKey:     "lb-key",
		Secret:     "lb-secret",
		SessionKey: "lb-session",
		UserName:   "bob",
	})
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config mode = %o, want 600", perm)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	lb := reloaded.Endpoints[audioscrobbler.LibreFM]
	if lb.SessionKey != "lb-session" || lb.Token != "" || lb.UserName != "bob" {
		t.Errorf("librefm after save = %+v", lb)
	}
	if reloaded.PollInterval != 5 || len(reloaded.IgnorePlayers) != 2 {
		t.Errorf("other settings lost: %+v", reloaded)
	}
}

func TestWatch(t *testing.T) {
	path := writeConfig(t, sample)

	changes, err := Watch(path)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := os.WriteFile(path, []byte(sample+"output_width: 20\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestWatchMissingFile(t *testing.T) {
	if _, err := Watch(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error")
	}
}
