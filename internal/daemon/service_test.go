package daemon

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateService(t *testing.T) {
	cfg := ServiceConfig{
		BinaryPath:       "/usr/local/bin/mpris-scrobbler",
		LogPath:          "/home/u/.local/share/mpris-scrobbler/logs",
		WorkingDirectory: "/home/u",
	}

	tests := []struct {
		goos    string
		config  ServiceConfig
		want    []string
		notWant []string
		wantErr bool
	}{
		{
			goos:   "linux",
			config: cfg,
			want: []string{
				"ExecStart=/usr/local/bin/mpris-scrobbler daemon --log-file /home/u/.local/share/mpris-scrobbler/logs/mpris-scrobbler.log",
				"ExecReload=/bin/kill -HUP $MAINPID",
				"WorkingDirectory=/home/u",
				"WantedBy=default.target",
			},
			notWant: []string{"--config"},
		},
		{
			goos: "linux",
			config: ServiceConfig{
				BinaryPath:       cfg.BinaryPath,
				LogPath:          cfg.LogPath,
				WorkingDirectory: cfg.WorkingDirectory,
				ConfigFile:       "/etc/scrobbler.yaml",
			},
			want: []string{"daemon --config /etc/scrobbler.yaml --log-file"},
		},
		{
			goos:   "darwin",
			config: cfg,
			want: []string{
				"<string>" + LaunchdLabel + "</string>",
				"<string>/usr/local/bin/mpris-scrobbler</string>",
				"<string>daemon</string>",
				"<string>/home/u</string>",
			},
			notWant: []string{"--config"},
		},
		{
			goos:    "windows",
			config:  cfg,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			got, err := GenerateService(tt.goos, tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("GenerateService() error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("missing %q in:\n%s", w, got)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("unexpected %q in:\n%s", w, got)
				}
			}
		})
	}
}

func TestServicePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")

	got, err := servicePath("linux")
	if err != nil {
		t.Fatalf("servicePath() error = %v", err)
	}
	if want := filepath.Join(home, ".config", "systemd", "user", SystemdUnit); got != want {
		t.Errorf("servicePath(linux) = %s, want %s", got, want)
	}

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "xdg"))
	got, _ = servicePath("linux")
	if want := filepath.Join(home, "xdg", "systemd", "user", SystemdUnit); got != want {
		t.Errorf("servicePath(linux) = %s, want %s", got, want)
	}

	got, _ = servicePath("darwin")
	if want := filepath.Join(home, "Library", "LaunchAgents", LaunchdLabel+".plist"); got != want {
		t.Errorf("servicePath(darwin) = %s, want %s", got, want)
	}

	if _, err := servicePath("plan9"); err == nil {
		t.Error("expected error for unsupported OS")
	}
}
