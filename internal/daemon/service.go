package daemon

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"text/template"
)

const (
	// LaunchdLabel identifies the launchd agent
	LaunchdLabel = "com.mpris-scrobbler.daemon"

	// SystemdUnit is the name of the systemd user unit
	SystemdUnit = "mpris-scrobbler.service"
)

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.BinaryPath}}</string>
		<string>daemon</string>
{{- if .ConfigFile}}
		<string>--config</string>
		<string>{{.ConfigFile}}</string>
{{- end}}
		<string>--log-file</string>
		<string>{{.LogPath}}/mpris-scrobbler.log</string>
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
	<key>StandardErrorPath</key>
	<string>{{.LogPath}}/mpris-scrobbler.err</string>
	<key>WorkingDirectory</key>
	<string>{{.WorkingDirectory}}</string>
	<key>EnvironmentVariables</key>
	<dict>
		<key>PATH</key>
		<string>/usr/local/bin:/usr/bin:/bin:/usr/sbin:/sbin</string>
	</dict>
</dict>
</plist>
`

const unitTemplate = `[Unit]
Description=Scrobble MPRIS players to audioscrobbler services
After=graphical-session.target

[Service]
Type=simple
ExecStart={{.BinaryPath}} daemon{{if .ConfigFile}} --config {{.ConfigFile}}{{end}} --log-file {{.LogPath}}/mpris-scrobbler.log
ExecReload=/bin/kill -HUP $MAINPID
WorkingDirectory={{.WorkingDirectory}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`

// ServiceConfig holds the values substituted into a service definition
type ServiceConfig struct {
	BinaryPath       string
	LogPath          string
	WorkingDirectory string
	ConfigFile       string // optional --config passed to the daemon
}

// GeneratePlist generates a launchd plist file from the template
func GeneratePlist(config ServiceConfig) (string, error) {
	return render("plist", plistTemplate, config)
}

// GenerateUnit generates a systemd user unit from the template
func GenerateUnit(config ServiceConfig) (string, error) {
	return render("unit", unitTemplate, config)
}

// GenerateService renders the service definition for goos.
func GenerateService(goos string, config ServiceConfig) (string, error) {
	switch goos {
	case "darwin":
		return GeneratePlist(config)
	case "linux":
		return GenerateUnit(config)
	default:
		return "", fmt.Errorf("service install is not supported on %s", goos)
	}
}

func render(name, text string, config ServiceConfig) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template: %w", name, err)
	}

	data := struct {
		ServiceConfig
		Label string
	}{config, LaunchdLabel}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", name, err)
	}

	return buf.String(), nil
}

// GetServicePath returns where the service definition is installed on
// the current OS.
func GetServicePath() (string, error) {
	return servicePath(runtime.GOOS)
}

func servicePath(goos string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "LaunchAgents", LaunchdLabel+".plist"), nil
	case "linux":
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			configHome = filepath.Join(home, ".config")
		}
		return filepath.Join(configHome, "systemd", "user", SystemdUnit), nil
	default:
		return "", fmt.Errorf("service install is not supported on %s", goos)
	}
}

// GetDefaultLogPath returns the default path for daemon logs
func GetDefaultLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".local", "share", "mpris-scrobbler", "logs"), nil
}
