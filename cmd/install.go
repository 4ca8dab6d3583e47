package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jeff-mclean/mpris-scrobbler/internal/daemon"
	"github.com/spf13/cobra"
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the daemon as a user service",
	Long: `Install the mpris-scrobbler daemon as a user service that starts on login.

On Linux this writes a systemd user unit to ~/.config/systemd/user/ and
enables it with systemctl --user. On macOS it writes a launchd agent to
~/Library/LaunchAgents/ and loads it with launchctl.

Credentials can be reloaded without a restart:
  systemctl --user reload mpris-scrobbler`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get the path to the current executable
		binaryPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}

		// Resolve symlinks to get the actual binary path
		binaryPath, err = filepath.EvalSymlinks(binaryPath)
		if err != nil {
			return fmt.Errorf("failed to resolve executable path: %w", err)
		}

		logPath, err := daemon.GetDefaultLogPath()
		if err != nil {
			return fmt.Errorf("failed to get log path: %w", err)
		}
		if err := os.MkdirAll(logPath, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		configFile := cfgFile
		if configFile != "" {
			if configFile, err = filepath.Abs(configFile); err != nil {
				return fmt.Errorf("failed to resolve config path: %w", err)
			}
		}

		content, err := daemon.GenerateService(runtime.GOOS, daemon.ServiceConfig{
			BinaryPath:       binaryPath,
			LogPath:          logPath,
			WorkingDirectory: home,
			ConfigFile:       configFile,
		})
		if err != nil {
			return err
		}

		servicePath, err := daemon.GetServicePath()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(servicePath), 0755); err != nil {
			return fmt.Errorf("failed to create service directory: %w", err)
		}

		if _, err := os.Stat(servicePath); err == nil {
			fmt.Println("Daemon is already installed. Stopping it first...")
			if err := stopService(); err != nil {
				fmt.Printf("Warning: failed to stop existing daemon: %v\n", err)
			}
		}

		if err := os.WriteFile(servicePath, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write service file: %w", err)
		}
		fmt.Printf("✓ Installed service to %s\n", servicePath)

		if err := startService(servicePath); err != nil {
			return fmt.Errorf("failed to start daemon: %w", err)
		}

		fmt.Println("✓ Daemon loaded and started successfully")
		fmt.Printf("✓ Logs will be written to %s\n", logPath)
		fmt.Println("\nThe daemon is now running and will start automatically on login.")
		fmt.Println("\nTo uninstall, run:")
		fmt.Println("  mpris-scrobbler uninstall")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}

// startService registers and starts the installed service
func startService(servicePath string) error {
	switch runtime.GOOS {
	case "darwin":
		return runTool("launchctl", "bootstrap", launchdDomain(), servicePath)
	case "linux":
		if err := runTool("systemctl", "--user", "daemon-reload"); err != nil {
			return err
		}
		return runTool("systemctl", "--user", "enable", "--now", daemon.SystemdUnit)
	default:
		return fmt.Errorf("service install is not supported on %s", runtime.GOOS)
	}
}

// stopService stops the service. Not being loaded is not an error.
func stopService() error {
	var err error
	switch runtime.GOOS {
	case "darwin":
		err = runTool("launchctl", "bootout", launchdDomain()+"/"+daemon.LaunchdLabel)
	case "linux":
		err = runTool("systemctl", "--user", "disable", "--now", daemon.SystemdUnit)
	default:
		return fmt.Errorf("service install is not supported on %s", runtime.GOOS)
	}
	if err != nil {
		// Bootout and disable fail when nothing is loaded
		fmt.Printf("Warning: %v\n", err)
	}
	return nil
}

func launchdDomain() string {
	return fmt.Sprintf("gui/%d", os.Getuid())
}

func runTool(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(output)); msg != "" {
			return fmt.Errorf("%s %s: %s", name, args[0], msg)
		}
		return fmt.Errorf("failed to run %s: %w", name, err)
	}
	return nil
}
