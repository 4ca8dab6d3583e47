package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/jeff-mclean/mpris-scrobbler/internal/daemon"
	"github.com/spf13/cobra"
)

// uninstallCmd represents the uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the daemon user service",
	Long: `Stop the mpris-scrobbler daemon and remove its user service.

After uninstalling, the daemon will no longer run automatically on login.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		servicePath, err := daemon.GetServicePath()
		if err != nil {
			return err
		}

		if _, err := os.Stat(servicePath); os.IsNotExist(err) {
			fmt.Println("Daemon is not installed (service file not found)")
			return nil
		}

		fmt.Println("Stopping daemon...")
		if err := stopService(); err != nil {
			fmt.Printf("Warning: failed to stop daemon: %v\n", err)
			fmt.Println("Continuing with service file removal...")
		} else {
			fmt.Println("✓ Daemon stopped")
		}

		if err := os.Remove(servicePath); err != nil {
			return fmt.Errorf("failed to remove service file: %w", err)
		}
		fmt.Printf("✓ Removed %s\n", servicePath)

		if runtime.GOOS == "linux" {
			if err := runTool("systemctl", "--user", "daemon-reload"); err != nil {
				fmt.Printf("Warning: %v\n", err)
			}
		}

		fmt.Println("\nThe daemon has been uninstalled successfully.")
		fmt.Println("\nTo reinstall, run:")
		fmt.Println("  mpris-scrobbler install")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}
