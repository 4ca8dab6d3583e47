package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jeff-mclean/mpris-scrobbler/internal/config"
	"github.com/jeff-mclean/mpris-scrobbler/internal/scrobbler"
	"github.com/jeff-mclean/mpris-scrobbler/pkg/audioscrobbler"
	"github.com/spf13/cobra"
)

var authNoWait bool

var authCmd = &cobra.Command{
	Use:   "auth [lastfm|librefm|listenbrainz]",
	Short: "Authenticate with a scrobbling service",
	Long: `Authenticate with an audioscrobbler-compatible service to enable scrobbling.

The endpoint defaults to lastfm. This command will guide you through the
authentication process:
1. You'll be prompted to enter your API key and secret
2. A browser URL will be provided for you to authorize the application
3. After authorization, a session key will be saved to your config file

With --no-wait the authorized token is saved instead and the daemon
exchanges it for a session key the next time it starts or reloads.

You can get Last.fm API credentials from: https://www.last.fm/api/account/create`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)

	authCmd.Flags().BoolVar(&authNoWait, "no-wait", false, "Save the request token and let the daemon finish the exchange")
}

func runAuth(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	endpoint := audioscrobbler.LastFM
	if len(args) == 1 {
		e, err := audioscrobbler.ParseEndpoint(args[0])
		if err != nil {
			return err
		}
		endpoint = e
	}

	// Load existing config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	existing := cfg.Endpoints[endpoint]

	title := fmt.Sprintf("%s Authentication", endpoint)
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", len(title)))
	fmt.Println()

	creds := scrobbler.Credentials{
		Endpoint: endpoint,
		Enabled:  true,
		APIKey:   existing.APIKey,
		Secret:   existing.APISecret,
		BaseURL:  existing.BaseURL,
	}

	// Check if we already have credentials
	if creds.APIKey != "" && creds.Secret != "" {
		fmt.Printf("Found existing API credentials.\n")
		fmt.Printf("API Key: %s\n", creds.APIKey)
		fmt.Print("\nUse existing credentials? [Y/n]: ")
		if !confirm(reader) {
			creds.APIKey = ""
			creds.Secret = ""
		}
	}

	if creds.APIKey == "" {
		if creds.APIKey, err = prompt(reader, "Enter your API Key: "); err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
	}
	if creds.Secret == "" {
		if creds.Secret, err = prompt(reader, "Enter your API Secret: "); err != nil {
			return fmt.Errorf("failed to read API secret: %w", err)
		}
	}

	authorizer, err := scrobbler.NewAuthorizer(creds, nil)
	if err != nil {
		return err
	}

	fmt.Println("\nGenerating authentication token...")
	token, authURL, err := authorizer.RequestToken(ctx)
	if err != nil {
		return err
	}

	fmt.Println("\nPlease visit this URL to authorize mpris-scrobbler:")
	fmt.Printf("\n  %s\n\n", authURL)

	if authNoWait {
		creds.Token = token
		cfg.SetCredentials(creds)
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Printf("✓ Token saved to %s\n", cfg.Path())
		fmt.Println("The daemon will finish authentication once the token is authorized.")
		return nil
	}

	fmt.Println("After authorizing, press Enter to continue...")
	_, _ = reader.ReadString('\n')

	// Get session key (with retries)
	fmt.Println("Retrieving session key...")
	const maxRetries = 3
	retryDelay := 2 * time.Second

	var session scrobbler.Credentials
	for i := 0; i < maxRetries; i++ {
		session, err = authorizer.Exchange(ctx, token)
		if err == nil {
			break
		}

		if i < maxRetries-1 {
			fmt.Printf("Failed to retrieve session (attempt %d/%d). Retrying in %v...\n",
				i+1, maxRetries, retryDelay)
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to get session key after %d attempts: %w", maxRetries, err)
	}

	cfg.SetCredentials(session)
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("\n✓ Authenticated as %s on %s\n", session.UserName, endpoint)
	fmt.Printf("✓ Session key saved to %s\n", cfg.Path())
	fmt.Println("\nYou can now use 'mpris-scrobbler daemon' to start scrobbling.")

	return nil
}

func prompt(reader *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm reads a yes/no answer that defaults to yes.
func confirm(reader *bufio.Reader) bool {
	response, err := reader.ReadString('\n')
	if err != nil {
		return true
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "" || response == "y" || response == "yes"
}
