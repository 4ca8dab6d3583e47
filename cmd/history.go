package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jeff-mclean/mpris-scrobbler/internal/config"
	"github.com/jeff-mclean/mpris-scrobbler/internal/history"
	"github.com/jeff-mclean/mpris-scrobbler/pkg/audioscrobbler"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent submissions",
	Long: `Show what the daemon recently submitted and how each endpoint answered.

Outcomes:
  accepted - counted by the service
  ignored  - delivered but filtered by the service
  retry    - kept for the next flush
  dropped  - permanently rejected
  disabled - the endpoint rejected its credentials`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "n", 20, "Number of entries to show")
	historyCmd.Flags().StringP("endpoint", "e", "", "Only show one endpoint")
	historyCmd.Flags().StringP("outcome", "o", "", "Only show one outcome")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	path := filepath.Join(config.DataDir(), "history.db")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println("No history recorded yet")
		return nil
	}

	store, err := history.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	outcome, _ := cmd.Flags().GetString("outcome")
	q := history.Query{Limit: limit, Outcome: history.Outcome(outcome)}

	if name, _ := cmd.Flags().GetString("endpoint"); name != "" {
		e, err := audioscrobbler.ParseEndpoint(name)
		if err != nil {
			return err
		}
		q.Endpoint = string(e)
	}

	entries, err := store.Recent(ctx, q)
	if err != nil {
		return err
	}

	writeHistory(cmd.OutOrStdout(), entries)

	total, err := store.Count(ctx, "")
	if err != nil {
		return err
	}
	accepted, err := store.Count(ctx, history.OutcomeAccepted)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d submissions accepted\n", accepted, total)
	return nil
}

// writeHistory prints entries as fixed-width columns.
func writeHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No matching entries")
		return
	}

	fmt.Fprintf(w, "%s  %s  %s  %s\n",
		padToWidth("PLAYED", 16),
		padToWidth("ENDPOINT", 16),
		padToWidth("OUTCOME", 8),
		"TRACK")

	for _, e := range entries {
		track := e.Artist + " - " + e.Track
		if e.Error != "" {
			track += " (" + e.Error + ")"
		}
		fmt.Fprintf(w, "%s  %s  %s  %s\n",
			padToWidth(e.PlayedAt.Local().Format("2006-01-02 15:04"), 16),
			padToWidth(endpointLabel(e.Endpoint), 16),
			padToWidth(string(e.Outcome), 8),
			padToWidth(track, 60))
	}
}

func endpointLabel(id string) string {
	if e := audioscrobbler.Endpoint(id); e.Valid() {
		return e.String()
	}
	return id
}
