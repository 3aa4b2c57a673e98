// Command carrierctl is a command-line client for the carrier dashboard API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL  string
	timeout    time.Duration
	jsonOutput bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "carrierctl",
		Short: "Command-line client for the carrier dashboard",
		Long: `carrierctl reads and adjusts a running carrier dashboard server.

Available commands:
  records  - List the carrier records
  chart    - Show the monthly out-of-service counts
  override - Set or clear manual chart values
  pivot    - Cross-tabulate the records
  refresh  - Fetch the records from the data source again`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", envOr("CARRIER_DASHBOARD_URL", "http://localhost:8089"), "dashboard server URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON")

	rootCmd.AddCommand(
		newRecordsCmd(),
		newChartCmd(),
		newOverrideCmd(),
		newPivotCmd(),
		newRefreshCmd(),
	)
	return rootCmd
}

func apiClient() *client {
	return newClient(serverURL, timeout)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// warnDegraded notes on stderr that the server answered from an empty fallback.
func warnDegraded(cmd *cobra.Command, status string) {
	if status == "degraded" {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: data source unavailable, showing empty data")
	}
}
