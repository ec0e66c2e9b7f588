package cmd

import "github.com/spf13/cobra"

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit",
	Short: "Inspect or clear persisted per-client chat rate limits",
	Long: `Inspect or clear per-client chat rate limit windows.

Only meaningful when the proxy runs with rate_limit.backend: libsql; the in-memory
backend keeps its counters inside the serving process.`,
}

func init() {
	rateLimitCmd.AddCommand(rateLimitListCmd)
	rateLimitCmd.AddCommand(rateLimitResetCmd)
	rootCmd.AddCommand(rateLimitCmd)
}
