package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bffagent/bffagent/internal/output"
	"github.com/bffagent/bffagent/internal/store"
)

var (
	rateLimitListAll    bool
	rateLimitListPrefix string
)

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored rate limit windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		db, err := openConfiguredStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		query := store.RateLimitQuery{
			All:    rateLimitListAll,
			Prefix: strings.TrimSpace(rateLimitListPrefix),
		}
		if !query.All && query.Prefix == "" {
			query.All = true
		}

		entries, err := db.ListRateLimits(cmd.Context(), query)
		if err != nil {
			return err
		}

		rendered, err := output.NewFormatter(format).FormatRateLimits(entries)
		if err != nil {
			return err
		}

		sink, err := openCommandSink(cmd, "rate-limit.list", format)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		_, err = fmt.Fprintln(sink.writer, rendered)
		return err
	},
}

func init() {
	addOutputFlags(rateLimitListCmd, "table|json|yaml|markdown")
	rateLimitListCmd.Flags().BoolVar(&rateLimitListAll, "all", false, "List all clients")
	rateLimitListCmd.Flags().StringVar(&rateLimitListPrefix, "prefix", "", "List clients whose key starts with prefix")
}
