package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bffagent/bffagent/internal/output"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "List recorded chat sessions or print one transcript",
	Long: `List chat sessions recorded with "chat --persist", most recent first.

Pass a session id to print that conversation.`,
	Args: cobra.MaximumNArgs(1),
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

		formatter := output.NewFormatter(format)

		var (
			rendered string
			name     = "history"
		)
		if len(args) == 1 {
			sessionID := strings.TrimSpace(args[0])
			msgs, err := db.Messages(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
			rendered, err = formatter.FormatTranscript(&output.Transcript{SessionID: sessionID, Messages: msgs})
			if err != nil {
				return err
			}
			name = "history." + strings.ToLower(sessionID)
		} else {
			convs, err := db.ListConversations(cmd.Context(), historyLimit)
			if err != nil {
				return err
			}
			rendered, err = formatter.FormatConversations(convs)
			if err != nil {
				return err
			}
		}

		sink, err := openCommandSink(cmd, name, format)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		_, err = fmt.Fprintln(sink.writer, rendered)
		return err
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	addOutputFlags(historyCmd, "table|json|yaml|markdown")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum sessions to list (0 for all)")
}
