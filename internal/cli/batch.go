package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/llmite-ai/claude/anthropic"
)

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Inspect message batches",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show the status of a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := a.client().GetBatch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printBatch(cmd, batch)
			return nil
		},
	})

	return cmd
}

func printBatch(cmd *cobra.Command, b *anthropic.MessageBatchResponse) {
	table := newTable(cmd.OutOrStdout(), "FIELD", "VALUE")
	table.Append([]string{"id", b.ID})
	table.Append([]string{"status", string(b.ProcessingStatus)})
	table.Append([]string{"processing", strconv.Itoa(b.RequestCounts.Processing)})
	table.Append([]string{"succeeded", strconv.Itoa(b.RequestCounts.Succeeded)})
	table.Append([]string{"errored", strconv.Itoa(b.RequestCounts.Errored)})
	table.Append([]string{"canceled", strconv.Itoa(b.RequestCounts.Canceled)})
	table.Append([]string{"expired", strconv.Itoa(b.RequestCounts.Expired)})
	table.Append([]string{"created", b.CreatedAt.Format(time.RFC3339)})
	if b.EndedAt != nil {
		table.Append([]string{"ended", b.EndedAt.Format(time.RFC3339)})
	}
	if b.ResultsURL != nil {
		table.Append([]string{"results", *b.ResultsURL})
	}
	table.Render()
}
