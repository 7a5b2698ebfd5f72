package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/llmite-ai/claude/anthropic"
)

func newCountTokensCmd(a *app) *cobra.Command {
	var opts messageOptions

	cmd := &cobra.Command{
		Use:   "count-tokens [prompt]",
		Short: "Count the input tokens of a prompt",
		Long:  `Ask the API how many input tokens a prompt would use, without generating a reply.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := prompt(cmd, args)
			if err != nil {
				return err
			}

			client := a.client(opts.modifiers()...)
			count, err := client.CountTokens(cmd.Context(), anthropic.MessageRequest{
				Messages: []anthropic.Message{anthropic.UserText(text)},
			})
			if err != nil {
				return err
			}

			table := newTable(cmd.OutOrStdout(), "MODEL", "INPUT TOKENS")
			table.Append([]string{client.Model, strconv.Itoa(count.InputTokens)})
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "model to count for (default from config)")
	cmd.Flags().StringVarP(&opts.system, "system", "s", "", "system prompt")

	return cmd
}
