package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/llmite-ai/claude/anthropic"
)

type messageOptions struct {
	stream    bool
	model     string
	maxTokens int
	system    string
	usage     bool
}

func (o messageOptions) modifiers() []anthropic.Modifier {
	var mods []anthropic.Modifier
	if o.model != "" {
		mods = append(mods, anthropic.WithModel(o.model))
	}
	if o.maxTokens > 0 {
		mods = append(mods, anthropic.WithMaxTokens(o.maxTokens))
	}
	if o.system != "" {
		mods = append(mods, anthropic.WithSystem(o.system))
	}
	return mods
}

func newMessageCmd(a *app) *cobra.Command {
	var opts messageOptions

	cmd := &cobra.Command{
		Use:   "message [prompt]",
		Short: "Send a single message",
		Long: `Send one user message and print the reply text.

The prompt is read from stdin when no argument is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMessage(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.stream, "stream", false, "print the reply as it streams")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "model to use (default from config)")
	cmd.Flags().IntVar(&opts.maxTokens, "max-tokens", 0, "maximum tokens to generate (default from config)")
	cmd.Flags().StringVarP(&opts.system, "system", "s", "", "system prompt")
	cmd.Flags().BoolVar(&opts.usage, "usage", false, "print token usage after the reply")

	return cmd
}

func (a *app) runMessage(cmd *cobra.Command, args []string, opts messageOptions) error {
	text, err := prompt(cmd, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client := a.client(opts.modifiers()...)
	req := anthropic.MessageRequest{Messages: []anthropic.Message{anthropic.UserText(text)}}
	out := cmd.OutOrStdout()

	var msg *anthropic.MessageResponse
	if opts.stream {
		msg, err = streamText(ctx, client, req, out)
	} else {
		msg, err = client.CreateMessage(ctx, req)
		if err == nil {
			fmt.Fprintln(out, msg.Text())
		}
	}
	if err != nil {
		return err
	}

	a.logger.DebugContext(ctx, "message complete",
		"id", msg.ID,
		"model", msg.Model,
		"input_tokens", msg.Usage.InputTokens,
		"output_tokens", msg.Usage.OutputTokens)

	if opts.usage {
		fmt.Fprintln(out)
		_, priced := anthropic.LookupModel(msg.Model)
		printUsage(out, client.Usage(), client.Cost(), priced)
	}
	return nil
}

// streamText writes text deltas to w as they arrive and returns the
// assembled message.
func streamText(ctx context.Context, client *anthropic.Client, req anthropic.MessageRequest, w io.Writer) (*anthropic.MessageResponse, error) {
	stream, err := client.StreamMessage(ctx, req)
	if err != nil {
		return nil, err
	}

	acc := anthropic.NewMessageAccumulator()
	for ev, err := range stream.All() {
		if err != nil {
			return nil, err
		}
		if err := acc.Accumulate(ev); err != nil {
			return nil, err
		}
		if e, ok := ev.(anthropic.ContentBlockDeltaEvent); ok {
			if d, ok := e.Delta.(anthropic.TextDelta); ok {
				fmt.Fprint(w, d.Text)
			}
		}
	}
	fmt.Fprintln(w)

	return acc.Message()
}
