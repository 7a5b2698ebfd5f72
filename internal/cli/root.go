// Package cli provides the command-line interface for the claude client.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spf13/cobra"

	"github.com/llmite-ai/claude/anthropic"
	"github.com/llmite-ai/claude/internal/config"
)

// app carries the state shared by all subcommands.
type app struct {
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "claude",
		Short: "Talk to the Anthropic Messages API",
		Long: `claude sends requests to the Anthropic Messages API and prints the replies.

Examples:
  claude message "Why is the sky blue?"          # single reply
  claude message --stream "Tell me a story"      # print text as it streams
  claude count-tokens "How long is this?"        # token count without a call
  claude batch get msgbatch_01                   # batch status
  claude sniff photo.png report.pdf              # detect attachment types`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.config/claude/config.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")

	root.AddCommand(newMessageCmd(a))
	root.AddCommand(newCountTokensCmd(a))
	root.AddCommand(newBatchCmd(a))
	root.AddCommand(newSniffCmd())

	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) init(stderr io.Writer) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	a.cfg = cfg
	a.logger = cfg.Logger(stderr)
	return nil
}

// client builds an API client from the loaded configuration. Extra
// modifiers are applied last.
func (a *app) client(mods ...anthropic.Modifier) *anthropic.Client {
	var opts []option.RequestOption
	if a.cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(a.cfg.APIKey))
	}
	if a.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(a.cfg.BaseURL))
	}
	opts = append(opts, option.WithMaxRetries(a.cfg.MaxRetries))

	base := []anthropic.Modifier{
		anthropic.WithAnthropicClientOptions(opts...),
		anthropic.WithLogger(a.logger),
		anthropic.WithModel(a.cfg.Model),
		anthropic.WithMaxTokens(a.cfg.MaxTokens),
	}
	if len(a.cfg.Betas) > 0 {
		base = append(base, anthropic.WithBeta(a.cfg.Betas...))
	}
	if a.cfg.Logging.HTTP {
		base = append(base, anthropic.WithHttpLogging())
	}
	return anthropic.New(append(base, mods...)...)
}

// prompt joins args, or reads stdin when there are none.
func prompt(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read prompt: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("a prompt is required")
	}
	return text, nil
}
