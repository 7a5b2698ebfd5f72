package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/llmite-ai/claude/anthropic"
)

// sniffLen is enough bytes for every signature DetectMagicNumber knows.
const sniffLen = 16

func newSniffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sniff <file>...",
		Short: "Detect the media type of attachments",
		Long: `Classify files by their leading bytes the way attachments are classified
before upload. Files that match no supported signature are reported as unknown.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := newTable(cmd.OutOrStdout(), "FILE", "MEDIA TYPE", "KIND")
			for _, path := range args {
				head, err := readHead(path)
				if err != nil {
					return err
				}
				mt, ok := anthropic.DetectMagicNumber(head)
				switch {
				case !ok:
					table.Append([]string{path, "unknown", "-"})
				case mt.IsImage():
					table.Append([]string{path, string(mt), "image"})
				default:
					table.Append([]string{path, string(mt), "document"})
				}
			}
			table.Render()
			return nil
		},
	}
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return head[:n], nil
}
