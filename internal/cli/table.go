package cli

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/llmite-ai/claude/anthropic"
)

// newTable returns a borderless, left aligned table.
func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

// printUsage lists token counts and, when the model has a known price,
// what they cost.
func printUsage(w io.Writer, u anthropic.Usage, cost anthropic.Cost, priced bool) {
	price := func(d decimal.Decimal) string {
		if !priced {
			return "-"
		}
		return "$" + d.String()
	}

	table := newTable(w, "USAGE", "TOKENS", "COST")
	table.Append([]string{"input", strconv.Itoa(u.InputTokens), price(cost.InputTokens)})
	table.Append([]string{"output", strconv.Itoa(u.OutputTokens), price(cost.OutputTokens)})
	if u.CacheCreationInputTokens != nil {
		table.Append([]string{"cache creation", strconv.Itoa(*u.CacheCreationInputTokens), price(cost.CacheWriteTokens())})
	}
	if u.CacheReadInputTokens != nil {
		table.Append([]string{"cache read", strconv.Itoa(*u.CacheReadInputTokens), price(cost.CacheReadTokens)})
	}
	table.Append([]string{"total", strconv.Itoa(u.Total()), price(cost.Total())})
	table.Render()
}
