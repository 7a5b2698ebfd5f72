// Package testutil holds tools shared by the tests of this module.
package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/llmite-ai/claude"
)

// BoopTool translates boops into beeps. It runs locally, so it implements
// claude.Executor.
type BoopTool struct{}

func NewBoopTool() claude.Tool {
	return &BoopTool{}
}

func (t *BoopTool) Name() string {
	return "boop"
}

func (t *BoopTool) Description() string {
	return `Translates boops for the user. It takes a single parameter, "boops", a string containing the boops, and returns their translation.`
}

type BoopToolParams struct {
	BoopString string `json:"boops" jsonschema:"title=Boop String,description=The string containing the boops"`
}

func (t *BoopTool) Schema() *jsonschema.Schema {
	return claude.GenerateSchema[BoopToolParams]()
}

func (t *BoopTool) Execute(ctx context.Context, args []byte) *claude.ToolResult {
	var params BoopToolParams
	if err := json.Unmarshal(args, &params); err != nil {
		return &claude.ToolResult{ID: "boop", Error: err}
	}
	if strings.TrimSpace(params.BoopString) == "" {
		return &claude.ToolResult{ID: "boop", Error: errors.New("no boops given")}
	}
	return &claude.ToolResult{
		ID:      "boop",
		Content: strings.ReplaceAll(params.BoopString, "boop", "beep"),
	}
}

// SchemaOnlyTool is described to the model but cannot run locally.
type SchemaOnlyTool struct{}

func (SchemaOnlyTool) Name() string        { return "lookup" }
func (SchemaOnlyTool) Description() string { return "Looks up a record by id." }

func (SchemaOnlyTool) Schema() *jsonschema.Schema {
	return claude.GenerateSchema[struct {
		ID string `json:"id"`
	}]()
}
