package claude

import (
	"context"

	"github.com/invopop/jsonschema"
)

// Tool defines the interface that all tools must implement
type Tool interface {
	// Name of the tool.
	//
	// This is how the tool will be called by the model and in `tool_use` blocks.
	Name() string

	// Description of what this tool does.
	//
	// Tool descriptions should be as detailed as possible. The more information that
	// the model has about what the tool is and how to use it, the better it will
	// perform.
	Description() string

	// Schema defines the shape of the `input` that your tool accepts and that the
	// model will produce.
	Schema() *jsonschema.Schema
}

// Executor is implemented by tools that can run locally.
type Executor interface {
	Execute(ctx context.Context, args []byte) *ToolResult
}

// ToolResult represents the result of tool execution
type ToolResult struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Error   error  `json:"-"`
}

// ToPart converts the result into a ToolResultPart answering the call named
// name.
func (r *ToolResult) ToPart(callID, name string) ToolResultPart {
	part := ToolResultPart{ToolCallID: callID, Name: name, Result: r.Content, Error: r.Error}
	if r.Error != nil && part.Result == "" {
		part.Result = r.Error.Error()
	}
	return part
}

// GenerateSchema reflects a JSON schema for T suitable as a tool input
// schema: definitions are inlined and unknown properties are rejected.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	schema.Version = ""
	schema.ID = jsonschema.EmptyID
	return schema
}
