package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/llmite-ai/claude"
)

// ToolHandler runs a client tool the model asked for.
type ToolHandler interface {
	Definition() Tool
	Call(ctx context.Context, input json.RawMessage) (any, error)
}

// FuncTool is a ToolHandler backed by a typed function. The input schema is
// reflected from In.
type FuncTool[In any] struct {
	tool DefaultTool
	fn   func(context.Context, In) (any, error)
}

func NewFuncTool[In any](name, description string, fn func(context.Context, In) (any, error)) (*FuncTool[In], error) {
	tool, err := ToolFor[In](name, description)
	if err != nil {
		return nil, err
	}
	return &FuncTool[In]{tool: tool, fn: fn}, nil
}

func (f *FuncTool[In]) Definition() Tool { return f.tool }

func (f *FuncTool[In]) Call(ctx context.Context, input json.RawMessage) (any, error) {
	var in In
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input for %s: %w", f.tool.Name, err)
	}
	return f.fn(ctx, in)
}

type executorTool struct {
	tool     DefaultTool
	executor claude.Executor
}

// AdaptTool turns a provider-neutral tool into a ToolHandler. The tool must
// implement claude.Executor.
func AdaptTool(t claude.Tool) (ToolHandler, error) {
	exec, ok := t.(claude.Executor)
	if !ok {
		return nil, fmt.Errorf("anthropic: tool %s does not implement claude.Executor", t.Name())
	}
	def, err := NewDefaultTool(t.Name(), t.Description(), t.Schema())
	if err != nil {
		return nil, err
	}
	return &executorTool{tool: def, executor: exec}, nil
}

func (e *executorTool) Definition() Tool { return e.tool }

func (e *executorTool) Call(ctx context.Context, input json.RawMessage) (any, error) {
	res := e.executor.Execute(ctx, input)
	if res == nil {
		return nil, fmt.Errorf("tool %s returned no result", e.tool.Name)
	}
	if res.Error != nil {
		return nil, res.Error
	}
	return res.Content, nil
}

// Toolbox maps tool names to handlers. A ToolUse is never modified; the
// toolbox is passed wherever its input needs decoding or running.
type Toolbox struct {
	handlers map[string]ToolHandler
	order    []string
	logger   *slog.Logger
}

func NewToolbox(handlers ...ToolHandler) *Toolbox {
	tb := &Toolbox{handlers: map[string]ToolHandler{}, logger: slog.Default()}
	for _, h := range handlers {
		tb.Register(h)
	}
	return tb
}

// WithLogger sets the logger used to report failing tools.
func (tb *Toolbox) WithLogger(logger *slog.Logger) *Toolbox {
	if logger != nil {
		tb.logger = logger
	}
	return tb
}

// Register adds h, replacing any handler with the same name.
func (tb *Toolbox) Register(h ToolHandler) {
	name := h.Definition().ToolName()
	if _, ok := tb.handlers[name]; !ok {
		tb.order = append(tb.order, name)
	}
	tb.handlers[name] = h
}

func (tb *Toolbox) Lookup(name string) (ToolHandler, bool) {
	h, ok := tb.handlers[name]
	return h, ok
}

// Tools returns the definitions in registration order.
func (tb *Toolbox) Tools() Tools {
	out := make(Tools, 0, len(tb.order))
	for _, name := range tb.order {
		out = append(out, tb.handlers[name].Definition())
	}
	return out
}

// Use runs the handler for tu. Failures do not surface as errors: they are
// reported back to the model as an error tool result.
func (tb *Toolbox) Use(ctx context.Context, tu ToolUse) ToolResult {
	h, ok := tb.handlers[tu.Name]
	if !ok {
		return tb.failed(ctx, tu, fmt.Errorf("unknown tool: %s", tu.Name))
	}

	out, err := callSafely(ctx, h, tu.Input)
	if err != nil {
		return tb.failed(ctx, tu, err)
	}
	content, err := toolOutput(out)
	if err != nil {
		return tb.failed(ctx, tu, err)
	}
	return ToolResult{ToolUseID: tu.ID, Content: content}
}

func (tb *Toolbox) failed(ctx context.Context, tu ToolUse, err error) ToolResult {
	tb.logger.WarnContext(ctx, "tool use failed",
		slog.String("tool", tu.Name),
		slog.String("tool_use_id", tu.ID),
		slog.String("error", err.Error()))
	return NewToolError(tu.ID, err)
}

func callSafely(ctx context.Context, h ToolHandler, input json.RawMessage) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return h.Call(ctx, input)
}

// UseAll runs every tool use in resp and returns the user turn answering
// them, in the order the model asked.
func (tb *Toolbox) UseAll(ctx context.Context, resp *MessageResponse) Message {
	msg := Message{Role: RoleUser}
	for _, tu := range resp.ToolUses() {
		msg.Content = append(msg.Content, tb.Use(ctx, tu))
	}
	return msg
}

// DecodeInput decodes the raw input of tu into In.
func DecodeInput[In any](tu ToolUse) (In, error) {
	var in In
	if len(tu.Input) == 0 {
		return in, errors.New("anthropic: tool_use has no input")
	}
	if err := json.Unmarshal(tu.Input, &in); err != nil {
		return in, fmt.Errorf("anthropic: tool_use %s input: %w", tu.Name, err)
	}
	return in, nil
}

// toolOutput maps a handler's return value onto tool result content.
func toolOutput(out any) (Contents, error) {
	switch v := out.(type) {
	case nil:
		return nil, nil
	case string:
		return Contents{Text{Text: v}}, nil
	case Content:
		return Contents{v}, nil
	case Contents:
		return v, nil
	case []Content:
		return Contents(v), nil
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("cannot encode tool output: %w", err)
	}
	return Contents{Text{Text: string(raw)}}, nil
}
