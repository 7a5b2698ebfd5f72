package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmite-ai/claude/testutil"
)

type addInput struct {
	A int `json:"a"`
	B int `json:"b"`
}

func newAddTool(t *testing.T) ToolHandler {
	t.Helper()
	h, err := NewFuncTool("add", "Adds two integers", func(ctx context.Context, in addInput) (any, error) {
		return map[string]int{"sum": in.A + in.B}, nil
	})
	require.NoError(t, err)
	return h
}

func TestFuncTool_Definition(t *testing.T) {
	def, ok := newAddTool(t).Definition().(DefaultTool)
	require.True(t, ok)

	assert.Equal(t, "add", def.Name)
	assert.Equal(t, "Adds two integers", def.Description)
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {"a": {"type": "integer"}, "b": {"type": "integer"}},
		"required": ["a", "b"],
		"additionalProperties": false
	}`, string(def.InputSchema))
}

func TestToolbox_Use(t *testing.T) {
	failing, err := NewFuncTool("fail", "Always fails", func(ctx context.Context, in struct{}) (any, error) {
		return nil, errors.New("disk on fire")
	})
	require.NoError(t, err)
	panicking, err := NewFuncTool("panic", "Panics", func(ctx context.Context, in struct{}) (any, error) {
		panic("boom")
	})
	require.NoError(t, err)
	blocks, err := NewFuncTool("blocks", "Returns blocks", func(ctx context.Context, in struct{}) (any, error) {
		return Contents{Text{Text: "a"}, Text{Text: "b"}}, nil
	})
	require.NoError(t, err)
	text, err := NewFuncTool("text", "Returns text", func(ctx context.Context, in struct{}) (any, error) {
		return "plain", nil
	})
	require.NoError(t, err)

	var logs bytes.Buffer
	tb := NewToolbox(newAddTool(t), failing, panicking, blocks, text).
		WithLogger(slog.New(slog.NewJSONHandler(&logs, nil)))

	tests := []struct {
		name    string
		use     ToolUse
		failed  bool
		content Contents
	}{
		{
			name:    "json output",
			use:     ToolUse{ID: "t1", Name: "add", Input: json.RawMessage(`{"a":2,"b":3}`)},
			content: Contents{Text{Text: `{"sum":5}`}},
		},
		{
			name:    "string output",
			use:     ToolUse{ID: "t2", Name: "text", Input: json.RawMessage(`{}`)},
			content: Contents{Text{Text: "plain"}},
		},
		{
			name:    "content output",
			use:     ToolUse{ID: "t3", Name: "blocks", Input: json.RawMessage(`{}`)},
			content: Contents{Text{Text: "a"}, Text{Text: "b"}},
		},
		{
			name:    "handler error",
			use:     ToolUse{ID: "t4", Name: "fail", Input: json.RawMessage(`{}`)},
			failed:  true,
			content: Contents{Text{Text: "disk on fire"}},
		},
		{
			name:   "handler panic",
			use:    ToolUse{ID: "t5", Name: "panic", Input: json.RawMessage(`{}`)},
			failed: true,
		},
		{
			name:   "unknown tool",
			use:    ToolUse{ID: "t6", Name: "nope", Input: json.RawMessage(`{}`)},
			failed: true,
		},
		{
			name:   "invalid input",
			use:    ToolUse{ID: "t7", Name: "add", Input: json.RawMessage(`{"a":"two"}`)},
			failed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tb.Use(context.Background(), tt.use)

			assert.Equal(t, tt.use.ID, res.ToolUseID)
			assert.Equal(t, tt.failed, res.Failed())
			if tt.content != nil {
				assert.Equal(t, tt.content, res.Content)
			}
		})
	}

	assert.Contains(t, logs.String(), `"msg":"tool use failed"`)
	assert.Contains(t, logs.String(), `"tool":"nope"`)
}

func TestToolbox_Tools(t *testing.T) {
	boop, err := AdaptTool(testutil.NewBoopTool())
	require.NoError(t, err)

	tb := NewToolbox(newAddTool(t), boop)
	tb.Register(newAddTool(t))

	tools := tb.Tools()
	require.Len(t, tools, 2)
	assert.Equal(t, "add", tools[0].ToolName())
	assert.Equal(t, "boop", tools[1].ToolName())

	_, ok := tb.Lookup("boop")
	assert.True(t, ok)
	_, ok = tb.Lookup("missing")
	assert.False(t, ok)
}

func TestAdaptTool(t *testing.T) {
	_, err := AdaptTool(testutil.SchemaOnlyTool{})
	assert.Error(t, err)

	h, err := AdaptTool(testutil.NewBoopTool())
	require.NoError(t, err)

	out, err := h.Call(context.Background(), json.RawMessage(`{"boops":"boop boop"}`))
	require.NoError(t, err)
	assert.Equal(t, "beep beep", out)

	_, err = h.Call(context.Background(), json.RawMessage(`{"boops":""}`))
	assert.ErrorContains(t, err, "no boops")
}

func TestToolbox_UseAll(t *testing.T) {
	tb := NewToolbox(newAddTool(t))
	resp := &MessageResponse{
		Content: Contents{
			Text{Text: "Adding."},
			ToolUse{ID: "t1", Name: "add", Input: json.RawMessage(`{"a":1,"b":1}`)},
			ToolUse{ID: "t2", Name: "add", Input: json.RawMessage(`{"a":2,"b":2}`)},
		},
	}

	msg := tb.UseAll(context.Background(), resp)

	assert.Equal(t, RoleUser, msg.Role)
	require.Len(t, msg.Content, 2)
	assert.Equal(t, "t1", msg.Content[0].(ToolResult).ToolUseID)
	assert.Equal(t, "t2", msg.Content[1].(ToolResult).ToolUseID)
	assert.Equal(t, Contents{Text{Text: `{"sum":4}`}}, msg.Content[1].(ToolResult).Content)
}

func TestDecodeInput(t *testing.T) {
	in, err := DecodeInput[addInput](ToolUse{Name: "add", Input: json.RawMessage(`{"a":4,"b":5}`)})
	require.NoError(t, err)
	assert.Equal(t, addInput{A: 4, B: 5}, in)

	_, err = DecodeInput[addInput](ToolUse{Name: "add"})
	assert.Error(t, err)

	_, err = DecodeInput[addInput](ToolUse{Name: "add", Input: json.RawMessage(`[1]`)})
	assert.Error(t, err)
}
