package anthropic

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRequest_Marshal(t *testing.T) {
	temp := 0.2
	stream := true
	req := MessageRequest{
		Model:         "claude-test",
		MaxTokens:     512,
		System:        []Text{{Text: "Be brief."}},
		Messages:      []Message{UserText("hi")},
		Tools:         Tools{Bash{}},
		ToolChoice:    ToolChoiceTool{Name: ToolNameBash},
		Temperature:   &temp,
		StopSequences: []string{"END"},
		Stream:        &stream,
		Thinking:      ThinkingEnabled{BudgetTokens: 2048},
	}

	out, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"model": "claude-test",
		"max_tokens": 512,
		"system": [{"type":"text","text":"Be brief."}],
		"messages": [{"role":"user","content":[{"type":"text","text":"hi"}]}],
		"tools": [{"type":"bash_20250124","name":"bash"}],
		"tool_choice": {"type":"tool","name":"bash"},
		"temperature": 0.2,
		"stop_sequences": ["END"],
		"stream": true,
		"thinking": {"type":"enabled","budget_tokens":2048}
	}`, string(out))

	var back MessageRequest
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, req.ToolChoice, back.ToolChoice)
	assert.Equal(t, req.Thinking, back.Thinking)
	assert.Equal(t, req.System, back.System)
	assert.NoError(t, back.Validate())
}

func TestMessageRequest_MinimalOmitsOptionalFields(t *testing.T) {
	out, err := json.Marshal(MessageRequest{Model: "m", MaxTokens: 1, Messages: []Message{UserText("x")}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"model":"m","max_tokens":1,"messages":[{"role":"user","content":[{"type":"text","text":"x"}]}]}`, string(out))
}

func TestMessageRequest_Unmarshal(t *testing.T) {
	tests := []struct {
		name  string
		json  string
		check func(t *testing.T, r MessageRequest)
	}{
		{
			name: "string system and content",
			json: `{"model":"m","max_tokens":10,"system":"You are terse.","messages":[{"role":"user","content":"Hello"}]}`,
			check: func(t *testing.T, r MessageRequest) {
				assert.Equal(t, []Text{{Text: "You are terse."}}, r.System)
				assert.Equal(t, Contents{Text{Text: "Hello"}}, r.Messages[0].Content)
			},
		},
		{
			name: "tool choice auto",
			json: `{"model":"m","max_tokens":10,"messages":[],"tool_choice":{"type":"auto","disable_parallel_tool_use":true}}`,
			check: func(t *testing.T, r MessageRequest) {
				tc := r.ToolChoice.(ToolChoiceAuto)
				require.NotNil(t, tc.DisableParallelToolUse)
				assert.True(t, *tc.DisableParallelToolUse)
			},
		},
		{
			name: "tool choice any",
			json: `{"model":"m","max_tokens":10,"messages":[],"tool_choice":{"type":"any"}}`,
			check: func(t *testing.T, r MessageRequest) {
				assert.Equal(t, ToolChoiceAny{}, r.ToolChoice)
			},
		},
		{
			name: "tool choice none",
			json: `{"model":"m","max_tokens":10,"messages":[],"tool_choice":{"type":"none"}}`,
			check: func(t *testing.T, r MessageRequest) {
				assert.Equal(t, ToolChoiceNone{}, r.ToolChoice)
			},
		},
		{
			name: "thinking disabled",
			json: `{"model":"m","max_tokens":10,"messages":[],"thinking":{"type":"disabled"}}`,
			check: func(t *testing.T, r MessageRequest) {
				assert.Equal(t, ThinkingDisabled{}, r.Thinking)
			},
		},
		{
			name: "mixed tools",
			json: `{"model":"m","max_tokens":10,"messages":[],"tools":[{"name":"f","input_schema":{"type":"object"}},{"type":"web_search_20250305","name":"web_search"}]}`,
			check: func(t *testing.T, r MessageRequest) {
				require.Len(t, r.Tools, 2)
				assert.IsType(t, DefaultTool{}, r.Tools[0])
				assert.IsType(t, WebSearch{}, r.Tools[1])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r MessageRequest
			require.NoError(t, json.Unmarshal([]byte(tt.json), &r))
			tt.check(t, r)
		})
	}
}

func TestMessageRequest_Validate(t *testing.T) {
	valid := func() MessageRequest {
		return MessageRequest{Model: "m", MaxTokens: 10, Messages: []Message{UserText("hi")}}
	}

	tests := []struct {
		name   string
		mutate func(r *MessageRequest)
		field  string
	}{
		{"valid", func(r *MessageRequest) {}, ""},
		{"no model", func(r *MessageRequest) { r.Model = "" }, "model"},
		{"no max tokens", func(r *MessageRequest) { r.MaxTokens = 0 }, "max_tokens"},
		{"no messages", func(r *MessageRequest) { r.Messages = nil }, "messages"},
		{"message without role", func(r *MessageRequest) { r.Messages[0].Role = "" }, "role"},
		{"invalid block", func(r *MessageRequest) { r.Messages[0].Content = Contents{ToolUse{Name: "x"}} }, "id"},
		{"invalid tool", func(r *MessageRequest) { r.Tools = Tools{Computer{}} }, "display_width_px"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(&r)
			err := r.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	t.Run("thinking budget", func(t *testing.T) {
		r := valid()
		r.Thinking = ThinkingEnabled{BudgetTokens: 512}
		assert.Error(t, r.Validate())

		r.Thinking = ThinkingEnabled{BudgetTokens: MinThinkingBudget}
		assert.NoError(t, r.Validate())
	})
}

func TestDecodeToolChoice_Errors(t *testing.T) {
	for _, in := range []string{`{"type":"required"}`, `{}`, `{"type":"tool","name":7}`} {
		_, err := DecodeToolChoice([]byte(in))
		var decErr *DecodeError
		assert.ErrorAs(t, err, &decErr, in)
	}

	_, err := DecodeThinkingConfig([]byte(`{"type":"adaptive"}`))
	var decErr *DecodeError
	assert.ErrorAs(t, err, &decErr)

	_, err = DecodeThinkingConfig([]byte(`{"type":"enabled","budget_tokens":"lots"}`))
	assert.ErrorAs(t, err, &decErr)
}

func TestDecodeResponse(t *testing.T) {
	t.Run("message", func(t *testing.T) {
		resp, err := DecodeResponse([]byte(`{
			"id":"msg_1","type":"message","role":"assistant","model":"m",
			"content":[{"type":"text","text":"Hi "},{"type":"tool_use","id":"toolu_1","name":"calc","input":{"x":1}},{"type":"text","text":"there"}],
			"stop_reason":"tool_use","stop_sequence":null,
			"usage":{"input_tokens":5,"output_tokens":9,"service_tier":"standard"}
		}`))
		require.NoError(t, err)

		msg := resp.(MessageResponse)
		assert.Equal(t, "Hi there", msg.Text())
		require.Len(t, msg.ToolUses(), 1)
		assert.Equal(t, "toolu_1", msg.ToolUses()[0].ID)
		assert.Equal(t, StopReasonToolUse, *msg.StopReason)
		assert.Equal(t, []string{"service_tier"}, msg.Usage.Extra.Keys())

		turn := msg.AsMessage()
		assert.Equal(t, RoleAssistant, turn.Role)
		assert.Len(t, turn.Content, 3)
	})

	t.Run("error", func(t *testing.T) {
		resp, err := DecodeResponse([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens: required"}}`))
		require.NoError(t, err)
		assert.Equal(t, ErrorResponse{Error: ErrorDetail{Type: "invalid_request_error", Message: "max_tokens: required"}}, resp)
	})

	t.Run("batch", func(t *testing.T) {
		resp, err := DecodeResponse([]byte(`{
			"id":"msgbatch_1","type":"message_batch","processing_status":"ended",
			"request_counts":{"processing":0,"succeeded":2,"errored":0,"canceled":0,"expired":0},
			"created_at":"2025-01-01T00:00:00Z","expires_at":"2025-01-02T00:00:00Z","ended_at":"2025-01-01T01:00:00Z"
		}`))
		require.NoError(t, err)
		batch := resp.(MessageBatchResponse)
		assert.True(t, batch.Done())
		assert.Equal(t, 2, batch.RequestCounts.Succeeded)
		require.NotNil(t, batch.EndedAt)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := DecodeResponse([]byte(`{"type":"completion"}`))
		var decErr *DecodeError
		require.ErrorAs(t, err, &decErr)
		assert.Equal(t, "completion", decErr.Type)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := DecodeResponse([]byte(`<html>`))
		var decErr *DecodeError
		assert.ErrorAs(t, err, &decErr)
	})
}

func TestUsage_Add(t *testing.T) {
	a := Usage{InputTokens: 10, OutputTokens: 5, CacheReadInputTokens: ptr(3), Extra: Properties{}.With("service_tier", json.RawMessage(`"standard"`))}
	b := Usage{InputTokens: 1, OutputTokens: 2, CacheCreationInputTokens: ptr(4)}

	sum := a.Add(b)
	assert.Equal(t, 11, sum.InputTokens)
	assert.Equal(t, 7, sum.OutputTokens)
	assert.Equal(t, ptr(3), sum.CacheReadInputTokens)
	assert.Equal(t, ptr(4), sum.CacheCreationInputTokens)
	assert.Equal(t, []string{"service_tier"}, sum.Extra.Keys())
	assert.Equal(t, []string{"service_tier"}, b.Add(a).Extra.Keys())
	assert.Equal(t, 25, sum.Total())

	zero := Usage{}.Add(Usage{})
	assert.Nil(t, zero.CacheReadInputTokens)
	assert.Nil(t, zero.CacheCreationInputTokens)
	assert.Equal(t, 0, zero.Total())

	assert.Equal(t, b.Total(), b.Add(Usage{}).Total())
	assert.Equal(t, a.Add(b).Add(sum).Total(), a.Add(b.Add(sum)).Total())
}

func TestUsage_JSON(t *testing.T) {
	in := `{"input_tokens":3,"output_tokens":4,"cache_read_input_tokens":0,"server_tool_use":{"web_search_requests":1}}`
	var u Usage
	require.NoError(t, json.Unmarshal([]byte(in), &u))
	require.NotNil(t, u.CacheReadInputTokens)
	assert.Nil(t, u.CacheCreationInputTokens)

	out, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestUsageCollector(t *testing.T) {
	var c UsageCollector
	var wg sync.WaitGroup
	for i := range 50 {
		model := "claude-3-5-haiku-latest"
		if i%2 == 1 {
			model = "claude-unlisted"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add(model, Usage{InputTokens: 2, OutputTokens: 1})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, c.Calls())
	assert.Equal(t, 100, c.Usage().InputTokens)
	assert.Equal(t, 150, c.Usage().Total())

	// Only the 25 haiku calls are priced: 2 x $0.80/M + 1 x $4/M each.
	total := c.Cost().Total()
	assert.True(t, decimal.RequireFromString("0.00014").Equal(total), total.String())
}

func TestMessageBatchRequest(t *testing.T) {
	params := MessageRequest{Model: "m", MaxTokens: 10, Messages: []Message{UserText("hi")}}

	batch := NewMessageBatchRequest(params, params)
	require.Len(t, batch.Requests, 2)
	assert.NotEmpty(t, batch.Requests[0].CustomID)
	assert.NotEqual(t, batch.Requests[0].CustomID, batch.Requests[1].CustomID)
	assert.NoError(t, batch.Validate())

	partial := MessageBatchRequest{Requests: []BatchRequest{{CustomID: "keep", Params: params}, {Params: params}}}
	filled := partial.WithCustomIDs()
	assert.Equal(t, "keep", filled.Requests[0].CustomID)
	assert.NotEmpty(t, filled.Requests[1].CustomID)
	assert.Empty(t, partial.Requests[1].CustomID)

	assert.Error(t, MessageBatchRequest{}.Validate())
	assert.Error(t, NewMessageBatchRequest(MessageRequest{Model: "m"}).Validate())
}
