package anthropic

import (
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const startFrame = `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"claude-test","content":[],"stop_reason":null,"usage":{"input_tokens":10,"output_tokens":1}}}`

func decodeFrames(t *testing.T, frames ...string) []Event {
	t.Helper()
	out := make([]Event, 0, len(frames))
	for _, f := range frames {
		ev, err := DecodeEvent([]byte(f))
		require.NoError(t, err, f)
		out = append(out, ev)
	}
	return out
}

func accumulate(t *testing.T, frames ...string) (*MessageAccumulator, error) {
	t.Helper()
	acc := NewMessageAccumulator()
	for _, ev := range decodeFrames(t, frames...) {
		if err := acc.Accumulate(ev); err != nil {
			return acc, err
		}
	}
	return acc, nil
}

func eventSeq(events []Event, tail error) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for _, ev := range events {
			if !yield(ev, nil) {
				return
			}
		}
		if tail != nil {
			yield(nil, tail)
		}
	}
}

func TestAccumulator_Blocks(t *testing.T) {
	tests := []struct {
		name   string
		frames []string
		want   Contents
	}{
		{
			name: "text",
			frames: []string{
				`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
				`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`,
				`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":", world"}}`,
				`{"type":"content_block_stop","index":0}`,
			},
			want: Contents{Text{Text: "Hello, world"}},
		},
		{
			name: "thinking with signature",
			frames: []string{
				`{"type":"content_block_start","index":0,"content_block":{"type":"thinking","thinking":"","signature":""}}`,
				`{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"Let me "}}`,
				`{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"think."}}`,
				`{"type":"content_block_delta","index":0,"delta":{"type":"signature_delta","signature":"EqQB"}}`,
				`{"type":"content_block_stop","index":0}`,
			},
			want: Contents{ThinkingBlock{Thinking: "Let me think.", Signature: "EqQB"}},
		},
		{
			name: "citations",
			frames: []string{
				`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
				`{"type":"content_block_delta","index":0,"delta":{"type":"citations_delta","citation":{"type":"char_location","cited_text":"sky","document_index":0,"start_char_index":4,"end_char_index":7}}}`,
				`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"The sky is blue"}}`,
				`{"type":"content_block_stop","index":0}`,
			},
			want: Contents{Text{
				Text:      "The sky is blue",
				Citations: Citations{CharLocation{CitedText: "sky", StartCharIndex: 4, EndCharIndex: 7}},
			}},
		},
		{
			name: "tool input fragments",
			frames: []string{
				`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_1","name":"get_weather","input":{}}}`,
				`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":""}}`,
				`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"city\": "}}`,
				`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"\"Paris\"}"}}`,
				`{"type":"content_block_stop","index":0}`,
			},
			want: Contents{ToolUse{ID: "toolu_1", Name: "get_weather", Input: json.RawMessage(`{"city":"Paris"}`)}},
		},
		{
			name: "tool without fragments keeps announced input",
			frames: []string{
				`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_1","name":"now","input":{}}}`,
				`{"type":"content_block_stop","index":0}`,
			},
			want: Contents{ToolUse{ID: "toolu_1", Name: "now", Input: json.RawMessage(`{}`)}},
		},
		{
			name: "server tool input",
			frames: []string{
				`{"type":"content_block_start","index":0,"content_block":{"type":"server_tool_use","id":"srvtoolu_1","name":"web_search","input":{}}}`,
				`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"query\":\"go generics\"}"}}`,
				`{"type":"content_block_stop","index":0}`,
			},
			want: Contents{WebSearchServerToolUse{ID: "srvtoolu_1", Input: WebSearchInput{Query: "go generics"}}},
		},
		{
			name: "blocks ordered by index",
			frames: []string{
				`{"type":"content_block_start","index":1,"content_block":{"type":"text","text":"second"}}`,
				`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":"first"}}`,
				`{"type":"content_block_stop","index":1}`,
				`{"type":"content_block_stop","index":0}`,
			},
			want: Contents{Text{Text: "first"}, Text{Text: "second"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames := append([]string{startFrame}, tt.frames...)
			frames = append(frames,
				`{"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":7}}`,
				`{"type":"message_stop"}`,
			)
			acc, err := accumulate(t, frames...)
			require.NoError(t, err)
			require.True(t, acc.Done())

			msg, err := acc.Message()
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg.Content)
			assert.Equal(t, "msg_1", msg.ID)
			require.NotNil(t, msg.StopReason)
			assert.Equal(t, StopReasonEndTurn, *msg.StopReason)
			assert.Equal(t, 10, msg.Usage.InputTokens)
			assert.Equal(t, 8, msg.Usage.OutputTokens)
		})
	}
}

func TestAccumulator_UnknownBlockPassesThrough(t *testing.T) {
	acc, err := accumulate(t,
		startFrame,
		`{"type":"content_block_start","index":0,"content_block":{"type":"container_upload","file_id":"file_1"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"upload_delta","bytes":12}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"message_stop"}`,
	)
	require.NoError(t, err)

	msg, err := acc.Message()
	require.NoError(t, err)
	require.Len(t, msg.Content, 1)

	out, err := json.Marshal(msg.Content[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"container_upload","file_id":"file_1"}`, string(out))
}

func TestAccumulator_MalformedToolInput(t *testing.T) {
	tests := []struct {
		name    string
		partial string
		raw     string
	}{
		{name: "truncated object", partial: `"{\"a\":"`, raw: `{"a":`},
		{name: "array", partial: `"[1]"`, raw: `[1]`},
		{name: "string", partial: `"\"x\""`, raw: `"x"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := accumulate(t,
				startFrame,
				`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_1","name":"calc","input":{}}}`,
				`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":`+tt.partial+`}}`,
				`{"type":"content_block_stop","index":0}`,
			)
			var decErr *DecodeError
			require.ErrorAs(t, err, &decErr)
			assert.Equal(t, "calc", decErr.Type)
			assert.Equal(t, tt.raw, decErr.Raw)
		})
	}
}

func TestAccumulator_ProtocolErrors(t *testing.T) {
	textStart := `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`
	tests := []struct {
		name   string
		frames []string
		target error
	}{
		{
			name:   "duplicate message_start",
			frames: []string{startFrame, startFrame},
			target: ErrDuplicateMessageStart,
		},
		{
			name:   "event before message_start",
			frames: []string{textStart},
			target: ErrMissingMessageStart,
		},
		{
			name:   "block started twice",
			frames: []string{startFrame, textStart, textStart},
		},
		{
			name:   "delta for unknown index",
			frames: []string{startFrame, `{"type":"content_block_delta","index":4,"delta":{"type":"text_delta","text":"x"}}`},
		},
		{
			name:   "delta after block stop",
			frames: []string{startFrame, textStart, `{"type":"content_block_stop","index":0}`, `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"x"}}`},
		},
		{
			name:   "stop for unknown index",
			frames: []string{startFrame, `{"type":"content_block_stop","index":0}`},
		},
		{
			name:   "message_stop with open block",
			frames: []string{startFrame, textStart, `{"type":"message_stop"}`},
		},
		{
			name:   "event after message_stop",
			frames: []string{startFrame, `{"type":"message_stop"}`, `{"type":"message_delta","delta":{},"usage":{"output_tokens":1}}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := accumulate(t, tt.frames...)
			var protoErr *ProtocolError
			require.ErrorAs(t, err, &protoErr)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestAccumulator_ErrorIsSticky(t *testing.T) {
	acc := NewMessageAccumulator()
	events := decodeFrames(t, `{"type":"message_stop"}`, startFrame)

	first := acc.Accumulate(events[0])
	require.Error(t, first)
	assert.Equal(t, first, acc.Accumulate(events[1]))

	_, err := acc.Message()
	assert.Equal(t, first, err)
}

func TestAccumulator_IgnoresPingAndUnknownEvents(t *testing.T) {
	acc, err := accumulate(t,
		`{"type":"ping"}`,
		startFrame,
		`{"type":"ping"}`,
		`{"type":"message_annotation","note":"ignored"}`,
		`{"type":"message_stop"}`,
	)
	require.NoError(t, err)

	msg, err := acc.Message()
	require.NoError(t, err)
	assert.Empty(t, msg.Content)
}

func TestAccumulator_ErrorEvent(t *testing.T) {
	_, err := accumulate(t,
		startFrame,
		`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
	)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "overloaded_error", apiErr.Type)
	assert.Equal(t, "Overloaded", apiErr.Message)
}

func TestAccumulator_DiscardsStartContent(t *testing.T) {
	start := `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"m","content":[{"type":"text","text":"stale"}],"usage":{"input_tokens":1,"output_tokens":0}}}`
	acc, err := accumulate(t, start, `{"type":"message_stop"}`)
	require.NoError(t, err)

	msg, err := acc.Message()
	require.NoError(t, err)
	assert.Empty(t, msg.Content)
}

func TestAccumulator_Snapshot(t *testing.T) {
	acc := NewMessageAccumulator()
	assert.Nil(t, acc.Snapshot())

	_, err := acc.Message()
	assert.ErrorIs(t, err, ErrMissingMessageStart)

	for _, ev := range decodeFrames(t,
		startFrame,
		`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}`,
		`{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"calc","input":{}}}`,
		`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"x\""}}`,
	) {
		require.NoError(t, acc.Accumulate(ev))
	}

	snap := acc.Snapshot()
	require.NotNil(t, snap)
	require.Len(t, snap.Content, 2)
	assert.Equal(t, Text{Text: "Hel"}, snap.Content[0])
	assert.Equal(t, json.RawMessage(`{}`), snap.Content[1].(ToolUse).Input)

	_, err = acc.Message()
	assert.ErrorIs(t, err, ErrNoMessageStop)
	assert.False(t, acc.Done())

	// Snapshots are copies.
	snap.Content[0] = Text{Text: "changed"}
	assert.Equal(t, Text{Text: "Hel"}, acc.Snapshot().Content[0])
}

func TestAssemble(t *testing.T) {
	events := decodeFrames(t,
		startFrame,
		`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"done"}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":2}}`,
		`{"type":"message_stop"}`,
	)

	t.Run("complete", func(t *testing.T) {
		msg, err := Assemble(eventSeq(events, nil))
		require.NoError(t, err)
		assert.Equal(t, "done", msg.Text())
		assert.Equal(t, 3, msg.Usage.OutputTokens)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := Assemble(eventSeq(events[:4], nil))
		assert.ErrorIs(t, err, ErrNoMessageStop)
	})

	t.Run("transport error", func(t *testing.T) {
		boom := errors.New("connection reset")
		_, err := Assemble(eventSeq(events[:2], boom))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Assemble(eventSeq(nil, nil))
		assert.ErrorIs(t, err, ErrMissingMessageStart)
	})
}
