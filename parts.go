package claude

import "encoding/json"

type Part interface {
	isPart()
}

type TextPart struct {
	Text string `json:"text"`
}

func (TextPart) isPart() {}

type ToolCallPart struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"arguments"`
}

func (ToolCallPart) isPart() {}

// ToolResultPart answers a ToolCallPart. A non-nil Error marks the call as
// failed; Result is still sent to the model.
type ToolResultPart struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Result     string `json:"result"`
	Error      error  `json:"-"`
}

func (ToolResultPart) isPart() {}
