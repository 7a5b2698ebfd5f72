package anthropic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type StopReason string

const (
	StopReasonEndTurn      StopReason = "end_turn"
	StopReasonMaxTokens    StopReason = "max_tokens"
	StopReasonStopSequence StopReason = "stop_sequence"
	StopReasonToolUse      StopReason = "tool_use"
	StopReasonPauseTurn    StopReason = "pause_turn"
	StopReasonRefusal      StopReason = "refusal"
)

// ============================================================================
// Messages
// ============================================================================

type Message struct {
	Role    Role     `json:"role"`
	Content Contents `json:"content"`
}

// NewUserMessage builds a user turn.
func NewUserMessage(content ...Content) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage builds an assistant turn.
func NewAssistantMessage(content ...Content) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// UserText builds a user turn holding a single text block.
func UserText(text string) Message {
	return NewUserMessage(Text{Text: text})
}

func (m Message) Validate() error {
	if err := required("message", "role", m.Role == ""); err != nil {
		return err
	}
	return m.Content.Validate()
}

type Metadata struct {
	UserID string `json:"user_id,omitempty"`
}

type MessageRequest struct {
	Model         string         `json:"model"`
	Messages      []Message      `json:"messages"`
	MaxTokens     int            `json:"max_tokens"`
	System        []Text         `json:"system,omitzero"`
	Tools         Tools          `json:"tools,omitzero"`
	ToolChoice    ToolChoice     `json:"tool_choice,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty"`
	StopSequences []string       `json:"stop_sequences,omitzero"`
	Stream        *bool          `json:"stream,omitempty"`
	Metadata      *Metadata      `json:"metadata,omitempty"`
	Thinking      ThinkingConfig `json:"thinking,omitempty"`
	TopK          *int           `json:"top_k,omitempty"`
	TopP          *float64       `json:"top_p,omitempty"`
}

func (r MessageRequest) Validate() error {
	if err := required("request", "model", r.Model == ""); err != nil {
		return err
	}
	if err := required("request", "max_tokens", r.MaxTokens <= 0); err != nil {
		return err
	}
	if err := required("request", "messages", len(r.Messages) == 0); err != nil {
		return err
	}
	for i, m := range r.Messages {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("anthropic: message %d: %w", i, err)
		}
	}
	for _, t := range r.Tools {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	if r.Thinking != nil {
		if err := r.Thinking.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r *MessageRequest) UnmarshalJSON(data []byte) error {
	type alias MessageRequest
	aux := struct {
		alias
		System     json.RawMessage `json:"system"`
		ToolChoice json.RawMessage `json:"tool_choice"`
		Thinking   json.RawMessage `json:"thinking"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.System) > 0 {
		if aux.System[0] == '"' {
			var text string
			if err := json.Unmarshal(aux.System, &text); err != nil {
				return err
			}
			aux.alias.System = []Text{{Text: text}}
		} else if err := json.Unmarshal(aux.System, &aux.alias.System); err != nil {
			return err
		}
	}
	if len(aux.ToolChoice) > 0 {
		tc, err := DecodeToolChoice(aux.ToolChoice)
		if err != nil {
			return err
		}
		aux.alias.ToolChoice = tc
	}
	if len(aux.Thinking) > 0 {
		tc, err := DecodeThinkingConfig(aux.Thinking)
		if err != nil {
			return err
		}
		aux.alias.Thinking = tc
	}
	*r = MessageRequest(aux.alias)
	return nil
}

// MessageResponse is a completed assistant turn.
type MessageResponse struct {
	ID           string      `json:"id"`
	Role         Role        `json:"role"`
	Content      Contents    `json:"content"`
	Model        string      `json:"model"`
	StopReason   *StopReason `json:"stop_reason,omitempty"`
	StopSequence *string     `json:"stop_sequence,omitempty"`
	Usage        Usage       `json:"usage"`
}

func (MessageResponse) GetType() string { return "message" }
func (MessageResponse) isResponse()     {}

func (m MessageResponse) MarshalJSON() ([]byte, error) {
	type alias MessageResponse
	return encodeObject("message", alias(m), Properties{})
}

// Text joins the text blocks of the response.
func (m MessageResponse) Text() string {
	var sb strings.Builder
	for _, c := range m.Content {
		if t, ok := c.(Text); ok {
			sb.WriteString(t.Text)
		}
	}
	return sb.String()
}

// ToolUses returns the client tool calls requested by the model.
func (m MessageResponse) ToolUses() []ToolUse {
	var out []ToolUse
	for _, c := range m.Content {
		if tu, ok := c.(ToolUse); ok {
			out = append(out, tu)
		}
	}
	return out
}

// AsMessage turns the response into an assistant turn for the next request.
func (m MessageResponse) AsMessage() Message {
	return Message{Role: RoleAssistant, Content: m.Content}
}

// ============================================================================
// Tool choice
// ============================================================================

// ToolChoice is one of ToolChoiceAuto, ToolChoiceAny, ToolChoiceTool or
// ToolChoiceNone.
type ToolChoice interface {
	GetType() string
	isToolChoice()
}

type ToolChoiceAuto struct {
	DisableParallelToolUse *bool `json:"disable_parallel_tool_use,omitempty"`
}

func (ToolChoiceAuto) GetType() string { return "auto" }
func (ToolChoiceAuto) isToolChoice()   {}

func (t ToolChoiceAuto) MarshalJSON() ([]byte, error) {
	type alias ToolChoiceAuto
	return encodeObject("auto", alias(t), Properties{})
}

type ToolChoiceAny struct {
	DisableParallelToolUse *bool `json:"disable_parallel_tool_use,omitempty"`
}

func (ToolChoiceAny) GetType() string { return "any" }
func (ToolChoiceAny) isToolChoice()   {}

func (t ToolChoiceAny) MarshalJSON() ([]byte, error) {
	type alias ToolChoiceAny
	return encodeObject("any", alias(t), Properties{})
}

type ToolChoiceTool struct {
	Name                   string `json:"name"`
	DisableParallelToolUse *bool  `json:"disable_parallel_tool_use,omitempty"`
}

func (ToolChoiceTool) GetType() string { return "tool" }
func (ToolChoiceTool) isToolChoice()   {}

func (t ToolChoiceTool) MarshalJSON() ([]byte, error) {
	type alias ToolChoiceTool
	return encodeObject("tool", alias(t), Properties{})
}

type ToolChoiceNone struct{}

func (ToolChoiceNone) GetType() string { return "none" }
func (ToolChoiceNone) isToolChoice()   {}

func (ToolChoiceNone) MarshalJSON() ([]byte, error) {
	return []byte(`{"type":"none"}`), nil
}

func DecodeToolChoice(data []byte) (ToolChoice, error) {
	typ := gjson.GetBytes(data, "type").String()
	var (
		tc  ToolChoice
		err error
	)
	switch typ {
	case "auto":
		var v ToolChoiceAuto
		err = json.Unmarshal(data, &v)
		tc = v
	case "any":
		var v ToolChoiceAny
		err = json.Unmarshal(data, &v)
		tc = v
	case "tool":
		var v ToolChoiceTool
		err = json.Unmarshal(data, &v)
		tc = v
	case "none":
		tc = ToolChoiceNone{}
	default:
		err = fmt.Errorf("unknown tool choice")
	}
	if err != nil {
		return nil, &DecodeError{Kind: "tool choice", Type: typ, Raw: string(data), Err: err}
	}
	return tc, nil
}

// ============================================================================
// Extended thinking
// ============================================================================

// MinThinkingBudget is the smallest budget the API accepts.
const MinThinkingBudget = 1024

// ThinkingConfig is ThinkingEnabled or ThinkingDisabled.
type ThinkingConfig interface {
	GetType() string
	Validate() error
	isThinkingConfig()
}

type ThinkingEnabled struct {
	BudgetTokens int `json:"budget_tokens"`
}

func (ThinkingEnabled) GetType() string   { return "enabled" }
func (ThinkingEnabled) isThinkingConfig() {}

func (t ThinkingEnabled) Validate() error {
	if t.BudgetTokens < MinThinkingBudget {
		return fmt.Errorf("anthropic: thinking budget_tokens must be at least %d, got %d", MinThinkingBudget, t.BudgetTokens)
	}
	return nil
}

func (t ThinkingEnabled) MarshalJSON() ([]byte, error) {
	type alias ThinkingEnabled
	return encodeObject("enabled", alias(t), Properties{})
}

type ThinkingDisabled struct{}

func (ThinkingDisabled) GetType() string   { return "disabled" }
func (ThinkingDisabled) Validate() error   { return nil }
func (ThinkingDisabled) isThinkingConfig() {}

func (ThinkingDisabled) MarshalJSON() ([]byte, error) {
	return []byte(`{"type":"disabled"}`), nil
}

func DecodeThinkingConfig(data []byte) (ThinkingConfig, error) {
	switch typ := gjson.GetBytes(data, "type").String(); typ {
	case "enabled":
		var v ThinkingEnabled
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, &DecodeError{Kind: "thinking config", Type: typ, Raw: string(data), Err: err}
		}
		return v, nil
	case "disabled":
		return ThinkingDisabled{}, nil
	default:
		return nil, &DecodeError{Kind: "thinking config", Type: typ, Raw: string(data), Err: fmt.Errorf("unknown thinking config")}
	}
}

// ============================================================================
// Responses
// ============================================================================

// Response is the top level body of an API reply: ErrorResponse,
// MessageResponse or MessageBatchResponse.
type Response interface {
	GetType() string
	isResponse()
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (ErrorResponse) GetType() string { return "error" }
func (ErrorResponse) isResponse()     {}

func (e ErrorResponse) MarshalJSON() ([]byte, error) {
	type alias ErrorResponse
	return encodeObject("error", alias(e), Properties{})
}

// DecodeResponse decodes a response body by its type member.
func DecodeResponse(data []byte) (Response, error) {
	data = bytes.TrimSpace(data)
	if !gjson.ValidBytes(data) {
		return nil, &DecodeError{Kind: "response", Raw: string(data), Err: fmt.Errorf("invalid JSON")}
	}
	typ := gjson.GetBytes(data, "type").String()

	var (
		resp Response
		err  error
	)
	switch typ {
	case "message":
		var v MessageResponse
		err = json.Unmarshal(data, &v)
		resp = v
	case "error":
		var v ErrorResponse
		err = json.Unmarshal(data, &v)
		resp = v
	case "message_batch":
		var v MessageBatchResponse
		err = json.Unmarshal(data, &v)
		resp = v
	default:
		err = fmt.Errorf("unknown response type")
	}
	if err != nil {
		return nil, &DecodeError{Kind: "response", Type: typ, Raw: string(data), Err: err}
	}
	return resp, nil
}

// TokenCount is the reply of the count_tokens endpoint.
type TokenCount struct {
	InputTokens int `json:"input_tokens"`
}
