package claude

import "strings"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

func NewTextMessage(role Role, text string) Message {
	return Message{
		Role:  role,
		Parts: []Part{TextPart{Text: text}},
	}
}

// Text joins every TextPart of the message.
func (m Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			sb.WriteString(t.Text)
		}
	}
	return sb.String()
}

// ToolCalls returns the tool calls requested in the message.
func (m Message) ToolCalls() []ToolCallPart {
	var out []ToolCallPart
	for _, p := range m.Parts {
		if tc, ok := p.(ToolCallPart); ok {
			out = append(out, tc)
		}
	}
	return out
}
