package anthropic

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	ContentTypeText                = "text"
	ContentTypeImage               = "image"
	ContentTypeDocument            = "document"
	ContentTypeToolUse             = "tool_use"
	ContentTypeToolResult          = "tool_result"
	ContentTypeThinking            = "thinking"
	ContentTypeRedactedThinking    = "redacted_thinking"
	ContentTypeServerToolUse       = "server_tool_use"
	ContentTypeWebSearchToolResult = "web_search_tool_result"
	ContentTypeWebFetchToolResult  = "web_fetch_tool_result"
)

// Content is a single block inside a message. The concrete type is the
// discriminator: it is not stored on the value and is written as the "type"
// member when the block is encoded.
//
// Values are immutable by convention. Use the With* helpers, which return
// modified copies.
type Content interface {
	GetType() string
	Validate() error
	isContent()
}

// ============================================================================
// Text
// ============================================================================

type Text struct {
	Text         string        `json:"text"`
	Citations    Citations     `json:"citations,omitzero"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

func (Text) GetType() string { return ContentTypeText }
func (Text) Validate() error { return nil }
func (Text) isContent()      {}

func (t Text) WithCacheControl(cc *CacheControl) Text {
	t.CacheControl = cc
	return t
}

func (t Text) MarshalJSON() ([]byte, error) {
	type alias Text
	return encodeObject(ContentTypeText, alias(t), Properties{})
}

// ============================================================================
// Image and Document
// ============================================================================

type Image struct {
	Source       Source        `json:"source"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

func (Image) GetType() string { return ContentTypeImage }
func (Image) isContent()      {}

func (i Image) Validate() error {
	if i.Source == nil {
		return &ValidationError{Type: ContentTypeImage, Field: "source"}
	}
	return i.Source.Validate()
}

func (i Image) WithCacheControl(cc *CacheControl) Image {
	i.CacheControl = cc
	return i
}

func (i Image) MarshalJSON() ([]byte, error) {
	type alias Image
	return encodeObject(ContentTypeImage, alias(i), Properties{})
}

func (i *Image) UnmarshalJSON(data []byte) error {
	type alias Image
	aux := struct {
		alias
		Source json.RawMessage `json:"source"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Source) > 0 {
		src, err := DecodeSource(aux.Source)
		if err != nil {
			return err
		}
		aux.alias.Source = src
	}
	*i = Image(aux.alias)
	return nil
}

type Document struct {
	Source       Source           `json:"source"`
	Title        *string          `json:"title,omitempty"`
	Context      *string          `json:"context,omitempty"`
	Citations    *CitationsConfig `json:"citations,omitempty"`
	CacheControl *CacheControl    `json:"cache_control,omitempty"`
}

func (Document) GetType() string { return ContentTypeDocument }
func (Document) isContent()      {}

func (d Document) Validate() error {
	if d.Source == nil {
		return &ValidationError{Type: ContentTypeDocument, Field: "source"}
	}
	return d.Source.Validate()
}

func (d Document) WithCacheControl(cc *CacheControl) Document {
	d.CacheControl = cc
	return d
}

// WithTitle returns a copy of d carrying title.
func (d Document) WithTitle(title string) Document {
	d.Title = &title
	return d
}

// WithCitations returns a copy of d with citations switched on or off.
func (d Document) WithCitations(enabled bool) Document {
	d.Citations = &CitationsConfig{Enabled: enabled}
	return d
}

func (d Document) MarshalJSON() ([]byte, error) {
	type alias Document
	return encodeObject(ContentTypeDocument, alias(d), Properties{})
}

func (d *Document) UnmarshalJSON(data []byte) error {
	type alias Document
	aux := struct {
		alias
		Source json.RawMessage `json:"source"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Source) > 0 {
		src, err := DecodeSource(aux.Source)
		if err != nil {
			return err
		}
		aux.alias.Source = src
	}
	*d = Document(aux.alias)
	return nil
}

// ============================================================================
// Tool use and tool result
// ============================================================================

// ToolUse is a request from the model to call a client tool. Input is kept as
// raw JSON; decode it with DecodeInput or dispatch it through a Toolbox.
type ToolUse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Input        json.RawMessage `json:"input"`
	CacheControl *CacheControl   `json:"cache_control,omitempty"`
}

// NewToolUse marshals input and validates the required fields.
func NewToolUse(id, name string, input any) (ToolUse, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return ToolUse{}, fmt.Errorf("anthropic: tool_use input: %w", err)
	}
	tu := ToolUse{ID: id, Name: name, Input: raw}
	return tu, tu.Validate()
}

func (ToolUse) GetType() string { return ContentTypeToolUse }
func (ToolUse) isContent()      {}

func (t ToolUse) Validate() error {
	if err := required(ContentTypeToolUse, "id", t.ID == ""); err != nil {
		return err
	}
	if err := required(ContentTypeToolUse, "name", t.Name == ""); err != nil {
		return err
	}
	return required(ContentTypeToolUse, "input", len(t.Input) == 0)
}

func (t ToolUse) WithCacheControl(cc *CacheControl) ToolUse {
	t.CacheControl = cc
	return t
}

func (t ToolUse) MarshalJSON() ([]byte, error) {
	type alias ToolUse
	return encodeObject(ContentTypeToolUse, alias(t), Properties{})
}

type ToolResult struct {
	ToolUseID    string        `json:"tool_use_id"`
	Content      Contents      `json:"content,omitzero"`
	IsError      *bool         `json:"is_error,omitempty"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

// NewToolResult builds a successful tool result.
func NewToolResult(toolUseID string, content ...Content) (ToolResult, error) {
	tr := ToolResult{ToolUseID: toolUseID, Content: content}
	return tr, tr.Validate()
}

// NewToolError builds a tool result reporting err to the model.
func NewToolError(toolUseID string, err error) ToolResult {
	isError := true
	return ToolResult{
		ToolUseID: toolUseID,
		Content:   Contents{Text{Text: err.Error()}},
		IsError:   &isError,
	}
}

func (ToolResult) GetType() string { return ContentTypeToolResult }
func (ToolResult) isContent()      {}

func (t ToolResult) Validate() error {
	if err := required(ContentTypeToolResult, "tool_use_id", t.ToolUseID == ""); err != nil {
		return err
	}
	return t.Content.Validate()
}

// Failed reports whether the result is flagged as an error.
func (t ToolResult) Failed() bool {
	return t.IsError != nil && *t.IsError
}

func (t ToolResult) WithCacheControl(cc *CacheControl) ToolResult {
	t.CacheControl = cc
	return t
}

func (t ToolResult) MarshalJSON() ([]byte, error) {
	type alias ToolResult
	return encodeObject(ContentTypeToolResult, alias(t), Properties{})
}

// ============================================================================
// Thinking
// ============================================================================

// ThinkingBlock is the model's visible reasoning. It must be replayed
// verbatim, signature included, in follow-up requests.
type ThinkingBlock struct {
	Thinking     string        `json:"thinking"`
	Signature    string        `json:"signature"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

func (ThinkingBlock) GetType() string { return ContentTypeThinking }
func (ThinkingBlock) Validate() error { return nil }
func (ThinkingBlock) isContent()      {}

func (t ThinkingBlock) WithCacheControl(cc *CacheControl) ThinkingBlock {
	t.CacheControl = cc
	return t
}

func (t ThinkingBlock) MarshalJSON() ([]byte, error) {
	type alias ThinkingBlock
	return encodeObject(ContentTypeThinking, alias(t), Properties{})
}

// RedactedThinkingBlock is reasoning the API returned encrypted.
type RedactedThinkingBlock struct {
	Data         string        `json:"data"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

func (RedactedThinkingBlock) GetType() string { return ContentTypeRedactedThinking }
func (RedactedThinkingBlock) isContent()      {}

func (r RedactedThinkingBlock) Validate() error {
	return required(ContentTypeRedactedThinking, "data", r.Data == "")
}

func (r RedactedThinkingBlock) WithCacheControl(cc *CacheControl) RedactedThinkingBlock {
	r.CacheControl = cc
	return r
}

func (r RedactedThinkingBlock) MarshalJSON() ([]byte, error) {
	type alias RedactedThinkingBlock
	return encodeObject(ContentTypeRedactedThinking, alias(r), Properties{})
}

// ============================================================================
// Unknown
// ============================================================================

// UnknownContent holds a block whose type this version does not know. It
// re-encodes to the members it was decoded from.
type UnknownContent struct {
	Type  string     `json:"type"`
	Extra Properties `json:"-"`
}

func (u UnknownContent) GetType() string { return u.Type }
func (UnknownContent) Validate() error   { return nil }
func (UnknownContent) isContent()        {}

func (u UnknownContent) MarshalJSON() ([]byte, error) {
	type alias UnknownContent
	return encodeObject("", alias(u), u.Extra)
}

func (u *UnknownContent) UnmarshalJSON(data []byte) error {
	type alias UnknownContent
	var a alias
	extra, err := decodeOpen(data, &a)
	if err != nil {
		return err
	}
	a.Extra = extra
	*u = UnknownContent(a)
	return nil
}

// ============================================================================
// Lists
// ============================================================================

// Contents is an ordered list of blocks. On decode a bare JSON string is
// accepted and becomes a single Text block.
type Contents []Content

func (cs Contents) Validate() error {
	for i, c := range cs {
		if c == nil {
			return fmt.Errorf("anthropic: content %d is nil", i)
		}
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (cs Contents) MarshalJSON() ([]byte, error) {
	if cs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Content(cs))
}

func (cs *Contents) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*cs = Contents{Text{Text: text}}
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Contents, 0, len(raws))
	for _, raw := range raws {
		c, err := DecodeContent(raw)
		if err != nil {
			return err
		}
		out = append(out, c)
	}
	*cs = out
	return nil
}
