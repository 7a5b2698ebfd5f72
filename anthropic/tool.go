package anthropic

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/tidwall/gjson"

	"github.com/llmite-ai/claude"
)

// Built-in tool names. These stay stable across tool generations while the
// type carries a dated version.
const (
	ToolNameBash              = "bash"
	ToolNameComputer          = "computer"
	ToolNameTextEditor        = "str_replace_based_edit_tool"
	ToolNameTextEditorLegacy  = "str_replace_editor"
	ServerToolWebSearch       = "web_search"
	ServerToolWebFetch        = "web_fetch"
	ToolTypeCustom            = "custom"
	DefaultBashToolType       = "bash_20250124"
	DefaultComputerToolType   = "computer_20250124"
	DefaultTextEditorToolType = "text_editor_20250728"
	DefaultWebSearchToolType  = "web_search_20250305"
	DefaultWebFetchToolType   = "web_fetch_20250910"
)

// Tool is a tool definition sent with a request. It is one of DefaultTool,
// Bash, Computer, TextEditor, WebSearch, WebFetch or UnknownTool.
type Tool interface {
	// ToolName is how the model refers to the tool in tool_use blocks.
	ToolName() string
	GetType() string
	Validate() error
	isTool()
}

// ============================================================================
// User defined tools
// ============================================================================

// DefaultTool is a tool implemented by the application. Type is normally
// empty; "custom" is preserved when the API sends it.
type DefaultTool struct {
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	InputSchema  json.RawMessage `json:"input_schema"`
	Type         string          `json:"type,omitempty"`
	CacheControl *CacheControl   `json:"cache_control,omitempty"`
}

// NewDefaultTool builds a user tool from a JSON schema.
func NewDefaultTool(name, description string, schema *jsonschema.Schema) (DefaultTool, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return DefaultTool{}, fmt.Errorf("anthropic: tool %s schema: %w", name, err)
	}
	t := DefaultTool{Name: name, Description: description, InputSchema: raw}
	return t, t.Validate()
}

// ToolFor builds a user tool whose input schema is reflected from In.
func ToolFor[In any](name, description string) (DefaultTool, error) {
	return NewDefaultTool(name, description, claude.GenerateSchema[In]())
}

func (t DefaultTool) ToolName() string { return t.Name }
func (DefaultTool) isTool()            {}

func (t DefaultTool) GetType() string {
	if t.Type == "" {
		return ToolTypeCustom
	}
	return t.Type
}

func (t DefaultTool) Validate() error {
	if err := required("tool", "name", t.Name == ""); err != nil {
		return err
	}
	return required("tool", "input_schema", len(t.InputSchema) == 0)
}

func (t DefaultTool) WithCacheControl(cc *CacheControl) DefaultTool {
	t.CacheControl = cc
	return t
}

// ============================================================================
// Built-in tools
// ============================================================================

// Bash lets the model run shell commands through the application.
type Bash struct {
	Type         string        `json:"type"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

func (Bash) ToolName() string  { return ToolNameBash }
func (Bash) Validate() error   { return nil }
func (Bash) isTool()           {}
func (b Bash) GetType() string { return orDefault(b.Type, DefaultBashToolType) }

func (b Bash) MarshalJSON() ([]byte, error) {
	type alias Bash
	b.Type = b.GetType()
	return encodeObject("", struct {
		Name string `json:"name"`
		alias
	}{ToolNameBash, alias(b)}, Properties{})
}

type BashInput struct {
	Command string `json:"command,omitempty"`
	Restart bool   `json:"restart,omitempty"`
}

// Computer lets the model drive a desktop through screenshots, mouse and
// keyboard actions.
type Computer struct {
	Type            string        `json:"type"`
	DisplayWidthPx  int           `json:"display_width_px"`
	DisplayHeightPx int           `json:"display_height_px"`
	DisplayNumber   *int          `json:"display_number,omitempty"`
	CacheControl    *CacheControl `json:"cache_control,omitempty"`
}

func (Computer) ToolName() string  { return ToolNameComputer }
func (Computer) isTool()           {}
func (c Computer) GetType() string { return orDefault(c.Type, DefaultComputerToolType) }

func (c Computer) Validate() error {
	if err := required(ToolNameComputer, "display_width_px", c.DisplayWidthPx <= 0); err != nil {
		return err
	}
	return required(ToolNameComputer, "display_height_px", c.DisplayHeightPx <= 0)
}

func (c Computer) MarshalJSON() ([]byte, error) {
	type alias Computer
	c.Type = c.GetType()
	return encodeObject("", struct {
		Name string `json:"name"`
		alias
	}{ToolNameComputer, alias(c)}, Properties{})
}

type ComputerAction string

const (
	ComputerKey            ComputerAction = "key"
	ComputerType           ComputerAction = "type"
	ComputerMouseMove      ComputerAction = "mouse_move"
	ComputerLeftClick      ComputerAction = "left_click"
	ComputerLeftClickDrag  ComputerAction = "left_click_drag"
	ComputerRightClick     ComputerAction = "right_click"
	ComputerMiddleClick    ComputerAction = "middle_click"
	ComputerDoubleClick    ComputerAction = "double_click"
	ComputerScreenshot     ComputerAction = "screenshot"
	ComputerCursorPosition ComputerAction = "cursor_position"
)

type ComputerInput struct {
	Action     ComputerAction `json:"action"`
	Coordinate []int          `json:"coordinate,omitzero"`
	Text       string         `json:"text,omitempty"`
}

// TextEditor lets the model view and edit files. Name distinguishes the
// current tool from the legacy str_replace_editor.
type TextEditor struct {
	Name          string        `json:"name"`
	Type          string        `json:"type"`
	MaxCharacters *int          `json:"max_characters,omitempty"`
	CacheControl  *CacheControl `json:"cache_control,omitempty"`
}

func (t TextEditor) ToolName() string { return orDefault(t.Name, ToolNameTextEditor) }
func (TextEditor) Validate() error    { return nil }
func (TextEditor) isTool()            {}
func (t TextEditor) GetType() string  { return orDefault(t.Type, DefaultTextEditorToolType) }

func (t TextEditor) MarshalJSON() ([]byte, error) {
	type alias TextEditor
	t.Name = t.ToolName()
	t.Type = t.GetType()
	return encodeObject("", alias(t), Properties{})
}

type TextEditorCommand string

const (
	TextEditorView       TextEditorCommand = "view"
	TextEditorCreate     TextEditorCommand = "create"
	TextEditorStrReplace TextEditorCommand = "str_replace"
	TextEditorInsert     TextEditorCommand = "insert"
	TextEditorUndoEdit   TextEditorCommand = "undo_edit"
)

type TextEditorInput struct {
	Command    TextEditorCommand `json:"command"`
	Path       string            `json:"path"`
	FileText   *string           `json:"file_text,omitempty"`
	InsertLine *int              `json:"insert_line,omitempty"`
	NewStr     *string           `json:"new_str,omitempty"`
	OldStr     *string           `json:"old_str,omitempty"`
	ViewRange  []int             `json:"view_range,omitzero"`
}

// WebSearch is run by the API; results come back as WebSearchToolResult.
type WebSearch struct {
	Type           string        `json:"type"`
	MaxUses        *int          `json:"max_uses,omitempty"`
	AllowedDomains []string      `json:"allowed_domains,omitzero"`
	BlockedDomains []string      `json:"blocked_domains,omitzero"`
	UserLocation   *UserLocation `json:"user_location,omitempty"`
	CacheControl   *CacheControl `json:"cache_control,omitempty"`
}

func (WebSearch) ToolName() string  { return ServerToolWebSearch }
func (WebSearch) isTool()           {}
func (w WebSearch) GetType() string { return orDefault(w.Type, DefaultWebSearchToolType) }

func (w WebSearch) Validate() error {
	if len(w.AllowedDomains) > 0 && len(w.BlockedDomains) > 0 {
		return fmt.Errorf("anthropic: web_search: allowed_domains and blocked_domains are mutually exclusive")
	}
	return nil
}

func (w WebSearch) MarshalJSON() ([]byte, error) {
	type alias WebSearch
	w.Type = w.GetType()
	return encodeObject("", struct {
		Name string `json:"name"`
		alias
	}{ServerToolWebSearch, alias(w)}, Properties{})
}

type WebSearchInput struct {
	Query string `json:"query"`
}

func (WebSearchInput) ServerToolName() string { return ServerToolWebSearch }

// WebFetch is run by the API; results come back as WebFetchToolResult.
type WebFetch struct {
	Type             string           `json:"type"`
	MaxUses          *int             `json:"max_uses,omitempty"`
	AllowedDomains   []string         `json:"allowed_domains,omitzero"`
	BlockedDomains   []string         `json:"blocked_domains,omitzero"`
	Citations        *CitationsConfig `json:"citations,omitempty"`
	MaxContentTokens *int             `json:"max_content_tokens,omitempty"`
	CacheControl     *CacheControl    `json:"cache_control,omitempty"`
}

func (WebFetch) ToolName() string  { return ServerToolWebFetch }
func (WebFetch) isTool()           {}
func (w WebFetch) GetType() string { return orDefault(w.Type, DefaultWebFetchToolType) }

func (w WebFetch) Validate() error {
	if len(w.AllowedDomains) > 0 && len(w.BlockedDomains) > 0 {
		return fmt.Errorf("anthropic: web_fetch: allowed_domains and blocked_domains are mutually exclusive")
	}
	return nil
}

func (w WebFetch) MarshalJSON() ([]byte, error) {
	type alias WebFetch
	w.Type = w.GetType()
	return encodeObject("", struct {
		Name string `json:"name"`
		alias
	}{ServerToolWebFetch, alias(w)}, Properties{})
}

type WebFetchInput struct {
	URL string `json:"url"`
}

func (WebFetchInput) ServerToolName() string { return ServerToolWebFetch }

// UnknownTool keeps a tool definition this version does not recognise.
type UnknownTool struct {
	Type  string     `json:"type"`
	Name  string     `json:"name,omitempty"`
	Extra Properties `json:"-"`
}

func (u UnknownTool) ToolName() string { return u.Name }
func (u UnknownTool) GetType() string  { return u.Type }
func (UnknownTool) Validate() error    { return nil }
func (UnknownTool) isTool()            {}

func (u UnknownTool) MarshalJSON() ([]byte, error) {
	type alias UnknownTool
	return encodeObject("", alias(u), u.Extra)
}

func (u *UnknownTool) UnmarshalJSON(data []byte) error {
	type alias UnknownTool
	var a alias
	extra, err := decodeOpen(data, &a)
	if err != nil {
		return err
	}
	a.Extra = extra
	*u = UnknownTool(a)
	return nil
}

// ============================================================================
// Codec
// ============================================================================

// DecodeTool decodes a tool definition. An object without a type is a user
// tool. Built-in tools are recognised by name because their type carries a
// version that changes between tool generations.
func DecodeTool(data []byte) (Tool, error) {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, &DecodeError{Kind: "tool", Raw: string(data), Err: fmt.Errorf("not a JSON object")}
	}
	typ := gjson.GetBytes(data, "type")
	name := gjson.GetBytes(data, "name").String()

	var (
		t   Tool
		err error
	)
	switch {
	case !typ.Exists() || typ.Type == gjson.Null || typ.String() == ToolTypeCustom:
		t, err = decodeToolAs[DefaultTool](data)
	case name == ToolNameBash:
		t, err = decodeToolAs[Bash](data)
	case name == ToolNameComputer:
		t, err = decodeToolAs[Computer](data)
	case name == ToolNameTextEditor, name == ToolNameTextEditorLegacy:
		t, err = decodeToolAs[TextEditor](data)
	case name == ServerToolWebSearch:
		t, err = decodeToolAs[WebSearch](data)
	case name == ServerToolWebFetch:
		t, err = decodeToolAs[WebFetch](data)
	default:
		t, err = decodeToolAs[UnknownTool](data)
	}
	if err == nil {
		err = t.Validate()
	}
	if err != nil {
		return nil, &DecodeError{Kind: "tool", Type: typ.String(), Raw: string(data), Err: err}
	}
	return t, nil
}

func decodeToolAs[T Tool](data []byte) (Tool, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Tools is a list of tool definitions.
type Tools []Tool

func (ts *Tools) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Tools, 0, len(raws))
	for _, raw := range raws {
		t, err := DecodeTool(raw)
		if err != nil {
			return err
		}
		out = append(out, t)
	}
	*ts = out
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
