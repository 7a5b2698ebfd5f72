package anthropic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// ServerToolInput is the argument type of a tool the API runs itself.
type ServerToolInput interface {
	ServerToolName() string
}

// ServerToolUse records a server tool invocation. All server tools share the
// "server_tool_use" type on the wire and are told apart by name, which is
// derived from the input type.
type ServerToolUse[In ServerToolInput] struct {
	ID           string        `json:"id"`
	Input        In            `json:"input"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

type (
	WebSearchServerToolUse = ServerToolUse[WebSearchInput]
	WebFetchServerToolUse  = ServerToolUse[WebFetchInput]
)

func (ServerToolUse[In]) GetType() string { return ContentTypeServerToolUse }
func (ServerToolUse[In]) isContent()      {}

// Name returns the server tool name, e.g. "web_search".
func (ServerToolUse[In]) Name() string {
	var in In
	return in.ServerToolName()
}

func (s ServerToolUse[In]) Validate() error {
	return required(ContentTypeServerToolUse, "id", s.ID == "")
}

func (s ServerToolUse[In]) WithCacheControl(cc *CacheControl) ServerToolUse[In] {
	s.CacheControl = cc
	return s
}

func (s ServerToolUse[In]) MarshalJSON() ([]byte, error) {
	return encodeObject(ContentTypeServerToolUse, struct {
		ID           string        `json:"id"`
		Name         string        `json:"name"`
		Input        In            `json:"input"`
		CacheControl *CacheControl `json:"cache_control,omitempty"`
	}{s.ID, s.Name(), s.Input, s.CacheControl}, Properties{})
}

// ============================================================================
// Web search
// ============================================================================

type WebSearchErrorCode string

const (
	WebSearchTooManyRequests WebSearchErrorCode = "too_many_requests"
	WebSearchInvalidInput    WebSearchErrorCode = "invalid_input"
	WebSearchMaxUsesExceeded WebSearchErrorCode = "max_uses_exceeded"
	WebSearchQueryTooLong    WebSearchErrorCode = "query_too_long"
	WebSearchUnavailable     WebSearchErrorCode = "unavailable"
)

type WebSearchToolResult struct {
	ToolUseID    string                     `json:"tool_use_id"`
	Content      WebSearchToolResultContent `json:"content"`
	CacheControl *CacheControl              `json:"cache_control,omitempty"`
}

// WebSearchToolResultContent is WebSearchResults or WebSearchToolResultError.
type WebSearchToolResultContent interface {
	isWebSearchToolResultContent()
}

type WebSearchResults []WebSearchResult

func (WebSearchResults) isWebSearchToolResultContent() {}

func (r WebSearchResults) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]WebSearchResult(r))
}

type WebSearchResult struct {
	Title            string  `json:"title"`
	URL              string  `json:"url"`
	EncryptedContent string  `json:"encrypted_content"`
	PageAge          *string `json:"page_age,omitempty"`
}

func (r WebSearchResult) MarshalJSON() ([]byte, error) {
	type alias WebSearchResult
	return encodeObject("web_search_result", alias(r), Properties{})
}

type WebSearchToolResultError struct {
	ErrorCode WebSearchErrorCode `json:"error_code"`
}

func (WebSearchToolResultError) isWebSearchToolResultContent() {}

func (e WebSearchToolResultError) MarshalJSON() ([]byte, error) {
	type alias WebSearchToolResultError
	return encodeObject("web_search_tool_result_error", alias(e), Properties{})
}

func (WebSearchToolResult) GetType() string { return ContentTypeWebSearchToolResult }
func (WebSearchToolResult) isContent()      {}

func (w WebSearchToolResult) Validate() error {
	if err := required(ContentTypeWebSearchToolResult, "tool_use_id", w.ToolUseID == ""); err != nil {
		return err
	}
	return required(ContentTypeWebSearchToolResult, "content", w.Content == nil)
}

func (w WebSearchToolResult) WithCacheControl(cc *CacheControl) WebSearchToolResult {
	w.CacheControl = cc
	return w
}

func (w WebSearchToolResult) MarshalJSON() ([]byte, error) {
	type alias WebSearchToolResult
	return encodeObject(ContentTypeWebSearchToolResult, alias(w), Properties{})
}

func (w *WebSearchToolResult) UnmarshalJSON(data []byte) error {
	type alias WebSearchToolResult
	aux := struct {
		alias
		Content json.RawMessage `json:"content"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	content, err := decodeWebSearchContent(aux.Content)
	if err != nil {
		return err
	}
	aux.alias.Content = content
	*w = WebSearchToolResult(aux.alias)
	return nil
}

// decodeWebSearchContent tells the two content shapes apart by structure:
// an array is a result list and an object with error_code is an error.
func decodeWebSearchContent(raw json.RawMessage) (WebSearchToolResultContent, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	value := gjson.ParseBytes(raw)
	switch {
	case value.IsArray():
		results := WebSearchResults{}
		if err := json.Unmarshal(raw, (*[]WebSearchResult)(&results)); err != nil {
			return nil, err
		}
		return results, nil
	case value.IsObject() && value.Get("error_code").Exists():
		var e WebSearchToolResultError
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, &DecodeError{
		Kind: "web search result content",
		Raw:  string(raw),
		Err:  fmt.Errorf("expected an array of results or an object with error_code"),
	}
}

// ============================================================================
// Web fetch
// ============================================================================

type WebFetchErrorCode string

const (
	WebFetchInvalidInput           WebFetchErrorCode = "invalid_input"
	WebFetchURLTooLong             WebFetchErrorCode = "url_too_long"
	WebFetchURLNotAllowed          WebFetchErrorCode = "url_not_allowed"
	WebFetchURLNotAccessible       WebFetchErrorCode = "url_not_accessible"
	WebFetchTooManyRequests        WebFetchErrorCode = "too_many_requests"
	WebFetchUnsupportedContentType WebFetchErrorCode = "unsupported_content_type"
	WebFetchMaxUsesExceeded        WebFetchErrorCode = "max_uses_exceeded"
	WebFetchUnavailable            WebFetchErrorCode = "unavailable"
)

type WebFetchToolResult struct {
	ToolUseID    string                    `json:"tool_use_id"`
	Content      WebFetchToolResultContent `json:"content"`
	CacheControl *CacheControl             `json:"cache_control,omitempty"`
}

// WebFetchToolResultContent is WebFetchResult or WebFetchToolResultError.
type WebFetchToolResultContent interface {
	isWebFetchToolResultContent()
}

// WebFetchResult is a fetched page. RetrievedAt is kept as sent so the block
// round-trips exactly; RetrievedTime parses it.
type WebFetchResult struct {
	URL         string  `json:"url"`
	RetrievedAt string  `json:"retrieved_at,omitempty"`
	Content     Content `json:"content"`
}

func (WebFetchResult) isWebFetchToolResultContent() {}

// RetrievedTime parses RetrievedAt as RFC 3339.
func (r WebFetchResult) RetrievedTime() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, r.RetrievedAt)
}

func (r WebFetchResult) MarshalJSON() ([]byte, error) {
	type alias WebFetchResult
	return encodeObject("web_fetch_result", alias(r), Properties{})
}

func (r *WebFetchResult) UnmarshalJSON(data []byte) error {
	type alias WebFetchResult
	aux := struct {
		alias
		Content json.RawMessage `json:"content"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Content) > 0 && !bytes.Equal(aux.Content, []byte("null")) {
		c, err := DecodeContent(aux.Content)
		if err != nil {
			return err
		}
		aux.alias.Content = c
	}
	*r = WebFetchResult(aux.alias)
	return nil
}

type WebFetchToolResultError struct {
	ErrorCode WebFetchErrorCode `json:"error_code"`
}

func (WebFetchToolResultError) isWebFetchToolResultContent() {}

func (e WebFetchToolResultError) MarshalJSON() ([]byte, error) {
	type alias WebFetchToolResultError
	return encodeObject("web_fetch_tool_result_error", alias(e), Properties{})
}

func (WebFetchToolResult) GetType() string { return ContentTypeWebFetchToolResult }
func (WebFetchToolResult) isContent()      {}

func (w WebFetchToolResult) Validate() error {
	if err := required(ContentTypeWebFetchToolResult, "tool_use_id", w.ToolUseID == ""); err != nil {
		return err
	}
	return required(ContentTypeWebFetchToolResult, "content", w.Content == nil)
}

func (w WebFetchToolResult) WithCacheControl(cc *CacheControl) WebFetchToolResult {
	w.CacheControl = cc
	return w
}

func (w WebFetchToolResult) MarshalJSON() ([]byte, error) {
	type alias WebFetchToolResult
	return encodeObject(ContentTypeWebFetchToolResult, alias(w), Properties{})
}

func (w *WebFetchToolResult) UnmarshalJSON(data []byte) error {
	type alias WebFetchToolResult
	aux := struct {
		alias
		Content json.RawMessage `json:"content"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	content, err := decodeWebFetchContent(aux.Content)
	if err != nil {
		return err
	}
	aux.alias.Content = content
	*w = WebFetchToolResult(aux.alias)
	return nil
}

func decodeWebFetchContent(raw json.RawMessage) (WebFetchToolResultContent, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	value := gjson.ParseBytes(raw)
	if !value.IsObject() {
		return nil, &DecodeError{
			Kind: "web fetch result content",
			Raw:  string(raw),
			Err:  fmt.Errorf("expected an object"),
		}
	}
	if value.Get("error_code").Exists() {
		var e WebFetchToolResultError
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		return e, nil
	}
	var r WebFetchResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return r, nil
}
