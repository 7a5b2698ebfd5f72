package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// MarshalContent validates c and encodes it with its type discriminator.
func MarshalContent(c Content) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("anthropic: cannot encode nil content")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(c)
}

// DecodeContent decodes a single content block. Blocks with a type this
// version does not know decode to UnknownContent so that newer API responses
// still round-trip. Use DecodeContentStrict to reject them instead.
func DecodeContent(data []byte) (Content, error) {
	return decodeContent(data, false)
}

// DecodeContentStrict is DecodeContent but fails on an unknown type.
func DecodeContentStrict(data []byte) (Content, error) {
	return decodeContent(data, true)
}

func decodeContent(data []byte, strict bool) (Content, error) {
	if !gjson.ValidBytes(data) {
		return nil, &DecodeError{Kind: "content", Raw: string(data), Err: fmt.Errorf("invalid JSON")}
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, &DecodeError{Kind: "content", Raw: string(data), Err: fmt.Errorf("not a JSON object")}
	}
	typ := root.Get("type")
	if !typ.Exists() {
		return nil, &DecodeError{Kind: "content", Raw: string(data), Err: fmt.Errorf("missing type")}
	}

	var (
		c   Content
		err error
	)
	switch typ.String() {
	case ContentTypeText:
		c, err = decodeAs[Text](data)
	case ContentTypeImage:
		c, err = decodeAs[Image](data)
	case ContentTypeDocument:
		c, err = decodeAs[Document](data)
	case ContentTypeToolUse:
		c, err = decodeAs[ToolUse](data)
	case ContentTypeToolResult:
		c, err = decodeAs[ToolResult](data)
	case ContentTypeThinking:
		c, err = decodeAs[ThinkingBlock](data)
	case ContentTypeRedactedThinking:
		c, err = decodeAs[RedactedThinkingBlock](data)
	case ContentTypeServerToolUse:
		// the outer tag is shared; the tool name picks the variant
		switch name := root.Get("name").String(); name {
		case ServerToolWebSearch:
			c, err = decodeAs[WebSearchServerToolUse](data)
		case ServerToolWebFetch:
			c, err = decodeAs[WebFetchServerToolUse](data)
		default:
			if strict {
				err = fmt.Errorf("unknown server tool %q", name)
				break
			}
			c, err = decodeAs[UnknownContent](data)
		}
	case ContentTypeWebSearchToolResult:
		c, err = decodeAs[WebSearchToolResult](data)
	case ContentTypeWebFetchToolResult:
		c, err = decodeAs[WebFetchToolResult](data)
	default:
		if strict {
			err = fmt.Errorf("unknown content type")
			break
		}
		c, err = decodeAs[UnknownContent](data)
	}
	if err != nil {
		return nil, &DecodeError{Kind: "content", Type: typ.String(), Raw: string(data), Err: err}
	}
	if err := c.Validate(); err != nil {
		return nil, &DecodeError{Kind: "content", Type: typ.String(), Raw: string(data), Err: err}
	}
	return c, nil
}

func decodeAs[T Content](data []byte) (Content, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
