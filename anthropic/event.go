package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

const (
	EventMessageStart      = "message_start"
	EventMessageDelta      = "message_delta"
	EventMessageStop       = "message_stop"
	EventContentBlockStart = "content_block_start"
	EventContentBlockDelta = "content_block_delta"
	EventContentBlockStop  = "content_block_stop"
	EventPing              = "ping"
	EventError             = "error"
)

// Event is one server-sent event of a streaming Messages call.
type Event interface {
	GetType() string
	isEvent()
}

type MessageStartEvent struct {
	Message MessageResponse `json:"message"`
}

func (MessageStartEvent) GetType() string { return EventMessageStart }
func (MessageStartEvent) isEvent()        {}

func (e MessageStartEvent) MarshalJSON() ([]byte, error) {
	type alias MessageStartEvent
	return encodeObject(EventMessageStart, alias(e), Properties{})
}

type ContentBlockStartEvent struct {
	Index        int     `json:"index"`
	ContentBlock Content `json:"content_block"`
}

func (ContentBlockStartEvent) GetType() string { return EventContentBlockStart }
func (ContentBlockStartEvent) isEvent()        {}

func (e ContentBlockStartEvent) MarshalJSON() ([]byte, error) {
	type alias ContentBlockStartEvent
	return encodeObject(EventContentBlockStart, alias(e), Properties{})
}

func (e *ContentBlockStartEvent) UnmarshalJSON(data []byte) error {
	type alias ContentBlockStartEvent
	aux := struct {
		alias
		ContentBlock json.RawMessage `json:"content_block"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	block, err := DecodeContent(aux.ContentBlock)
	if err != nil {
		return err
	}
	aux.alias.ContentBlock = block
	*e = ContentBlockStartEvent(aux.alias)
	return nil
}

type ContentBlockDeltaEvent struct {
	Index int   `json:"index"`
	Delta Delta `json:"delta"`
}

func (ContentBlockDeltaEvent) GetType() string { return EventContentBlockDelta }
func (ContentBlockDeltaEvent) isEvent()        {}

func (e ContentBlockDeltaEvent) MarshalJSON() ([]byte, error) {
	type alias ContentBlockDeltaEvent
	return encodeObject(EventContentBlockDelta, alias(e), Properties{})
}

func (e *ContentBlockDeltaEvent) UnmarshalJSON(data []byte) error {
	type alias ContentBlockDeltaEvent
	aux := struct {
		alias
		Delta json.RawMessage `json:"delta"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	delta, err := DecodeDelta(aux.Delta)
	if err != nil {
		return err
	}
	aux.alias.Delta = delta
	*e = ContentBlockDeltaEvent(aux.alias)
	return nil
}

type ContentBlockStopEvent struct {
	Index int `json:"index"`
}

func (ContentBlockStopEvent) GetType() string { return EventContentBlockStop }
func (ContentBlockStopEvent) isEvent()        {}

func (e ContentBlockStopEvent) MarshalJSON() ([]byte, error) {
	type alias ContentBlockStopEvent
	return encodeObject(EventContentBlockStop, alias(e), Properties{})
}

type MessageDeltaEvent struct {
	Delta MessageDelta      `json:"delta"`
	Usage MessageDeltaUsage `json:"usage"`
}

type MessageDelta struct {
	StopReason   *StopReason `json:"stop_reason,omitempty"`
	StopSequence *string     `json:"stop_sequence,omitempty"`
}

// MessageDeltaUsage is the usage increment carried by message_delta. Input
// tokens are reported once, in message_start.
type MessageDeltaUsage struct {
	OutputTokens int `json:"output_tokens"`
}

func (MessageDeltaEvent) GetType() string { return EventMessageDelta }
func (MessageDeltaEvent) isEvent()        {}

func (e MessageDeltaEvent) MarshalJSON() ([]byte, error) {
	type alias MessageDeltaEvent
	return encodeObject(EventMessageDelta, alias(e), Properties{})
}

type MessageStopEvent struct{}

func (MessageStopEvent) GetType() string { return EventMessageStop }
func (MessageStopEvent) isEvent()        {}

func (MessageStopEvent) MarshalJSON() ([]byte, error) {
	return []byte(`{"type":"message_stop"}`), nil
}

type PingEvent struct{}

func (PingEvent) GetType() string { return EventPing }
func (PingEvent) isEvent()        {}

func (PingEvent) MarshalJSON() ([]byte, error) {
	return []byte(`{"type":"ping"}`), nil
}

type ErrorEvent struct {
	Error ErrorDetail `json:"error"`
}

func (ErrorEvent) GetType() string { return EventError }
func (ErrorEvent) isEvent()        {}

func (e ErrorEvent) MarshalJSON() ([]byte, error) {
	type alias ErrorEvent
	return encodeObject(EventError, alias(e), Properties{})
}

// UnknownEvent is an event type added to the API after this version.
type UnknownEvent struct {
	Type  string     `json:"type"`
	Extra Properties `json:"-"`
}

func (u UnknownEvent) GetType() string { return u.Type }
func (UnknownEvent) isEvent()          {}

func (u UnknownEvent) MarshalJSON() ([]byte, error) {
	type alias UnknownEvent
	return encodeObject("", alias(u), u.Extra)
}

func (u *UnknownEvent) UnmarshalJSON(data []byte) error {
	type alias UnknownEvent
	var a alias
	extra, err := decodeOpen(data, &a)
	if err != nil {
		return err
	}
	a.Extra = extra
	*u = UnknownEvent(a)
	return nil
}

// DecodeEvent decodes the JSON payload of one SSE frame.
func DecodeEvent(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, &DecodeError{Kind: "event", Raw: string(data), Err: fmt.Errorf("not a JSON object")}
	}
	typ := gjson.GetBytes(data, "type").String()

	var (
		ev  Event
		err error
	)
	switch typ {
	case EventMessageStart:
		ev, err = decodeEventAs[MessageStartEvent](data)
	case EventMessageDelta:
		ev, err = decodeEventAs[MessageDeltaEvent](data)
	case EventMessageStop:
		ev = MessageStopEvent{}
	case EventContentBlockStart:
		ev, err = decodeEventAs[ContentBlockStartEvent](data)
	case EventContentBlockDelta:
		ev, err = decodeEventAs[ContentBlockDeltaEvent](data)
	case EventContentBlockStop:
		ev, err = decodeEventAs[ContentBlockStopEvent](data)
	case EventPing:
		ev = PingEvent{}
	case EventError:
		ev, err = decodeEventAs[ErrorEvent](data)
	default:
		ev, err = decodeEventAs[UnknownEvent](data)
	}
	if err != nil {
		return nil, &DecodeError{Kind: "event", Type: typ, Raw: string(data), Err: err}
	}
	return ev, nil
}

func decodeEventAs[T Event](data []byte) (Event, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// ============================================================================
// Deltas
// ============================================================================

const (
	DeltaTypeText      = "text_delta"
	DeltaTypeInputJSON = "input_json_delta"
	DeltaTypeThinking  = "thinking_delta"
	DeltaTypeSignature = "signature_delta"
	DeltaTypeCitations = "citations_delta"
)

// Delta is an incremental update to one content block.
type Delta interface {
	GetType() string
	isDelta()
}

type TextDelta struct {
	Text string `json:"text"`
}

func (TextDelta) GetType() string { return DeltaTypeText }
func (TextDelta) isDelta()        {}

func (d TextDelta) MarshalJSON() ([]byte, error) {
	type alias TextDelta
	return encodeObject(DeltaTypeText, alias(d), Properties{})
}

// InputJSONDelta is a fragment of a tool input. Fragments are only valid
// JSON once concatenated.
type InputJSONDelta struct {
	PartialJSON string `json:"partial_json"`
}

func (InputJSONDelta) GetType() string { return DeltaTypeInputJSON }
func (InputJSONDelta) isDelta()        {}

func (d InputJSONDelta) MarshalJSON() ([]byte, error) {
	type alias InputJSONDelta
	return encodeObject(DeltaTypeInputJSON, alias(d), Properties{})
}

type ThinkingDelta struct {
	Thinking string `json:"thinking"`
}

func (ThinkingDelta) GetType() string { return DeltaTypeThinking }
func (ThinkingDelta) isDelta()        {}

func (d ThinkingDelta) MarshalJSON() ([]byte, error) {
	type alias ThinkingDelta
	return encodeObject(DeltaTypeThinking, alias(d), Properties{})
}

type SignatureDelta struct {
	Signature string `json:"signature"`
}

func (SignatureDelta) GetType() string { return DeltaTypeSignature }
func (SignatureDelta) isDelta()        {}

func (d SignatureDelta) MarshalJSON() ([]byte, error) {
	type alias SignatureDelta
	return encodeObject(DeltaTypeSignature, alias(d), Properties{})
}

// CitationsDelta adds one citation to a text block.
type CitationsDelta struct {
	Citation Citation `json:"citation"`
}

func (CitationsDelta) GetType() string { return DeltaTypeCitations }
func (CitationsDelta) isDelta()        {}

func (d CitationsDelta) MarshalJSON() ([]byte, error) {
	type alias CitationsDelta
	return encodeObject(DeltaTypeCitations, alias(d), Properties{})
}

func (d *CitationsDelta) UnmarshalJSON(data []byte) error {
	raw := gjson.GetBytes(data, "citation")
	if !raw.Exists() {
		return &ValidationError{Type: DeltaTypeCitations, Field: "citation"}
	}
	c, err := DecodeCitation([]byte(raw.Raw))
	if err != nil {
		return err
	}
	d.Citation = c
	return nil
}

type UnknownDelta struct {
	Type  string     `json:"type"`
	Extra Properties `json:"-"`
}

func (u UnknownDelta) GetType() string { return u.Type }
func (UnknownDelta) isDelta()          {}

func (u UnknownDelta) MarshalJSON() ([]byte, error) {
	type alias UnknownDelta
	return encodeObject("", alias(u), u.Extra)
}

func (u *UnknownDelta) UnmarshalJSON(data []byte) error {
	type alias UnknownDelta
	var a alias
	extra, err := decodeOpen(data, &a)
	if err != nil {
		return err
	}
	a.Extra = extra
	*u = UnknownDelta(a)
	return nil
}

// DecodeDelta decodes the delta member of a content_block_delta event.
func DecodeDelta(data []byte) (Delta, error) {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, &DecodeError{Kind: "delta", Raw: string(data), Err: fmt.Errorf("not a JSON object")}
	}
	typ := gjson.GetBytes(data, "type").String()

	var (
		d   Delta
		err error
	)
	switch typ {
	case DeltaTypeText:
		d, err = decodeDeltaAs[TextDelta](data)
	case DeltaTypeInputJSON:
		d, err = decodeDeltaAs[InputJSONDelta](data)
	case DeltaTypeThinking:
		d, err = decodeDeltaAs[ThinkingDelta](data)
	case DeltaTypeSignature:
		d, err = decodeDeltaAs[SignatureDelta](data)
	case DeltaTypeCitations:
		d, err = decodeDeltaAs[CitationsDelta](data)
	default:
		d, err = decodeDeltaAs[UnknownDelta](data)
	}
	if err != nil {
		return nil, &DecodeError{Kind: "delta", Type: typ, Raw: string(data), Err: err}
	}
	return d, nil
}

func decodeDeltaAs[T Delta](data []byte) (Delta, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
