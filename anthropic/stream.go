package anthropic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// MessageAccumulator folds the events of one streaming call into the
// MessageResponse the blocking call would have returned.
//
// An accumulator serves a single stream and is not safe for concurrent use.
type MessageAccumulator struct {
	message *MessageResponse
	blocks  map[int]*blockState
	stopped bool
	err     error
}

type blockState struct {
	start     Content
	text      strings.Builder
	json      strings.Builder
	thinking  strings.Builder
	signature strings.Builder
	citations Citations
	final     Content
}

func NewMessageAccumulator() *MessageAccumulator {
	return &MessageAccumulator{blocks: map[int]*blockState{}}
}

// Accumulate applies ev. Once it returns an error the accumulator is failed
// and every later call returns the same error.
func (a *MessageAccumulator) Accumulate(ev Event) error {
	if a.err != nil {
		return a.err
	}
	if err := a.apply(ev); err != nil {
		a.err = err
		return err
	}
	return nil
}

func (a *MessageAccumulator) apply(ev Event) error {
	switch e := ev.(type) {
	case PingEvent, UnknownEvent:
		return nil
	case ErrorEvent:
		return newStreamAPIError(e.Error)
	case MessageStartEvent:
		if a.message != nil {
			return &ProtocolError{Event: EventMessageStart, Err: ErrDuplicateMessageStart}
		}
		msg := e.Message
		msg.Content = nil
		a.message = &msg
		return nil
	}

	if a.message == nil {
		return &ProtocolError{Event: ev.GetType(), Err: ErrMissingMessageStart}
	}
	if a.stopped {
		return &ProtocolError{Event: ev.GetType(), Err: fmt.Errorf("event after message_stop")}
	}

	switch e := ev.(type) {
	case ContentBlockStartEvent:
		if _, ok := a.blocks[e.Index]; ok {
			return &ProtocolError{Event: EventContentBlockStart, Err: fmt.Errorf("content block %d started twice", e.Index)}
		}
		if e.ContentBlock == nil {
			return &ProtocolError{Event: EventContentBlockStart, Err: fmt.Errorf("content block %d is empty", e.Index)}
		}
		a.blocks[e.Index] = &blockState{start: e.ContentBlock}

	case ContentBlockDeltaEvent:
		b, err := a.open(EventContentBlockDelta, e.Index)
		if err != nil {
			return err
		}
		switch d := e.Delta.(type) {
		case TextDelta:
			b.text.WriteString(d.Text)
		case InputJSONDelta:
			b.json.WriteString(d.PartialJSON)
		case ThinkingDelta:
			b.thinking.WriteString(d.Thinking)
		case SignatureDelta:
			b.signature.WriteString(d.Signature)
		case CitationsDelta:
			b.citations = append(b.citations, d.Citation)
		}

	case ContentBlockStopEvent:
		b, err := a.open(EventContentBlockStop, e.Index)
		if err != nil {
			return err
		}
		final, err := b.finalize()
		if err != nil {
			return err
		}
		b.final = final
		b.text.Reset()
		b.json.Reset()
		b.thinking.Reset()
		b.signature.Reset()
		b.citations = nil

	case MessageDeltaEvent:
		if e.Delta.StopReason != nil {
			a.message.StopReason = e.Delta.StopReason
		}
		if e.Delta.StopSequence != nil {
			a.message.StopSequence = e.Delta.StopSequence
		}
		a.message.Usage.OutputTokens += e.Usage.OutputTokens

	case MessageStopEvent:
		for _, index := range a.indexes() {
			if a.blocks[index].final == nil {
				return &ProtocolError{Event: EventMessageStop, Err: fmt.Errorf("content block %d was never stopped", index)}
			}
		}
		a.stopped = true
	}
	return nil
}

func (a *MessageAccumulator) open(event string, index int) (*blockState, error) {
	b, ok := a.blocks[index]
	if !ok {
		return nil, &ProtocolError{Event: event, Err: fmt.Errorf("unknown content block index %d", index)}
	}
	if b.final != nil {
		return nil, &ProtocolError{Event: event, Err: fmt.Errorf("content block %d already stopped", index)}
	}
	return b, nil
}

func (a *MessageAccumulator) indexes() []int {
	out := make([]int, 0, len(a.blocks))
	for index := range a.blocks {
		out = append(out, index)
	}
	sort.Ints(out)
	return out
}

// finalize merges the buffered deltas into the block announced at start.
func (b *blockState) finalize() (Content, error) {
	switch c := b.start.(type) {
	case Text:
		c.Text += b.text.String()
		if len(b.citations) > 0 {
			c.Citations = append(append(Citations{}, c.Citations...), b.citations...)
		}
		return c, nil
	case ThinkingBlock:
		c.Thinking += b.thinking.String()
		if b.signature.Len() > 0 {
			c.Signature = b.signature.String()
		}
		return c, nil
	case ToolUse:
		input, err := finalInput(b.json.String(), c.Input)
		if err != nil {
			return nil, &DecodeError{Kind: "tool_use input", Type: c.Name, Raw: b.json.String(), Err: err}
		}
		c.Input = input
		return c, nil
	case WebSearchServerToolUse:
		return finalServerInput(c, b.json.String())
	case WebFetchServerToolUse:
		return finalServerInput(c, b.json.String())
	}
	return b.start, nil
}

// finalInput parses the concatenated input fragments. A block that received
// no fragments keeps the input it was announced with.
func finalInput(buffered string, announced json.RawMessage) (json.RawMessage, error) {
	if buffered == "" {
		if len(announced) == 0 {
			return json.RawMessage("{}"), nil
		}
		return announced, nil
	}
	var out bytes.Buffer
	if err := json.Compact(&out, []byte(buffered)); err != nil {
		return nil, fmt.Errorf("malformed input JSON: %w", err)
	}
	if !gjson.ParseBytes(out.Bytes()).IsObject() {
		return nil, fmt.Errorf("input is not a JSON object")
	}
	return out.Bytes(), nil
}

func finalServerInput[In ServerToolInput](c ServerToolUse[In], buffered string) (Content, error) {
	if buffered == "" {
		return c, nil
	}
	var in In
	if err := json.Unmarshal([]byte(buffered), &in); err != nil {
		return nil, &DecodeError{Kind: "server_tool_use input", Type: c.Name(), Raw: buffered, Err: err}
	}
	c.Input = in
	return c, nil
}

// Done reports whether message_stop has been received.
func (a *MessageAccumulator) Done() bool {
	return a.stopped
}

// Snapshot returns the message assembled so far. Blocks still streaming show
// the text received up to now; tool inputs appear only once their block
// stops. It returns nil before message_start.
func (a *MessageAccumulator) Snapshot() *MessageResponse {
	if a.message == nil {
		return nil
	}
	msg := *a.message
	msg.Content = make(Contents, 0, len(a.blocks))
	for _, index := range a.indexes() {
		b := a.blocks[index]
		if b.final != nil {
			msg.Content = append(msg.Content, b.final)
			continue
		}
		switch c := b.start.(type) {
		case Text:
			c.Text += b.text.String()
			msg.Content = append(msg.Content, c)
		case ThinkingBlock:
			c.Thinking += b.thinking.String()
			msg.Content = append(msg.Content, c)
		default:
			msg.Content = append(msg.Content, b.start)
		}
	}
	return &msg
}

// Message returns the finished response. It fails unless message_stop was
// received; a truncated stream never yields a partial message.
func (a *MessageAccumulator) Message() (*MessageResponse, error) {
	if a.err != nil {
		return nil, a.err
	}
	if a.message == nil {
		return nil, &ProtocolError{Err: ErrMissingMessageStart}
	}
	if !a.stopped {
		return nil, &ProtocolError{Err: ErrNoMessageStop}
	}
	return a.Snapshot(), nil
}

// Assemble consumes events until the sequence ends and returns the assembled
// message.
func Assemble(events iter.Seq2[Event, error]) (*MessageResponse, error) {
	acc := NewMessageAccumulator()
	for ev, err := range events {
		if err != nil {
			return nil, err
		}
		if err := acc.Accumulate(ev); err != nil {
			return nil, err
		}
	}
	return acc.Message()
}
