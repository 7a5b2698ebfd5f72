package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"net/url"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/tidwall/sjson"

	"github.com/llmite-ai/claude"
)

const ProviderAnthropic = "anthropic"

const (
	pathMessages    = "v1/messages"
	pathCountTokens = "v1/messages/count_tokens"
	pathBatches     = "v1/messages/batches"
)

// countTokensRejected lists request members the count_tokens endpoint does
// not accept.
var countTokensRejected = []string{
	"max_tokens", "stream", "stop_sequences", "temperature", "top_k", "top_p", "metadata",
}

// Client talks to the Messages API. The SDK client provides authentication,
// retries and the base URL; bodies are encoded and decoded by this package.
type Client struct {
	Model       string
	MaxTokens   int
	Temperature *float64
	TopP        *float64
	TopK        *int
	System      []Text
	Tools       []claude.Tool

	toolbox     *Toolbox
	logger      *slog.Logger
	httpLogging bool
	usage       UsageCollector

	client  *sdk.Client
	options []option.RequestOption
}

type Modifier func(*Client)

// WithAnthropicClientOptions passes options to the underlying SDK client.
// This is useful for setting a custom HTTP client, timeout, retry policy or
// base URL.
func WithAnthropicClientOptions(options ...option.RequestOption) Modifier {
	return func(c *Client) {
		c.options = append(c.options, options...)
	}
}

// WithHttpLogging logs all HTTP requests and responses to the client logger.
func WithHttpLogging() Modifier {
	return func(c *Client) {
		c.httpLogging = true
	}
}

func WithLogger(logger *slog.Logger) Modifier {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithModel(model string) Modifier {
	return func(c *Client) {
		c.Model = model
	}
}

func WithMaxTokens(maxTokens int) Modifier {
	return func(c *Client) {
		c.MaxTokens = maxTokens
	}
}

func WithTemperature(temperature float64) Modifier {
	return func(c *Client) {
		c.Temperature = &temperature
	}
}

// WithSystem sets the system prompt used when a request has none.
func WithSystem(system ...string) Modifier {
	return func(c *Client) {
		c.System = nil
		for _, s := range system {
			c.System = append(c.System, Text{Text: s})
		}
	}
}

// WithTools sets provider-neutral tools offered with every request.
func WithTools(tools []claude.Tool) Modifier {
	return func(c *Client) {
		c.Tools = tools
	}
}

// WithToolbox offers the toolbox's tools with every request and lets
// Converse run them.
func WithToolbox(tb *Toolbox) Modifier {
	return func(c *Client) {
		c.toolbox = tb
	}
}

// WithBeta opts every request into the named beta features.
func WithBeta(betas ...string) Modifier {
	return func(c *Client) {
		c.options = append(c.options, option.WithMiddleware(
			func(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
				for _, b := range betas {
					req.Header.Add("anthropic-beta", b)
				}
				return next(req)
			}))
	}
}

// New creates a client with the package defaults. The SDK reads the
// ANTHROPIC_API_KEY, ANTHROPIC_AUTH_TOKEN and ANTHROPIC_BASE_URL environment
// variables.
func New(mods ...Modifier) *Client {
	c := &Client{
		Model:     string(sdk.ModelClaude3_7SonnetLatest),
		MaxTokens: 1024,
		logger:    slog.Default(),
		options:   []option.RequestOption{},
	}

	for _, mod := range mods {
		mod(c)
	}

	if c.httpLogging {
		httpClient := claude.NewHTTPClient(claude.HTTPClientOptions{
			LogRequests: true,
			Logger:      c.logger,
		})
		c.options = append(c.options, option.WithHTTPClient(httpClient))
	}

	if c.client == nil {
		ac := sdk.NewClient(c.options...)
		c.client = &ac
	}

	return c
}

// GetClient returns the underlying SDK client.
func (c *Client) GetClient() *sdk.Client {
	return c.client
}

// Usage returns the tokens used by every completed call made through c.
func (c *Client) Usage() Usage {
	return c.usage.Usage()
}

// Cost returns what the calls counted by Usage cost, for models in the
// catalog.
func (c *Client) Cost() Cost {
	return c.usage.Cost()
}

// Calls returns how many completed calls Usage covers.
func (c *Client) Calls() int {
	return c.usage.Calls()
}

// CreateMessage sends req and waits for the complete response. Fields req
// leaves empty are filled from the client defaults.
func (c *Client) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	body, err := c.encode(c.withDefaults(req))
	if err != nil {
		return nil, err
	}

	var raw []byte
	if err := c.client.Post(ctx, pathMessages, json.RawMessage(body), &raw); err != nil {
		return nil, apiError(err)
	}

	msg, err := decodeReply[MessageResponse](raw)
	if err != nil {
		return nil, err
	}
	c.usage.Add(msg.Model, msg.Usage)
	return msg, nil
}

// StreamMessage sends req with streaming enabled. The caller must Close the
// returned stream.
func (c *Client) StreamMessage(ctx context.Context, req MessageRequest) (*Stream, error) {
	body, err := c.encode(c.withDefaults(req))
	if err != nil {
		return nil, err
	}
	body, err = sjson.SetBytes(body, "stream", true)
	if err != nil {
		return nil, fmt.Errorf("anthropic: failed to enable streaming: %w", err)
	}

	var res *http.Response
	err = c.client.Post(ctx, pathMessages, json.RawMessage(body), &res,
		option.WithHeader("Accept", "text/event-stream"))
	if err != nil {
		return nil, apiError(err)
	}

	decoder := ssestream.NewDecoder(res)
	if decoder == nil {
		return nil, fmt.Errorf("anthropic: failed to create streaming request")
	}
	return &Stream{ctx: ctx, decoder: decoder, logger: c.logger, collector: &c.usage}, nil
}

// CountTokens reports how many input tokens req would use.
func (c *Client) CountTokens(ctx context.Context, req MessageRequest) (*TokenCount, error) {
	body, err := c.encode(c.withDefaults(req))
	if err != nil {
		return nil, err
	}
	for _, path := range countTokensRejected {
		if body, err = sjson.DeleteBytes(body, path); err != nil {
			return nil, fmt.Errorf("anthropic: failed to build count_tokens request: %w", err)
		}
	}

	var raw []byte
	if err := c.client.Post(ctx, pathCountTokens, json.RawMessage(body), &raw); err != nil {
		return nil, apiError(err)
	}

	var count TokenCount
	if err := json.Unmarshal(raw, &count); err != nil {
		return nil, &DecodeError{Kind: "token count", Raw: string(raw), Err: err}
	}
	return &count, nil
}

// CreateBatch submits requests for asynchronous processing. Entries without
// a custom id get one.
func (c *Client) CreateBatch(ctx context.Context, batch MessageBatchRequest) (*MessageBatchResponse, error) {
	batch = batch.WithCustomIDs()
	for i := range batch.Requests {
		batch.Requests[i].Params = c.withDefaults(batch.Requests[i].Params)
	}
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("anthropic: failed to encode batch: %w", err)
	}

	var raw []byte
	if err := c.client.Post(ctx, pathBatches, json.RawMessage(body), &raw); err != nil {
		return nil, apiError(err)
	}
	return decodeReply[MessageBatchResponse](raw)
}

// GetBatch fetches the current state of a batch.
func (c *Client) GetBatch(ctx context.Context, id string) (*MessageBatchResponse, error) {
	if err := required("message_batch", "id", id == ""); err != nil {
		return nil, err
	}
	var raw []byte
	if err := c.client.Get(ctx, pathBatches+"/"+url.PathEscape(id), nil, &raw); err != nil {
		return nil, apiError(err)
	}
	return decodeReply[MessageBatchResponse](raw)
}

// Converse sends req and, while the model asks for client tools, answers
// them with the client toolbox and sends the conversation back. It stops
// after maxTurns requests and returns the last response together with the
// full transcript.
func (c *Client) Converse(ctx context.Context, req MessageRequest, maxTurns int) (*MessageResponse, []Message, error) {
	if c.toolbox == nil {
		return nil, nil, errors.New("anthropic: converse requires a toolbox")
	}
	messages := append([]Message{}, req.Messages...)
	for turn := 0; ; turn++ {
		req.Messages = messages
		resp, err := c.CreateMessage(ctx, req)
		if err != nil {
			return nil, messages, err
		}
		messages = append(messages, resp.AsMessage())

		if resp.StopReason == nil || *resp.StopReason != StopReasonToolUse || len(resp.ToolUses()) == 0 {
			return resp, messages, nil
		}
		if turn+1 >= maxTurns {
			return resp, messages, fmt.Errorf("anthropic: tool use did not finish within %d turns", maxTurns)
		}
		messages = append(messages, c.toolbox.UseAll(ctx, resp))
	}
}

func (c *Client) withDefaults(req MessageRequest) MessageRequest {
	if req.Model == "" {
		req.Model = c.Model
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.MaxTokens
	}
	if req.Temperature == nil {
		req.Temperature = c.Temperature
	}
	if req.TopP == nil {
		req.TopP = c.TopP
	}
	if req.TopK == nil {
		req.TopK = c.TopK
	}
	if len(req.System) == 0 {
		req.System = c.System
	}
	if req.Tools == nil && c.toolbox != nil {
		req.Tools = c.toolbox.Tools()
	}
	return req
}

func (c *Client) encode(req MessageRequest) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic: failed to encode request: %w", err)
	}
	return body, nil
}

// decodeReply decodes a response body expected to be a T. An error body is
// returned as an *APIError.
func decodeReply[T Response](raw []byte) (*T, error) {
	resp, err := DecodeResponse(raw)
	if err != nil {
		return nil, err
	}
	switch r := resp.(type) {
	case T:
		return &r, nil
	case ErrorResponse:
		return nil, &APIError{StatusCode: http.StatusOK, Type: r.Error.Type, Message: r.Error.Message}
	}
	return nil, &DecodeError{Kind: "response", Type: resp.GetType(), Raw: string(raw), Err: errors.New("unexpected response type")}
}

// apiError maps SDK transport errors onto *APIError using our own decoding
// of the error body.
func apiError(err error) error {
	var apierr *sdk.Error
	if !errors.As(err, &apierr) {
		return fmt.Errorf("anthropic: request failed: %w", err)
	}
	out := &APIError{StatusCode: apierr.StatusCode, Type: "api_error", Message: apierr.Error()}
	if resp, derr := DecodeResponse([]byte(apierr.RawJSON())); derr == nil {
		if e, ok := resp.(ErrorResponse); ok {
			out.Type = e.Error.Type
			out.Message = e.Error.Message
		}
	}
	return out
}

// Stream reads the events of one streaming call. The usage of a stream
// that reaches message_stop is added to the client totals.
type Stream struct {
	ctx     context.Context
	decoder ssestream.Decoder
	logger  *slog.Logger
	current Event
	err     error

	collector *UsageCollector
	model     string
	usage     Usage
	recorded  bool
}

// Next advances to the next event. It returns false at the end of the
// stream or on the first error.
func (s *Stream) Next() bool {
	if s.err != nil {
		return false
	}
	for s.decoder.Next() {
		frame := s.decoder.Event()
		if len(bytes.TrimSpace(frame.Data)) == 0 {
			continue
		}
		ev, err := DecodeEvent(frame.Data)
		if err != nil {
			s.err = err
			return false
		}
		s.track(ev)
		s.current = ev
		return true
	}
	s.err = s.decoder.Err()
	return false
}

func (s *Stream) track(ev Event) {
	switch e := ev.(type) {
	case MessageStartEvent:
		s.model = e.Message.Model
		s.usage = e.Message.Usage
	case MessageDeltaEvent:
		s.usage.OutputTokens += e.Usage.OutputTokens
	case MessageStopEvent:
		if s.collector != nil && !s.recorded {
			s.collector.Add(s.model, s.usage)
			s.recorded = true
		}
	case UnknownEvent:
		s.logger.DebugContext(s.ctx, "ignoring unknown stream event", slog.String("type", e.Type))
	}
}

func (s *Stream) Current() Event {
	return s.current
}

func (s *Stream) Err() error {
	return s.err
}

func (s *Stream) Close() error {
	return s.decoder.Close()
}

// All returns the remaining events as a sequence. A failure is yielded as
// the last element. The stream is closed when the sequence ends.
func (s *Stream) All() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		defer s.Close()
		for s.Next() {
			if !yield(s.Current(), nil) {
				return
			}
		}
		if err := s.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// ============================================================================
// claude.LLM
// ============================================================================

// BuildRequest converts provider-neutral messages into a request using the
// client defaults.
func (c *Client) BuildRequest(messages []claude.Message) (MessageRequest, error) {
	system, msgs, err := convertMessages(messages)
	if err != nil {
		return MessageRequest{}, err
	}
	tools, err := convertTools(c.Tools)
	if err != nil {
		return MessageRequest{}, err
	}
	if c.toolbox != nil {
		tools = append(tools, c.toolbox.Tools()...)
	}
	req := MessageRequest{
		Messages: msgs,
		System:   system,
		Tools:    tools,
	}
	return c.withDefaults(req), nil
}

func (c *Client) Generate(ctx context.Context, messages []claude.Message) (*claude.Response, error) {
	req, err := c.BuildRequest(messages)
	if err != nil {
		return nil, fmt.Errorf("anthropic: failed to build request: %w", err)
	}

	msg, err := c.CreateMessage(ctx, req)
	if err != nil {
		return nil, err
	}
	return convertMessageToResponse(msg)
}

func (c *Client) GenerateStream(ctx context.Context, messages []claude.Message, fn claude.StreamFunc) (*claude.Response, error) {
	req, err := c.BuildRequest(messages)
	if err != nil {
		return nil, fmt.Errorf("anthropic: failed to build request: %w", err)
	}

	stream, err := c.StreamMessage(ctx, req)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	acc := NewMessageAccumulator()
	for stream.Next() {
		if err := acc.Accumulate(stream.Current()); err != nil {
			fn(nil, err)
			return nil, err
		}
		snapshot := acc.Snapshot()
		if snapshot == nil {
			continue
		}

		response, err := convertMessageToResponse(snapshot)
		if err != nil {
			if !fn(nil, err) {
				return nil, err
			}
			continue
		}
		if !fn(response, nil) {
			return response, nil
		}
	}

	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("anthropic: streaming request failed: %w", err)
	}

	msg, err := acc.Message()
	if err != nil {
		return nil, err
	}
	return convertMessageToResponse(msg)
}

// convertMessageToResponse keeps text and tool calls. Thinking and server
// tool blocks have no provider-neutral form and are only available on Raw.
func convertMessageToResponse(msg *MessageResponse) (*claude.Response, error) {
	out := claude.Message{
		Role:  claude.RoleAssistant,
		Parts: []claude.Part{},
	}

	var errs []error
	for i, block := range msg.Content {
		switch b := block.(type) {
		case Text:
			out.Parts = append(out.Parts, claude.TextPart{Text: b.Text})
		case ToolUse:
			out.Parts = append(out.Parts, claude.ToolCallPart{ID: b.ID, Name: b.Name, Input: b.Input})
		case UnknownContent:
			errs = append(errs, fmt.Errorf("anthropic: unsupported content block type at index %d: %s", i, b.Type))
		}
	}

	resp := &claude.Response{
		ID:       msg.ID,
		Message:  out,
		Provider: ProviderAnthropic,
		Raw:      msg,
	}
	return resp, errors.Join(errs...)
}

func convertMessages(messages []claude.Message) ([]Text, []Message, error) {
	var system []Text
	out := make([]Message, 0, len(messages))

	for i, message := range messages {
		if message.Role == claude.RoleSystem {
			for _, part := range message.Parts {
				p, ok := part.(claude.TextPart)
				if !ok {
					return nil, nil, fmt.Errorf("[message %d] anthropic: unsupported system part type: %T", i, part)
				}
				system = append(system, Text{Text: p.Text})
			}
			continue
		}

		msg := Message{}
		switch message.Role {
		case claude.RoleUser:
			msg.Role = RoleUser
		case claude.RoleAssistant:
			msg.Role = RoleAssistant
		default:
			return nil, nil, fmt.Errorf("[message %d] anthropic: unsupported message role: %s", i, message.Role)
		}

		for j, part := range message.Parts {
			switch p := part.(type) {
			case claude.TextPart:
				msg.Content = append(msg.Content, Text{Text: p.Text})
			case claude.ToolCallPart:
				input := p.Input
				if len(input) == 0 {
					input = json.RawMessage("{}")
				}
				msg.Content = append(msg.Content, ToolUse{ID: p.ID, Name: p.Name, Input: input})
			case claude.ToolResultPart:
				result := ToolResult{ToolUseID: p.ToolCallID}
				if p.Result != "" {
					result.Content = Contents{Text{Text: p.Result}}
				}
				if p.Error != nil {
					failed := true
					result.IsError = &failed
				}
				msg.Content = append(msg.Content, result)
			default:
				return nil, nil, fmt.Errorf("[message %d, part %d] anthropic: unsupported message part type: %T", i, j, p)
			}
		}

		out = append(out, msg)
	}

	return system, out, nil
}

func convertTools(tools []claude.Tool) (Tools, error) {
	var out Tools
	var errs []error
	for _, tool := range tools {
		t, err := NewDefaultTool(tool.Name(), tool.Description(), tool.Schema())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, t)
	}
	return out, errors.Join(errs...)
}
