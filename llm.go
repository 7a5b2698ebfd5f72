// Package claude defines the provider-neutral surface shared by the clients
// in this module: messages made of parts, tools described by JSON schema, and
// the LLM interface a client implements.
package claude

import (
	"context"
)

// StreamFunc receives the response assembled so far after every streamed
// event. Returning false stops the stream.
type StreamFunc func(*Response, error) bool

type LLM interface {
	Generate(ctx context.Context, messages []Message) (*Response, error)
	GenerateStream(ctx context.Context, messages []Message, fn StreamFunc) (*Response, error)
}

type Response struct {
	ID      string  `json:"id"`
	Message Message `json:"message"`

	Provider string `json:"provider"`
	// Raw is the provider specific response, e.g. *anthropic.MessageResponse.
	Raw any `json:"-"`
}

// Text joins the text parts of the response message.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return r.Message.Text()
}
