package anthropic

import (
	"time"

	"github.com/google/uuid"
)

// BatchRequest is one entry of a message batch. CustomID identifies the
// entry in the batch results.
type BatchRequest struct {
	CustomID string         `json:"custom_id"`
	Params   MessageRequest `json:"params"`
}

type MessageBatchRequest struct {
	Requests []BatchRequest `json:"requests"`
}

// NewMessageBatchRequest wraps params into a batch, giving every entry a
// random custom id.
func NewMessageBatchRequest(params ...MessageRequest) MessageBatchRequest {
	out := MessageBatchRequest{Requests: make([]BatchRequest, 0, len(params))}
	for _, p := range params {
		out.Requests = append(out.Requests, BatchRequest{Params: p})
	}
	return out.WithCustomIDs()
}

// WithCustomIDs returns a copy of r where every entry without a custom id
// gets a new uuid.
func (r MessageBatchRequest) WithCustomIDs() MessageBatchRequest {
	reqs := make([]BatchRequest, len(r.Requests))
	copy(reqs, r.Requests)
	for i := range reqs {
		if reqs[i].CustomID == "" {
			reqs[i].CustomID = uuid.NewString()
		}
	}
	return MessageBatchRequest{Requests: reqs}
}

func (r MessageBatchRequest) Validate() error {
	if err := required("message_batch", "requests", len(r.Requests) == 0); err != nil {
		return err
	}
	for _, req := range r.Requests {
		if err := req.Params.Validate(); err != nil {
			return err
		}
	}
	return nil
}

type ProcessingStatus string

const (
	ProcessingStatusInProgress ProcessingStatus = "in_progress"
	ProcessingStatusCanceling  ProcessingStatus = "canceling"
	ProcessingStatusEnded      ProcessingStatus = "ended"
)

type RequestCounts struct {
	Processing int `json:"processing"`
	Succeeded  int `json:"succeeded"`
	Errored    int `json:"errored"`
	Canceled   int `json:"canceled"`
	Expired    int `json:"expired"`
}

type MessageBatchResponse struct {
	ID                string           `json:"id"`
	ProcessingStatus  ProcessingStatus `json:"processing_status"`
	RequestCounts     RequestCounts    `json:"request_counts"`
	EndedAt           *time.Time       `json:"ended_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	ExpiresAt         time.Time        `json:"expires_at"`
	ArchivedAt        *time.Time       `json:"archived_at,omitempty"`
	CancelInitiatedAt *time.Time       `json:"cancel_initiated_at,omitempty"`
	ResultsURL        *string          `json:"results_url,omitempty"`
}

func (MessageBatchResponse) GetType() string { return "message_batch" }
func (MessageBatchResponse) isResponse()     {}

func (b MessageBatchResponse) MarshalJSON() ([]byte, error) {
	type alias MessageBatchResponse
	return encodeObject("message_batch", alias(b), Properties{})
}

// Done reports whether the batch finished processing.
func (b MessageBatchResponse) Done() bool {
	return b.ProcessingStatus == ProcessingStatusEnded
}
