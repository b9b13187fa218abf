package channel

import (
	"context"
	"errors"
)

// ErrPreconditionFailed reports that an adapter's precondition (credentials
// present, session alive) does not hold; the dispatcher fails fast without a
// broker call.
var ErrPreconditionFailed = errors.New("channel precondition failed")

// TransportMode describes how an adapter moves a message to its channel.
type TransportMode string

const (
	// ModeRPC is request/response: the call must return or the delivery failed.
	ModeRPC TransportMode = "rpc"
	// ModeEvent is fire-and-forget: accepted once the broker acknowledges.
	ModeEvent TransportMode = "event"
	// ModeSegmented is SMS-style: ordered independent sends per segment.
	ModeSegmented TransportMode = "segmented"
)

// Integration is the adapter-facing view of an integration record.
// Config is the channel-specific credential/config blob, opaque here.
type Integration struct {
	ID      string
	Kind    Kind
	BrandID string
	Config  map[string]any
}

// Attachment is a file attached to an outbound reply.
type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// SendRequest carries everything an adapter needs for one outbound reply.
type SendRequest struct {
	Integration    Integration
	ConversationID string
	CustomerID     string
	Content        string
	Attachments    []Attachment
}

// Adapter implements the transport-specific send behavior for one channel kind.
type Adapter interface {
	Kind() Kind
	Mode() TransportMode
	// Check verifies the adapter's precondition. The dispatcher calls it
	// before Send and converts a failure into a typed error without touching
	// the broker.
	Check(ctx context.Context, req SendRequest) error
	Send(ctx context.Context, req SendRequest) error
}
