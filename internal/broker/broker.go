// Package broker defines the message-broker client contract used by channel
// adapters to reach external channel services.
package broker

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrUnavailable reports that the broker transport itself is missing or down,
// as opposed to a failure reported by the external channel service.
var ErrUnavailable = errors.New("message broker is not available")

// Client is the transport abstraction for outbound channel traffic.
//
// SendRPCMessage is a request/response call: it blocks until the remote
// service replies or the context expires, and any error means the delivery
// failed. SendMessage is fire-and-forget: it returns once the broker has
// acknowledged receipt, regardless of eventual external delivery.
type Client interface {
	SendRPCMessage(ctx context.Context, queue string, payload any) (json.RawMessage, error)
	SendMessage(ctx context.Context, queue string, payload any) error
}

// RPCError is a failure reported by the remote channel service in an RPC
// response, distinguishable from broker-level transport errors.
type RPCError struct {
	Message string
}

func (e *RPCError) Error() string {
	if e.Message == "" {
		return "channel service reported failure"
	}
	return e.Message
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

// rpcResponse is the envelope remote channel services reply with.
type rpcResponse struct {
	Status       string          `json:"status"`
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
}
