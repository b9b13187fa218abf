// Package inbox implements the conversation message dispatcher and the
// conversation mutations built around it: replies routed through channel
// adapters, assignment, status, read state and operator handover.
package inbox

import (
	"encoding/json"
	"time"

	"github.com/helmdesk/helmdesk/internal/channel"
)

// Status is the lifecycle state of a conversation.
type Status string

const (
	StatusNew    Status = "new"
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// OperatorStatus records whether a bot or a human operator currently handles
// the conversation.
type OperatorStatus string

const (
	OperatorStatusBot      OperatorStatus = "bot"
	OperatorStatusOperator OperatorStatus = "operator"
)

// DeliveryOutcome is the delivery state of one outbound message. A message is
// created pending (or skipped for internal notes) and moves to sent or failed
// exactly once; the row itself is immutable afterwards.
type DeliveryOutcome string

const (
	DeliveryPending DeliveryOutcome = "pending"
	DeliverySent    DeliveryOutcome = "sent"
	DeliveryFailed  DeliveryOutcome = "failed"
	DeliverySkipped DeliveryOutcome = "skipped"
)

// Conversation is one customer thread on one integration.
type Conversation struct {
	ID                   string
	IntegrationID        string
	CustomerID           string
	AssignedUserID       string
	ParticipatedUserIDs  []string
	ReadUserIDs          []string
	Status               Status
	OperatorStatus       OperatorStatus
	Content              string
	FirstRespondedUserID string
	FirstRespondedAt     *time.Time
	CreatedAt            time.Time
}

// Message is one entry in a conversation. UserID and CustomerID are mutually
// exclusive authors; BotData carries annotation payloads written by the
// system itself.
type Message struct {
	ID               string
	ConversationID   string
	UserID           string
	CustomerID       string
	Content          string
	Attachments      []channel.Attachment
	MentionedUserIDs []string
	Internal         bool
	BotData          json.RawMessage
	DeliveryStatus   DeliveryOutcome
	DeliveryError    string
	CreatedAt        time.Time
}

// Integration is the dispatcher-facing view of an integration record. Kind is
// kept raw: a kind without a registered adapter means the reply is native and
// nothing leaves the system.
type Integration struct {
	ID      string
	Kind    string
	BrandID string
	Name    string
	Config  map[string]any
}

// ToChannel converts the record into the adapter-facing shape.
func (i *Integration) ToChannel() channel.Integration {
	return channel.Integration{
		ID:      i.ID,
		Kind:    channel.Kind(i.Kind),
		BrandID: i.BrandID,
		Config:  i.Config,
	}
}
