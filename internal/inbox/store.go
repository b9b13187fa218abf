package inbox

import (
	"context"
	"errors"
	"time"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("conversation message not found")
	ErrIntegrationNotFound  = errors.New("integration not found")
)

// ConversationStore persists conversations. Set-valued fields (participants,
// read users) keep set semantics in the store: adding an existing member is a
// no-op.
type ConversationStore interface {
	Get(ctx context.Context, id string) (*Conversation, error)
	SetAssignee(ctx context.Context, ids []string, userID string) error
	AddParticipant(ctx context.Context, id, userID string) error
	AddReadUser(ctx context.Context, id, userID string) error
	SetStatus(ctx context.Context, ids []string, status Status) error
	SetOperatorStatus(ctx context.Context, id string, status OperatorStatus) error
	// SetFirstResponded records the first operator response. Implementations
	// only write when the field is still unset; concurrent writers race
	// last-write-wins and that is accepted.
	SetFirstResponded(ctx context.Context, id, userID string, at time.Time) error
}

// MessageStore persists conversation messages.
type MessageStore interface {
	Insert(ctx context.Context, message *Message) error
	Get(ctx context.Context, id string) (*Message, error)
	SetDeliveryStatus(ctx context.Context, id string, outcome DeliveryOutcome, deliveryError string) error
}

// IntegrationStore reads integration records. The dispatcher never writes
// integrations.
type IntegrationStore interface {
	Get(ctx context.Context, id string) (*Integration, error)
}
