// Package cards converts conversations into business records (deals, tasks,
// tickets) and maintains the deduplicated conformity links between a record,
// its source conversations and the conversation's customer.
package cards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/helmdesk/helmdesk/internal/inbox"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrStageNotFound  = errors.New("stage not found")
)

// RecordKind is the business-record flavor a conversation converts into.
type RecordKind string

const (
	KindDeal   RecordKind = "deal"
	KindTask   RecordKind = "task"
	KindTicket RecordKind = "ticket"
)

// Card is one business record. SourceConversationIDs has set semantics:
// converting the same conversation twice never duplicates the reference.
type Card struct {
	ID                    string
	Kind                  RecordKind
	Name                  string
	StageID               string
	SourceConversationIDs []string
	AssignedUserIDs       []string
	CreatedAt             time.Time
}

// Conformity links a record to a related entity. At most one row exists per
// distinct tuple.
type Conformity struct {
	MainType   string
	MainTypeID string
	RelType    string
	RelTypeID  string
}

// Stage is a pipeline stage a new record lands in.
type Stage struct {
	ID   string
	Kind string
	Name string
}

// ConversationSource is the read-only conversation lookup the converter needs.
type ConversationSource interface {
	Get(ctx context.Context, id string) (*inbox.Conversation, error)
}

// CardStore persists business records.
type CardStore interface {
	Get(ctx context.Context, id string) (*Card, error)
	Insert(ctx context.Context, card *Card) error
	// AddSourceConversation and AddAssignedUser keep set semantics: adding an
	// existing member is a no-op.
	AddSourceConversation(ctx context.Context, id, conversationID string) error
	AddAssignedUser(ctx context.Context, id, userID string) error
}

// StageStore reads pipeline stages.
type StageStore interface {
	Get(ctx context.Context, id string) (*Stage, error)
}

// ConformityStore upserts conformity links. Ensure is idempotent under retry.
type ConformityStore interface {
	Ensure(ctx context.Context, conformity Conformity) error
}

// ConvertInput is one conversion request. Exactly one of ItemID (merge into an
// existing record) or ItemName (create a new record in StageID) is expected.
type ConvertInput struct {
	ConversationID string
	Kind           RecordKind
	ItemID         string
	ItemName       string
	StageID        string
}

// Service performs conversation-to-record conversion.
type Service struct {
	conversations ConversationSource
	cards         CardStore
	stages        StageStore
	conformities  ConformityStore
	log           *slog.Logger

	newID func() string
}

func NewService(
	conversations ConversationSource,
	cardStore CardStore,
	stages StageStore,
	conformities ConformityStore,
	log *slog.Logger,
) *Service {
	return &Service{
		conversations: conversations,
		cards:         cardStore,
		stages:        stages,
		conformities:  conformities,
		log:           log.With(slog.String("service", "cards")),
		newID:         uuid.NewString,
	}
}

// ConvertToRecord merges the conversation into an existing record or creates
// a new one, then ensures exactly one conformity row links the record to the
// conversation's customer. The whole operation is idempotent: repeating it
// changes nothing.
func (s *Service) ConvertToRecord(ctx context.Context, input ConvertInput) (*Card, error) {
	switch input.Kind {
	case KindDeal, KindTask, KindTicket:
	default:
		return nil, fmt.Errorf("unknown record kind: %s", input.Kind)
	}

	conversation, err := s.conversations.Get(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}

	var card *Card
	if input.ItemID != "" {
		card, err = s.mergeIntoExisting(ctx, input.ItemID, conversation)
	} else {
		card, err = s.createRecord(ctx, input, conversation)
	}
	if err != nil {
		return nil, err
	}

	if conversation.CustomerID != "" {
		conformity := Conformity{
			MainType:   string(input.Kind),
			MainTypeID: card.ID,
			RelType:    "customer",
			RelTypeID:  conversation.CustomerID,
		}
		if err := s.conformities.Ensure(ctx, conformity); err != nil {
			return nil, fmt.Errorf("link customer conformity: %w", err)
		}
	}
	return card, nil
}

func (s *Service) mergeIntoExisting(ctx context.Context, itemID string, conversation *inbox.Conversation) (*Card, error) {
	if _, err := s.cards.Get(ctx, itemID); err != nil {
		return nil, err
	}
	if err := s.cards.AddSourceConversation(ctx, itemID, conversation.ID); err != nil {
		return nil, fmt.Errorf("append source conversation: %w", err)
	}
	if conversation.AssignedUserID != "" {
		if err := s.cards.AddAssignedUser(ctx, itemID, conversation.AssignedUserID); err != nil {
			return nil, fmt.Errorf("append assigned user: %w", err)
		}
	}
	return s.cards.Get(ctx, itemID)
}

func (s *Service) createRecord(ctx context.Context, input ConvertInput, conversation *inbox.Conversation) (*Card, error) {
	if _, err := s.stages.Get(ctx, input.StageID); err != nil {
		return nil, err
	}

	card := &Card{
		ID:                    s.newID(),
		Kind:                  input.Kind,
		Name:                  input.ItemName,
		StageID:               input.StageID,
		SourceConversationIDs: []string{conversation.ID},
	}
	if conversation.AssignedUserID != "" {
		card.AssignedUserIDs = []string{conversation.AssignedUserID}
	}
	if err := s.cards.Insert(ctx, card); err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	s.log.Info("conversation converted",
		slog.String("conversation_id", conversation.ID),
		slog.String("record_id", card.ID),
		slog.String("kind", string(input.Kind)),
	)
	return card, nil
}
