package cards

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/helmdesk/helmdesk/internal/inbox"
)

type memCards struct {
	cards map[string]*Card
}

func (m *memCards) Get(_ context.Context, id string) (*Card, error) {
	card, ok := m.cards[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	copied := *card
	return &copied, nil
}

func (m *memCards) Insert(_ context.Context, card *Card) error {
	copied := *card
	m.cards[card.ID] = &copied
	return nil
}

func (m *memCards) AddSourceConversation(_ context.Context, id, conversationID string) error {
	return m.appendUnique(id, conversationID, func(c *Card) *[]string { return &c.SourceConversationIDs })
}

func (m *memCards) AddAssignedUser(_ context.Context, id, userID string) error {
	return m.appendUnique(id, userID, func(c *Card) *[]string { return &c.AssignedUserIDs })
}

func (m *memCards) appendUnique(id, value string, field func(*Card) *[]string) error {
	card, ok := m.cards[id]
	if !ok {
		return ErrRecordNotFound
	}
	target := field(card)
	for _, existing := range *target {
		if existing == value {
			return nil
		}
	}
	*target = append(*target, value)
	return nil
}

type memStages struct {
	stages map[string]*Stage
}

func (m *memStages) Get(_ context.Context, id string) (*Stage, error) {
	stage, ok := m.stages[id]
	if !ok {
		return nil, ErrStageNotFound
	}
	return stage, nil
}

type memConformities struct {
	rows map[Conformity]int
}

func (m *memConformities) Ensure(_ context.Context, c Conformity) error {
	if _, exists := m.rows[c]; exists {
		return nil
	}
	m.rows[c] = 1
	return nil
}

type memConversations struct {
	conversations map[string]*inbox.Conversation
}

func (m *memConversations) Get(_ context.Context, id string) (*inbox.Conversation, error) {
	conversation, ok := m.conversations[id]
	if !ok {
		return nil, inbox.ErrConversationNotFound
	}
	return conversation, nil
}

type cardsFixture struct {
	cards         *memCards
	stages        *memStages
	conformities  *memConformities
	conversations *memConversations
	service       *Service
}

func newCardsFixture() *cardsFixture {
	f := &cardsFixture{
		cards:        &memCards{cards: map[string]*Card{}},
		stages:       &memStages{stages: map[string]*Stage{"stage-1": {ID: "stage-1", Kind: "deal"}}},
		conformities: &memConformities{rows: map[Conformity]int{}},
		conversations: &memConversations{conversations: map[string]*inbox.Conversation{
			"conv-1": {ID: "conv-1", CustomerID: "cust-1", AssignedUserID: "user-1"},
		}},
	}
	f.service = NewService(f.conversations, f.cards, f.stages, f.conformities, slog.New(slog.DiscardHandler))
	return f
}

func TestConvertCreatesRecord(t *testing.T) {
	f := newCardsFixture()

	card, err := f.service.ConvertToRecord(context.Background(), ConvertInput{
		ConversationID: "conv-1",
		Kind:           KindDeal,
		ItemName:       "Big deal",
		StageID:        "stage-1",
	})
	if err != nil {
		t.Fatalf("ConvertToRecord returned error: %v", err)
	}
	if card.Name != "Big deal" || card.StageID != "stage-1" {
		t.Fatalf("unexpected card: %+v", card)
	}
	if len(card.SourceConversationIDs) != 1 || card.SourceConversationIDs[0] != "conv-1" {
		t.Fatalf("sourceConversationIds = %v, want [conv-1]", card.SourceConversationIDs)
	}
	if len(card.AssignedUserIDs) != 1 || card.AssignedUserIDs[0] != "user-1" {
		t.Fatalf("assignedUserIds = %v, want seeded from conversation", card.AssignedUserIDs)
	}
	want := Conformity{MainType: "deal", MainTypeID: card.ID, RelType: "customer", RelTypeID: "cust-1"}
	if _, ok := f.conformities.rows[want]; !ok {
		t.Fatalf("customer conformity missing, rows: %v", f.conformities.rows)
	}
}

func TestConvertMergeIsIdempotent(t *testing.T) {
	f := newCardsFixture()
	f.cards.cards["card-1"] = &Card{ID: "card-1", Kind: KindTask, StageID: "stage-1"}

	input := ConvertInput{ConversationID: "conv-1", Kind: KindTask, ItemID: "card-1"}
	for i := 0; i < 3; i++ {
		if _, err := f.service.ConvertToRecord(context.Background(), input); err != nil {
			t.Fatalf("conversion %d returned error: %v", i, err)
		}
	}

	card := f.cards.cards["card-1"]
	if len(card.SourceConversationIDs) != 1 {
		t.Fatalf("sourceConversationIds = %v, want exactly one occurrence", card.SourceConversationIDs)
	}
	if len(f.conformities.rows) != 1 {
		t.Fatalf("conformity rows = %d, want 1", len(f.conformities.rows))
	}
}

func TestConvertMissingTargets(t *testing.T) {
	f := newCardsFixture()

	_, err := f.service.ConvertToRecord(context.Background(), ConvertInput{
		ConversationID: "missing", Kind: KindDeal, StageID: "stage-1",
	})
	if !errors.Is(err, inbox.ErrConversationNotFound) {
		t.Fatalf("error = %v, want ErrConversationNotFound", err)
	}

	_, err = f.service.ConvertToRecord(context.Background(), ConvertInput{
		ConversationID: "conv-1", Kind: KindDeal, StageID: "missing",
	})
	if !errors.Is(err, ErrStageNotFound) {
		t.Fatalf("error = %v, want ErrStageNotFound", err)
	}

	_, err = f.service.ConvertToRecord(context.Background(), ConvertInput{
		ConversationID: "conv-1", Kind: KindTicket, ItemID: "missing",
	})
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("error = %v, want ErrRecordNotFound", err)
	}
}

func TestConvertRejectsUnknownKind(t *testing.T) {
	f := newCardsFixture()
	_, err := f.service.ConvertToRecord(context.Background(), ConvertInput{
		ConversationID: "conv-1", Kind: RecordKind("invoice"), StageID: "stage-1",
	})
	if err == nil {
		t.Fatal("expected error for unknown record kind")
	}
}

func TestConvertSkipsConformityWithoutCustomer(t *testing.T) {
	f := newCardsFixture()
	f.conversations.conversations["conv-2"] = &inbox.Conversation{ID: "conv-2"}

	if _, err := f.service.ConvertToRecord(context.Background(), ConvertInput{
		ConversationID: "conv-2", Kind: KindDeal, ItemName: "No customer", StageID: "stage-1",
	}); err != nil {
		t.Fatalf("ConvertToRecord returned error: %v", err)
	}
	if len(f.conformities.rows) != 0 {
		t.Fatalf("conformity created without a customer: %v", f.conformities.rows)
	}
}
