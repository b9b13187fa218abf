// Package postgres implements the card, stage and conformity stores on
// PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helmdesk/helmdesk/internal/cards"
)

// CardStore is the pgx-backed cards.CardStore.
type CardStore struct {
	pool *pgxpool.Pool
}

func NewCardStore(pool *pgxpool.Pool) *CardStore {
	return &CardStore{pool: pool}
}

func (s *CardStore) Get(ctx context.Context, id string) (*cards.Card, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, kind, name, stage_id, source_conversation_ids, assigned_user_ids, created_at
		 FROM cards WHERE id = $1`, id)

	var c cards.Card
	var kind string
	err := row.Scan(&c.ID, &kind, &c.Name, &c.StageID,
		&c.SourceConversationIDs, &c.AssignedUserIDs, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, cards.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}
	c.Kind = cards.RecordKind(kind)
	return &c, nil
}

func (s *CardStore) Insert(ctx context.Context, c *cards.Card) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cards (id, kind, name, stage_id, source_conversation_ids, assigned_user_ids)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, string(c.Kind), c.Name, c.StageID,
		orEmpty(c.SourceConversationIDs), orEmpty(c.AssignedUserIDs))
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func (s *CardStore) AddSourceConversation(ctx context.Context, id, conversationID string) error {
	return s.appendUnique(ctx, "source_conversation_ids", id, conversationID)
}

func (s *CardStore) AddAssignedUser(ctx context.Context, id, userID string) error {
	return s.appendUnique(ctx, "assigned_user_ids", id, userID)
}

func (s *CardStore) appendUnique(ctx context.Context, column, id, value string) error {
	query := fmt.Sprintf(
		`UPDATE cards
		 SET %[1]s = CASE WHEN $2 = ANY(%[1]s) THEN %[1]s ELSE array_append(%[1]s, $2) END
		 WHERE id = $1`, column)
	tag, err := s.pool.Exec(ctx, query, id, value)
	if err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return cards.ErrRecordNotFound
	}
	return nil
}

// StageStore is the pgx-backed cards.StageStore.
type StageStore struct {
	pool *pgxpool.Pool
}

func NewStageStore(pool *pgxpool.Pool) *StageStore {
	return &StageStore{pool: pool}
}

func (s *StageStore) Get(ctx context.Context, id string) (*cards.Stage, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, kind, name FROM stages WHERE id = $1`, id)

	var stage cards.Stage
	err := row.Scan(&stage.ID, &stage.Kind, &stage.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, cards.ErrStageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get stage: %w", err)
	}
	return &stage, nil
}

// ConformityStore is the pgx-backed cards.ConformityStore. Idempotence comes
// from the unique tuple constraint: a duplicate Ensure inserts nothing.
type ConformityStore struct {
	pool *pgxpool.Pool
}

func NewConformityStore(pool *pgxpool.Pool) *ConformityStore {
	return &ConformityStore{pool: pool}
}

func (s *ConformityStore) Ensure(ctx context.Context, c cards.Conformity) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conformities (id, main_type, main_type_id, rel_type, rel_type_id)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT ON CONSTRAINT conformities_tuple_unique DO NOTHING`,
		uuid.NewString(), c.MainType, c.MainTypeID, c.RelType, c.RelTypeID)
	if err != nil {
		return fmt.Errorf("ensure conformity: %w", err)
	}
	return nil
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
