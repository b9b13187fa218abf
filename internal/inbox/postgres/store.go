// Package postgres implements the inbox stores on PostgreSQL. Every entity is
// one row; nested collections live in array and JSONB columns so each write
// stays a single-row transaction.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helmdesk/helmdesk/internal/channel"
	"github.com/helmdesk/helmdesk/internal/inbox"
)

// ConversationStore is the pgx-backed inbox.ConversationStore.
type ConversationStore struct {
	pool *pgxpool.Pool
}

func NewConversationStore(pool *pgxpool.Pool) *ConversationStore {
	return &ConversationStore{pool: pool}
}

const conversationColumns = `id, integration_id, customer_id, assigned_user_id,
	participated_user_ids, read_user_ids, status, operator_status, content,
	first_responded_user_id, first_responded_at, created_at`

func (s *ConversationStore) Get(ctx context.Context, id string) (*inbox.Conversation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)

	var c inbox.Conversation
	var status, operatorStatus string
	err := row.Scan(
		&c.ID, &c.IntegrationID, &c.CustomerID, &c.AssignedUserID,
		&c.ParticipatedUserIDs, &c.ReadUserIDs, &status, &operatorStatus,
		&c.Content, &c.FirstRespondedUserID, &c.FirstRespondedAt, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, inbox.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	c.Status = inbox.Status(status)
	c.OperatorStatus = inbox.OperatorStatus(operatorStatus)
	return &c, nil
}

// Insert creates a conversation row; used by seeding and inbound ingestion.
func (s *ConversationStore) Insert(ctx context.Context, c *inbox.Conversation) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversations
			(id, integration_id, customer_id, assigned_user_id, participated_user_ids,
			 read_user_ids, status, operator_status, content, first_responded_user_id,
			 first_responded_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.IntegrationID, c.CustomerID, c.AssignedUserID,
		textArray(c.ParticipatedUserIDs), textArray(c.ReadUserIDs),
		string(c.Status), string(c.OperatorStatus), c.Content,
		c.FirstRespondedUserID, c.FirstRespondedAt, createdAt(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (s *ConversationStore) SetAssignee(ctx context.Context, ids []string, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE conversations SET assigned_user_id = $2 WHERE id = ANY($1)`,
		textArray(ids), userID)
	if err != nil {
		return fmt.Errorf("set assignee: %w", err)
	}
	if int(tag.RowsAffected()) != len(ids) {
		return inbox.ErrConversationNotFound
	}
	return nil
}

func (s *ConversationStore) AddParticipant(ctx context.Context, id, userID string) error {
	return s.appendUnique(ctx, "participated_user_ids", id, userID)
}

func (s *ConversationStore) AddReadUser(ctx context.Context, id, userID string) error {
	return s.appendUnique(ctx, "read_user_ids", id, userID)
}

// appendUnique adds userID to an array column with set semantics: members are
// never duplicated and re-adding is a no-op.
func (s *ConversationStore) appendUnique(ctx context.Context, column, id, userID string) error {
	query := fmt.Sprintf(
		`UPDATE conversations
		 SET %[1]s = CASE WHEN $2 = ANY(%[1]s) THEN %[1]s ELSE array_append(%[1]s, $2) END
		 WHERE id = $1`, column)
	tag, err := s.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return inbox.ErrConversationNotFound
	}
	return nil
}

func (s *ConversationStore) SetStatus(ctx context.Context, ids []string, status inbox.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE conversations SET status = $2 WHERE id = ANY($1)`,
		textArray(ids), string(status))
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if int(tag.RowsAffected()) != len(ids) {
		return inbox.ErrConversationNotFound
	}
	return nil
}

func (s *ConversationStore) SetOperatorStatus(ctx context.Context, id string, status inbox.OperatorStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE conversations SET operator_status = $2 WHERE id = $1`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("set operator status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return inbox.ErrConversationNotFound
	}
	return nil
}

// SetFirstResponded writes the first-response marker only when it is still
// unset. Racing writers resolve to whichever update lands first.
func (s *ConversationStore) SetFirstResponded(ctx context.Context, id, userID string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE conversations
		 SET first_responded_user_id = $2, first_responded_at = $3
		 WHERE id = $1 AND first_responded_user_id = ''`,
		id, userID, at)
	if err != nil {
		return fmt.Errorf("set first responded: %w", err)
	}
	return nil
}

// MessageStore is the pgx-backed inbox.MessageStore.
type MessageStore struct {
	pool *pgxpool.Pool
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

func (s *MessageStore) Insert(ctx context.Context, m *inbox.Message) error {
	attachments, err := json.Marshal(attachmentsOrEmpty(m.Attachments))
	if err != nil {
		return fmt.Errorf("encode attachments: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO conversation_messages
			(id, conversation_id, user_id, customer_id, content, attachments,
			 mentioned_user_ids, internal, bot_data, delivery_status, delivery_error,
			 created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		m.ID, m.ConversationID, m.UserID, m.CustomerID, m.Content, attachments,
		textArray(m.MentionedUserIDs), m.Internal, nullableJSON(m.BotData),
		string(m.DeliveryStatus), m.DeliveryError, createdAt(m.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *MessageStore) Get(ctx context.Context, id string) (*inbox.Message, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, conversation_id, user_id, customer_id, content, attachments,
		        mentioned_user_ids, internal, bot_data, delivery_status,
		        delivery_error, created_at
		 FROM conversation_messages WHERE id = $1`, id)

	var m inbox.Message
	var attachments []byte
	var botData []byte
	var status string
	err := row.Scan(
		&m.ID, &m.ConversationID, &m.UserID, &m.CustomerID, &m.Content,
		&attachments, &m.MentionedUserIDs, &m.Internal, &botData,
		&status, &m.DeliveryError, &m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, inbox.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &m.Attachments); err != nil {
			return nil, fmt.Errorf("decode attachments: %w", err)
		}
	}
	m.BotData = botData
	m.DeliveryStatus = inbox.DeliveryOutcome(status)
	return &m, nil
}

func (s *MessageStore) SetDeliveryStatus(ctx context.Context, id string, outcome inbox.DeliveryOutcome, deliveryError string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE conversation_messages SET delivery_status = $2, delivery_error = $3 WHERE id = $1`,
		id, string(outcome), deliveryError)
	if err != nil {
		return fmt.Errorf("set delivery status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return inbox.ErrMessageNotFound
	}
	return nil
}

// IntegrationStore is the pgx-backed inbox.IntegrationStore.
type IntegrationStore struct {
	pool *pgxpool.Pool
}

func NewIntegrationStore(pool *pgxpool.Pool) *IntegrationStore {
	return &IntegrationStore{pool: pool}
}

func (s *IntegrationStore) Get(ctx context.Context, id string) (*inbox.Integration, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, kind, brand_id, name, config FROM integrations WHERE id = $1`, id)

	var i inbox.Integration
	var config []byte
	err := row.Scan(&i.ID, &i.Kind, &i.BrandID, &i.Name, &config)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, inbox.ErrIntegrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get integration: %w", err)
	}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &i.Config); err != nil {
			return nil, fmt.Errorf("decode integration config: %w", err)
		}
	}
	return &i, nil
}

func textArray(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func attachmentsOrEmpty(values []channel.Attachment) []channel.Attachment {
	if values == nil {
		return []channel.Attachment{}
	}
	return values
}

func nullableJSON(value json.RawMessage) any {
	if len(value) == 0 {
		return nil
	}
	return []byte(value)
}

func createdAt(value time.Time) time.Time {
	if value.IsZero() {
		return time.Now()
	}
	return value
}
