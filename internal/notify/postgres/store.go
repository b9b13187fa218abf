// Package postgres implements the notification sink and user directory on
// PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helmdesk/helmdesk/internal/notify"
)

// NotificationSink stores in-app notices in the notifications table.
type NotificationSink struct {
	pool *pgxpool.Pool
}

func NewNotificationSink(pool *pgxpool.Pool) *NotificationSink {
	return &NotificationSink{pool: pool}
}

func (s *NotificationSink) Create(ctx context.Context, n notify.Notification) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (id, receiver_user_id, kind, title, content, link)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.ReceiverUserID, n.Kind, n.Title, n.Content, n.Link)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// UserDirectory resolves device tokens and email addresses from the users
// table.
type UserDirectory struct {
	pool *pgxpool.Pool
}

func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{pool: pool}
}

func (d *UserDirectory) DeviceTokens(ctx context.Context, userIDs []string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := d.pool.Query(ctx,
		`SELECT device_tokens FROM users WHERE id = ANY($1)`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("query device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var userTokens []string
		if err := rows.Scan(&userTokens); err != nil {
			return nil, fmt.Errorf("scan device tokens: %w", err)
		}
		tokens = append(tokens, userTokens...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read device tokens: %w", err)
	}
	return tokens, nil
}

func (d *UserDirectory) Email(ctx context.Context, userID string) (string, error) {
	var email string
	err := d.pool.QueryRow(ctx,
		`SELECT email FROM users WHERE id = $1`, userID).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query user email: %w", err)
	}
	return email, nil
}
