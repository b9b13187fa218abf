// Package widget implements the fire-and-forget adapter for third-party chat
// widget sessions such as Chatfuel. The reply is accepted once the broker
// acknowledges the publish; the widget service delivers asynchronously.
package widget

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/helmdesk/helmdesk/internal/broker"
	"github.com/helmdesk/helmdesk/internal/channel"
)

// NotificationQueue is the event queue the widget services consume.
const NotificationQueue = "integrations-notification"

type notification struct {
	Action  string  `json:"action"`
	Type    string  `json:"type"`
	Payload payload `json:"payload"`
}

type payload struct {
	IntegrationID  string `json:"integrationId"`
	ConversationID string `json:"conversationId"`
	CustomerID     string `json:"customerId,omitempty"`
	Content        string `json:"content"`
}

// Adapter publishes replies toward one widget-backed channel kind.
type Adapter struct {
	kind   channel.Kind
	client broker.Client
	log    *slog.Logger
}

// NewChatfuel returns the adapter for the Chatfuel widget channel.
func NewChatfuel(client broker.Client, log *slog.Logger) *Adapter {
	return &Adapter{
		kind:   channel.KindChatfuel,
		client: client,
		log:    log.With(slog.String("adapter", channel.KindChatfuel.String())),
	}
}

func (a *Adapter) Kind() channel.Kind          { return a.kind }
func (a *Adapter) Mode() channel.TransportMode { return channel.ModeEvent }

// Check requires a live widget session on the integration. Widget sessions
// expire server-side; without one there is nobody to deliver to and the
// dispatcher should fail before publishing.
func (a *Adapter) Check(_ context.Context, req channel.SendRequest) error {
	session, _ := req.Integration.Config["sessionId"].(string)
	if strings.TrimSpace(session) == "" {
		return fmt.Errorf("%w: integration %s has no live widget session", channel.ErrPreconditionFailed, req.Integration.ID)
	}
	return nil
}

func (a *Adapter) Send(ctx context.Context, req channel.SendRequest) error {
	event := notification{
		Action: "sendConversationMessage",
		Type:   a.kind.String(),
		Payload: payload{
			IntegrationID:  req.Integration.ID,
			ConversationID: req.ConversationID,
			CustomerID:     req.CustomerID,
			Content:        req.Content,
		},
	}
	if err := a.client.SendMessage(ctx, NotificationQueue, event); err != nil {
		return fmt.Errorf("widget %s publish: %w", a.kind, err)
	}
	a.log.Debug("reply published", slog.String("conversation_id", req.ConversationID))
	return nil
}
