// Package facebook implements the outbound adapters for Facebook feed comments
// and Facebook Messenger replies. Both run over broker RPC: the reply is only
// considered delivered once the channel service responds.
package facebook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/helmdesk/helmdesk/internal/broker"
	"github.com/helmdesk/helmdesk/internal/channel"
)

// ReplyQueue is the RPC queue the Facebook channel service consumes.
const ReplyQueue = "rpc_queue:api_to_integrations"

const (
	actionReplyPost      = "reply-post"
	actionReplyMessenger = "reply-messenger"
)

type replyEnvelope struct {
	Action  string       `json:"action"`
	Type    string       `json:"type"`
	Payload replyPayload `json:"payload"`
}

type replyPayload struct {
	IntegrationID  string               `json:"integrationId"`
	ConversationID string               `json:"conversationId"`
	CustomerID     string               `json:"customerId,omitempty"`
	Content        string               `json:"content"`
	Attachments    []channel.Attachment `json:"attachments,omitempty"`
}

// Adapter sends replies to one of the Facebook surfaces.
type Adapter struct {
	kind   channel.Kind
	action string
	client broker.Client
	log    *slog.Logger
}

// NewPostAdapter returns the adapter for replies to Facebook feed posts.
func NewPostAdapter(client broker.Client, log *slog.Logger) *Adapter {
	return newAdapter(channel.KindFacebookPost, actionReplyPost, client, log)
}

// NewMessengerAdapter returns the adapter for Facebook Messenger replies.
func NewMessengerAdapter(client broker.Client, log *slog.Logger) *Adapter {
	return newAdapter(channel.KindFacebookMessenger, actionReplyMessenger, client, log)
}

func newAdapter(kind channel.Kind, action string, client broker.Client, log *slog.Logger) *Adapter {
	return &Adapter{
		kind:   kind,
		action: action,
		client: client,
		log:    log.With(slog.String("adapter", kind.String())),
	}
}

func (a *Adapter) Kind() channel.Kind          { return a.kind }
func (a *Adapter) Mode() channel.TransportMode { return channel.ModeRPC }

// Check requires the page binding that the channel service resolves the reply
// target from.
func (a *Adapter) Check(_ context.Context, req channel.SendRequest) error {
	if configString(req.Integration.Config, "pageId") == "" {
		return fmt.Errorf("%w: integration %s has no facebook page", channel.ErrPreconditionFailed, req.Integration.ID)
	}
	return nil
}

func (a *Adapter) Send(ctx context.Context, req channel.SendRequest) error {
	envelope := replyEnvelope{
		Action: a.action,
		Type:   "facebook",
		Payload: replyPayload{
			IntegrationID:  req.Integration.ID,
			ConversationID: req.ConversationID,
			CustomerID:     req.CustomerID,
			Content:        req.Content,
			Attachments:    req.Attachments,
		},
	}
	if _, err := a.client.SendRPCMessage(ctx, ReplyQueue, envelope); err != nil {
		return fmt.Errorf("facebook %s reply: %w", a.action, err)
	}
	a.log.Debug("reply delivered", slog.String("conversation_id", req.ConversationID))
	return nil
}

func configString(config map[string]any, key string) string {
	if config == nil {
		return ""
	}
	value, _ := config[key].(string)
	return value
}
