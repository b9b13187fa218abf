// Package smooch implements the outbound adapter for channels bridged through
// the Smooch aggregator: WhatsApp, Viber, Telegram and LINE. One adapter type
// covers all four kinds; only the kind tag in the payload differs.
package smooch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/helmdesk/helmdesk/internal/broker"
	"github.com/helmdesk/helmdesk/internal/channel"
)

// ReplyQueue is the RPC queue the Smooch bridge service consumes.
const ReplyQueue = "rpc_queue:api_to_integrations"

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

// Adapter sends replies through the Smooch bridge for one channel kind.
type Adapter struct {
	kind   channel.Kind
	client broker.Client
	log    *slog.Logger
}

// New returns a Smooch adapter for the given kind. Kinds outside the Smooch
// family are a programming error.
func New(kind channel.Kind, client broker.Client, log *slog.Logger) (*Adapter, error) {
	switch kind {
	case channel.KindWhatsApp, channel.KindViber, channel.KindTelegram, channel.KindLine:
	default:
		return nil, fmt.Errorf("kind %s is not a smooch channel", kind)
	}
	return &Adapter{
		kind:   kind,
		client: client,
		log:    log.With(slog.String("adapter", kind.String())),
	}, nil
}

func (a *Adapter) Kind() channel.Kind          { return a.kind }
func (a *Adapter) Mode() channel.TransportMode { return channel.ModeRPC }

// Check requires the Smooch app binding created when the integration was set up.
func (a *Adapter) Check(_ context.Context, req channel.SendRequest) error {
	appID, _ := req.Integration.Config["smoochIntegrationId"].(string)
	if strings.TrimSpace(appID) == "" {
		return fmt.Errorf("%w: integration %s has no smooch binding", channel.ErrPreconditionFailed, req.Integration.ID)
	}
	return nil
}

func (a *Adapter) Send(ctx context.Context, req channel.SendRequest) error {
	envelope := replyEnvelope{
		Action: "reply-" + a.kind.String(),
		Type:   "smooch",
		Payload: replyPayload{
			IntegrationID:  req.Integration.ID,
			ConversationID: req.ConversationID,
			CustomerID:     req.CustomerID,
			Content:        req.Content,
			Attachments:    req.Attachments,
		},
	}
	if _, err := a.client.SendRPCMessage(ctx, ReplyQueue, envelope); err != nil {
		return fmt.Errorf("smooch %s reply: %w", a.kind, err)
	}
	a.log.Debug("reply delivered", slog.String("conversation_id", req.ConversationID))
	return nil
}
