// Package sms implements the segmented outbound adapters for the Twilio and
// Telnyx SMS providers. Long content is split into carrier-sized segments and
// each segment is an independent, ordered RPC to the provider service. A
// failed segment aborts the rest but already-sent segments are not recalled:
// delivery is at-least-once per segment, never transactional.
package sms

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/helmdesk/helmdesk/internal/broker"
	"github.com/helmdesk/helmdesk/internal/channel"
)

// ReplyQueue is the RPC queue the SMS provider services consume.
const ReplyQueue = "rpc_queue:api_to_integrations"

// SegmentLimit is the per-segment rune budget. Both providers accept plain
// GSM-7 segments of 160; staying at that bound keeps one RPC per billable
// message.
const SegmentLimit = 160

type sendEnvelope struct {
	Action  string      `json:"action"`
	Type    string      `json:"type"`
	Payload sendPayload `json:"payload"`
}

type sendPayload struct {
	IntegrationID  string `json:"integrationId"`
	ConversationID string `json:"conversationId"`
	CustomerID     string `json:"customerId"`
	Content        string `json:"content"`
	SegmentIndex   int    `json:"segmentIndex"`
	SegmentCount   int    `json:"segmentCount"`
}

// Adapter sends SMS replies through one provider.
type Adapter struct {
	kind   channel.Kind
	client broker.Client
	log    *slog.Logger
}

// NewTwilio returns the adapter for the Twilio SMS channel.
func NewTwilio(client broker.Client, log *slog.Logger) *Adapter {
	return newAdapter(channel.KindTwilio, client, log)
}

// NewTelnyx returns the adapter for the Telnyx SMS channel.
func NewTelnyx(client broker.Client, log *slog.Logger) *Adapter {
	return newAdapter(channel.KindTelnyx, client, log)
}

func newAdapter(kind channel.Kind, client broker.Client, log *slog.Logger) *Adapter {
	return &Adapter{
		kind:   kind,
		client: client,
		log:    log.With(slog.String("adapter", kind.String())),
	}
}

func (a *Adapter) Kind() channel.Kind          { return a.kind }
func (a *Adapter) Mode() channel.TransportMode { return channel.ModeSegmented }

// Check requires a sending number on the integration and a customer to
// address; SMS has no conversation-scoped reply target.
func (a *Adapter) Check(_ context.Context, req channel.SendRequest) error {
	number, _ := req.Integration.Config["phoneNumber"].(string)
	if strings.TrimSpace(number) == "" {
		return fmt.Errorf("%w: integration %s has no sending number", channel.ErrPreconditionFailed, req.Integration.ID)
	}
	if req.CustomerID == "" {
		return fmt.Errorf("%w: sms reply needs a customer", channel.ErrPreconditionFailed)
	}
	return nil
}

// Send splits the content and sends segments strictly in order, each waiting
// for the previous segment's response. The first failure stops the sequence.
func (a *Adapter) Send(ctx context.Context, req channel.SendRequest) error {
	segments := channel.SplitSegments(req.Content, SegmentLimit)
	if len(segments) == 0 {
		return fmt.Errorf("%w: sms reply has no text content", channel.ErrPreconditionFailed)
	}
	for i, segment := range segments {
		envelope := sendEnvelope{
			Action: "sendConversationSms",
			Type:   a.kind.String(),
			Payload: sendPayload{
				IntegrationID:  req.Integration.ID,
				ConversationID: req.ConversationID,
				CustomerID:     req.CustomerID,
				Content:        segment,
				SegmentIndex:   i,
				SegmentCount:   len(segments),
			},
		}
		if _, err := a.client.SendRPCMessage(ctx, ReplyQueue, envelope); err != nil {
			return fmt.Errorf("sms segment %d/%d: %w", i+1, len(segments), err)
		}
	}
	a.log.Debug("sms delivered",
		slog.String("conversation_id", req.ConversationID),
		slog.Int("segments", len(segments)),
	)
	return nil
}
