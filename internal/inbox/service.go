package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/helmdesk/helmdesk/internal/channel"
	"github.com/helmdesk/helmdesk/internal/integrations"
)

// ErrChannelSendFailed reports that the channel adapter or broker rejected the
// outbound send. The message row stays persisted with outcome failed; resend
// is an explicit user action, never automatic.
var ErrChannelSendFailed = errors.New("channel send failed")

// operatorTakeoverText is the bot annotation written when a conversation is
// handed from the bot to a human operator.
const operatorTakeoverText = "This conversation has been transferred to an operator"

// Notifier runs the notification fan-out for one persisted message. When sync
// is true the caller demands synchronous confirmation and a push failure
// propagates; otherwise failures are contained and logged inside the fan-out.
type Notifier interface {
	Notify(ctx context.Context, conversation *Conversation, message *Message, sync bool) error
}

// VideoCallClient is the integrations-service surface the inbox consumes.
type VideoCallClient interface {
	CreateVideoChatRoom(ctx context.Context, conversationID string) (*integrations.Room, error)
	DeleteVideoChatRoom(ctx context.Context, name string) error
	SaveVideoRecordingInfo(ctx context.Context, conversationID, recordingID string) error
}

// SendMessageInput is one outbound reply or internal note.
type SendMessageInput struct {
	ConversationID   string
	UserID           string
	Content          string
	Attachments      []channel.Attachment
	MentionedUserIDs []string
	Internal         bool
}

// Service orchestrates message dispatch and conversation mutations.
type Service struct {
	conversations ConversationStore
	messages      MessageStore
	integrations  IntegrationStore
	registry      *channel.Registry
	notifier      Notifier
	video         VideoCallClient
	log           *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewService wires the dispatcher with its collaborators.
func NewService(
	conversations ConversationStore,
	messages MessageStore,
	integrationStore IntegrationStore,
	registry *channel.Registry,
	notifier Notifier,
	video VideoCallClient,
	log *slog.Logger,
) *Service {
	return &Service{
		conversations: conversations,
		messages:      messages,
		integrations:  integrationStore,
		registry:      registry,
		notifier:      notifier,
		video:         video,
		log:           log.With(slog.String("service", "inbox")),
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// SendMessage persists and dispatches one reply.
//
// The message row is written before any external call, so a crash mid-send
// leaves a recoverable pending row rather than losing the author's input. A
// channel failure marks the row failed and propagates; the notification
// fan-out still runs so mention notices are not lost on channel failure.
func (s *Service) SendMessage(ctx context.Context, input SendMessageInput) (*Message, error) {
	conversation, err := s.conversations.Get(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}

	outcome := DeliveryPending
	if input.Internal {
		outcome = DeliverySkipped
	}
	message := &Message{
		ID:               s.newID(),
		ConversationID:   conversation.ID,
		UserID:           input.UserID,
		Content:          input.Content,
		Attachments:      input.Attachments,
		MentionedUserIDs: input.MentionedUserIDs,
		Internal:         input.Internal,
		DeliveryStatus:   outcome,
		CreatedAt:        s.now(),
	}
	if err := s.messages.Insert(ctx, message); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	if input.Internal {
		// Internal notes never leave the system, but the author expects the
		// mention notices to have gone out by the time the call returns, so
		// fan-out failures propagate on this path.
		if err := s.notifier.Notify(ctx, conversation, message, true); err != nil {
			return nil, err
		}
		return message, nil
	}

	if err := s.dispatch(ctx, conversation, message); err != nil {
		s.markFailed(ctx, message, err)
		s.fanOut(ctx, conversation, message)
		return nil, err
	}

	message.DeliveryStatus = DeliverySent
	if err := s.messages.SetDeliveryStatus(ctx, message.ID, DeliverySent, ""); err != nil {
		s.log.Error("mark message sent", slog.String("message_id", message.ID), slog.Any("error", err))
	}
	// Fan-out runs before the first-response marker is written so the
	// escalation path still sees this message as first contact.
	s.fanOut(ctx, conversation, message)
	s.recordFirstResponse(ctx, conversation, input.UserID)
	return message, nil
}

// dispatch resolves the channel adapter and performs the external send. A
// kind without a registered adapter is native: the reply is stored only and
// counts as delivered.
func (s *Service) dispatch(ctx context.Context, conversation *Conversation, message *Message) error {
	integration, err := s.integrations.Get(ctx, conversation.IntegrationID)
	if err != nil {
		return err
	}

	adapter, ok := s.registry.Get(channel.Kind(integration.Kind))
	if !ok {
		return nil
	}

	req := channel.SendRequest{
		Integration:    integration.ToChannel(),
		ConversationID: conversation.ID,
		CustomerID:     conversation.CustomerID,
		Content:        message.Content,
		Attachments:    message.Attachments,
	}
	if err := adapter.Check(ctx, req); err != nil {
		return fmt.Errorf("%w: %w", ErrChannelSendFailed, err)
	}
	if err := adapter.Send(ctx, req); err != nil {
		return fmt.Errorf("%w: %w", ErrChannelSendFailed, err)
	}
	return nil
}

func (s *Service) markFailed(ctx context.Context, message *Message, cause error) {
	message.DeliveryStatus = DeliveryFailed
	message.DeliveryError = cause.Error()
	if err := s.messages.SetDeliveryStatus(ctx, message.ID, DeliveryFailed, cause.Error()); err != nil {
		s.log.Error("mark message failed", slog.String("message_id", message.ID), slog.Any("error", err))
	}
}

func (s *Service) recordFirstResponse(ctx context.Context, conversation *Conversation, userID string) {
	if userID == "" || conversation.FirstRespondedUserID != "" {
		return
	}
	at := s.now()
	if err := s.conversations.SetFirstResponded(ctx, conversation.ID, userID, at); err != nil {
		s.log.Error("record first response", slog.String("conversation_id", conversation.ID), slog.Any("error", err))
		return
	}
	conversation.FirstRespondedUserID = userID
	conversation.FirstRespondedAt = &at
}

func (s *Service) fanOut(ctx context.Context, conversation *Conversation, message *Message) {
	if err := s.notifier.Notify(ctx, conversation, message, false); err != nil {
		s.log.Warn("notification fan-out", slog.String("message_id", message.ID), slog.Any("error", err))
	}
}

// Assign sets the assignee on the given conversations and records them as
// participants.
func (s *Service) Assign(ctx context.Context, conversationIDs []string, userID string) ([]*Conversation, error) {
	if userID == "" {
		return nil, errors.New("assignee user id is required")
	}
	if err := s.conversations.SetAssignee(ctx, conversationIDs, userID); err != nil {
		return nil, err
	}
	for _, id := range conversationIDs {
		if err := s.conversations.AddParticipant(ctx, id, userID); err != nil {
			return nil, err
		}
	}
	return s.reload(ctx, conversationIDs)
}

// Unassign clears the assignee. Participation survives unassignment: the user
// stays in participatedUserIds.
func (s *Service) Unassign(ctx context.Context, conversationIDs []string) ([]*Conversation, error) {
	if err := s.conversations.SetAssignee(ctx, conversationIDs, ""); err != nil {
		return nil, err
	}
	return s.reload(ctx, conversationIDs)
}

// ChangeStatus moves the given conversations to the given status.
func (s *Service) ChangeStatus(ctx context.Context, conversationIDs []string, status Status) ([]*Conversation, error) {
	switch status {
	case StatusNew, StatusOpen, StatusClosed:
	default:
		return nil, fmt.Errorf("unknown conversation status: %s", status)
	}
	if err := s.conversations.SetStatus(ctx, conversationIDs, status); err != nil {
		return nil, err
	}
	return s.reload(ctx, conversationIDs)
}

// MarkAsRead adds the user to the conversation's read set. Repeated calls are
// no-ops.
func (s *Service) MarkAsRead(ctx context.Context, conversationID, userID string) (*Conversation, error) {
	conversation, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	for _, id := range conversation.ReadUserIDs {
		if id == userID {
			return conversation, nil
		}
	}
	if err := s.conversations.AddReadUser(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return s.conversations.Get(ctx, conversationID)
}

// ChangeOperatorStatus switches between bot and operator handling. Handing a
// conversation to an operator writes a bot annotation message into the thread
// so the customer sees the takeover.
func (s *Service) ChangeOperatorStatus(ctx context.Context, conversationID string, status OperatorStatus) (*Conversation, error) {
	switch status {
	case OperatorStatusBot, OperatorStatusOperator:
	default:
		return nil, fmt.Errorf("unknown operator status: %s", status)
	}
	conversation, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.conversations.SetOperatorStatus(ctx, conversationID, status); err != nil {
		return nil, err
	}
	if status == OperatorStatusOperator && conversation.OperatorStatus != OperatorStatusOperator {
		if err := s.insertTakeoverNote(ctx, conversationID); err != nil {
			s.log.Error("operator takeover note", slog.String("conversation_id", conversationID), slog.Any("error", err))
		}
	}
	return s.conversations.Get(ctx, conversationID)
}

func (s *Service) insertTakeoverNote(ctx context.Context, conversationID string) error {
	botData, err := json.Marshal([]map[string]string{{"type": "text", "text": operatorTakeoverText}})
	if err != nil {
		return err
	}
	note := &Message{
		ID:             s.newID(),
		ConversationID: conversationID,
		Content:        operatorTakeoverText,
		BotData:        botData,
		DeliveryStatus: DeliverySkipped,
		CreatedAt:      s.now(),
	}
	return s.messages.Insert(ctx, note)
}

// CreateVideoChatRoom provisions a video room for the conversation.
func (s *Service) CreateVideoChatRoom(ctx context.Context, conversationID string) (*integrations.Room, error) {
	if _, err := s.conversations.Get(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.video.CreateVideoChatRoom(ctx, conversationID)
}

// DeleteVideoChatRoom tears down a provisioned video room.
func (s *Service) DeleteVideoChatRoom(ctx context.Context, name string) error {
	return s.video.DeleteVideoChatRoom(ctx, name)
}

// SaveVideoRecordingInfo stores a finished recording's provider reference.
func (s *Service) SaveVideoRecordingInfo(ctx context.Context, conversationID, recordingID string) error {
	if _, err := s.conversations.Get(ctx, conversationID); err != nil {
		return err
	}
	return s.video.SaveVideoRecordingInfo(ctx, conversationID, recordingID)
}

func (s *Service) reload(ctx context.Context, ids []string) ([]*Conversation, error) {
	items := make([]*Conversation, 0, len(ids))
	for _, id := range ids {
		conversation, err := s.conversations.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		items = append(items, conversation)
	}
	return items, nil
}
