// Package notify implements the notification fan-out that runs after every
// persisted conversation message: in-app mention notices, mobile push and
// email escalation, each independently supervised so one failing channel never
// takes the others down.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/helmdesk/helmdesk/internal/channel"
	"github.com/helmdesk/helmdesk/internal/inbox"
)

// Options are the startup-resolved toggles for the optional channels. They
// come from configuration presence, not per-call parameters.
type Options struct {
	MailEnabled bool
	PushEnabled bool
}

// Notification is one in-app notice.
type Notification struct {
	ID             string
	ReceiverUserID string
	Kind           string
	Title          string
	Content        string
	Link           string
}

// KindMention marks notices created for users mentioned in a message.
const KindMention = "conversationMention"

// NotificationSink stores in-app notices.
type NotificationSink interface {
	Create(ctx context.Context, notification Notification) error
}

// UserDirectory resolves notification targets for users.
type UserDirectory interface {
	DeviceTokens(ctx context.Context, userIDs []string) ([]string, error)
	Email(ctx context.Context, userID string) (string, error)
}

// PushMessage is one mobile push payload.
type PushMessage struct {
	Title          string
	Body           string
	ConversationID string
}

// Pusher delivers mobile push messages. An unconfigured provider reports
// ErrPushNotConfigured from Send.
type Pusher interface {
	Send(ctx context.Context, deviceTokens []string, message PushMessage) error
}

// Mailer delivers escalation emails.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Service is the fan-out entry point; it implements inbox.Notifier.
type Service struct {
	opts         Options
	sink         NotificationSink
	directory    UserDirectory
	pusher       Pusher
	mailer       Mailer
	integrations inbox.IntegrationStore
	log          *slog.Logger

	newID func() string
}

func NewService(
	opts Options,
	sink NotificationSink,
	directory UserDirectory,
	pusher Pusher,
	mailer Mailer,
	integrationStore inbox.IntegrationStore,
	log *slog.Logger,
) *Service {
	return &Service{
		opts:         opts,
		sink:         sink,
		directory:    directory,
		pusher:       pusher,
		mailer:       mailer,
		integrations: integrationStore,
		log:          log.With(slog.String("service", "notify")),
		newID:        uuid.NewString,
	}
}

// Notify runs the fan-out for one persisted message. Each sub-task contains
// its own failures; the only error that can cross this boundary is a push
// failure when the caller demanded synchronous confirmation.
func (s *Service) Notify(ctx context.Context, conversation *inbox.Conversation, message *inbox.Message, sync bool) error {
	s.mentionNotices(ctx, conversation, message)
	if err := s.push(ctx, conversation, message, sync); err != nil {
		return err
	}
	s.mailEscalation(ctx, conversation, message)
	return nil
}

// mentionNotices creates one in-app notice per mentioned user. The author is
// never notified about their own message, and a failure for one recipient
// does not block the rest.
func (s *Service) mentionNotices(ctx context.Context, conversation *inbox.Conversation, message *inbox.Message) {
	seen := map[string]struct{}{}
	for _, userID := range message.MentionedUserIDs {
		if userID == "" || userID == message.UserID {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		notice := Notification{
			ID:             s.newID(),
			ReceiverUserID: userID,
			Kind:           KindMention,
			Title:          "You have been mentioned",
			Content:        message.Content,
			Link:           "/inbox/index?_id=" + conversation.ID,
		}
		if err := s.sink.Create(ctx, notice); err != nil {
			s.log.Warn("mention notice",
				slog.String("receiver", userID),
				slog.String("message_id", message.ID),
				slog.Any("error", err),
			)
		}
	}
}

// push sends a mobile push to the conversation's assignee and participants.
// Async callers get a logged warning on failure; a sync caller gets the error.
func (s *Service) push(ctx context.Context, conversation *inbox.Conversation, message *inbox.Message, sync bool) error {
	if !sync && !s.opts.PushEnabled {
		return nil
	}

	recipients := pushRecipients(conversation, message)
	tokens, err := s.directory.DeviceTokens(ctx, recipients)
	if err != nil {
		if sync {
			return err
		}
		s.log.Warn("resolve device tokens", slog.Any("error", err))
		return nil
	}

	pushErr := s.pusher.Send(ctx, tokens, PushMessage{
		Title:          "New message",
		Body:           message.Content,
		ConversationID: conversation.ID,
	})
	if pushErr == nil {
		return nil
	}
	if sync {
		return pushErr
	}
	s.log.Warn("mobile push", slog.String("message_id", message.ID), slog.Any("error", pushErr))
	return nil
}

// mailEscalation emails the assignee when a delivered reply is the first
// response in a lead-channel conversation. Unconfigured mail is a no-op, not
// an error.
func (s *Service) mailEscalation(ctx context.Context, conversation *inbox.Conversation, message *inbox.Message) {
	if !s.opts.MailEnabled {
		return
	}
	if message.DeliveryStatus != inbox.DeliverySent {
		return
	}
	if conversation.FirstRespondedUserID != "" {
		return
	}
	recipient := conversation.AssignedUserID
	if recipient == "" || recipient == message.UserID {
		return
	}

	integration, err := s.integrations.Get(ctx, conversation.IntegrationID)
	if err != nil {
		s.log.Warn("mail escalation integration lookup", slog.Any("error", err))
		return
	}
	if channel.Kind(integration.Kind) != channel.KindLead {
		return
	}

	address, err := s.directory.Email(ctx, recipient)
	if err != nil || address == "" {
		if err != nil {
			s.log.Warn("mail escalation address lookup", slog.String("user", recipient), slog.Any("error", err))
		}
		return
	}

	subject := fmt.Sprintf("New lead response in %s", integration.Name)
	if err := s.mailer.Send(ctx, address, subject, message.Content); err != nil {
		s.log.Warn("mail escalation", slog.String("to", address), slog.Any("error", err))
	}
}

func pushRecipients(conversation *inbox.Conversation, message *inbox.Message) []string {
	seen := map[string]struct{}{}
	recipients := make([]string, 0, len(conversation.ParticipatedUserIDs)+1)
	add := func(userID string) {
		if userID == "" || userID == message.UserID {
			return
		}
		if _, dup := seen[userID]; dup {
			return
		}
		seen[userID] = struct{}{}
		recipients = append(recipients, userID)
	}
	add(conversation.AssignedUserID)
	for _, userID := range conversation.ParticipatedUserIDs {
		add(userID)
	}
	return recipients
}
