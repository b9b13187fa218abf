package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/helmdesk/helmdesk/internal/inbox"
)

type fakeSink struct {
	notices []Notification
	failFor string
}

func (f *fakeSink) Create(_ context.Context, n Notification) error {
	if f.failFor != "" && n.ReceiverUserID == f.failFor {
		return errors.New("sink write failed")
	}
	f.notices = append(f.notices, n)
	return nil
}

type fakeDirectory struct {
	tokens map[string][]string
	emails map[string]string
}

func (f *fakeDirectory) DeviceTokens(_ context.Context, userIDs []string) ([]string, error) {
	var out []string
	for _, id := range userIDs {
		out = append(out, f.tokens[id]...)
	}
	return out, nil
}

func (f *fakeDirectory) Email(_ context.Context, userID string) (string, error) {
	return f.emails[userID], nil
}

type fakePusher struct {
	calls  int
	tokens []string
	err    error
}

func (f *fakePusher) Send(_ context.Context, deviceTokens []string, _ PushMessage) error {
	f.calls++
	f.tokens = deviceTokens
	return f.err
}

type fakeMailer struct {
	sent []string
}

func (f *fakeMailer) Send(_ context.Context, to, _, _ string) error {
	f.sent = append(f.sent, to)
	return nil
}

type fakeIntegrations struct {
	kind string
	name string
}

func (f *fakeIntegrations) Get(context.Context, string) (*inbox.Integration, error) {
	return &inbox.Integration{ID: "int-1", Kind: f.kind, Name: f.name}, nil
}

func newService(opts Options, sink *fakeSink, dir *fakeDirectory, pusher *fakePusher, mailer *fakeMailer, integs *fakeIntegrations) *Service {
	if dir == nil {
		dir = &fakeDirectory{}
	}
	return NewService(opts, sink, dir, pusher, mailer, integs, slog.New(slog.DiscardHandler))
}

func conv() *inbox.Conversation {
	return &inbox.Conversation{
		ID:                  "conv-1",
		IntegrationID:       "int-1",
		CustomerID:          "cust-1",
		AssignedUserID:      "user-a",
		ParticipatedUserIDs: []string{"user-a", "user-b"},
	}
}

func TestMentionNoticesOncePerRecipient(t *testing.T) {
	sink := &fakeSink{}
	svc := newService(Options{}, sink, nil, &fakePusher{}, &fakeMailer{}, &fakeIntegrations{kind: "messenger"})

	msg := &inbox.Message{
		ID:               "msg-1",
		UserID:           "user-author",
		Content:          "content",
		MentionedUserIDs: []string{"user-1", "user-1", "user-author", "user-2"},
	}
	if err := svc.Notify(context.Background(), conv(), msg, false); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if len(sink.notices) != 2 {
		t.Fatalf("notices = %d, want 2 (deduplicated, author excluded)", len(sink.notices))
	}
	if sink.notices[0].ReceiverUserID != "user-1" || sink.notices[1].ReceiverUserID != "user-2" {
		t.Fatalf("unexpected recipients: %+v", sink.notices)
	}
	if sink.notices[0].Kind != KindMention {
		t.Fatalf("notice kind = %s, want %s", sink.notices[0].Kind, KindMention)
	}
}

func TestMentionFailureDoesNotBlockOthers(t *testing.T) {
	sink := &fakeSink{failFor: "user-1"}
	svc := newService(Options{}, sink, nil, &fakePusher{}, &fakeMailer{}, &fakeIntegrations{kind: "messenger"})

	msg := &inbox.Message{ID: "msg-1", MentionedUserIDs: []string{"user-1", "user-2"}}
	if err := svc.Notify(context.Background(), conv(), msg, false); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if len(sink.notices) != 1 || sink.notices[0].ReceiverUserID != "user-2" {
		t.Fatalf("expected user-2 still notified, got %+v", sink.notices)
	}
}

func TestPushDisabledSkipsAsync(t *testing.T) {
	pusher := &fakePusher{}
	svc := newService(Options{PushEnabled: false}, &fakeSink{}, nil, pusher, &fakeMailer{}, &fakeIntegrations{kind: "messenger"})

	if err := svc.Notify(context.Background(), conv(), &inbox.Message{ID: "msg-1"}, false); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if pusher.calls != 0 {
		t.Fatalf("pusher called %d times with push disabled", pusher.calls)
	}
}

func TestPushFailurePropagatesOnlyWhenSync(t *testing.T) {
	pusher := &fakePusher{err: ErrPushNotConfigured}
	svc := newService(Options{PushEnabled: true}, &fakeSink{}, nil, pusher, &fakeMailer{}, &fakeIntegrations{kind: "messenger"})

	if err := svc.Notify(context.Background(), conv(), &inbox.Message{ID: "msg-1"}, false); err != nil {
		t.Fatalf("async Notify returned error: %v", err)
	}
	err := svc.Notify(context.Background(), conv(), &inbox.Message{ID: "msg-2"}, true)
	if !errors.Is(err, ErrPushNotConfigured) {
		t.Fatalf("sync Notify error = %v, want ErrPushNotConfigured", err)
	}
}

func TestPushSyncAttemptsEvenWhenDisabled(t *testing.T) {
	// The internal-note path demands confirmation, so the provider is called
	// regardless of the startup toggle and its misconfiguration surfaces.
	pusher := &fakePusher{err: ErrPushNotConfigured}
	svc := newService(Options{PushEnabled: false}, &fakeSink{}, nil, pusher, &fakeMailer{}, &fakeIntegrations{kind: "messenger"})

	err := svc.Notify(context.Background(), conv(), &inbox.Message{ID: "msg-1"}, true)
	if !errors.Is(err, ErrPushNotConfigured) {
		t.Fatalf("sync Notify error = %v, want ErrPushNotConfigured", err)
	}
	if pusher.calls != 1 {
		t.Fatalf("pusher calls = %d, want 1", pusher.calls)
	}
}

func TestPushTokensExcludeAuthor(t *testing.T) {
	dir := &fakeDirectory{tokens: map[string][]string{
		"user-a": {"token-a"},
		"user-b": {"token-b"},
	}}
	pusher := &fakePusher{}
	svc := newService(Options{PushEnabled: true}, &fakeSink{}, dir, pusher, &fakeMailer{}, &fakeIntegrations{kind: "messenger"})

	msg := &inbox.Message{ID: "msg-1", UserID: "user-a"}
	if err := svc.Notify(context.Background(), conv(), msg, false); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if len(pusher.tokens) != 1 || pusher.tokens[0] != "token-b" {
		t.Fatalf("push tokens = %v, want [token-b]", pusher.tokens)
	}
}

func TestMailEscalationOnLeadFirstResponse(t *testing.T) {
	dir := &fakeDirectory{emails: map[string]string{"user-a": "a@example.com"}}
	mailer := &fakeMailer{}
	svc := newService(Options{MailEnabled: true}, &fakeSink{}, dir, &fakePusher{}, mailer, &fakeIntegrations{kind: "lead", name: "Pricing form"})

	msg := &inbox.Message{ID: "msg-1", UserID: "user-b", Content: "hello", DeliveryStatus: inbox.DeliverySent}
	if err := svc.Notify(context.Background(), conv(), msg, false); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "a@example.com" {
		t.Fatalf("mail sent = %v, want [a@example.com]", mailer.sent)
	}
}

func TestMailEscalationGates(t *testing.T) {
	dir := &fakeDirectory{emails: map[string]string{"user-a": "a@example.com"}}
	msg := &inbox.Message{ID: "msg-1", UserID: "user-b", DeliveryStatus: inbox.DeliverySent}

	// Disabled mail is a no-op.
	mailer := &fakeMailer{}
	svc := newService(Options{MailEnabled: false}, &fakeSink{}, dir, &fakePusher{}, mailer, &fakeIntegrations{kind: "lead"})
	if err := svc.Notify(context.Background(), conv(), msg, false); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatal("mail sent despite disabled configuration")
	}

	// Non-lead channels do not escalate.
	mailer = &fakeMailer{}
	svc = newService(Options{MailEnabled: true}, &fakeSink{}, dir, &fakePusher{}, mailer, &fakeIntegrations{kind: "messenger"})
	if err := svc.Notify(context.Background(), conv(), msg, false); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatal("mail sent for non-lead channel")
	}

	// A conversation that already has a first response does not escalate.
	mailer = &fakeMailer{}
	svc = newService(Options{MailEnabled: true}, &fakeSink{}, dir, &fakePusher{}, mailer, &fakeIntegrations{kind: "lead"})
	responded := conv()
	responded.FirstRespondedUserID = "user-a"
	if err := svc.Notify(context.Background(), responded, msg, false); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatal("mail sent after first response already recorded")
	}

	// Undelivered replies (failed sends, internal notes) do not escalate.
	mailer = &fakeMailer{}
	svc = newService(Options{MailEnabled: true}, &fakeSink{}, dir, &fakePusher{}, mailer, &fakeIntegrations{kind: "lead"})
	failed := &inbox.Message{ID: "msg-2", UserID: "user-b", DeliveryStatus: inbox.DeliveryFailed}
	if err := svc.Notify(context.Background(), conv(), failed, false); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatal("mail sent for an undelivered reply")
	}
}
