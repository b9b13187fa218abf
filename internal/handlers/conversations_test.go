package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmdesk/helmdesk/internal/channel"
	"github.com/helmdesk/helmdesk/internal/inbox"
	"github.com/helmdesk/helmdesk/internal/integrations"
)

type stubConversations struct {
	conversation *inbox.Conversation
}

func (s *stubConversations) Get(_ context.Context, id string) (*inbox.Conversation, error) {
	if s.conversation == nil || s.conversation.ID != id {
		return nil, inbox.ErrConversationNotFound
	}
	copied := *s.conversation
	return &copied, nil
}

func (s *stubConversations) SetAssignee(context.Context, []string, string) error  { return nil }
func (s *stubConversations) AddParticipant(context.Context, string, string) error { return nil }

func (s *stubConversations) AddReadUser(_ context.Context, _, userID string) error {
	s.conversation.ReadUserIDs = append(s.conversation.ReadUserIDs, userID)
	return nil
}

func (s *stubConversations) SetStatus(context.Context, []string, inbox.Status) error { return nil }

func (s *stubConversations) SetOperatorStatus(context.Context, string, inbox.OperatorStatus) error {
	return nil
}

func (s *stubConversations) SetFirstResponded(context.Context, string, string, time.Time) error {
	return nil
}

type stubMessages struct{}

func (s *stubMessages) Insert(context.Context, *inbox.Message) error { return nil }

func (s *stubMessages) Get(context.Context, string) (*inbox.Message, error) {
	return nil, inbox.ErrMessageNotFound
}

func (s *stubMessages) SetDeliveryStatus(context.Context, string, inbox.DeliveryOutcome, string) error {
	return nil
}

type stubIntegrations struct{}

func (s *stubIntegrations) Get(context.Context, string) (*inbox.Integration, error) {
	return &inbox.Integration{ID: "int-1", Kind: "lead"}, nil
}

type stubNotifier struct{}

func (s *stubNotifier) Notify(context.Context, *inbox.Conversation, *inbox.Message, bool) error {
	return nil
}

type stubVideo struct{}

func (s *stubVideo) CreateVideoChatRoom(context.Context, string) (*integrations.Room, error) {
	return &integrations.Room{Name: "room-1", URL: "https://video.example/room-1"}, nil
}

func (s *stubVideo) DeleteVideoChatRoom(context.Context, string) error { return nil }

func (s *stubVideo) SaveVideoRecordingInfo(context.Context, string, string) error { return nil }

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	service := inbox.NewService(
		&stubConversations{conversation: &inbox.Conversation{
			ID:            "conv-1",
			IntegrationID: "int-1",
			Status:        inbox.StatusNew,
		}},
		&stubMessages{},
		&stubIntegrations{},
		channel.NewRegistry(),
		&stubNotifier{},
		&stubVideo{},
		slog.New(slog.DiscardHandler),
	)
	e := echo.New()
	NewConversationsHandler(slog.New(slog.DiscardHandler), service).Register(e)
	NewPingHandler(slog.New(slog.DiscardHandler)).Register(e)
	return e
}

func TestSendMessageEndpoint(t *testing.T) {
	e := newTestServer(t)

	body := `{"content":"hello","mentionedUserIds":["user-2"]}`
	req := httptest.NewRequest(http.MethodPost, "/conversations/conv-1/messages", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, []string{"user-2"}, resp.MentionedUserIDs)
	assert.Equal(t, string(inbox.DeliverySent), resp.DeliveryStatus)
	assert.False(t, resp.Internal)
}

func TestSendMessageNotFound(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/conversations/missing/messages", strings.NewReader(`{"content":"x"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "conversation not found", resp.Message)
}

func TestVideoRoomEndpoint(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/conversations/conv-1/video-room", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var room integrations.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &room))
	assert.Equal(t, "room-1", room.Name)
}

func TestPingEndpoint(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
