package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/helmdesk/helmdesk/internal/auth"
	"github.com/helmdesk/helmdesk/internal/channel"
	"github.com/helmdesk/helmdesk/internal/inbox"
)

// ConversationsHandler exposes the conversation mutations: replies, status,
// assignment, read state, operator handover and video rooms.
type ConversationsHandler struct {
	service *inbox.Service
	logger  *slog.Logger
}

// NewConversationsHandler creates a ConversationsHandler.
func NewConversationsHandler(log *slog.Logger, service *inbox.Service) *ConversationsHandler {
	return &ConversationsHandler{
		service: service,
		logger:  log.With(slog.String("handler", "conversations")),
	}
}

// Register registers all conversation routes.
func (h *ConversationsHandler) Register(e *echo.Echo) {
	group := e.Group("/conversations")
	group.POST("/:id/messages", h.SendMessage)
	group.POST("/:id/read", h.MarkAsRead)
	group.PUT("/:id/operator-status", h.ChangeOperatorStatus)
	group.POST("/assign", h.Assign)
	group.POST("/unassign", h.Unassign)
	group.PUT("/status", h.ChangeStatus)
	group.POST("/:id/video-room", h.CreateVideoChatRoom)
	group.POST("/:id/video-room/recording", h.SaveVideoRecordingInfo)
	e.DELETE("/video-rooms/:name", h.DeleteVideoChatRoom)
}

// SendMessageRequest is the body for POST /conversations/:id/messages.
type SendMessageRequest struct {
	Content          string               `json:"content"`
	Attachments      []channel.Attachment `json:"attachments"`
	MentionedUserIDs []string             `json:"mentionedUserIds"`
	Internal         bool                 `json:"internal"`
}

// MessageResponse is the message representation returned by the API.
type MessageResponse struct {
	ID               string               `json:"_id"`
	ConversationID   string               `json:"conversationId"`
	UserID           string               `json:"userId,omitempty"`
	Content          string               `json:"content"`
	Attachments      []channel.Attachment `json:"attachments"`
	MentionedUserIDs []string             `json:"mentionedUserIds"`
	Internal         bool                 `json:"internal"`
	DeliveryStatus   string               `json:"deliveryStatus"`
	DeliveryError    string               `json:"deliveryError,omitempty"`
	CreatedAt        time.Time            `json:"createdAt"`
}

// ConversationResponse is the conversation representation returned by the API.
type ConversationResponse struct {
	ID                   string     `json:"_id"`
	IntegrationID        string     `json:"integrationId"`
	CustomerID           string     `json:"customerId,omitempty"`
	AssignedUserID       string     `json:"assignedUserId,omitempty"`
	ParticipatedUserIDs  []string   `json:"participatedUserIds"`
	ReadUserIDs          []string   `json:"readUserIds"`
	Status               string     `json:"status"`
	OperatorStatus       string     `json:"operatorStatus"`
	FirstRespondedUserID string     `json:"firstRespondedUserId,omitempty"`
	FirstRespondedAt     *time.Time `json:"firstRespondedDate,omitempty"`
}

// SendMessage dispatches one reply or internal note into the conversation.
func (h *ConversationsHandler) SendMessage(c echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
	}

	message, err := h.service.SendMessage(c.Request().Context(), inbox.SendMessageInput{
		ConversationID:   c.Param("id"),
		UserID:           auth.UserID(c),
		Content:          req.Content,
		Attachments:      req.Attachments,
		MentionedUserIDs: req.MentionedUserIDs,
		Internal:         req.Internal,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toMessageResponse(message))
}

// AssignRequest is the body for POST /conversations/assign and /unassign.
type AssignRequest struct {
	ConversationIDs []string `json:"conversationIds"`
	AssignedUserID  string   `json:"assignedUserId"`
}

// Assign sets the assignee on the given conversations.
func (h *ConversationsHandler) Assign(c echo.Context) error {
	var req AssignRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
	}
	updated, err := h.service.Assign(c.Request().Context(), req.ConversationIDs, req.AssignedUserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toConversationResponses(updated))
}

// Unassign clears the assignee on the given conversations.
func (h *ConversationsHandler) Unassign(c echo.Context) error {
	var req AssignRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
	}
	updated, err := h.service.Unassign(c.Request().Context(), req.ConversationIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toConversationResponses(updated))
}

// ChangeStatusRequest is the body for PUT /conversations/status.
type ChangeStatusRequest struct {
	ConversationIDs []string `json:"conversationIds"`
	Status          string   `json:"status"`
}

// ChangeStatus moves the given conversations to a new status.
func (h *ConversationsHandler) ChangeStatus(c echo.Context) error {
	var req ChangeStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
	}
	updated, err := h.service.ChangeStatus(c.Request().Context(), req.ConversationIDs, inbox.Status(req.Status))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toConversationResponses(updated))
}

// MarkAsRead adds the calling user to the conversation's read set.
func (h *ConversationsHandler) MarkAsRead(c echo.Context) error {
	updated, err := h.service.MarkAsRead(c.Request().Context(), c.Param("id"), auth.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toConversationResponse(updated))
}

// OperatorStatusRequest is the body for PUT /conversations/:id/operator-status.
type OperatorStatusRequest struct {
	Status string `json:"status"`
}

// ChangeOperatorStatus switches between bot and operator handling.
func (h *ConversationsHandler) ChangeOperatorStatus(c echo.Context) error {
	var req OperatorStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
	}
	updated, err := h.service.ChangeOperatorStatus(c.Request().Context(), c.Param("id"), inbox.OperatorStatus(req.Status))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toConversationResponse(updated))
}

// CreateVideoChatRoom provisions a video room for the conversation.
func (h *ConversationsHandler) CreateVideoChatRoom(c echo.Context) error {
	room, err := h.service.CreateVideoChatRoom(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, room)
}

// DeleteVideoChatRoom tears down a provisioned video room.
func (h *ConversationsHandler) DeleteVideoChatRoom(c echo.Context) error {
	if err := h.service.DeleteVideoChatRoom(c.Request().Context(), c.Param("name")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SaveRecordingRequest is the body for POST /conversations/:id/video-room/recording.
type SaveRecordingRequest struct {
	RecordingID string `json:"recordingId"`
}

// SaveVideoRecordingInfo stores a finished recording's provider reference.
func (h *ConversationsHandler) SaveVideoRecordingInfo(c echo.Context) error {
	var req SaveRecordingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
	}
	if err := h.service.SaveVideoRecordingInfo(c.Request().Context(), c.Param("id"), req.RecordingID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func toMessageResponse(m *inbox.Message) MessageResponse {
	return MessageResponse{
		ID:               m.ID,
		ConversationID:   m.ConversationID,
		UserID:           m.UserID,
		Content:          m.Content,
		Attachments:      m.Attachments,
		MentionedUserIDs: m.MentionedUserIDs,
		Internal:         m.Internal,
		DeliveryStatus:   string(m.DeliveryStatus),
		DeliveryError:    m.DeliveryError,
		CreatedAt:        m.CreatedAt,
	}
}

func toConversationResponse(c *inbox.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:                   c.ID,
		IntegrationID:        c.IntegrationID,
		CustomerID:           c.CustomerID,
		AssignedUserID:       c.AssignedUserID,
		ParticipatedUserIDs:  c.ParticipatedUserIDs,
		ReadUserIDs:          c.ReadUserIDs,
		Status:               string(c.Status),
		OperatorStatus:       string(c.OperatorStatus),
		FirstRespondedUserID: c.FirstRespondedUserID,
		FirstRespondedAt:     c.FirstRespondedAt,
	}
}

func toConversationResponses(items []*inbox.Conversation) []ConversationResponse {
	out := make([]ConversationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toConversationResponse(item))
	}
	return out
}
