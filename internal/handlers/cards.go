package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/helmdesk/helmdesk/internal/cards"
)

// CardsHandler exposes conversation-to-record conversion.
type CardsHandler struct {
	service *cards.Service
	logger  *slog.Logger
}

// NewCardsHandler creates a CardsHandler.
func NewCardsHandler(log *slog.Logger, service *cards.Service) *CardsHandler {
	return &CardsHandler{
		service: service,
		logger:  log.With(slog.String("handler", "cards")),
	}
}

// Register mounts the conversion route.
func (h *CardsHandler) Register(e *echo.Echo) {
	e.POST("/conversations/:id/convert", h.Convert)
}

// ConvertRequest is the body for POST /conversations/:id/convert. Either
// itemId (merge) or itemName+stageId (create) is given.
type ConvertRequest struct {
	Kind     string `json:"type"`
	ItemID   string `json:"itemId"`
	ItemName string `json:"itemName"`
	StageID  string `json:"stageId"`
}

// CardResponse is the record representation returned by the API.
type CardResponse struct {
	ID                    string    `json:"_id"`
	Kind                  string    `json:"type"`
	Name                  string    `json:"name"`
	StageID               string    `json:"stageId"`
	SourceConversationIDs []string  `json:"sourceConversationIds"`
	AssignedUserIDs       []string  `json:"assignedUserIds"`
	CreatedAt             time.Time `json:"createdAt"`
}

// Convert merges the conversation into a business record or creates one.
func (h *CardsHandler) Convert(c echo.Context) error {
	var req ConvertRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
	}

	card, err := h.service.ConvertToRecord(c.Request().Context(), cards.ConvertInput{
		ConversationID: c.Param("id"),
		Kind:           cards.RecordKind(req.Kind),
		ItemID:         req.ItemID,
		ItemName:       req.ItemName,
		StageID:        req.StageID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, CardResponse{
		ID:                    card.ID,
		Kind:                  string(card.Kind),
		Name:                  card.Name,
		StageID:               card.StageID,
		SourceConversationIDs: card.SourceConversationIDs,
		AssignedUserIDs:       card.AssignedUserIDs,
		CreatedAt:             card.CreatedAt,
	})
}
