// Package handlers provides the HTTP API handlers for the dispatch server.
package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/helmdesk/helmdesk/internal/broker"
	"github.com/helmdesk/helmdesk/internal/cards"
	"github.com/helmdesk/helmdesk/internal/channel"
	"github.com/helmdesk/helmdesk/internal/inbox"
	"github.com/helmdesk/helmdesk/internal/integrations"
)

// ErrorResponse is the standard API error body (message only).
type ErrorResponse struct {
	Message string `json:"message"`
}

// respondError maps domain errors to HTTP statuses and writes the standard
// error body.
func respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, inbox.ErrConversationNotFound),
		errors.Is(err, inbox.ErrMessageNotFound),
		errors.Is(err, inbox.ErrIntegrationNotFound),
		errors.Is(err, cards.ErrRecordNotFound),
		errors.Is(err, cards.ErrStageNotFound):
		status = http.StatusNotFound
	case errors.Is(err, channel.ErrPreconditionFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, broker.ErrUnavailable),
		errors.Is(err, integrations.ErrServiceNotRunning):
		status = http.StatusServiceUnavailable
	case errors.Is(err, inbox.ErrChannelSendFailed):
		status = http.StatusBadGateway
	}
	return c.JSON(status, ErrorResponse{Message: err.Error()})
}
