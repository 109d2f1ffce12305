package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/anonto42/nano-midea/relay/internal/apperrors"
	"github.com/anonto42/nano-midea/relay/internal/dispatch"
	"github.com/anonto42/nano-midea/relay/internal/models"
	"github.com/anonto42/nano-midea/relay/internal/services"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const maxEventBytes = 64 << 10

// InternalHandler serves the service-to-service API: event dispatch and account purge.
type InternalHandler struct {
	dispatcher *dispatch.Service
	accounts   *services.AccountService
}

func NewInternalHandler(dispatcher *dispatch.Service, accounts *services.AccountService) *InternalHandler {
	return &InternalHandler{dispatcher: dispatcher, accounts: accounts}
}

func (h *InternalHandler) RegisterInternalRoutes(g *echo.Group) {
	g.POST("/dispatch", h.Dispatch)
	g.DELETE("/users/:id", h.PurgeUser)
}

// Dispatch decodes an event and fans it out synchronously, returning the report.
func (h *InternalHandler) Dispatch(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxEventBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if len(body) > maxEventBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Event too large")
	}

	ev, err := dispatch.DecodeEvent(body, time.Now())
	if err != nil {
		return httpError(err)
	}

	report, err := h.dispatcher.Dispatch(c.Request().Context(), ev)
	if err != nil {
		if report != nil && !errors.Is(err, apperrors.ErrInvalidEvent) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"success": false, "message": err.Error(), "data": report})
		}
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": report})
}

// PurgeUser removes every edge, subscription and topic membership of a deleted account.
func (h *InternalHandler) PurgeUser(c echo.Context) error {
	report, err := h.accounts.Purge(c.Request().Context(), models.UserID(c.Param("id")))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": report})
}
