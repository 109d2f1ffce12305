package handlers

import (
	"net/http"

	"github.com/anonto42/nano-midea/relay/internal/middleware"
	"github.com/anonto42/nano-midea/relay/internal/models"
	"github.com/anonto42/nano-midea/relay/internal/services"
	"github.com/labstack/echo/v4"
)

// SubscriptionHandler handles push endpoint registration
type SubscriptionHandler struct {
	subscriptions *services.SubscriptionService
}

func NewSubscriptionHandler(subscriptions *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

// RegisterSubscriptionRoutes registers push subscription routes
func (h *SubscriptionHandler) RegisterSubscriptionRoutes(g *echo.Group) {
	g.POST("/push/subscriptions", h.Register)
	g.DELETE("/push/subscriptions", h.Unregister)
	g.GET("/push/subscriptions", h.List)
}

// Register stores the caller's device endpoint, taking it over from any previous owner
func (h *SubscriptionHandler) Register(c echo.Context) error {
	currentUserID := middleware.CurrentUserID(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.RegisterSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.UserAgent == "" {
		req.UserAgent = c.Request().UserAgent()
	}

	sub, err := h.subscriptions.Register(c.Request().Context(), currentUserID, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": sub})
}

// Unregister forgets an endpoint. Unknown endpoints are not an error.
func (h *SubscriptionHandler) Unregister(c echo.Context) error {
	if middleware.CurrentUserID(c) == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.UnregisterSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.subscriptions.Unregister(c.Request().Context(), req.Endpoint); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SubscriptionHandler) List(c echo.Context) error {
	currentUserID := middleware.CurrentUserID(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	subs, err := h.subscriptions.ListForUser(c.Request().Context(), currentUserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": subs})
}
