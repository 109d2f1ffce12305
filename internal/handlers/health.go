package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger checks that backing stores are reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	stores Pinger
}

func NewHealthHandler(stores Pinger) *HealthHandler {
	return &HealthHandler{stores: stores}
}

func (h *HealthHandler) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.stores.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "unhealthy",
			"service": "relay",
			"error":   err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "relay",
	})
}
