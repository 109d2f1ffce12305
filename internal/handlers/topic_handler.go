package handlers

import (
	"net/http"

	"github.com/anonto42/nano-midea/relay/internal/apperrors"
	"github.com/anonto42/nano-midea/relay/internal/middleware"
	"github.com/anonto42/nano-midea/relay/internal/repositories"
	"github.com/labstack/echo/v4"
)

// TopicHandler lets users join and leave broadcast topics
type TopicHandler struct {
	topics repositories.TopicRepository
}

func NewTopicHandler(topics repositories.TopicRepository) *TopicHandler {
	return &TopicHandler{topics: topics}
}

func (h *TopicHandler) RegisterTopicRoutes(g *echo.Group) {
	g.POST("/topics/:topic/members", h.Join)
	g.DELETE("/topics/:topic/members", h.Leave)
}

func (h *TopicHandler) Join(c echo.Context) error {
	currentUserID := middleware.CurrentUserID(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	topic := c.Param("topic")
	if topic == "" {
		return httpError(apperrors.Invalid("topic is required"))
	}

	if err := h.topics.Join(c.Request().Context(), topic, currentUserID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"topic": topic, "member": true}})
}

func (h *TopicHandler) Leave(c echo.Context) error {
	currentUserID := middleware.CurrentUserID(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	topic := c.Param("topic")

	if err := h.topics.Leave(c.Request().Context(), topic, currentUserID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"topic": topic, "member": false}})
}
