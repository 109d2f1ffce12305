package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/nano-midea/relay/internal/middleware"
	"github.com/anonto42/nano-midea/relay/internal/models"
	"github.com/anonto42/nano-midea/relay/internal/services"
	"github.com/labstack/echo/v4"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	follows *services.FollowService
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(follows *services.FollowService) *FollowHandler {
	return &FollowHandler{follows: follows}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.DELETE("/users/:id/follow", h.UnfollowUser)
	g.GET("/users/:id/following-status", h.FollowingStatus)
	g.GET("/users/:id/followers", h.ListFollowers)
	g.GET("/users/:id/following", h.ListFollowing)
	g.GET("/users/:id/follow-counts", h.FollowCounts)
}

// FollowUser makes the caller follow :id
func (h *FollowHandler) FollowUser(c echo.Context) error {
	currentUserID := middleware.CurrentUserID(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.follows.Follow(c.Request().Context(), currentUserID, models.UserID(c.Param("id"))); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": true}})
}

// UnfollowUser removes the caller's edge to :id
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	currentUserID := middleware.CurrentUserID(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.follows.Unfollow(c.Request().Context(), currentUserID, models.UserID(c.Param("id"))); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": false}})
}

// FollowingStatus reports whether the caller follows :id
func (h *FollowHandler) FollowingStatus(c echo.Context) error {
	currentUserID := middleware.CurrentUserID(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	following, err := h.follows.IsFollowing(c.Request().Context(), currentUserID, models.UserID(c.Param("id")))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": following}})
}

func (h *FollowHandler) ListFollowers(c echo.Context) error {
	page, err := pageFromQuery(c)
	if err != nil {
		return err
	}
	result, err := h.follows.ListFollowers(c.Request().Context(), models.UserID(c.Param("id")), page)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": result})
}

func (h *FollowHandler) ListFollowing(c echo.Context) error {
	page, err := pageFromQuery(c)
	if err != nil {
		return err
	}
	result, err := h.follows.ListFollowing(c.Request().Context(), models.UserID(c.Param("id")), page)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": result})
}

func (h *FollowHandler) FollowCounts(c echo.Context) error {
	counts, err := h.follows.Counts(c.Request().Context(), models.UserID(c.Param("id")))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": counts})
}

// pageFromQuery reads ?cursor= and ?limit=. The service clamps the limit.
func pageFromQuery(c echo.Context) (services.Page, error) {
	page := services.Page{Cursor: c.QueryParam("cursor")}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return page, echo.NewHTTPError(http.StatusBadRequest, "Invalid limit")
		}
		page.Limit = limit
	}
	return page, nil
}
