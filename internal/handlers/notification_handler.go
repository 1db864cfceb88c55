package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/moyeo-app/moyeo/backend/internal/models"
	"github.com/moyeo-app/moyeo/backend/internal/notifications"
)

// NotificationHandler exposes the stored notification feed: cursor listing,
// per-type summary, read transitions and quick replies.
type NotificationHandler struct {
	service *notifications.Service
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(service *notifications.Service) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// RegisterNotificationRoutes registers notification-related routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("", h.ListNotifications)
	g.GET("/summary", h.GetSummary)
	g.PATCH("/:id/read", h.MarkRead)
	g.POST("/read-all", h.MarkAllRead)
	g.POST("/:id/reply", h.QuickReply)
}

// ListNotifications returns one cursor page of the caller's feed, newest
// first, along with the unread count and the per-type summary.
func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	opts := notifications.ListOptions{
		UnreadOnly: c.QueryParam("unread") == "true",
		Cursor:     c.QueryParam("cursor"),
	}
	if raw := c.QueryParam("limit"); raw != "" {
		opts.Limit, _ = strconv.Atoi(raw)
	}
	if raw := c.QueryParam("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			opts.Types = append(opts.Types, models.NotificationType(t))
		}
	}

	result, err := h.service.List(userID, opts)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, result)
}

// GetSummary returns total/unread counts per type plus the "all" rollup.
func (h *NotificationHandler) GetSummary(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	summary, err := h.service.Summary(userID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"summary": summary})
}

// MarkRead marks one notification read. Idempotent; a notification that
// does not belong to the caller is a 404.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	notification, err := h.service.MarkRead(id, userID)
	if err != nil {
		return httpError(err)
	}
	if notification == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
	}

	return c.JSON(http.StatusOK, notification)
}

// MarkAllRead marks every unread notification of the caller read.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	updated, err := h.service.MarkAllRead(userID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"updated": updated})
}

// QuickReply answers an actionable notification in place. The reply goes
// through the regular message pipeline, so membership and blocking are
// enforced exactly as for any other send.
func (h *NotificationHandler) QuickReply(c echo.Context) error {
	identity := getIdentityFromContext(c)
	if identity.ID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req models.QuickReplyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.service.QuickReply(c.Request().Context(), id, identity, req.Message)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, result)
}
