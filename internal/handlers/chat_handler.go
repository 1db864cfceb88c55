package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/moyeo-app/moyeo/backend/internal/blocking"
	"github.com/moyeo-app/moyeo/backend/internal/chat"
	"github.com/moyeo-app/moyeo/backend/internal/models"
	"github.com/moyeo-app/moyeo/backend/internal/repositories"
)

const (
	moderationHeader   = "X-Admin-Moderation"
	searchDefaultLimit = 20
	searchMaxLimit     = 100
)

// ChatHandler exposes the REST surface of the chat core: room creation and
// listing, message send/history/edit/delete, search and reports. The live
// channel shares the same registry and pipeline underneath.
type ChatHandler struct {
	registry       *chat.Registry
	pipeline       *chat.Pipeline
	userRepository repositories.UserRepository
	messages       repositories.MessageRepository
	reports        repositories.ReportRepository
	resolver       *blocking.Resolver
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(registry *chat.Registry, pipeline *chat.Pipeline, userRepo repositories.UserRepository, messages repositories.MessageRepository, reports repositories.ReportRepository, resolver *blocking.Resolver) *ChatHandler {
	return &ChatHandler{
		registry:       registry,
		pipeline:       pipeline,
		userRepository: userRepo,
		messages:       messages,
		reports:        reports,
		resolver:       resolver,
	}
}

// RegisterChatRoutes registers chat-related routes
func (h *ChatHandler) RegisterChatRoutes(g *echo.Group) {
	g.GET("/rooms", h.ListRooms)
	g.POST("/rooms", h.CreateRoom)
	g.POST("/rooms/personal", h.CreateDirectRoom)
	g.POST("/rooms/:room/leave", h.LeaveRoom)
	g.POST("/messages", h.SendMessage)
	g.GET("/messages/:room", h.GetHistory)
	g.PATCH("/messages/:id", h.EditMessage)
	g.DELETE("/messages/:id", h.DeleteMessage)
	g.POST("/messages/:id/report", h.ReportMessage)
	g.GET("/search", h.SearchMessages)
}

// ListRooms returns the caller's visible rooms, most recently active first.
func (h *ChatHandler) ListRooms(c echo.Context) error {
	identity := getIdentityFromContext(c)
	if identity.ID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	rooms, err := h.registry.ListRoomsFor(c.Request().Context(), identity)
	if err != nil {
		return httpError(err)
	}

	views := make([]models.RoomView, 0, len(rooms))
	for i := range rooms {
		views = append(views, h.registry.ViewFor(&rooms[i], identity.ID))
	}

	return c.JSON(http.StatusOK, echo.Map{"rooms": views})
}

// CreateRoom creates a group chatroom with the caller as a participant.
func (h *ChatHandler) CreateRoom(c echo.Context) error {
	identity := getIdentityFromContext(c)
	if identity.ID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateRoomRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	room, err := h.registry.CreateGroup(c.Request().Context(), identity, req.Name, req.UserIDs)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, h.registry.ViewFor(room, identity.ID))
}

// CreateDirectRoom resolves the direct conversation with another user,
// creating it on first contact. The target may be given by id or username.
func (h *ChatHandler) CreateDirectRoom(c echo.Context) error {
	identity := getIdentityFromContext(c)
	if identity.ID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateDirectRoomRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	targetID := req.UserID
	if targetID == 0 && req.Username != "" {
		target, err := h.userRepository.GetUserByUsername(req.Username)
		if err != nil {
			return httpError(err)
		}
		targetID = target.ID
	}
	if targetID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "userId or username is required")
	}

	room, err := h.registry.GetOrCreateDirect(c.Request().Context(), identity, targetID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, h.registry.ViewFor(room, identity.ID))
}

// LeaveRoom acknowledges a leave request. Group rooms have no membership
// removal; clients use this to drop their local subscription.
func (h *ChatHandler) LeaveRoom(c echo.Context) error {
	identity := getIdentityFromContext(c)
	if identity.ID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if _, _, err := h.registry.ResolveMember(c.Request().Context(), identity, c.Param("room")); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Left room"})
}

// SendMessage sends a chat message over the REST path. Validation,
// persistence and broadcast are identical to the live channel.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	identity := getIdentityFromContext(c)
	if identity.ID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	msg, err := h.pipeline.Send(c.Request().Context(), identity, req.Room, req.Body, req.Kind)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, msg)
}

// GetHistory returns the room's recent messages for a member, oldest first.
func (h *ChatHandler) GetHistory(c echo.Context) error {
	identity := getIdentityFromContext(c)
	if identity.ID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	messages, err := h.pipeline.History(c.Request().Context(), identity, c.Param("room"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"messages": messages})
}

// EditMessage replaces a message body and records the edit in its trail.
func (h *ChatHandler) EditMessage(c echo.Context) error {
	identity := getIdentityFromContext(c)
	if identity.ID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.EditMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	msg, err := h.pipeline.Edit(c.Request().Context(), identity, c.Param("id"), req.Body)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, msg)
}

// DeleteMessage deletes a message. Owners always may; moderators may delete
// any message, but only when the moderation override header accompanies
// the request.
func (h *ChatHandler) DeleteMessage(c echo.Context) error {
	identity := getIdentityFromContext(c)
	if identity.ID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	override := c.Request().Header.Get(moderationHeader) == "log"

	if err := h.pipeline.Delete(c.Request().Context(), identity, c.Param("id"), override); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Message deleted"})
}

// ReportMessage files a report against a message. One report per reporter
// per message; reporting your own message is rejected.
func (h *ChatHandler) ReportMessage(c echo.Context) error {
	identity := getIdentityFromContext(c)
	if identity.ID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.ReportMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	msg, err := h.messages.GetMessageByID(ctx, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if msg.AuthorID == identity.ID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot report your own message")
	}

	// the reporter must still be a member of the room
	if _, _, err := h.registry.ResolveMember(ctx, identity, msg.Room); err != nil {
		return httpError(err)
	}

	already, err := h.reports.HasReport(ctx, identity.ID, msg.ID, "message")
	if err != nil {
		return httpError(err)
	}
	if already {
		return echo.NewHTTPError(http.StatusConflict, "Message already reported")
	}

	report := &models.Report{
		ContentType:  "message",
		ContentID:    msg.ID,
		ContentOwner: msg.AuthorID,
		ReporterID:   identity.ID,
		Reason:       req.Reason,
	}
	if err := h.reports.CreateReport(ctx, report); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, report)
}

// SearchMessages runs a text search over message bodies. Regular users must
// scope the search to a room they belong to; moderators may search across
// all rooms. Messages from blocked-with authors never appear.
func (h *ChatHandler) SearchMessages(c echo.Context) error {
	identity := getIdentityFromContext(c)
	if identity.ID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	text := c.QueryParam("q")
	if len(text) < 2 {
		return echo.NewHTTPError(http.StatusBadRequest, "Search query must be at least 2 characters")
	}

	ctx := c.Request().Context()
	roomID := c.QueryParam("room")
	if roomID != "" {
		if _, _, err := h.registry.ResolveMember(ctx, identity, roomID); err != nil {
			return httpError(err)
		}
	} else if !identity.Role.CanModerate() {
		return echo.NewHTTPError(http.StatusBadRequest, "room parameter is required")
	}

	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if limit <= 0 || limit > searchMaxLimit {
		limit = searchDefaultLimit
	}
	page, _ := strconv.ParseInt(c.QueryParam("page"), 10, 64)
	if page < 1 {
		page = 1
	}

	sets, err := h.resolver.ResolveBlockSets(identity.ID)
	if err != nil {
		return httpError(err)
	}
	excluded := make([]uint, 0, len(sets.Blocked)+len(sets.BlockedBy))
	for id := range sets.Blocked {
		excluded = append(excluded, id)
	}
	for id := range sets.BlockedBy {
		if _, dup := sets.Blocked[id]; !dup {
			excluded = append(excluded, id)
		}
	}

	messages, total, err := h.messages.SearchMessages(ctx, repositories.MessageSearchQuery{
		Text:           text,
		Room:           roomID,
		ExcludeAuthors: excluded,
		Skip:           (page - 1) * limit,
		Limit:          limit,
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"messages": messages,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}
