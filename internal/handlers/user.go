package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/moyeo-app/moyeo/backend/internal/blocking"
	"github.com/moyeo-app/moyeo/backend/internal/models"
	"github.com/moyeo-app/moyeo/backend/internal/repositories"
	"github.com/moyeo-app/moyeo/backend/internal/security"
)

const userSearchLimit = 20

// UserHandler handles user profile, search and block-list requests.
type UserHandler struct {
	userRepository  repositories.UserRepository
	blockRepository repositories.BlockRepository
	resolver        *blocking.Resolver
	securitySvc     *security.Service
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, blockRepo repositories.BlockRepository, resolver *blocking.Resolver, securitySvc *security.Service) *UserHandler {
	return &UserHandler{
		userRepository:  userRepo,
		blockRepository: blockRepo,
		resolver:        resolver,
		securitySvc:     securitySvc,
	}
}

// RegisterUserRoutes registers user-related routes
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.GET("/me", h.GetMe)
	g.GET("/search", h.SearchUsers)
	g.GET("/blocks", h.ListBlocks)
	g.POST("/blocks/:id", h.BlockUser)
	g.DELETE("/blocks/:id", h.UnblockUser)
	g.GET("/login-activity", h.ListLoginActivity)
}

// GetMe returns the authenticated user's profile.
func (h *UserHandler) GetMe(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	user, err := h.userRepository.GetUserByID(userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// SearchUsers searches users by username or name. Users blocked in either
// direction never appear in the results.
func (h *UserHandler) SearchUsers(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	query := c.QueryParam("q")
	if len(query) < 2 {
		return echo.NewHTTPError(http.StatusBadRequest, "Search query must be at least 2 characters")
	}

	sets, err := h.resolver.ResolveBlockSets(userID)
	if err != nil {
		return httpError(err)
	}

	users, err := h.userRepository.SearchUsers(query, userID, userSearchLimit)
	if err != nil {
		return httpError(err)
	}

	results := make([]models.UserCompact, 0, len(users))
	for i := range users {
		if sets.Blocks(users[i].ID) {
			continue
		}
		results = append(results, users[i].ToCompact())
	}

	return c.JSON(http.StatusOK, echo.Map{"users": results})
}

// ListBlocks returns the users the caller has blocked.
func (h *UserHandler) ListBlocks(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ids, err := h.blockRepository.GetBlockedIDs(userID)
	if err != nil {
		return httpError(err)
	}

	users, err := h.userRepository.GetUsersByIDs(ids)
	if err != nil {
		return httpError(err)
	}

	results := make([]models.UserCompact, 0, len(users))
	for i := range users {
		results = append(results, users[i].ToCompact())
	}

	return c.JSON(http.StatusOK, echo.Map{"blocked": results})
}

// BlockUser records a block edge from the caller to the target user.
// Blocking an already-blocked user succeeds without effect.
func (h *UserHandler) BlockUser(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	if targetID == userID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot block yourself")
	}

	if _, err := h.userRepository.GetUserByID(targetID); err != nil {
		return httpError(err)
	}

	if err := h.blockRepository.CreateBlock(userID, targetID); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "User blocked"})
}

// UnblockUser removes a block edge. Unblocking a user that was never
// blocked succeeds without effect.
func (h *UserHandler) UnblockUser(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.blockRepository.DeleteBlock(userID, targetID); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "User unblocked"})
}

// ListLoginActivity returns the caller's recent login history.
func (h *UserHandler) ListLoginActivity(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	activities, err := h.securitySvc.ListLoginActivities(userID, limit)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"activities": activities})
}

func parseIDParam(c echo.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid id parameter")
	}
	return uint(id), nil
}
