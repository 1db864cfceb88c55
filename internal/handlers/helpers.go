package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/moyeo-app/moyeo/backend/internal/chat"
	"github.com/moyeo-app/moyeo/backend/internal/models"
	"github.com/moyeo-app/moyeo/backend/internal/repositories"
	"gorm.io/gorm"
)

// getIdentityFromContext returns the verified identity attached by the
// JWT middleware; a zero identity means the request is unauthenticated.
func getIdentityFromContext(c echo.Context) models.Identity {
	claims, ok := c.Get("user").(*models.JwtCustomClaims)
	if !ok || claims == nil {
		return models.Identity{}
	}
	return claims.Identity()
}

func getUserIDFromContext(c echo.Context) uint {
	return getIdentityFromContext(c).ID
}

// httpError maps the stable error kinds onto HTTP statuses. Anything
// unrecognized is an internal error.
func httpError(err error) error {
	switch {
	case errors.Is(err, chat.ErrValidation),
		errors.Is(err, chat.ErrSelfConversation),
		errors.Is(err, chat.ErrRoomFull),
		errors.Is(err, chat.ErrUnsupportedNotification):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrNotAMember),
		errors.Is(err, chat.ErrBlockedMember),
		errors.Is(err, chat.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, chat.ErrRoomNotFound),
		errors.Is(err, repositories.ErrRoomNotFound),
		errors.Is(err, repositories.ErrMessageNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
