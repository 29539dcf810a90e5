package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	apperrors "authgate/internal/errors"
	"authgate/internal/model"
	"authgate/internal/service"
)

// UserHandler bundles HTTP handlers.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Me godoc
// @Summary Current session user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SessionUser
// @Failure 401 {object} errors.ErrorResponse
// @Router /me [get]
func (h *UserHandler) Me(c echo.Context) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	return c.JSON(http.StatusOK, SessionUser{
		ID:    claims.UserID,
		Name:  claims.Name,
		Email: claims.Email,
		Image: claims.Image,
		Role:  claims.Role,
	})
}

type lookupQuery struct {
	Email string `query:"email" form:"email" validate:"required,email"`
}

// Lookup godoc
// @Summary Find a user by email
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param email query string true "Email"
// @Success 200 {object} SessionUser
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /users/lookup [get]
func (h *UserHandler) Lookup(c echo.Context) error {
	var q lookupQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	q.Email = strings.TrimSpace(q.Email)
	if err := c.Validate(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrorResponse{
			Error: "a valid email is required",
			Code:  "INVALID_INPUT",
		})
	}

	user, err := h.svc.GetByEmail(c.Request().Context(), q.Email)
	if err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, toSessionUser(user))
}

func toSessionUser(u *model.User) SessionUser {
	return SessionUser{
		ID:    u.ID.String(),
		Name:  u.Name,
		Email: u.Email,
		Image: u.Image,
		Role:  u.Role,
	}
}
