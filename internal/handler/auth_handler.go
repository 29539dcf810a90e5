package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	apperrors "authgate/internal/errors"
	"authgate/internal/service"
	"authgate/internal/validation"
)

// SessionCookieName carries the session token for browser clients.
const SessionCookieName = "authgate_session"

const (
	msgFillAllFields  = "Fill in all fields"
	msgInsertFailed   = "Failed to insert user into the database"
	msgEmailTaken     = "Email is already registered"
	msgInvalidSignIn  = "Invalid email or password"
	msgSignInFailed   = "failed to sign in"
	msgLogoutFailed   = "failed to logout"
	msgNotSignedIn    = "not signed in"
	msgLoggedOut      = "logged out successfully"
	defaultLoginRoute = "/auth/login"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	registration service.RegistrationService
	authService  service.AuthService
	loginPath    string
	secureCookie bool
}

// NewAuthHandler creates a new auth handler. loginPath is where a successful
// registration redirects to.
func NewAuthHandler(registration service.RegistrationService, authService service.AuthService, loginPath string, secureCookie bool) *AuthHandler {
	if loginPath == "" {
		loginPath = defaultLoginRoute
	}
	return &AuthHandler{
		registration: registration,
		authService:  authService,
		loginPath:    loginPath,
		secureCookie: secureCookie,
	}
}

// RegisterResponse is returned when registration does not succeed.
type RegisterResponse struct {
	Errors  map[string][]string `json:"errors,omitempty"`
	Message string              `json:"message"`
	Code    string              `json:"code,omitempty"`
}

// AuthResponse represents an authentication response.
type AuthResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        SessionUser `json:"user"`
}

// SessionUser is the user as exposed in a session.
type SessionUser struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Image *string `json:"image"`
	Role  string  `json:"role"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param name formData string true "Name (at least 3 characters)"
// @Param email formData string true "Email"
// @Param password formData string true "Password (at least 8 characters)"
// @Success 303 "Redirect to the login page"
// @Failure 409 {object} RegisterResponse
// @Failure 422 {object} RegisterResponse
// @Failure 500 {object} RegisterResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	form, err := readForm(c)
	if err != nil {
		return err
	}

	_, err = h.registration.Register(c.Request().Context(), form)
	if err != nil {
		var fe *validation.FieldErrors
		switch {
		case errors.As(err, &fe):
			return c.JSON(http.StatusUnprocessableEntity, RegisterResponse{
				Errors:  fe.Fields,
				Message: msgFillAllFields,
			})
		case errors.Is(err, apperrors.ErrDuplicateEmail):
			return c.JSON(http.StatusConflict, RegisterResponse{
				Errors:  map[string][]string{"email": {msgEmailTaken}},
				Message: msgEmailTaken,
				Code:    "EMAIL_TAKEN",
			})
		default:
			return c.JSON(http.StatusInternalServerError, RegisterResponse{
				Message: msgInsertFailed,
				Code:    "REGISTRATION_FAILED",
			})
		}
	}

	return c.Redirect(http.StatusSeeOther, h.loginPath)
}

// Login godoc
// @Summary Sign in with email and password
// @Tags auth
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param email formData string true "Email"
// @Param password formData string true "Password"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	form, err := readForm(c)
	if err != nil {
		return err
	}

	result, err := h.authService.Authenticate(c.Request().Context(), form)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, apperrors.ErrorResponse{
			Error: msgSignInFailed,
			Code:  "LOGIN_FAILED",
		})
	}
	if result.ErrorCode != "" {
		return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
			Error: msgInvalidSignIn,
			Code:  result.ErrorCode,
		})
	}

	session := result.Session
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, AuthResponse{
		AccessToken: session.Token,
		ExpiresAt:   session.ExpiresAt,
		User: SessionUser{
			ID:    session.User.ID.String(),
			Name:  session.User.Name,
			Email: session.User.Email,
			Image: session.User.Image,
			Role:  session.User.Role,
		},
	})
}

// Logout godoc
// @Summary Revoke the current session
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	token, ok := c.Get(ContextTokenKey).(*jwt.Token)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
			Error: msgNotSignedIn,
			Code:  "NOT_SIGNED_IN",
		})
	}

	if err := h.authService.Logout(c.Request().Context(), token.Raw); err != nil {
		if errors.Is(err, service.ErrNotSignedIn) {
			return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
				Error: msgNotSignedIn,
				Code:  "NOT_SIGNED_IN",
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, apperrors.ErrorResponse{
			Error: msgLogoutFailed,
			Code:  "LOGOUT_FAILED",
		})
	}

	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, map[string]string{
		"message": msgLoggedOut,
	})
}
