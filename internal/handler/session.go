package handler

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"authgate/internal/auth"
	apperrors "authgate/internal/errors"
)

// ContextTokenKey is where the validated *jwt.Token is stored on the echo context.
const ContextTokenKey = "user"

// SessionChecker reports whether a token's session has not been revoked.
type SessionChecker interface {
	Active(ctx context.Context, claims *auth.Claims) (bool, error)
}

// TokenParser verifies a raw session token. *auth.JWTService implements it.
type TokenParser interface {
	ParseToken(raw string) (*jwt.Token, error)
}

// RequireSession authenticates the bearer token or session cookie and then
// checks the session is still recorded.
func RequireSession(tokens TokenParser, sessions SessionChecker) []echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		ContextKey:  ContextTokenKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ,cookie:" + SessionCookieName,
		ParseTokenFunc: func(c echo.Context, raw string) (interface{}, error) {
			return tokens.ParseToken(raw)
		},
	})

	active := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := claimsFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
					Error: "invalid token",
					Code:  "INVALID_TOKEN",
				})
			}
			live, err := sessions.Active(c.Request().Context(), claims)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, apperrors.ErrorResponse{
					Error: "session store unavailable",
					Code:  "SESSION_STORE_UNAVAILABLE",
				})
			}
			if !live {
				return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
					Error: "session expired or revoked",
					Code:  "SESSION_REVOKED",
				})
			}
			return next(c)
		}
	}

	return []echo.MiddlewareFunc{verify, active}
}

func claimsFrom(c echo.Context) (*auth.Claims, bool) {
	token, ok := c.Get(ContextTokenKey).(*jwt.Token)
	if !ok {
		return nil, false
	}
	claims, ok := token.Claims.(*auth.Claims)
	return claims, ok && claims.ID != ""
}
