package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"authgate/internal/handler"
	"authgate/internal/validation"
)

// Deps are the handlers and session guard the routes are wired to.
type Deps struct {
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Session   []echo.MiddlewareFunc
	Validator *validation.Validator
}

// Register wires routes and middleware.
func Register(e *echo.Echo, d Deps) {
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Validator = &CustomValidator{validator: d.Validator}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", d.Auth.Register)
	api.POST("/auth/login", d.Auth.Login)

	// Secured routes (require a live session)
	secured := api.Group("", d.Session...)
	secured.POST("/auth/logout", d.Auth.Logout)
	secured.GET("/me", d.Users.Me)
	secured.GET("/users/lookup", d.Users.Lookup)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validation.Validator
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
