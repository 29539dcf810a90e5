package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "authgate/docs" // swagger docs

	"github.com/labstack/echo/v4"

	"authgate/internal/auth"
	"authgate/internal/cache"
	"authgate/internal/config"
	"authgate/internal/db"
	"authgate/internal/handler"
	"authgate/internal/logger"
	"authgate/internal/repository"
	"authgate/internal/router"
	"authgate/internal/service"
	"authgate/internal/validation"
)

// @title AuthGate API
// @version 1.0
// @description Credential registration and sign-in with server-side sessions.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{}).Error("config", "error", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	gormDB, err := db.NewMySQL(cfg.MySQLDSN, db.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.Error("database init", "error", err)
		os.Exit(1)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(context.Background(), gormDB, log); err != nil {
			log.Error("migrate", "error", err)
			os.Exit(1)
		}
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	if err := cacheClient.Ping(pingCtx); err != nil {
		// sessions fail closed until redis is reachable
		log.Warn("redis unreachable", "addr", cfg.RedisAddr, "error", err)
	}
	cancelPing()

	userRepo := repository.NewUserRepository(gormDB)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	v := validation.New()

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	sessions := auth.NewSessionManager(jwtService, auth.NewSessionStore(cacheClient), cfg.SessionTTL)
	gateway := auth.NewGateway(sessions, auth.NewCredentialsProvider(userRepo, hasher, v))

	// Initialize services
	registration := service.NewRegistrationService(userRepo, hasher, v, cfg.AvatarURLTemplate, log)
	authService := service.NewAuthService(gateway, log)
	userService := service.NewUserService(userRepo, cacheClient)

	e := echo.New()
	e.HideBanner = true

	router.Register(e, router.Deps{
		Auth:      handler.NewAuthHandler(registration, authService, cfg.LoginRedirectPath, cfg.CookieSecure),
		Users:     handler.NewUserHandler(userService),
		Session:   handler.RequireSession(jwtService, sessions),
		Validator: v,
	})

	log.Info("swagger documentation available", "url", swaggerURL(cfg))

	go func() {
		addr := ":" + cfg.ServerPort
		log.Info("server starting", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("server shutdown", "error", err)
	}
	log.Info("server stopped")
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
