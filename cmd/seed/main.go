package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"authgate/internal/auth"
	"authgate/internal/config"
	"authgate/internal/db"
	apperrors "authgate/internal/errors"
	"authgate/internal/logger"
	"authgate/internal/repository"
	"authgate/internal/service"
	"authgate/internal/validation"
)

// SeedUser is one entry of the seed file.
type SeedUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func main() {
	path := flag.String("file", "seed/users.json", "path to a JSON array of {name, email, password}")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{}).Error("config", "error", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Info("starting seed", "file", *path)

	users, err := readSeedFile(*path)
	if err != nil {
		log.Error("read seed file", "error", err)
		os.Exit(1)
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN, db.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}

	// Run migrations to ensure schema is up to date
	if err := db.Migrate(context.Background(), gormDB, log); err != nil {
		log.Error("migrate", "error", err)
		os.Exit(1)
	}

	registration := service.NewRegistrationService(
		repository.NewUserRepository(gormDB),
		auth.NewBcryptHasher(cfg.BcryptCost),
		validation.New(),
		cfg.AvatarURLTemplate,
		log,
	)

	created, skipped, err := seedUsers(context.Background(), registration, users, log)
	if err != nil {
		log.Error("seed users", "error", err, "created", created, "skipped", skipped)
		os.Exit(1)
	}
	log.Info("seed completed", "created", created, "skipped", skipped, "total", len(users))
}

func readSeedFile(path string) ([]SeedUser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var users []SeedUser
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return users, nil
}

// seedUsers registers each entry. Taken emails and invalid entries are
// skipped; a storage failure stops the run.
func seedUsers(ctx context.Context, registration service.RegistrationService, users []SeedUser, log *slog.Logger) (created, skipped int, err error) {
	for _, u := range users {
		_, err := registration.Register(ctx, map[string]string{
			"name":     u.Name,
			"email":    u.Email,
			"password": u.Password,
		})

		var fe *validation.FieldErrors
		switch {
		case err == nil:
			created++
		case errors.Is(err, apperrors.ErrDuplicateEmail):
			log.Info("user exists, skipping", "email", u.Email)
			skipped++
		case errors.As(err, &fe):
			log.Warn("invalid seed entry, skipping", "email", u.Email, "error", fe.Error())
			skipped++
		default:
			return created, skipped, fmt.Errorf("register %s: %w", u.Email, err)
		}
	}
	return created, skipped, nil
}
