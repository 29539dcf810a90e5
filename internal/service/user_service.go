package service

import (
	"context"
	"encoding/json"
	"time"

	"authgate/internal/model"
	"authgate/internal/repository"
	"authgate/internal/validation"
)

const userCacheTTL = 5 * time.Minute

// UserCache is the read-through cache used by UserService. Errors are ignored.
type UserCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// UserService exposes read operations over users.
type UserService interface {
	// GetByEmail returns apperrors.ErrUserNotFound or an error wrapping
	// apperrors.ErrStorage on failure.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

type userService struct {
	repo  repository.UserRepository
	cache UserCache
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache UserCache) UserService {
	return &userService{repo: repo, cache: cache}
}

func (s *userService) cacheKey(email string) string {
	return "user:email:" + email
}

// GetByEmail serves from cache when possible. Cached copies never carry the
// password hash, since PasswordHash is excluded from JSON.
func (s *userService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = validation.NormalizeEmail(email)

	if data, _ := s.cache.Get(ctx, s.cacheKey(email)); data != nil {
		var cached model.User
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(user); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(email), payload, userCacheTTL)
	}
	return user, nil
}
