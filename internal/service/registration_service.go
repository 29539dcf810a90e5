package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"authgate/internal/auth"
	apperrors "authgate/internal/errors"
	"authgate/internal/model"
	"authgate/internal/repository"
	"authgate/internal/validation"
)

// RegistrationService creates users from a submitted registration form.
type RegistrationService interface {
	// Register returns *validation.FieldErrors for invalid input,
	// apperrors.ErrDuplicateEmail when the email is taken, and an error wrapping
	// apperrors.ErrStorage for any other persistence failure.
	Register(ctx context.Context, form map[string]string) (*model.User, error)
}

type registrationService struct {
	users          repository.UserRepository
	hasher         auth.PasswordHasher
	validator      *validation.Validator
	avatarTemplate string
	log            *slog.Logger
}

// NewRegistrationService builds a RegistrationService. An empty avatarTemplate
// stores users without an image.
func NewRegistrationService(users repository.UserRepository, hasher auth.PasswordHasher, v *validation.Validator, avatarTemplate string, log *slog.Logger) RegistrationService {
	return &registrationService{
		users:          users,
		hasher:         hasher,
		validator:      v,
		avatarTemplate: avatarTemplate,
		log:            log,
	}
}

func (s *registrationService) Register(ctx context.Context, form map[string]string) (*model.User, error) {
	reg, fe := s.validator.ValidateRegistration(form)
	if fe != nil {
		return nil, fe
	}

	hashed, err := s.hasher.Hash(reg.Password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, &validation.FieldErrors{Fields: map[string][]string{
			"password": {"Password must contain at most 72 bytes"},
		}}
	}
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	user := &model.User{
		Name:         reg.Name,
		Email:        reg.Email,
		PasswordHash: hashed,
		Image:        avatarURL(s.avatarTemplate, reg.Name),
		Role:         model.RoleUser,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateEmail) {
			s.log.InfoContext(ctx, "registration rejected: email taken", "email", user.Email)
			return nil, apperrors.ErrDuplicateEmail
		}
		s.log.ErrorContext(ctx, "registration insert failed", "email", user.Email, "error", err)
		if !errors.Is(err, apperrors.ErrStorage) {
			err = fmt.Errorf("%w: %v", apperrors.ErrStorage, err)
		}
		return nil, err
	}

	s.log.InfoContext(ctx, "user registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// avatarURL fills template with the path-escaped name. The result is never checked for reachability.
func avatarURL(template, name string) *string {
	if template == "" || !strings.Contains(template, "%s") {
		return nil
	}
	u := fmt.Sprintf(template, url.PathEscape(name))
	return &u
}
