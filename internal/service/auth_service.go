package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"authgate/internal/auth"
)

// ErrNotSignedIn is returned by Logout when the token names no live session.
var ErrNotSignedIn = errors.New("not signed in")

// SignInGateway is the identity provider seen by AuthService.
type SignInGateway interface {
	SignIn(ctx context.Context, providerID string, fields map[string]string) (*auth.Session, error)
	SignOut(ctx context.Context, token string) error
}

// LoginResult is the outcome of an expected sign-in attempt: either Session
// is set, or ErrorCode names why the credentials were refused.
type LoginResult struct {
	Session   *auth.Session
	ErrorCode string
}

// AuthService handles authentication operations.
type AuthService interface {
	// Authenticate returns a LoginResult for success and for rejected
	// credentials. Any other failure is returned as an error.
	Authenticate(ctx context.Context, form map[string]string) (*LoginResult, error)
	Logout(ctx context.Context, token string) error
}

type authService struct {
	gateway SignInGateway
	log     *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(gateway SignInGateway, log *slog.Logger) AuthService {
	return &authService{gateway: gateway, log: log}
}

func (s *authService) Authenticate(ctx context.Context, form map[string]string) (*LoginResult, error) {
	session, err := s.gateway.SignIn(ctx, auth.CredentialsProviderID, form)
	if err != nil {
		if auth.IsCredentialsSignin(err) {
			s.log.InfoContext(ctx, "sign in rejected", "code", auth.CodeCredentialsSignin)
			return &LoginResult{ErrorCode: auth.CodeCredentialsSignin}, nil
		}
		s.log.ErrorContext(ctx, "sign in failed", "error", err)
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	s.log.InfoContext(ctx, "signed in", "user_id", session.User.ID, "session_id", session.ID)
	return &LoginResult{Session: session}, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	if err := s.gateway.SignOut(ctx, token); err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) {
			return ErrNotSignedIn
		}
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
