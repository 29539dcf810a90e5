// Package auth is the identity provider: it verifies credentials through
// pluggable providers and establishes a session on success.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CodeCredentialsSignin is the stable code for rejected credentials.
const CodeCredentialsSignin = "CredentialsSignin"

// ErrUnknownProvider is returned by Gateway.SignIn for an unregistered provider ID.
var ErrUnknownProvider = errors.New("unknown sign-in provider")

// SignInError is an expected sign-in rejection carrying a stable Code.
type SignInError struct {
	Code string
	Err  error
}

func (e *SignInError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sign in rejected (%s): %v", e.Code, e.Err)
	}
	return "sign in rejected (" + e.Code + ")"
}

func (e *SignInError) Unwrap() error {
	return e.Err
}

// IsCredentialsSignin reports whether err is a credentials rejection.
func IsCredentialsSignin(err error) bool {
	var signInErr *SignInError
	return errors.As(err, &signInErr) && signInErr.Code == CodeCredentialsSignin
}

func credentialsRejected(cause error) error {
	return &SignInError{Code: CodeCredentialsSignin, Err: cause}
}

// Identity is the authenticated subject a session is issued for.
type Identity struct {
	ID    uuid.UUID
	Name  string
	Email string
	Image *string
	Role  string
}

// Provider verifies one kind of credentials. Rejections are returned as
// *SignInError; any other error is an infrastructure fault.
type Provider interface {
	ID() string
	Authorize(ctx context.Context, fields map[string]string) (*Identity, error)
}

// SessionIssuer establishes and revokes sessions.
type SessionIssuer interface {
	Issue(ctx context.Context, identity *Identity) (*Session, error)
	Revoke(ctx context.Context, token string) error
}

// Gateway dispatches sign-in to a provider and issues the session.
type Gateway struct {
	providers map[string]Provider
	sessions  SessionIssuer
}

// NewGateway registers providers by their ID.
func NewGateway(sessions SessionIssuer, providers ...Provider) *Gateway {
	g := &Gateway{
		providers: make(map[string]Provider, len(providers)),
		sessions:  sessions,
	}
	for _, p := range providers {
		g.providers[p.ID()] = p
	}
	return g
}

// SignIn authorizes fields with providerID and, on success, issues a session.
func (g *Gateway) SignIn(ctx context.Context, providerID string, fields map[string]string) (*Session, error) {
	provider, ok := g.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, providerID)
	}

	identity, err := provider.Authorize(ctx, fields)
	if err != nil {
		return nil, err
	}

	session, err := g.sessions.Issue(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return session, nil
}

// SignOut revokes the session behind token.
func (g *Gateway) SignOut(ctx context.Context, token string) error {
	return g.sessions.Revoke(ctx, token)
}
