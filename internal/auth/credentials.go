package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	apperrors "authgate/internal/errors"
	"authgate/internal/model"
	"authgate/internal/validation"
)

// CredentialsProviderID identifies the email/password provider.
const CredentialsProviderID = "credentials"

// UserFinder fetches a stored user by email.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// CredentialsProvider authenticates an email and password against stored users.
type CredentialsProvider struct {
	users     UserFinder
	hasher    PasswordHasher
	validator *validation.Validator

	dummyOnce sync.Once
	dummyHash string
}

var _ Provider = (*CredentialsProvider)(nil)

// NewCredentialsProvider creates the email/password provider.
func NewCredentialsProvider(users UserFinder, hasher PasswordHasher, v *validation.Validator) *CredentialsProvider {
	return &CredentialsProvider{users: users, hasher: hasher, validator: v}
}

// ID implements Provider.
func (p *CredentialsProvider) ID() string {
	return CredentialsProviderID
}

// Authorize implements Provider. Unknown email and wrong password are the same
// rejection; a storage failure is returned as is.
func (p *CredentialsProvider) Authorize(ctx context.Context, fields map[string]string) (*Identity, error) {
	creds, fe := p.validator.ValidateCredentials(fields)
	if fe != nil {
		return nil, credentialsRejected(fe)
	}

	user, err := p.users.FindByEmail(ctx, creds.Email)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		// burn a comparison so unknown emails take as long as wrong passwords
		p.hasher.Compare(p.dummy(), creds.Password)
		return nil, credentialsRejected(err)
	}
	if err != nil {
		return nil, fmt.Errorf("credentials provider: %w", err)
	}

	if !p.hasher.Compare(user.PasswordHash, creds.Password) {
		return nil, credentialsRejected(errors.New("password mismatch"))
	}

	return &Identity{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Image: user.Image,
		Role:  user.Role,
	}, nil
}

func (p *CredentialsProvider) dummy() string {
	p.dummyOnce.Do(func() {
		hash, err := p.hasher.Hash("authgate-dummy-password")
		if err == nil {
			p.dummyHash = hash
		}
	})
	return p.dummyHash
}
