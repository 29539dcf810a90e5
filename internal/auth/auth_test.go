package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "authgate/internal/errors"
	"authgate/internal/model"
	"authgate/internal/validation"
)

const testSecret = "authgate-test-secret-0123456789"

// memoryKV is an in-process KeyValueStore.
type memoryKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	setErr error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string][]byte)}
}

func (m *memoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memoryKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *memoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// MockUserFinder is a mock implementation of UserFinder.
type MockUserFinder struct {
	mock.Mock
}

func (m *MockUserFinder) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func testIdentity() *Identity {
	return &Identity{ID: uuid.New(), Name: "Ana", Email: "ana@example.com", Role: model.RoleUser}
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(testSecret)
	identity := testIdentity()

	token, err := svc.GenerateSessionToken("sess-1", identity, time.Now(), time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.ID)
	assert.Equal(t, identity.ID.String(), claims.UserID)
	assert.Equal(t, identity.ID.String(), claims.Subject)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, model.RoleUser, claims.Role)
	assert.Nil(t, claims.Image)

	image := "https://github.com/Ana.png"
	identity.Image = &image
	token, err = svc.GenerateSessionToken("sess-2", identity, time.Now(), time.Hour)
	require.NoError(t, err)
	parsed, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, token, parsed.Raw)
	claims = parsed.Claims.(*Claims)
	require.NotNil(t, claims.Image)
	assert.Equal(t, image, *claims.Image)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService(testSecret)
	identity := testIdentity()

	expired, err := svc.GenerateSessionToken("sess-1", identity, time.Now().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.Error(t, err)

	foreign, err := NewJWTService("another-secret-0123456789").GenerateSessionToken("sess-1", identity, time.Now(), time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	assert.Error(t, err)

	sameKey := &JWTService{secret: []byte(testSecret), issuer: "someone-else"}
	otherIssuer, err := sameKey.GenerateSessionToken("sess-1", identity, time.Now(), time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(otherIssuer)
	assert.Error(t, err)

	_, err = svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestSessionManager_IssueRevoke(t *testing.T) {
	kv := newMemoryKV()
	jwtService := NewJWTService(testSecret)
	manager := NewSessionManager(jwtService, NewSessionStore(kv), time.Hour)
	ctx := context.Background()

	session, err := manager.Issue(ctx, testIdentity())
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, 5*time.Second)

	claims, err := jwtService.ValidateToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, claims.ID)

	active, err := manager.Active(ctx, claims)
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, manager.Revoke(ctx, session.Token))

	active, err = manager.Active(ctx, claims)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestSessionManager_RevokeInvalidToken(t *testing.T) {
	manager := NewSessionManager(NewJWTService(testSecret), NewSessionStore(newMemoryKV()), time.Hour)

	err := manager.Revoke(context.Background(), "garbage")

	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionManager_StoreFailure(t *testing.T) {
	kv := newMemoryKV()
	kv.setErr = errors.New("redis down")
	manager := NewSessionManager(NewJWTService(testSecret), NewSessionStore(kv), time.Hour)

	session, err := manager.Issue(context.Background(), testIdentity())

	assert.Nil(t, session)
	assert.Error(t, err)
	assert.False(t, IsCredentialsSignin(err))
}

func TestSessionManager_DefaultTTL(t *testing.T) {
	manager := NewSessionManager(NewJWTService(testSecret), NewSessionStore(newMemoryKV()), 0)
	assert.Equal(t, DefaultSessionTTL, manager.TTL())
}

func newCredentialsProvider(finder UserFinder) *CredentialsProvider {
	return NewCredentialsProvider(finder, NewBcryptHasher(bcrypt.MinCost), validation.New())
}

func storedUser(t *testing.T, password string) *model.User {
	t.Helper()
	hash, err := NewBcryptHasher(bcrypt.MinCost).Hash(password)
	require.NoError(t, err)
	return &model.User{ID: uuid.New(), Name: "Ana", Email: "ana@example.com", PasswordHash: hash, Role: model.RoleUser}
}

func TestCredentialsProvider_Authorize(t *testing.T) {
	user := storedUser(t, "password123")
	storageErr := fmt.Errorf("%w: connection refused", apperrors.ErrStorage)

	tests := []struct {
		name         string
		fields       map[string]string
		setupMock    func(*MockUserFinder)
		wantIdentity bool
		wantCode     bool
	}{
		{
			name:   "valid credentials",
			fields: map[string]string{"email": "Ana@example.com", "password": "password123"},
			setupMock: func(m *MockUserFinder) {
				m.On("FindByEmail", mock.Anything, "ana@example.com").Return(user, nil)
			},
			wantIdentity: true,
		},
		{
			name:   "wrong password",
			fields: map[string]string{"email": "ana@example.com", "password": "wrong-password"},
			setupMock: func(m *MockUserFinder) {
				m.On("FindByEmail", mock.Anything, "ana@example.com").Return(user, nil)
			},
			wantCode: true,
		},
		{
			name:   "unknown email",
			fields: map[string]string{"email": "ghost@example.com", "password": "password123"},
			setupMock: func(m *MockUserFinder) {
				m.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, apperrors.ErrUserNotFound)
			},
			wantCode: true,
		},
		{
			name:      "missing password",
			fields:    map[string]string{"email": "ana@example.com"},
			setupMock: func(m *MockUserFinder) {},
			wantCode:  true,
		},
		{
			name:   "storage failure",
			fields: map[string]string{"email": "ana@example.com", "password": "password123"},
			setupMock: func(m *MockUserFinder) {
				m.On("FindByEmail", mock.Anything, "ana@example.com").Return(nil, storageErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := new(MockUserFinder)
			tt.setupMock(finder)

			identity, err := newCredentialsProvider(finder).Authorize(context.Background(), tt.fields)

			switch {
			case tt.wantIdentity:
				require.NoError(t, err)
				assert.Equal(t, user.ID, identity.ID)
				assert.Equal(t, model.RoleUser, identity.Role)
			case tt.wantCode:
				assert.Nil(t, identity)
				assert.True(t, IsCredentialsSignin(err), "got %v", err)
			default:
				assert.Nil(t, identity)
				assert.Error(t, err)
				assert.False(t, IsCredentialsSignin(err))
				assert.ErrorIs(t, err, apperrors.ErrStorage)
			}
			finder.AssertExpectations(t)
		})
	}
}

type stubProvider struct {
	identity *Identity
	err      error
}

func (s *stubProvider) ID() string { return "stub" }

func (s *stubProvider) Authorize(ctx context.Context, fields map[string]string) (*Identity, error) {
	return s.identity, s.err
}

func TestGateway_SignIn(t *testing.T) {
	manager := NewSessionManager(NewJWTService(testSecret), NewSessionStore(newMemoryKV()), time.Hour)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		g := NewGateway(manager, &stubProvider{identity: testIdentity()})
		session, err := g.SignIn(ctx, "stub", nil)
		require.NoError(t, err)
		assert.NotEmpty(t, session.Token)
		require.NoError(t, g.SignOut(ctx, session.Token))
	})

	t.Run("typed rejection passes through", func(t *testing.T) {
		g := NewGateway(manager, &stubProvider{err: credentialsRejected(nil)})
		_, err := g.SignIn(ctx, "stub", nil)
		assert.True(t, IsCredentialsSignin(err))
		assert.Equal(t, "sign in rejected (CredentialsSignin)", err.Error())
	})

	t.Run("unknown provider", func(t *testing.T) {
		g := NewGateway(manager)
		_, err := g.SignIn(ctx, "github", nil)
		assert.ErrorIs(t, err, ErrUnknownProvider)
		assert.False(t, IsCredentialsSignin(err))
	})

	t.Run("message text is not a classification", func(t *testing.T) {
		g := NewGateway(manager, &stubProvider{err: errors.New("CredentialsSignin")})
		_, err := g.SignIn(ctx, "stub", nil)
		assert.Error(t, err)
		assert.False(t, IsCredentialsSignin(err))
	})
}
