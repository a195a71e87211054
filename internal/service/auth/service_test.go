package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/internal/repository/mocks"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/auth"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/cache"
	apperrors "github.com/jwalitptl/clinic-dashboard-api/pkg/errors"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/security"
)

type mockAccess struct {
	mock.Mock
}

func (m *mockAccess) Resolve(ctx context.Context, user model.AuthUser) (*model.Access, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Access), args.Error(1)
}

func (m *mockAccess) Refresh(ctx context.Context, user model.AuthUser) (*model.Access, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Access), args.Error(1)
}

func (m *mockAccess) Invalidate(ctx context.Context, userIDs ...uuid.UUID) error {
	args := m.Called(ctx, userIDs)
	return args.Error(0)
}

type fixture struct {
	svc    *Service
	users  *mocks.UserRepository
	access *mockAccess
	hasher security.PasswordHasher
}

func newFixture() *fixture {
	users := new(mocks.UserRepository)
	acc := new(mockAccess)
	hasher := security.NewBcryptHasher(4)
	jwtSvc := auth.NewJWTService("test-secret", "clinic-dashboard", time.Hour)
	store := cache.NewMemoryStore(time.Hour, time.Minute)
	return &fixture{
		svc:    NewService(users, jwtSvc, hasher, store, acc),
		users:  users,
		access: acc,
		hasher: hasher,
	}
}

func (f *fixture) user(t *testing.T, password string, enabled bool) *model.User {
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	u := &model.User{
		Name:         "Ana Torres",
		Email:        "ana@clinica.mx",
		Username:     "ana",
		PasswordHash: hash,
		Enabled:      enabled,
		Roles:        []string{model.RoleEspecialista},
	}
	u.ID = uuid.New()
	return u
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success by username", func(t *testing.T) {
		f := newFixture()
		u := f.user(t, "secreto123", true)
		f.users.On("GetByLogin", ctx, "ana").Return(u, nil)
		f.users.On("UpdateLastLogin", ctx, u.ID, mock.AnythingOfType("time.Time")).Return(nil)
		f.access.On("Refresh", ctx, u.ToAuthUser()).Return(&model.Access{UserID: u.ID}, nil)

		resp, err := f.svc.Login(ctx, &model.LoginRequest{Username: " ana ", Password: "secreto123"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.Equal(t, int64(3600), resp.ExpiresIn)
		assert.Equal(t, model.TokenTypeBearer, resp.TokenType)
		assert.Equal(t, u.ID, resp.User.ID)
		f.users.AssertExpectations(t)
		f.access.AssertExpectations(t)
	})

	t.Run("falls back to email", func(t *testing.T) {
		f := newFixture()
		u := f.user(t, "secreto123", true)
		f.users.On("GetByLogin", ctx, "ana@clinica.mx").Return(u, nil)
		f.users.On("UpdateLastLogin", ctx, u.ID, mock.Anything).Return(errors.New("db down"))
		f.access.On("Refresh", ctx, mock.Anything).Return(nil, errors.New("cache down"))

		resp, err := f.svc.Login(ctx, &model.LoginRequest{Email: "ana@clinica.mx", Password: "secreto123"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture()
		f.users.On("GetByLogin", ctx, "nadie").Return(nil, apperrors.NotFound("user", nil))

		_, err := f.svc.Login(ctx, &model.LoginRequest{Username: "nadie", Password: "secreto123"})
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
		assert.Equal(t, MsgInvalidCredentials, appErr.Message)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newFixture()
		u := f.user(t, "secreto123", true)
		f.users.On("GetByLogin", ctx, "ana").Return(u, nil)

		_, err := f.svc.Login(ctx, &model.LoginRequest{Username: "ana", Password: "otra-clave"})
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
		f.users.AssertNotCalled(t, "UpdateLastLogin", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("disabled user", func(t *testing.T) {
		f := newFixture()
		u := f.user(t, "secreto123", false)
		f.users.On("GetByLogin", ctx, "ana").Return(u, nil)

		_, err := f.svc.Login(ctx, &model.LoginRequest{Username: "ana", Password: "secreto123"})
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrForbidden, appErr.Code)
		assert.Equal(t, MsgUserDisabled, appErr.Message)
	})

	t.Run("repository failure", func(t *testing.T) {
		f := newFixture()
		f.users.On("GetByLogin", ctx, "ana").Return(nil, errors.New("db down"))

		_, err := f.svc.Login(ctx, &model.LoginRequest{Username: "ana", Password: "secreto123"})
		assert.EqualError(t, err, "db down")
	})
}

func TestAuthenticateAndLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	u := f.user(t, "secreto123", true)
	f.users.On("GetByLogin", ctx, "ana").Return(u, nil)
	f.users.On("UpdateLastLogin", ctx, u.ID, mock.Anything).Return(nil)
	f.access.On("Refresh", ctx, mock.Anything).Return(&model.Access{}, nil)
	f.access.On("Invalidate", ctx, []uuid.UUID{u.ID}).Return(nil)

	resp, err := f.svc.Login(ctx, &model.LoginRequest{Username: "ana", Password: "secreto123"})
	require.NoError(t, err)

	claims, err := f.svc.Authenticate(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, u.Roles, claims.Roles)

	require.NoError(t, f.svc.Logout(ctx, claims))

	_, err = f.svc.Authenticate(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	f.access.AssertExpectations(t)
}

func TestRevokeUserVoidsIssuedTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	u := f.user(t, "secreto123", true)
	f.users.On("GetByLogin", ctx, "ana").Return(u, nil)
	f.users.On("UpdateLastLogin", ctx, u.ID, mock.Anything).Return(nil)
	f.access.On("Refresh", ctx, mock.Anything).Return(&model.Access{}, nil)

	resp, err := f.svc.Login(ctx, &model.LoginRequest{Username: "ana", Password: "secreto123"})
	require.NoError(t, err)

	require.NoError(t, f.svc.RevokeUser(ctx, uuid.New()))
	_, err = f.svc.Authenticate(ctx, resp.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.RevokeUser(ctx, u.ID))
	_, err = f.svc.Authenticate(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	f.svc.now = func() time.Time { return time.Now().Add(-time.Minute) }
	require.NoError(t, f.svc.RevokeUser(ctx, u.ID))
	claims, err := f.svc.Authenticate(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Authenticate(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestLogoutOfExpiredTokenSkipsDenylist(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	claims := &model.TokenClaims{TokenID: "jti-1", UserID: uuid.New(), ExpiresAt: time.Now().Add(-time.Minute)}
	f.access.On("Invalidate", ctx, []uuid.UUID{claims.UserID}).Return(errors.New("cache down"))

	require.NoError(t, f.svc.Logout(ctx, claims))

	revoked, err := f.svc.denylist.Exists(ctx, denylistKey("jti-1"))
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMeAndAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	u := f.user(t, "secreto123", true)
	f.users.On("Get", ctx, u.ID).Return(u, nil)
	want := &model.Access{UserID: u.ID, AllowedRoutes: []string{"/citas"}}
	f.access.On("Resolve", ctx, u.ToAuthUser()).Return(want, nil)

	me, err := f.svc.Me(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", me.Username)

	got, err := f.svc.Access(ctx, *me)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
