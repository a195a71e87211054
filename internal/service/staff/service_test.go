package staff

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/internal/repository/mocks"
	"github.com/jwalitptl/clinic-dashboard-api/internal/service/access"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/cache"
	apperrors "github.com/jwalitptl/clinic-dashboard-api/pkg/errors"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/security"
)

type fixture struct {
	specialists *mocks.SpecialistRepository
	assistants  *mocks.AssistantRepository
	users       *mocks.UserRepository
	store       *cache.MemoryStore
	svc         *Service
}

func newFixture() *fixture {
	f := &fixture{
		specialists: new(mocks.SpecialistRepository),
		assistants:  new(mocks.AssistantRepository),
		users:       new(mocks.UserRepository),
		store:       cache.NewMemoryStore(time.Minute, time.Minute),
	}
	f.svc = NewService(f.specialists, f.assistants, f.users, security.NewBcryptHasher(4),
		f.store, time.Minute, access.NewCache(f.store, time.Minute))
	return f
}

func TestGetSpecialistByUserIsCached(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	userID := uuid.New()
	specialist := &model.Specialist{UserID: userID, Specialty: "PSICOLOGIA"}
	specialist.ID = uuid.New()

	f.specialists.On("GetByUserID", mock.Anything, userID).Return(specialist, nil).Once()

	first, err := f.svc.GetSpecialistByUser(ctx, userID)
	require.NoError(t, err)
	second, err := f.svc.GetSpecialistByUser(ctx, userID)
	require.NoError(t, err)

	assert.Equal(t, specialist.ID, first.ID)
	assert.Equal(t, specialist.ID, second.ID)
	f.specialists.AssertNumberOfCalls(t, "GetByUserID", 1)
}

func TestGetSpecialistByUserDoesNotCacheErrors(t *testing.T) {
	f := newFixture()
	userID := uuid.New()

	f.specialists.On("GetByUserID", mock.Anything, userID).
		Return(nil, apperrors.NotFound("specialist", nil)).Twice()

	for i := 0; i < 2; i++ {
		_, err := f.svc.GetSpecialistByUser(context.Background(), userID)
		assert.True(t, apperrors.IsNotFound(err))
	}
	f.specialists.AssertExpectations(t)
}

func TestCreateSpecialist(t *testing.T) {
	t.Run("requires the specialist role", func(t *testing.T) {
		f := newFixture()
		user := &model.User{Name: "Ana", Roles: []string{model.RoleFinanzas}}
		user.ID = uuid.New()
		f.users.On("Get", mock.Anything, user.ID).Return(user, nil)

		_, err := f.svc.CreateSpecialist(context.Background(),
			&model.CreateSpecialistRequest{UserID: user.ID, Specialty: "psicologia"})

		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
		f.specialists.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("uppercases the specialty", func(t *testing.T) {
		f := newFixture()
		user := &model.User{Name: "Ana", Roles: []string{model.RoleEspecialista}}
		user.ID = uuid.New()
		f.users.On("Get", mock.Anything, user.ID).Return(user, nil)
		f.specialists.On("Create", mock.Anything, mock.MatchedBy(func(s *model.Specialist) bool {
			return s.UserID == user.ID && s.Specialty == "FISIOTERAPIA"
		})).Return(nil)

		got, err := f.svc.CreateSpecialist(context.Background(),
			&model.CreateSpecialistRequest{UserID: user.ID, Specialty: " fisioterapia "})

		require.NoError(t, err)
		assert.True(t, got.IsPhysiotherapy())
		f.specialists.AssertExpectations(t)
	})
}

func TestCreateAssistant(t *testing.T) {
	req := func() *model.CreateAssistantRequest {
		return &model.CreateAssistantRequest{
			Name:            "Luis",
			Email:           "luis@example.com",
			Username:        "luis",
			Password:        "secreto123",
			ConfirmPassword: "secreto123",
			SpecialistIDs:   []uuid.UUID{uuid.New()},
		}
	}

	t.Run("password mismatch", func(t *testing.T) {
		f := newFixture()
		r := req()
		r.ConfirmPassword = "otro"

		_, err := f.svc.CreateAssistant(context.Background(), r, nil)

		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, "Las contrasenas no coinciden.", appErr.Message)
		f.users.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("username taken", func(t *testing.T) {
		f := newFixture()
		f.users.On("Exists", mock.Anything, model.AvailabilityUsername, "luis", (*uuid.UUID)(nil)).Return(true, nil)

		_, err := f.svc.CreateAssistant(context.Background(), req(), nil)

		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrConflict, appErr.Code)
		assert.Equal(t, map[string]any{"username": "usernameTaken"}, appErr.Details)
		f.assistants.AssertNotCalled(t, "CreateWithUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("creates user with assistant role", func(t *testing.T) {
		f := newFixture()
		r := req()
		actor := uuid.New()
		created := &model.Assistant{UserName: "Luis", SpecialistIDs: r.SpecialistIDs}
		created.ID = uuid.New()

		f.users.On("Exists", mock.Anything, mock.Anything, mock.Anything, (*uuid.UUID)(nil)).Return(false, nil)
		f.assistants.On("CreateWithUser", mock.Anything,
			mock.MatchedBy(func(u *model.User) bool {
				return u.Username == "luis" &&
					u.Enabled &&
					u.HasRole(model.RoleAsistenteEspecialista) &&
					u.PasswordHash != "" && u.PasswordHash != "secreto123" &&
					*u.CreatedBy == actor
			}),
			mock.MatchedBy(func(a *model.Assistant) bool {
				return assert.ObjectsAreEqual(r.SpecialistIDs, a.SpecialistIDs)
			}),
		).Run(func(args mock.Arguments) {
			args.Get(2).(*model.Assistant).ID = created.ID
		}).Return(nil)
		f.assistants.On("Get", mock.Anything, created.ID).Return(created, nil)

		got, err := f.svc.CreateAssistant(context.Background(), r, &actor)

		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		f.users.AssertNumberOfCalls(t, "Exists", 2)
		f.assistants.AssertExpectations(t)
	})
}

func TestSetSpecialistAssistantsInvalidatesBeforeAndAfter(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	specialistID := uuid.New()

	removed := &model.Assistant{UserID: uuid.New()}
	removed.ID = uuid.New()
	added := &model.Assistant{UserID: uuid.New()}
	added.ID = uuid.New()

	for _, a := range []*model.Assistant{removed, added} {
		require.NoError(t, f.store.Set(ctx, "access:"+a.UserID.String(), model.Access{UserID: a.UserID}, time.Minute))
		require.NoError(t, f.store.Set(ctx, linksKey(a.ID), []*model.Specialist{}, time.Minute))
	}

	f.specialists.On("Get", mock.Anything, specialistID).Return(&model.Specialist{}, nil)
	f.assistants.On("ListBySpecialist", mock.Anything, specialistID).Return([]*model.Assistant{removed}, nil).Once()
	f.specialists.On("SetAssistants", mock.Anything, specialistID, []uuid.UUID{added.ID}).Return(nil)
	f.assistants.On("ListBySpecialist", mock.Anything, specialistID).Return([]*model.Assistant{added}, nil).Once()

	got, err := f.svc.SetSpecialistAssistants(ctx, specialistID, []uuid.UUID{added.ID, added.ID, uuid.Nil})
	require.NoError(t, err)
	assert.Equal(t, []*model.Assistant{added}, got)

	for _, a := range []*model.Assistant{removed, added} {
		ok, err := f.store.Exists(ctx, "access:"+a.UserID.String())
		require.NoError(t, err)
		assert.False(t, ok, "access of %s should be dropped", a.UserID)

		ok, err = f.store.Exists(ctx, linksKey(a.ID))
		require.NoError(t, err)
		assert.False(t, ok)
	}
	f.specialists.AssertExpectations(t)
}

func TestSetAssistantSpecialistsMissingAssistant(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	f.assistants.On("Get", mock.Anything, id).Return(nil, apperrors.NotFound("assistant", nil))

	_, err := f.svc.SetAssistantSpecialists(context.Background(), id, []uuid.UUID{uuid.New()})

	assert.True(t, apperrors.IsNotFound(err))
	f.assistants.AssertNotCalled(t, "SetSpecialists", mock.Anything, mock.Anything, mock.Anything)
}
