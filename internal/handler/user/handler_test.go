package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-dashboard-api/internal/handler"
	"github.com/jwalitptl/clinic-dashboard-api/internal/middleware"
	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	usersvc "github.com/jwalitptl/clinic-dashboard-api/internal/service/user"
	apperrors "github.com/jwalitptl/clinic-dashboard-api/pkg/errors"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) List(ctx context.Context, filter model.UserFilter, paging model.Paging) (model.Page[*model.User], error) {
	args := m.Called(ctx, filter, paging)
	return args.Get(0).(model.Page[*model.User]), args.Error(1)
}

func (m *mockService) Create(ctx context.Context, req *model.CreateUserRequest, actor *uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateUserRequest, actor *uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockService) Delete(ctx context.Context, id, actor uuid.UUID) error {
	return m.Called(ctx, id, actor).Error(0)
}

func (m *mockService) Restore(ctx context.Context, id, actor uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockService) Resolve(ctx context.Context, ids []uuid.UUID) ([]model.ResolvedUserRef, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ResolvedUserRef), args.Error(1)
}

func (m *mockService) Availability(ctx context.Context, q usersvc.AvailabilityQuery) model.Availability {
	return m.Called(ctx, q).Get(0).(model.Availability)
}

var admin = model.AuthUser{ID: uuid.New(), Username: "director", Roles: []string{model.RoleDirectorGeneral}}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details map[string]any  `json:"details"`
}

func setupRouter(t *testing.T, svc Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, middleware.RegisterValidators())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		handler.SetAuth(c, &model.TokenClaims{UserID: admin.ID}, admin)
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1/admin"))
	return r
}

func perform(r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	raw := []byte(nil)
	if body != nil {
		raw, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestListUsers(t *testing.T) {
	t.Run("filters", func(t *testing.T) {
		svc := new(mockService)
		r := setupRouter(t, svc)
		enabled := false
		svc.On("List", mock.Anything, model.UserFilter{
			Status:   model.UserStatusDeleted,
			Text:     "ana",
			Enabled:  &enabled,
			RoleName: model.RoleFinanzas,
		}, model.Paging{Page: 0, Size: 50, Sort: []model.SortOrder{{Field: "name"}}}).
			Return(model.NewPage([]*model.User{{Name: "Ana", PasswordHash: "secret-hash"}}, 1, 0, 50), nil)

		w, env := perform(r, http.MethodGet, "/api/v1/admin/users?status=deleted&text=ana&enabled=false&roleName=ROLE_FINANZAS&size=50&sort=name,asc", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, string(env.Data), "secret-hash")
		svc.AssertExpectations(t)
	})

	t.Run("null enabled is ignored", func(t *testing.T) {
		svc := new(mockService)
		r := setupRouter(t, svc)
		svc.On("List", mock.Anything, model.UserFilter{}, model.Paging{Size: defaultPageSize}).
			Return(model.NewPage[*model.User](nil, 0, 0, defaultPageSize), nil)

		w, _ := perform(r, http.MethodGet, "/api/v1/admin/users?enabled=null", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("invalid enabled", func(t *testing.T) {
		r := setupRouter(t, new(mockService))
		w, _ := perform(r, http.MethodGet, "/api/v1/admin/users?enabled=maybe", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCreateUser(t *testing.T) {
	valid := map[string]any{
		"name":     "Ana Perez",
		"email":    "ana@clinica.test",
		"username": "aperez",
		"password": "secreto123",
		"roles":    []string{model.RoleFinanzas},
	}

	t.Run("created", func(t *testing.T) {
		svc := new(mockService)
		r := setupRouter(t, svc)
		svc.On("Create", mock.Anything, mock.MatchedBy(func(req *model.CreateUserRequest) bool {
			return req.Username == "aperez" && req.Roles[0] == model.RoleFinanzas
		}), &admin.ID).Return(&model.User{Username: "aperez"}, nil)

		w, _ := perform(r, http.MethodPost, "/api/v1/admin/users", valid)
		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("rejects unknown role format", func(t *testing.T) {
		r := setupRouter(t, new(mockService))
		body := map[string]any{}
		for k, v := range valid {
			body[k] = v
		}
		body["roles"] = []string{"admin"}

		w, env := perform(r, http.MethodPost, "/api/v1/admin/users", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, handler.MsgValidation, env.Message)
	})

	t.Run("taken username", func(t *testing.T) {
		svc := new(mockService)
		r := setupRouter(t, svc)
		svc.On("Create", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperrors.Conflict("username already in use", nil).
				WithDetails(map[string]any{"username": model.AvailabilityUsername.AvailabilityError()}))

		w, env := perform(r, http.MethodPost, "/api/v1/admin/users", valid)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "usernameTaken", env.Details["username"])
	})
}

func TestUpdateUser(t *testing.T) {
	svc := new(mockService)
	r := setupRouter(t, svc)
	id := uuid.New()
	svc.On("Update", mock.Anything, id, mock.MatchedBy(func(req *model.UpdateUserRequest) bool {
		return req.Enabled != nil && !*req.Enabled && req.Name == nil
	}), &admin.ID).Return(&model.User{Enabled: false}, nil)

	w, _ := perform(r, http.MethodPut, "/api/v1/admin/users/"+id.String(), map[string]any{"enabled": false})
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestDeleteAndRestoreUser(t *testing.T) {
	t.Run("delete", func(t *testing.T) {
		svc := new(mockService)
		r := setupRouter(t, svc)
		id := uuid.New()
		svc.On("Delete", mock.Anything, id, admin.ID).Return(nil)

		w, _ := perform(r, http.MethodDelete, "/api/v1/admin/users/"+id.String(), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("delete self", func(t *testing.T) {
		svc := new(mockService)
		r := setupRouter(t, svc)
		svc.On("Delete", mock.Anything, admin.ID, admin.ID).Return(apperrors.BadRequest(usersvc.MsgDeleteSelf, nil))

		w, env := perform(r, http.MethodDelete, "/api/v1/admin/users/"+admin.ID.String(), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, usersvc.MsgDeleteSelf, env.Message)
	})

	t.Run("restore", func(t *testing.T) {
		svc := new(mockService)
		r := setupRouter(t, svc)
		id := uuid.New()
		svc.On("Restore", mock.Anything, id, admin.ID).Return(&model.User{Name: "Ana"}, nil)

		w, _ := perform(r, http.MethodPatch, "/api/v1/admin/users/"+id.String()+"/restore", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})
}

func TestResolveUsers(t *testing.T) {
	svc := new(mockService)
	r := setupRouter(t, svc)
	id := uuid.New()
	svc.On("Resolve", mock.Anything, []uuid.UUID{id}).
		Return([]model.ResolvedUserRef{{ID: id, Name: "Ana", Username: "ana"}}, nil)

	w, env := perform(r, http.MethodPost, "/api/v1/admin/users/resolve", map[string]any{"userIds": []uuid.UUID{id}})
	require.Equal(t, http.StatusOK, w.Code)

	var refs []model.ResolvedUserRef
	require.NoError(t, json.Unmarshal(env.Data, &refs))
	assert.Equal(t, "ana", refs[0].Username)
}

func TestCheckAvailability(t *testing.T) {
	t.Run("username", func(t *testing.T) {
		svc := new(mockService)
		r := setupRouter(t, svc)
		exclude := uuid.New()
		svc.On("Availability", mock.Anything, usersvc.AvailabilityQuery{
			Field:     model.AvailabilityUsername,
			Value:     "ana",
			Current:   "ana.p",
			ExcludeID: &exclude,
		}).Return(model.Availability{Available: false})

		w, env := perform(r, http.MethodGet, "/api/v1/admin/users/availability?username=ana&current=ana.p&excludeId="+exclude.String(), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"available":false}`, string(env.Data))
	})

	t.Run("email", func(t *testing.T) {
		svc := new(mockService)
		r := setupRouter(t, svc)
		svc.On("Availability", mock.Anything, usersvc.AvailabilityQuery{
			Field: model.AvailabilityEmail,
			Value: "ana@clinica.test",
		}).Return(model.Availability{Available: true})

		w, _ := perform(r, http.MethodGet, "/api/v1/admin/users/availability?email=ana@clinica.test", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("needs a field", func(t *testing.T) {
		r := setupRouter(t, new(mockService))
		w, _ := perform(r, http.MethodGet, "/api/v1/admin/users/availability", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
