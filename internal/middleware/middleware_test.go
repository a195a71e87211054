package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-dashboard-api/internal/handler"
	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/internal/service/access"
	authsvc "github.com/jwalitptl/clinic-dashboard-api/internal/service/auth"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/auth"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/httputil"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubTokens struct {
	claims *model.TokenClaims
	err    error
}

func (s stubTokens) Authenticate(_ context.Context, token string) (*model.TokenClaims, error) {
	if token != "good" {
		return nil, auth.ErrInvalidToken
	}
	return s.claims, s.err
}

type stubAccess struct {
	access *model.Access
	err    error
}

func (s stubAccess) Resolve(context.Context, model.AuthUser) (*model.Access, error) {
	return s.access, s.err
}

func decode(t *testing.T, w *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	claims := &model.TokenClaims{TokenID: "jti", UserID: uuid.New(), Username: "ana", Roles: []string{model.RoleRRHH}}

	tests := []struct {
		name   string
		header string
		tokens stubTokens
		want   int
	}{
		{"missing header", "", stubTokens{claims: claims}, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", stubTokens{claims: claims}, http.StatusUnauthorized},
		{"empty token", "Bearer ", stubTokens{claims: claims}, http.StatusUnauthorized},
		{"invalid token", "Bearer bad", stubTokens{claims: claims}, http.StatusUnauthorized},
		{"expired token", "Bearer good", stubTokens{err: auth.ErrExpiredToken}, http.StatusUnauthorized},
		{"revoked token", "Bearer good", stubTokens{err: authsvc.ErrTokenRevoked}, http.StatusUnauthorized},
		{"denylist down", "Bearer good", stubTokens{err: errors.New("redis down")}, http.StatusInternalServerError},
		{"valid", "bearer good", stubTokens{claims: claims}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAuthMiddleware(tt.tokens, stubAccess{})
			r := gin.New()
			r.GET("/me", m.Authenticate(), func(c *gin.Context) {
				user, ok := handler.CurrentUser(c)
				require.True(t, ok)
				got, ok := handler.CurrentClaims(c)
				require.True(t, ok)
				assert.Equal(t, claims, got)
				c.JSON(http.StatusOK, user)
			})

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				var user model.AuthUser
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
				assert.Equal(t, claims.UserID, user.ID)
				assert.Equal(t, claims.Roles, user.Roles)
			}
		})
	}
}

func TestRequireRoute(t *testing.T) {
	withUser := func(c *gin.Context) {
		handler.SetAuth(c, &model.TokenClaims{}, model.AuthUser{ID: uuid.New()})
		c.Next()
	}
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }

	t.Run("allowed by any route", func(t *testing.T) {
		m := NewAuthMiddleware(stubTokens{}, stubAccess{access: &model.Access{AllowedRoutes: []string{access.RouteSesiones}}})
		r := gin.New()
		r.GET("/x", withUser, m.RequireRoute(access.RouteCitas, access.RouteSesiones), ok)

		w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("denied with redirect", func(t *testing.T) {
		m := NewAuthMiddleware(stubTokens{}, stubAccess{access: &model.Access{
			AllowedRoutes: []string{access.RouteDashboard, access.RouteFinanzas},
		}})
		r := gin.New()
		r.GET("/x", withUser, m.RequireRoute(access.RouteUsuarios), ok)

		w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
		resp := decode(t, w)
		assert.Equal(t, MsgRouteDenied, resp.Message)
		assert.Equal(t, map[string]any{"redirect": access.RouteDashboard}, resp.Details)
	})

	t.Run("resolution failure", func(t *testing.T) {
		m := NewAuthMiddleware(stubTokens{}, stubAccess{err: errors.New("boom")})
		r := gin.New()
		r.GET("/x", withUser, m.RequireRoute(access.RouteCitas), ok)

		w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("no caller", func(t *testing.T) {
		m := NewAuthMiddleware(stubTokens{}, stubAccess{access: &model.Access{AllRoutes: true}})
		r := gin.New()
		r.GET("/x", m.RequireRoute(access.RouteCitas), ok)

		w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRateLimitPerClient(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RPS: 0.001, Burst: 1})
	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	request := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = ip + ":1234"
		return serve(r, req).Code
	}

	assert.Equal(t, http.StatusNoContent, request("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, request("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, request("10.0.0.2"))
}

func TestRequestIDAndRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(HeaderXRequestID, "abc-123")
	w := serve(r, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderXRequestID))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	rid := w.Header().Get(HeaderXRequestID)
	assert.NotEmpty(t, rid)
	assert.Equal(t, map[string]any{"requestId": rid}, decode(t, w).Details)
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(TimeoutConfig{Duration: 20 * time.Millisecond}))
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	r.GET("/fast", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusGatewayTimeout, serve(r, httptest.NewRequest(http.MethodGet, "/slow", nil)).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, httptest.NewRequest(http.MethodGet, "/fast", nil)).Code)
}

func TestSizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(SizeLimit(SizeLimitConfig{MaxBodySize: 8, MaxHeaderSize: 1 << 10}))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := serve(r, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("small")))
	assert.Equal(t, http.StatusNoContent, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("X-Big", strings.Repeat("a", 2<<10))
	assert.Equal(t, http.StatusRequestHeaderFieldsTooLarge, serve(r, req).Code)
}

func TestErrorHandlerAnswersAttachedErrors(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/x", func(c *gin.Context) {
		_ = c.Error(errors.New("hidden detail"))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decode(t, w).Message)
}

func TestHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(DefaultSecurityConfig()), NoStore(), APIVersion("1.0"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "1.0", w.Header().Get(HeaderAPIVersion))
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS(DefaultCORSConfig()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:4200", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)
}

func TestMetrics(t *testing.T) {
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	serve(r, httptest.NewRequest(http.MethodGet, "/items/1", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/items/2", nil))

	var metric dto.Metric
	require.NoError(t, m.RequestsTotal.WithLabelValues(http.MethodGet, "/items/:id", "204").Write(&metric))
	assert.Equal(t, float64(2), metric.GetCounter().GetValue())
}
