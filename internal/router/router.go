package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-dashboard-api/internal/middleware"
	"github.com/jwalitptl/clinic-dashboard-api/internal/service/access"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/metrics"
)

const APIVersion = "1.0"

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// SessionHandler mounts public and token-protected routes itself.
type SessionHandler interface {
	RegisterRoutes(r *gin.RouterGroup, authenticate gin.HandlerFunc)
}

type Handlers struct {
	Health      Handler
	Metrics     Handler
	Auth        SessionHandler
	Appointment Handler
	Staff       Handler
	Patient     Handler
	User        Handler
}

type RouterConfig struct {
	Mode           string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	RateLimit      *middleware.RateLimiterConfig
	CORS           middleware.CORSConfig
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, m *metrics.Metrics, config RouterConfig) (*Router, error) {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if err := middleware.RegisterValidators(); err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		middleware.Metrics(m),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORS),
	)

	sizeLimit := middleware.DefaultSizeLimitConfig()
	if config.MaxBodyBytes > 0 {
		sizeLimit.MaxBodySize = config.MaxBodyBytes
	}
	engine.Use(middleware.SizeLimit(sizeLimit))

	if config.RateLimit != nil {
		engine.Use(middleware.NewRateLimiter(*config.RateLimit).RateLimit())
	}

	return &Router{engine: engine, auth: auth, handlers: handlers}, nil
}

// Setup mounts every route under /api/v1.
func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")
	api.Use(middleware.APIVersion(APIVersion))

	r.handlers.Health.RegisterRoutes(api)
	r.handlers.Metrics.RegisterRoutes(api)

	data := api.Group("")
	data.Use(middleware.NoStore())
	r.handlers.Auth.RegisterRoutes(data, r.auth.Authenticate())

	protected := data.Group("")
	protected.Use(r.auth.Authenticate())
	r.handlers.Staff.RegisterRoutes(protected)
	r.handlers.Patient.RegisterRoutes(protected)

	scheduling := protected.Group("")
	scheduling.Use(r.auth.RequireRoute(access.RouteCitas, access.RouteSesiones))
	r.handlers.Appointment.RegisterRoutes(scheduling)

	admin := protected.Group("/admin")
	admin.Use(r.auth.RequireRoute(access.RouteUsuarios))
	r.handlers.User.RegisterRoutes(admin)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
