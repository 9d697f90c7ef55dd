package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"interview-backend/internal/apidocs"
	"interview-backend/internal/interview"
	"interview-backend/internal/resumes"
	"interview-backend/internal/services/health"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/shared/metrics"
	"interview-backend/internal/shared/server/middleware"
	"interview-backend/internal/shared/server/respond"
)

// Rate limit groups.
const (
	groupDefault = "DEFAULT"
	groupSpeech  = "SPEECH"
	groupPolling = "POLLING"
	groupProbe   = "PROBE"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config      config.Config
	Interview   *interview.Handler
	Resumes     *resumes.Handler
	Health      *health.Service
	RateLimiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: groupDefault,
			GroupFor:     rateLimitGroup,
			Limiter:      deps.RateLimiter,
			Rules: map[string]middleware.RateLimitRule{
				groupDefault: {Rate: 5, Burst: 30},
				groupSpeech:  {Rate: 0.5, Burst: 10},
				groupPolling: {Rate: 10, Burst: 50},
			},
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	apidocs.RegisterRoutes(api)
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"status": "healthy"})
			return
		}
		status, ok := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if !ok {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})
	if deps.Resumes != nil {
		deps.Resumes.RegisterRoutes(api)
	}
	if deps.Interview != nil {
		deps.Interview.RegisterRoutes(api)
	}

	return r
}

func rateLimitGroup(c *gin.Context) string {
	path := c.FullPath()
	switch {
	case path == "/api/docs" || path == "/api/health" || path == "/metrics":
		return groupProbe
	case c.Request.Method == http.MethodGet && (path == "/api/sessions/:id/stats" || path == "/api/sessions/:id" || path == "/api/sessions/:id/events"):
		return groupPolling
	case path == "/api/sessions/:id/answer" || path == "/api/tts" || strings.HasPrefix(path, "/api/sessions/:id/question"):
		return groupSpeech
	default:
		return groupDefault
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8000"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
