package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"interview-backend/internal/shared/metrics"
	"interview-backend/internal/shared/telemetry"
)

// Context keys handlers set so the request log can correlate.
const (
	SessionIDKey       = "sessionId"
	ResumeIDKey        = "resumeId"
	StateTransitionKey = "stateTransition"
)

// Logging emits a structured log per request and records request metrics.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.ObserveRequest(c.Request.Method, route, status, latency)

		// The health probe fires every 30s; keep it out of the info stream.
		if route == "/api/docs" && status < http.StatusBadRequest {
			return
		}

		telemetry.Info("request.complete", map[string]any{
			"request_id":       RequestIDFromContext(c),
			"method":           c.Request.Method,
			"path":             c.Request.URL.Path,
			"route":            route,
			"status":           status,
			"state_transition": c.GetString(StateTransitionKey),
			"duration_ms":      float64(latency.Microseconds()) / 1000.0,
			"session_id":       c.GetString(SessionIDKey),
			"resume_id":        c.GetString(ResumeIDKey),
			"client_ip":        c.ClientIP(),
			"user_agent":       c.Request.UserAgent(),
		})
	}
}
