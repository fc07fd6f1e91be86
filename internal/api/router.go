package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/attendance-tracker-api/internal/config"
	"github.com/attendance-tracker-api/internal/models"
	"github.com/attendance-tracker-api/internal/service"
	"github.com/attendance-tracker-api/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	sessionHeader = "X-Session-ID"
	scopeKey      = "scope"
)

// HealthChecker reports whether a storage dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewRouter creates and configures the Gin router.
// db may be nil when the storage backend has no connection to check.
func NewRouter(services *service.Services, sessions *session.Manager, db HealthChecker, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	// Handlers
	attendanceHandler := NewAttendanceHandler(services, log)
	sessionHandler := NewSessionHandler(sessions, cfg, log)

	// Health check
	router.GET("/health", healthCheck(db, log))

	v1 := router.Group("/v1")
	{
		sessionsGroup := v1.Group("/sessions")
		{
			sessionsGroup.POST("", sessionHandler.Login)
			sessionsGroup.DELETE("", sessionHandler.Logout)
		}

		attendance := v1.Group("/attendance")
		attendance.Use(scopeMiddleware(sessions, cfg.Attendance.MultiUser()))
		{
			attendance.GET("", attendanceHandler.List)
			attendance.POST("", attendanceHandler.Mark)
			attendance.DELETE("", attendanceHandler.Delete)
			attendance.DELETE("/all", attendanceHandler.Clear)
			attendance.GET("/export", attendanceHandler.Export)
			attendance.GET("/summary", attendanceHandler.Summary)
		}
	}

	return router
}

// healthCheck returns the health status, including the database when there is one
func healthCheck(db HealthChecker, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "attendance-tracker",
		}
		if db == nil {
			c.JSON(http.StatusOK, body)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			log.Error().Err(err).Msg("Database health check failed")
			body["status"] = "unhealthy"
			body["database"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["database"] = "ok"
		c.JSON(http.StatusOK, body)
	}
}

// scopeMiddleware attaches the table scope to the request.
// In single-table mode every caller shares the global scope.
func scopeMiddleware(sessions *session.Manager, multiUser bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !multiUser {
			c.Set(scopeKey, models.GlobalScope)
			c.Next()
			return
		}

		id := c.GetHeader(sessionHeader)
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "please log in with your email first"})
			return
		}
		s, err := sessions.Get(id)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired or unknown, please log in again"})
			return
		}

		c.Set(scopeKey, s.Scope)
		c.Next()
	}
}

func scopeFrom(c *gin.Context) models.Scope {
	return c.MustGet(scopeKey).(models.Scope)
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+sessionHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// errorStatus maps service errors onto HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidEmail):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrSessionNotFound):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
