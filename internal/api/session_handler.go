package api

import (
	"net/http"

	"github.com/attendance-tracker-api/internal/config"
	"github.com/attendance-tracker-api/internal/models"
	"github.com/attendance-tracker-api/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SessionHandler handles the email login gate
type SessionHandler struct {
	sessions *session.Manager
	cfg      *config.Config
	log      zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessions *session.Manager, cfg *config.Config, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		cfg:      cfg,
		log:      log.With().Str("handler", "session").Logger(),
	}
}

// Login handles POST /v1/sessions
func (h *SessionHandler) Login(c *gin.Context) {
	if !h.cfg.Attendance.MultiUser() {
		c.JSON(http.StatusNotFound, gin.H{"error": "sessions are disabled in global mode"})
		return
	}

	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	s, err := h.sessions.Create(req.Email)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": "please enter a valid email"})
		return
	}

	c.JSON(http.StatusCreated, s)
}

// Logout handles DELETE /v1/sessions
func (h *SessionHandler) Logout(c *gin.Context) {
	if id := c.GetHeader(sessionHeader); id != "" {
		h.sessions.Delete(id)
	}
	c.Status(http.StatusNoContent)
}
