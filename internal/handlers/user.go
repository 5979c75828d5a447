package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"blockjack-backend/internal/middleware"
	"blockjack-backend/internal/models"
	"blockjack-backend/internal/services"
)

type SessionStore interface {
	StoreUserSession(ctx context.Context, session *models.UserSession, expiry time.Duration) error
	GetUserSession(ctx context.Context, playerID, sessionID string) (*models.UserSession, error)
	DeleteUserSession(ctx context.Context, playerID, sessionID string) error
}

type AuthHandler struct {
	sessions   SessionStore
	jwtService *services.JWTService
	log        logrus.FieldLogger
}

func NewAuthHandler(sessions SessionStore, jwtService *services.JWTService, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{sessions: sessions, jwtService: jwtService, log: log.WithField("component", "auth")}
}

// IssueToken opens a session for a player address. Proving ownership of
// the address is left to the gateway in front of this service.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req models.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	player, err := models.NormalizePlayer(req.Player)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid player", "details": err.Error()})
		return
	}

	now := time.Now()
	session := &models.UserSession{
		PlayerID:     player,
		SessionID:    models.GenerateSessionID(),
		CreatedAt:    now,
		LastAccessed: now,
	}
	if err := h.sessions.StoreUserSession(c.Request.Context(), session, h.jwtService.TTL()); err != nil {
		h.log.WithError(err).Error("failed to store session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	token, err := h.jwtService.GenerateToken(player, session.SessionID)
	if err != nil {
		h.log.WithError(err).Error("failed to sign token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, models.TokenResponse{
		Token:     token,
		Player:    player,
		SessionID: session.SessionID,
		ExpiresAt: now.Add(h.jwtService.TTL()),
	})
}

type UserHandler struct {
	sessions SessionStore
}

func NewUserHandler(sessions SessionStore) *UserHandler {
	return &UserHandler{sessions: sessions}
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	playerID := c.GetString(middleware.ContextPlayerID)
	sessionID := c.GetString(middleware.ContextSessionID)

	session, err := h.sessions.GetUserSession(c.Request.Context(), playerID, sessionID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired or invalid"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"player": session.PlayerID,
		"session": gin.H{
			"session_id":    session.SessionID,
			"created_at":    session.CreatedAt,
			"last_accessed": session.LastAccessed,
		},
	})
}

func (h *UserHandler) Logout(c *gin.Context) {
	playerID := c.GetString(middleware.ContextPlayerID)
	sessionID := c.GetString(middleware.ContextSessionID)

	if err := h.sessions.DeleteUserSession(c.Request.Context(), playerID, sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}
