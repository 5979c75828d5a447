package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"blockjack-backend/internal/middleware"
	"blockjack-backend/internal/services"
)

type RouterConfig struct {
	Games           *services.GameService
	Redis           *services.RedisService
	JWT             *services.JWTService
	Hub             *WebSocketHub
	Log             logrus.FieldLogger
	RateLimit       int
	RateLimitWindow time.Duration
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	authHandler := NewAuthHandler(cfg.Redis, cfg.JWT, cfg.Log)
	userHandler := NewUserHandler(cfg.Redis)
	gameHandler := NewGameHandler(cfg.Games, cfg.Log)
	wsHandler := NewWebSocketHandler(cfg.Hub, cfg.Games, cfg.Log)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(cfg.Log), middleware.CORS())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/auth/token", authHandler.IssueToken)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(cfg.JWT, cfg.Redis))
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.POST("/logout", userHandler.Logout)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		games := protected.Group("/games")
		games.Use(middleware.RateLimitMiddleware(cfg.Redis, cfg.RateLimit, cfg.RateLimitWindow))
		gameHandler.Register(games)
	}

	return router
}
