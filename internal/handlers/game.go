package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"blockjack-backend/internal/blockjack"
	"blockjack-backend/internal/confidential"
	"blockjack-backend/internal/middleware"
	"blockjack-backend/internal/models"
	"blockjack-backend/internal/services"
)

type GameHandler struct {
	games *services.GameService
	log   logrus.FieldLogger
}

func NewGameHandler(games *services.GameService, log logrus.FieldLogger) *GameHandler {
	return &GameHandler{games: games, log: log.WithField("component", "game-handler")}
}

func (h *GameHandler) Register(r gin.IRoutes) {
	r.GET("/history", h.GetHistory)
	r.GET("/secure/cards", h.RevealCards)

	r.POST("/:variant", h.CreateGame)
	r.GET("/:variant", h.GetGame)
	r.DELETE("/:variant", h.DeleteGame)
	r.POST("/:variant/hit", h.Hit)
	r.POST("/:variant/dealer/hit", h.DealerHit)
	r.POST("/:variant/stand", h.Stand)
	r.POST("/:variant/deck", h.PlantDeck)
}

func (h *GameHandler) CreateGame(c *gin.Context) { h.act(c, services.ActionCreate) }

func (h *GameHandler) Hit(c *gin.Context) { h.act(c, services.ActionHit) }

func (h *GameHandler) DealerHit(c *gin.Context) { h.act(c, services.ActionDealerHit) }

func (h *GameHandler) Stand(c *gin.Context) { h.act(c, services.ActionStand) }

func (h *GameHandler) act(c *gin.Context, action services.Action) {
	variant, ok := h.variant(c)
	if !ok {
		return
	}
	view, err := h.games.Act(c.Request.Context(), variant, playerID(c), action)
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusOK
	if view.Checking {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"success": true, "game": view})
}

func (h *GameHandler) GetGame(c *gin.Context) {
	variant, ok := h.variant(c)
	if !ok {
		return
	}
	view, err := h.games.Get(c.Request.Context(), variant, playerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": view})
}

func (h *GameHandler) DeleteGame(c *gin.Context) {
	variant, ok := h.variant(c)
	if !ok {
		return
	}
	if err := h.games.Delete(c.Request.Context(), variant, playerID(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *GameHandler) PlantDeck(c *gin.Context) {
	variant, ok := h.variant(c)
	if !ok {
		return
	}

	var req models.PlantDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	cards, err := models.ParseCards(req.Cards)
	if err != nil {
		h.respondError(c, err)
		return
	}

	view, err := h.games.PlantDeck(c.Request.Context(), variant, playerID(c), cards)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "game": view})
}

func (h *GameHandler) RevealCards(c *gin.Context) {
	view, err := h.games.Reveal(c.Request.Context(), playerID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": view})
}

func (h *GameHandler) GetHistory(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)

	games, err := h.games.History(c.Request.Context(), playerID(c), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games, "count": len(games)})
}

func (h *GameHandler) respondError(c *gin.Context, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("player", playerID(c)).Error("game request failed")
	}
	c.JSON(status, gin.H{
		"error":   msg,
		"details": err.Error(),
	})
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, blockjack.ErrIllegalState):
		return http.StatusConflict, "Illegal state"
	case errors.Is(err, blockjack.ErrConflict):
		return http.StatusConflict, "Game changed concurrently, retry"
	case errors.Is(err, blockjack.ErrPlantingDisabled):
		return http.StatusForbidden, "Deck planting is disabled"
	case errors.Is(err, blockjack.ErrInvalidCard):
		return http.StatusBadRequest, "Invalid card"
	case errors.Is(err, services.ErrUnknownVariant):
		return http.StatusNotFound, "Unknown game variant"
	case errors.Is(err, services.ErrNoGame):
		return http.StatusNotFound, "No game in progress"
	case errors.Is(err, confidential.ErrBridgeBusy):
		return http.StatusServiceUnavailable, "Bridge busy, retry"
	case errors.Is(err, blockjack.ErrEmptyDeck):
		return http.StatusInternalServerError, "Deck exhausted"
	}
	return http.StatusInternalServerError, "Internal error"
}

// variant reads the :variant path parameter and answers 404 for anything
// but naive or secure.
func (h *GameHandler) variant(c *gin.Context) (models.Variant, bool) {
	v := models.Variant(c.Param("variant"))
	if !v.Valid() {
		h.respondError(c, fmt.Errorf("%w: %q", services.ErrUnknownVariant, v))
		return "", false
	}
	return v, true
}

func playerID(c *gin.Context) string {
	return c.GetString(middleware.ContextPlayerID)
}
