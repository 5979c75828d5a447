package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"blockjack-backend/internal/blockjack"
	"blockjack-backend/internal/models"
)

const historyQueueSize = 256

// HistoryRecorder stores every game that reaches a terminal state. Notify
// only queues the game; Run writes it to Redis.
type HistoryRecorder struct {
	redis *RedisService
	queue chan *models.FinishedGame
	log   logrus.FieldLogger
}

func NewHistoryRecorder(redis *RedisService, log logrus.FieldLogger) *HistoryRecorder {
	return &HistoryRecorder{
		redis: redis,
		queue: make(chan *models.FinishedGame, historyQueueSize),
		log:   log.WithField("component", "history"),
	}
}

func (h *HistoryRecorder) Notify(_ context.Context, ev blockjack.Event) {
	if ev.Kind != blockjack.EventStateChanged || !ev.State.Terminal() {
		return
	}

	game := &models.FinishedGame{
		GameID:     ev.GameID,
		Variant:    models.Variant(ev.Variant),
		Player:     ev.Key,
		Outcome:    ev.State,
		FinishedAt: ev.At,
	}
	select {
	case h.queue <- game:
	default:
		h.log.WithFields(logrus.Fields{"player": ev.Key, "game_id": ev.GameID}).
			Warn("history queue full, dropping finished game")
	}
}

// Run writes queued games until ctx is cancelled, then flushes what is
// already queued.
func (h *HistoryRecorder) Run(ctx context.Context) {
	writeCtx := context.WithoutCancel(ctx)
	for {
		select {
		case game := <-h.queue:
			h.record(writeCtx, game)
		case <-ctx.Done():
			for {
				select {
				case game := <-h.queue:
					h.record(writeCtx, game)
				default:
					return
				}
			}
		}
	}
}

func (h *HistoryRecorder) record(ctx context.Context, game *models.FinishedGame) {
	if err := h.redis.RecordFinishedGame(ctx, game); err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{"player": game.Player, "game_id": game.GameID}).
			Error("failed to record finished game")
	}
}
