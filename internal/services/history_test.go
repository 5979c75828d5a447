package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockjack-backend/internal/blockjack"
	"blockjack-backend/internal/models"
	"blockjack-backend/internal/services"
)

func finished(player, gameID string, state blockjack.State) blockjack.Event {
	return blockjack.Event{
		Kind:    blockjack.EventStateChanged,
		Variant: "naive",
		Key:     player,
		GameID:  gameID,
		State:   state,
		At:      time.Now(),
	}
}

func TestHistoryRecorderNeverBlocksNotify(t *testing.T) {
	redisService, _ := setupTestRedis(t)
	history := services.NewHistoryRecorder(redisService, quietLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			history.Notify(context.Background(), finished("0xabc", fmt.Sprintf("g%d", i), blockjack.Tie))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked without a running writer")
	}
}

func TestHistoryRecorderWritesQueuedGames(t *testing.T) {
	redisService, _ := setupTestRedis(t)
	history := services.NewHistoryRecorder(redisService, quietLogger())
	ctx := context.Background()

	history.Notify(ctx, finished("0xabc", "g1", blockjack.DealerWins))
	history.Notify(ctx, finished("0xabc", "g2", blockjack.DealerWins))
	history.Notify(ctx, finished("0xabc", "g3", blockjack.Waiting))
	history.Notify(ctx, blockjack.Event{Kind: blockjack.EventCardsChangedForPlayer, Key: "0xabc", GameID: "g4"})

	runCtx, cancel := context.WithCancel(ctx)
	cancel()
	history.Run(runCtx)

	games, err := redisService.GetGameHistory(ctx, "0xabc", 10)
	require.NoError(t, err)
	require.Len(t, games, 2, "only terminal states are recorded")
	ids := []string{games[0].GameID, games[1].GameID}
	assert.ElementsMatch(t, []string{"g1", "g2"}, ids)
	assert.Equal(t, models.Variant("naive"), games[0].Variant)
}

func TestRepeatedOutcomesAreBothRecorded(t *testing.T) {
	g := setupGameService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := g.svc.PlantDeck(ctx, models.VariantNaive, "0xabc", []blockjack.Card{0, 0, 0, 0, blockjack.Ace, blockjack.King, 7, 6})
		require.NoError(t, err)
		view, err := g.svc.Act(ctx, models.VariantNaive, "0xabc", services.ActionCreate)
		require.NoError(t, err)
		require.Equal(t, blockjack.DealerWins, view.State)
	}

	games := g.history(t, "0xabc", 2)
	assert.NotEqual(t, games[0].GameID, games[1].GameID)
}
