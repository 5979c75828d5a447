package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockjack-backend/internal/blockjack"
	"blockjack-backend/internal/services"
)

func TestRedisGameStoreCompareAndSwap(t *testing.T) {
	redisService, _ := setupTestRedis(t)
	store := services.NewRedisGameStore[blockjack.Card](redisService.Client(), "naive")
	ctx := context.Background()

	got, err := store.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, got)

	rec := &blockjack.Record[blockjack.Card]{
		Key:    "bob",
		GameID: "g1",
		Player: []blockjack.Card{6, 7},
		Dealer: []blockjack.Card{8, 9},
		State:  blockjack.Waiting,
	}
	require.NoError(t, store.Put(ctx, rec))
	assert.Equal(t, int64(1), rec.Version)

	stale := &blockjack.Record[blockjack.Card]{Key: "bob", State: blockjack.Tie}
	assert.ErrorIs(t, store.Put(ctx, stale), blockjack.ErrConflict)
	assert.Equal(t, int64(0), stale.Version, "failed writes leave the version alone")

	got, err = store.Get(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, blockjack.Waiting, got.State)
	assert.Equal(t, []blockjack.Card{6, 7}, got.Player)

	got.State = blockjack.PlayerWins
	require.NoError(t, store.Put(ctx, got))
	assert.Equal(t, int64(2), got.Version)

	require.NoError(t, store.Delete(ctx, "bob"))
	got, err = store.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisGameStoreSeparatesVariants(t *testing.T) {
	redisService, _ := setupTestRedis(t)
	naive := services.NewRedisGameStore[blockjack.Card](redisService.Client(), "naive")
	secure := services.NewRedisGameStore[blockjack.Card](redisService.Client(), "secure")
	ctx := context.Background()

	require.NoError(t, naive.Put(ctx, &blockjack.Record[blockjack.Card]{Key: "bob", State: blockjack.Waiting}))

	got, err := secure.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEngineOverRedisStore(t *testing.T) {
	redisService, _ := setupTestRedis(t)
	engine := blockjack.NewEngine[blockjack.Card]("naive",
		services.NewRedisGameStore[blockjack.Card](redisService.Client(), "naive"),
		blockjack.PlainResolver{}, blockjack.PlainCodec{}, blockjack.NaiveRules,
		blockjack.WithPlanting(true),
		blockjack.WithLogger(quietLogger()),
	)
	ctx := context.Background()

	_, err := engine.PlantDeck(ctx, "bob", []blockjack.Card{0, 0, 0, 9, 8, 7, 8, 7})
	require.NoError(t, err)
	_, err = engine.CreateGame(ctx, "bob")
	require.NoError(t, err)

	game, err := engine.Stand(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, blockjack.PlayerWins, game.State)
	assert.Equal(t, []blockjack.Card{7, 8, 9}, game.Dealer)

	stored, err := engine.GetGame(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, game.Dealer, stored.Dealer)
	assert.Equal(t, game.Version, stored.Version)
}
