package confidential

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockjack-backend/internal/blockjack"
)

func quietLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

type secureGame struct {
	engine *blockjack.Engine[Ciphertext]
	oracle *Oracle
}

func newSecureGame(t *testing.T) *secureGame {
	t.Helper()
	kp := GenerateKeyPair()
	oracle := NewOracle(kp)
	bridge := NewLocalBridge(oracle, 16, quietLogger())

	engine := blockjack.NewEngine[Ciphertext]("secure",
		blockjack.NewMemoryStore[Ciphertext](),
		NewBridgeResolver(bridge),
		NewSealer(kp.Public),
		blockjack.SecureRules,
		blockjack.WithPlanting(true),
		blockjack.WithLogger(quietLogger()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = bridge.Run(ctx, engine.Resume)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &secureGame{engine: engine, oracle: oracle}
}

// settled waits for the bridge to move the record out of Checking.
func (g *secureGame) settled(t *testing.T) *blockjack.Record[Ciphertext] {
	t.Helper()
	var rec *blockjack.Record[Ciphertext]
	require.Eventually(t, func() bool {
		var err error
		rec, err = g.engine.GetGame(context.Background(), "bob")
		return err == nil && rec.State != blockjack.Checking
	}, 2*time.Second, 5*time.Millisecond)
	return rec
}

func (g *secureGame) open(t *testing.T, cts []Ciphertext) []blockjack.Card {
	t.Helper()
	cards, err := g.oracle.Reveal(context.Background(), cts)
	require.NoError(t, err)
	return cards
}

func TestLocalBridgeFullGame(t *testing.T) {
	g := newSecureGame(t)
	ctx := context.Background()

	_, err := g.engine.PlantDeck(ctx, "bob", []blockjack.Card{8, blockjack.Queen, blockjack.Jack, 7, 6})
	require.NoError(t, err)

	rec, err := g.engine.CreateGame(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, blockjack.Checking, rec.State)
	assert.Len(t, rec.Player, 2)

	rec = g.settled(t)
	require.Equal(t, blockjack.WaitingForPlayer, rec.State)
	assert.Equal(t, []blockjack.Card{6, 7}, g.open(t, rec.Player))
	assert.Equal(t, []blockjack.Card{blockjack.Jack, blockjack.Queen}, g.open(t, rec.Dealer))

	_, err = g.engine.HitAsPlayer(ctx, "bob")
	require.NoError(t, err)
	rec = g.settled(t)
	require.Equal(t, blockjack.WaitingForPlayer, rec.State)

	_, err = g.engine.Stand(ctx, "bob")
	require.NoError(t, err)
	rec = g.settled(t)
	assert.Equal(t, blockjack.PlayerWins, rec.State)
	assert.Equal(t, []blockjack.Card{6, 7, 8}, g.open(t, rec.Player))
}

func TestLocalBridgeDealerTurn(t *testing.T) {
	g := newSecureGame(t)
	ctx := context.Background()

	_, err := g.engine.PlantDeck(ctx, "bob", []blockjack.Card{9, 8, 7, 8, 7})
	require.NoError(t, err)
	_, err = g.engine.CreateGame(ctx, "bob")
	require.NoError(t, err)
	g.settled(t)

	_, err = g.engine.Stand(ctx, "bob")
	require.NoError(t, err)
	rec := g.settled(t)
	require.Equal(t, blockjack.WaitingForDealer, rec.State)

	_, err = g.engine.HitAsDealer(ctx, "bob")
	require.NoError(t, err)
	rec = g.settled(t)
	assert.Equal(t, blockjack.DealerBusts, rec.State)
}

func TestLocalBridgeBusy(t *testing.T) {
	bridge := NewLocalBridge(NewOracle(GenerateKeyPair()), 1, quietLogger())

	require.NoError(t, bridge.Submit(context.Background(), Request{Key: "a"}))
	assert.ErrorIs(t, bridge.Submit(context.Background(), Request{Key: "b"}), ErrBridgeBusy)
}

func TestLocalBridgeDropsUnreadableRequests(t *testing.T) {
	bridge := NewLocalBridge(NewOracle(GenerateKeyPair()), 4, quietLogger())
	delivered := make(chan blockjack.Verdict, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = bridge.Run(ctx, func(_ context.Context, v blockjack.Verdict) error {
			delivered <- v
			return nil
		})
	}()

	require.NoError(t, bridge.Submit(ctx, Request{Key: "bad", Player: []Ciphertext{"zz"}}))
	require.NoError(t, bridge.Submit(ctx, Request{Key: "good", Seq: 7}))

	select {
	case v := <-delivered:
		assert.Equal(t, "good", v.Key)
		assert.Equal(t, uint64(7), v.Seq)
	case <-time.After(2 * time.Second):
		t.Fatal("no verdict delivered")
	}
}

type failingBridge struct{}

func (failingBridge) Submit(context.Context, Request) error { return errors.New("offline") }

func TestBridgeResolverPropagatesSubmitErrors(t *testing.T) {
	kp := GenerateKeyPair()
	engine := blockjack.NewEngine[Ciphertext]("secure",
		blockjack.NewMemoryStore[Ciphertext](),
		NewBridgeResolver(failingBridge{}),
		NewSealer(kp.Public),
		blockjack.SecureRules,
		blockjack.WithLogger(quietLogger()),
	)

	_, err := engine.CreateGame(context.Background(), "bob")
	require.Error(t, err)

	rec, err := engine.GetGame(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, blockjack.Uninitialized, rec.State)
}
