package blockjack

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	J = Jack
	Q = Queen
	K = King
	A = Ace
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) take() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

func (r *recorder) states() []State {
	var out []State
	for _, ev := range r.take() {
		if ev.Kind == EventStateChanged {
			out = append(out, ev.State)
		}
	}
	return out
}

func quietLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

func newNaive(t *testing.T) (*Engine[Card], *recorder) {
	t.Helper()
	rec := &recorder{}
	e := NewEngine[Card]("naive", NewMemoryStore[Card](), PlainResolver{}, PlainCodec{}, NaiveRules,
		WithNotifier(rec),
		WithPlanting(true),
		WithLogger(quietLogger()),
		WithRand(NewSeededRand([]byte(t.Name()))),
	)
	return e, rec
}

func plantAndCreate(t *testing.T, e *Engine[Card], key string, cards ...Card) *Record[Card] {
	t.Helper()
	ctx := context.Background()
	_, err := e.PlantDeck(ctx, key, cards)
	require.NoError(t, err)
	game, err := e.CreateGame(ctx, key)
	require.NoError(t, err)
	return game
}

func TestNaiveCreateGame(t *testing.T) {
	e, events := newNaive(t)

	game := plantAndCreate(t, e, "bob", 0, 0, 0, 0, 9, 8, 7, 6)

	assert.Equal(t, []Card{6, 7}, game.Player)
	assert.Equal(t, []Card{8, 9}, game.Dealer)
	assert.Equal(t, Waiting, game.State)

	evs := events.take()
	require.Len(t, evs, 3)
	assert.Equal(t, EventCardsChangedForPlayer, evs[0].Kind)
	assert.Equal(t, []Card{6, 7}, evs[0].Cards)
	assert.Equal(t, EventCardsChangedForDealer, evs[1].Kind)
	assert.Equal(t, []Card{8, 9}, evs[1].Cards)
	assert.Equal(t, EventStateChanged, evs[2].Kind)
	assert.Equal(t, Waiting, evs[2].State)
	assert.Equal(t, "bob", evs[2].Key)

	stored, err := e.GetGame(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, game.Player, stored.Player)
	assert.Equal(t, game.Dealer, stored.Dealer)
	assert.Equal(t, game.State, stored.State)
}

func TestNaiveCreateGameTwice(t *testing.T) {
	e, _ := newNaive(t)
	ctx := context.Background()

	plantAndCreate(t, e, "bob", 0, 0, 0, 0, 9, 8, 7, 6)
	plantAndCreate(t, e, "carol", 0, 0, 0, 0, 9, 8, 7, 6)

	before, err := e.GetGame(ctx, "bob")
	require.NoError(t, err)

	_, err = e.CreateGame(ctx, "bob")
	assert.ErrorIs(t, err, ErrIllegalState)

	after, err := e.GetGame(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, before, after, "rejected action must not mutate")
}

func TestNaiveFixtures(t *testing.T) {
	type action func(context.Context, *Engine[Card], string) (*Record[Card], error)
	hit := func(ctx context.Context, e *Engine[Card], k string) (*Record[Card], error) { return e.Hit(ctx, k) }
	stand := func(ctx context.Context, e *Engine[Card], k string) (*Record[Card], error) { return e.Stand(ctx, k) }

	tests := []struct {
		name    string
		deck    []Card
		actions []action
		player  []Card
		dealer  []Card
		state   State
	}{
		{"dealer busts", []Card{0, 0, 0, 9, 8, 7, 8, 7}, []action{stand}, []Card{7, 8}, []Card{7, 8, 9}, PlayerWins},
		{"dealer wins", []Card{0, 0, 0, 0, Q, J, 9, 8}, []action{stand}, []Card{8, 9}, []Card{J, Q}, DealerWins},
		{"dealer wins early", []Card{0, 0, 0, 0, A, K, 7, 6}, nil, []Card{6, 7}, []Card{K, A}, DealerWins},
		{"dealer wins late", []Card{0, 0, 0, 8, 7, 6, Q, J}, []action{stand}, []Card{J, Q}, []Card{6, 7, 8}, DealerWins},
		{"tie", []Card{0, 0, 0, 0, 9, 8, 9, 8}, []action{stand}, []Card{8, 9}, []Card{8, 9}, Tie},
		{"player busts", []Card{0, 0, 0, 9, 8, 7, 8, 7}, []action{hit}, []Card{7, 8, 9}, []Card{7, 8}, DealerWins},
		{"player wins", []Card{0, 0, 0, 0, 9, 8, Q, J}, []action{stand}, []Card{J, Q}, []Card{8, 9}, PlayerWins},
		{"player wins early", []Card{0, 0, 0, 0, 7, 6, A, K}, nil, []Card{K, A}, []Card{6, 7}, PlayerWins},
		{"player wins late", []Card{0, 0, 0, 8, Q, J, 7, 6}, []action{hit, stand}, []Card{6, 7, 8}, []Card{J, Q}, PlayerWins},
		{"both natural", []Card{0, 0, A, Q, K, A}, nil, []Card{A, K}, []Card{Q, A}, Tie},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newNaive(t)
			ctx := context.Background()

			game := plantAndCreate(t, e, "bob", tt.deck...)
			for _, act := range tt.actions {
				var err error
				game, err = act(ctx, e, "bob")
				require.NoError(t, err)
			}

			assert.Equal(t, tt.player, game.Player)
			assert.Equal(t, tt.dealer, game.Dealer)
			assert.Equal(t, tt.state, game.State)
		})
	}
}

func TestNaiveDealerBustEvents(t *testing.T) {
	e, events := newNaive(t)
	plantAndCreate(t, e, "bob", 0, 0, 0, 9, 8, 7, 8, 7)
	events.take()

	_, err := e.Stand(context.Background(), "bob")
	require.NoError(t, err)

	evs := events.take()
	require.Len(t, evs, 2)
	assert.Equal(t, EventCardsChangedForDealer, evs[0].Kind)
	assert.Equal(t, []Card{7, 8, 9}, evs[0].Cards)
	assert.Equal(t, EventStateChanged, evs[1].Kind)
	assert.Equal(t, PlayerWins, evs[1].State)
}

func TestNaiveEarlyWinSkipsWaiting(t *testing.T) {
	e, events := newNaive(t)
	plantAndCreate(t, e, "bob", 0, 0, 0, 0, A, K, 7, 6)

	assert.Equal(t, []State{DealerWins}, events.states())
}

func TestNaivePreconditions(t *testing.T) {
	e, _ := newNaive(t)
	ctx := context.Background()

	_, err := e.Hit(ctx, "bob")
	assert.ErrorIs(t, err, ErrIllegalState)
	_, err = e.Stand(ctx, "bob")
	assert.ErrorIs(t, err, ErrIllegalState)

	plantAndCreate(t, e, "bob", 0, 0, 0, 0, 9, 8, 7, 6)
	_, err = e.HitAsDealer(ctx, "bob")
	assert.ErrorIs(t, err, ErrIllegalState, "naive dealer draws on its own")

	_, err = e.Stand(ctx, "bob")
	require.NoError(t, err)
	_, err = e.Hit(ctx, "bob")
	assert.ErrorIs(t, err, ErrIllegalState)
}

func TestCreateAfterTerminalStartsNewGame(t *testing.T) {
	e, _ := newNaive(t)
	ctx := context.Background()

	first := plantAndCreate(t, e, "bob", 0, 0, 0, 0, A, K, 7, 6)
	require.Equal(t, DealerWins, first.State)

	second := plantAndCreate(t, e, "bob", 0, 0, 0, 0, 9, 8, 7, 6)
	assert.Equal(t, Waiting, second.State)
	assert.NotEqual(t, first.GameID, second.GameID)

	_, err := e.Stand(ctx, "bob")
	require.NoError(t, err)
}

func TestRepeatedOutcomeAnnouncesNewGame(t *testing.T) {
	e, events := newNaive(t)

	first := plantAndCreate(t, e, "bob", 0, 0, 0, 0, A, K, 7, 6)
	require.Equal(t, DealerWins, first.State)
	assert.Equal(t, []State{DealerWins}, events.states())

	second := plantAndCreate(t, e, "bob", 0, 0, 0, 0, A, K, 7, 6)
	require.Equal(t, DealerWins, second.State)
	assert.NotEqual(t, first.GameID, second.GameID)
	assert.Equal(t, []State{DealerWins}, events.states(), "every new game reports its state")
}

func TestDeleteGame(t *testing.T) {
	e, _ := newNaive(t)
	ctx := context.Background()

	require.NoError(t, e.DeleteGame(ctx, "nobody"), "delete is idempotent")

	plantAndCreate(t, e, "bob", 0, 0, 0, 0, 9, 8, 7, 6)
	require.NoError(t, e.DeleteGame(ctx, "bob"))
	require.NoError(t, e.DeleteGame(ctx, "bob"))

	game, err := e.GetGame(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, Uninitialized, game.State)
	assert.Empty(t, game.Player)
	assert.Empty(t, game.Dealer)

	_, err = e.CreateGame(ctx, "bob")
	assert.NoError(t, err)
}

func TestGetGameIsIdempotent(t *testing.T) {
	e, _ := newNaive(t)
	ctx := context.Background()
	plantAndCreate(t, e, "bob", 0, 0, 0, 0, 9, 8, 7, 6)

	a, err := e.GetGame(ctx, "bob")
	require.NoError(t, err)
	b, err := e.GetGame(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPlantingDisabled(t *testing.T) {
	e := NewEngine[Card]("naive", NewMemoryStore[Card](), PlainResolver{}, PlainCodec{}, NaiveRules, WithLogger(quietLogger()))

	_, err := e.PlantDeck(context.Background(), "bob", []Card{2, 3})
	assert.ErrorIs(t, err, ErrPlantingDisabled)
}

func TestPlantRejectsInvalidCards(t *testing.T) {
	e, _ := newNaive(t)
	ctx := context.Background()

	for _, deck := range [][]Card{{2, 99}, {1, 1, 1, 1}, {9, 0, 8, 7, 6}} {
		_, err := e.PlantDeck(ctx, "bob", deck)
		assert.ErrorIs(t, err, ErrInvalidCard, "deck %v", deck)
	}

	game, err := e.GetGame(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, game.Planted)
}

func TestPlantedFillerIsNeverDealt(t *testing.T) {
	e, _ := newNaive(t)
	ctx := context.Background()

	_, err := e.PlantDeck(ctx, "bob", []Card{0, 0, 0, 0})
	require.NoError(t, err)

	_, err = e.CreateGame(ctx, "bob")
	assert.ErrorIs(t, err, ErrEmptyDeck)

	game, err := e.GetGame(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, Uninitialized, game.State)
	assert.Empty(t, game.Player)
	assert.Empty(t, game.Dealer)
}

func TestDealingStoredInvalidCardFails(t *testing.T) {
	store := NewMemoryStore[Card]()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, &Record[Card]{
		Key:     "bob",
		State:   Uninitialized,
		Deck:    Deck[Card]{Cards: []Card{1, 1, 1, 1}},
		Planted: true,
	}))

	e := NewEngine[Card]("naive", store, PlainResolver{}, PlainCodec{}, NaiveRules, WithLogger(quietLogger()))
	_, err := e.CreateGame(ctx, "bob")
	assert.ErrorIs(t, err, ErrInvalidCard)

	game, err := e.GetGame(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, Uninitialized, game.State)
	assert.Empty(t, game.Player)
}

func TestEmptyDeckFailsLoudly(t *testing.T) {
	e, _ := newNaive(t)
	ctx := context.Background()

	_, err := e.PlantDeck(ctx, "bob", []Card{9, 8, 7})
	require.NoError(t, err)

	_, err = e.CreateGame(ctx, "bob")
	assert.ErrorIs(t, err, ErrEmptyDeck)

	game, err := e.GetGame(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, Uninitialized, game.State)
}

func TestConcurrentKeysAreIndependent(t *testing.T) {
	e, _ := newNaive(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("player-%d", i)
			if _, err := e.CreateGame(ctx, key); err != nil {
				errs <- err
				return
			}
			if err := e.DeleteGame(ctx, key); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestSameKeyIsSerialized(t *testing.T) {
	e, _ := newNaive(t)
	ctx := context.Background()

	_, err := e.PlantDeck(ctx, "bob", []Card{0, 0, 0, 0, 9, 8, 7, 6})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.CreateGame(ctx, "bob"); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)

	game, err := e.GetGame(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, Waiting, game.State)
	assert.Equal(t, int64(2), game.Version)
}
