package blockjack

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// errStale aborts an update without writing anything.
var errStale = errors.New("stale verdict")

type options struct {
	notifier Notifier
	logger   logrus.FieldLogger
	planting bool
	rng      *rand.Rand
	now      func() time.Time
}

type Option func(*options)

func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.logger = l }
}

// WithPlanting enables PlantDeck. Only test and demo deployments turn it on.
func WithPlanting(enabled bool) Option {
	return func(o *options) { o.planting = enabled }
}

// WithRand sets the shuffle source.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Engine is the blockjack state machine. Operations on one key are
// serialized; operations on different keys run independently.
type Engine[C any] struct {
	variant  string
	store    Store[C]
	resolver Resolver[C]
	codec    Codec[C]
	rules    Rules

	notifier Notifier
	log      logrus.FieldLogger
	planting bool
	now      func() time.Time

	locks *keyLocks

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewEngine[C any](variant string, store Store[C], resolver Resolver[C], codec Codec[C], rules Rules, opts ...Option) *Engine[C] {
	o := options{
		notifier: nopNotifier{},
		logger:   logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = newTimeSeededRand()
	}

	return &Engine[C]{
		variant:  variant,
		store:    store,
		resolver: resolver,
		codec:    codec,
		rules:    rules,
		notifier: o.notifier,
		log:      o.logger.WithField("variant", variant),
		planting: o.planting,
		now:      o.now,
		locks:    newKeyLocks(),
		rng:      o.rng,
	}
}

func (e *Engine[C]) Variant() string { return e.variant }

// CreateGame deals two cards to the player and two to the dealer and
// evaluates naturals. The key must have no game in progress.
func (e *Engine[C]) CreateGame(ctx context.Context, key string) (*Record[C], error) {
	return e.update(ctx, key, func(rec *Record[C], tx *txn) error {
		if rec.State != Uninitialized && !rec.State.Terminal() {
			return fmt.Errorf("create game in state %s: %w", rec.State, ErrIllegalState)
		}

		if !rec.Planted {
			deck, err := e.freshDeck()
			if err != nil {
				return err
			}
			rec.Deck = deck
		}
		rec.Planted = false
		rec.GameID = uuid.NewString()
		rec.Player = []C{}
		rec.Dealer = []C{}
		rec.Seq = 0
		rec.Pending = nil
		rec.State = Uninitialized

		for i := 0; i < 2; i++ {
			if err := e.dealTo(rec, &rec.Player); err != nil {
				return err
			}
		}
		for i := 0; i < 2; i++ {
			if err := e.dealTo(rec, &rec.Dealer); err != nil {
				return err
			}
		}
		e.emitCards(tx, rec, EventCardsChangedForPlayer)
		e.emitCards(tx, rec, EventCardsChangedForDealer)

		return e.settle(ctx, rec, CheckOpening, tx)
	})
}

// Hit deals one card to the player and checks for a bust.
func (e *Engine[C]) Hit(ctx context.Context, key string) (*Record[C], error) {
	return e.update(ctx, key, func(rec *Record[C], tx *txn) error {
		if rec.State != e.rules.PlayerTurn {
			return fmt.Errorf("hit in state %s: %w", rec.State, ErrIllegalState)
		}
		if err := e.dealTo(rec, &rec.Player); err != nil {
			return err
		}
		e.emitCards(tx, rec, EventCardsChangedForPlayer)

		return e.settle(ctx, rec, CheckPlayer, tx)
	})
}

// HitAsPlayer is Hit under the secure variant's action name.
func (e *Engine[C]) HitAsPlayer(ctx context.Context, key string) (*Record[C], error) {
	return e.Hit(ctx, key)
}

// HitAsDealer deals one card to the dealer. Only engines without AutoDealer
// park in the dealer's turn.
func (e *Engine[C]) HitAsDealer(ctx context.Context, key string) (*Record[C], error) {
	return e.update(ctx, key, func(rec *Record[C], tx *txn) error {
		if e.rules.AutoDealer || rec.State != e.rules.DealerTurn {
			return fmt.Errorf("dealer hit in state %s: %w", rec.State, ErrIllegalState)
		}
		if err := e.dealTo(rec, &rec.Dealer); err != nil {
			return err
		}
		e.emitCards(tx, rec, EventCardsChangedForDealer)

		return e.settle(ctx, rec, CheckDealer, tx)
	})
}

// Stand ends the player's turn and hands over to the dealer.
func (e *Engine[C]) Stand(ctx context.Context, key string) (*Record[C], error) {
	return e.update(ctx, key, func(rec *Record[C], tx *txn) error {
		if rec.State != e.rules.PlayerTurn {
			return fmt.Errorf("stand in state %s: %w", rec.State, ErrIllegalState)
		}
		return e.settle(ctx, rec, CheckDealer, tx)
	})
}

// DeleteGame discards the key's record in any state, Checking included.
func (e *Engine[C]) DeleteGame(ctx context.Context, key string) error {
	unlock := e.locks.lock(key)
	defer unlock()

	rec, err := e.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load game: %w", err)
	}
	if rec == nil {
		return nil
	}
	if err := e.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete game: %w", err)
	}

	e.log.WithFields(logrus.Fields{"key": key, "game_id": rec.GameID, "state": rec.State}).Debug("game deleted")

	if rec.State != Uninitialized {
		e.notifier.Notify(ctx, Event{
			Kind:    EventStateChanged,
			Variant: e.variant,
			Key:     key,
			GameID:  rec.GameID,
			State:   Uninitialized,
			At:      e.now(),
		})
	}
	return nil
}

// GetGame returns the key's record, or an Uninitialized one when absent.
func (e *Engine[C]) GetGame(ctx context.Context, key string) (*Record[C], error) {
	rec, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	if rec == nil {
		return emptyRecord[C](key), nil
	}
	return rec, nil
}

// PlantDeck replaces the key's deck. The last card is dealt first.
func (e *Engine[C]) PlantDeck(ctx context.Context, key string, cards []Card) (*Record[C], error) {
	if !e.planting {
		return nil, ErrPlantingDisabled
	}

	// Leading zeros pad the bottom of a planted deck and are never dealt.
	for len(cards) > 0 && cards[0] == 0 {
		cards = cards[1:]
	}

	encoded := make([]C, 0, len(cards))
	for _, c := range cards {
		enc, err := e.codec.Encode(c)
		if err != nil {
			return nil, fmt.Errorf("plant deck: %w", err)
		}
		encoded = append(encoded, enc)
	}

	return e.update(ctx, key, func(rec *Record[C], _ *txn) error {
		if rec.State == Checking {
			return fmt.Errorf("plant deck in state %s: %w", rec.State, ErrIllegalState)
		}
		rec.Deck.Plant(encoded)
		rec.Planted = true
		return nil
	})
}

// Resume applies a verdict delivered by the bridge. Verdicts for a deleted,
// recreated or already advanced record are dropped without error.
func (e *Engine[C]) Resume(ctx context.Context, v Verdict) error {
	_, err := e.update(ctx, v.Key, func(rec *Record[C], tx *txn) error {
		if rec.State != Checking || rec.GameID != v.GameID || rec.Pending == nil || rec.Pending.Seq != v.Seq {
			e.log.WithFields(logrus.Fields{
				"key":     v.Key,
				"game_id": v.GameID,
				"seq":     v.Seq,
				"state":   rec.State,
			}).Debug("dropping stale verdict")
			return errStale
		}

		check := rec.Pending.Check
		rec.Pending = nil

		return e.apply(ctx, rec, check, v.Facts, tx)
	})
	if errors.Is(err, errStale) {
		return nil
	}
	return err
}

// settle asks the resolver about check and moves the record on. Resolvers
// that answer later leave the record in Checking.
func (e *Engine[C]) settle(ctx context.Context, rec *Record[C], check Check, tx *txn) error {
	rec.Seq++
	q := Query[C]{
		Key:    rec.Key,
		GameID: rec.GameID,
		Seq:    rec.Seq,
		Check:  check,
		Player: append([]C{}, rec.Player...),
		Dealer: append([]C{}, rec.Dealer...),
	}

	facts, done, err := e.resolver.Resolve(ctx, q)
	if err != nil {
		return fmt.Errorf("resolve %s check: %w", check, err)
	}
	if !done {
		rec.Pending = &Pending{Seq: rec.Seq, Check: check, RequestedAt: e.now()}
		e.setState(tx, rec, Checking)
		return nil
	}

	return e.apply(ctx, rec, check, facts, tx)
}

func (e *Engine[C]) apply(ctx context.Context, rec *Record[C], check Check, f Facts, tx *txn) error {
	next := Decide(check, f, e.rules)
	if !(e.rules.AutoDealer && check == CheckDealer && next == e.rules.DealerTurn) {
		e.setState(tx, rec, next)
		return nil
	}

	if err := e.dealTo(rec, &rec.Dealer); err != nil {
		return err
	}
	e.emitCards(tx, rec, EventCardsChangedForDealer)

	return e.settle(ctx, rec, CheckDealer, tx)
}

func (e *Engine[C]) dealTo(rec *Record[C], hand *[]C) error {
	c, err := rec.Deck.Deal()
	if err != nil {
		return fmt.Errorf("deal card: %w", err)
	}
	if card, ok := any(c).(Card); ok && !card.Valid() {
		return fmt.Errorf("deal card %d: %w", card, ErrInvalidCard)
	}
	*hand = append(*hand, c)
	return nil
}

func (e *Engine[C]) freshDeck() (Deck[C], error) {
	plain := NewDeck()
	e.rngMu.Lock()
	plain.Shuffle(e.rng)
	e.rngMu.Unlock()

	cards := make([]C, 0, len(plain.Cards))
	for _, c := range plain.Cards {
		enc, err := e.codec.Encode(c)
		if err != nil {
			return Deck[C]{}, fmt.Errorf("encode deck: %w", err)
		}
		cards = append(cards, enc)
	}
	return Deck[C]{Cards: cards}, nil
}

// update runs fn against a copy of the key's record under the key lock,
// stores the result and publishes the collected events.
func (e *Engine[C]) update(ctx context.Context, key string, fn func(rec *Record[C], tx *txn) error) (*Record[C], error) {
	unlock := e.locks.lock(key)
	defer unlock()

	current, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	if current == nil {
		current = emptyRecord[C](key)
	}

	rec := current.Clone()
	tx := &txn{}
	if err := fn(rec, tx); err != nil {
		return nil, err
	}

	if err := e.store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("save game: %w", err)
	}

	e.log.WithFields(logrus.Fields{
		"key":     key,
		"game_id": rec.GameID,
		"state":   rec.State,
		"seq":     rec.Seq,
	}).Debug("game updated")

	for _, ev := range tx.events {
		e.notifier.Notify(ctx, ev)
	}
	return rec.Clone(), nil
}

// txn collects the events of one action until its record is stored.
type txn struct {
	events []Event
}

func (e *Engine[C]) emitCards(tx *txn, rec *Record[C], kind EventKind) {
	hand := rec.Dealer
	if kind == EventCardsChangedForPlayer {
		hand = rec.Player
	}
	tx.events = append(tx.events, Event{
		Kind:    kind,
		Variant: e.variant,
		Key:     rec.Key,
		GameID:  rec.GameID,
		Cards:   append([]C{}, hand...),
		State:   rec.State,
		At:      e.now(),
	})
}

func (e *Engine[C]) setState(tx *txn, rec *Record[C], s State) {
	if rec.State == s {
		return
	}
	rec.State = s
	tx.events = append(tx.events, Event{
		Kind:    EventStateChanged,
		Variant: e.variant,
		Key:     rec.Key,
		GameID:  rec.GameID,
		State:   s,
		At:      e.now(),
	})
}
