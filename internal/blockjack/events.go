package blockjack

import (
	"context"
	"time"
)

type EventKind string

const (
	EventCardsChangedForPlayer EventKind = "CardsChangedForPlayer"
	EventCardsChangedForDealer EventKind = "CardsChangedForDealer"
	EventStateChanged          EventKind = "StateChanged"
)

// Event is a change notification scoped to the acting key. Cards holds the
// whole new hand ([]Card or sealed handles) for the cards events; State is
// set for EventStateChanged.
type Event struct {
	Kind    EventKind `json:"kind"`
	Variant string    `json:"variant"`
	Key     string    `json:"key"`
	GameID  string    `json:"game_id,omitempty"`
	Cards   any       `json:"cards,omitempty"`
	State   State     `json:"state"`
	At      time.Time `json:"at"`
}

// Notifier receives events after the record that produced them is stored.
// Implementations must not block and must not call back into the engine.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

type NotifierFunc func(ctx context.Context, ev Event)

func (f NotifierFunc) Notify(ctx context.Context, ev Event) { f(ctx, ev) }

// Notifiers fans an event out to every member in order.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, ev Event) {
	for _, n := range ns {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) {}
