package services

import (
	"context"

	"blockjack-backend/internal/blockjack"
	"blockjack-backend/internal/models"
)

// Broadcaster delivers messages to a player's live connections.
type Broadcaster interface {
	SendToPlayer(playerID string, msgType string, data any)
}

// EventBroadcaster turns engine events into player messages.
type EventBroadcaster struct {
	broadcaster Broadcaster
}

func NewEventBroadcaster(b Broadcaster) *EventBroadcaster {
	return &EventBroadcaster{broadcaster: b}
}

func (n *EventBroadcaster) Notify(_ context.Context, ev blockjack.Event) {
	n.broadcaster.SendToPlayer(ev.Key, string(ev.Kind), models.GameEvent{
		Type:    ev.Kind,
		Variant: models.Variant(ev.Variant),
		GameID:  ev.GameID,
		Cards:   ev.Cards,
		State:   ev.State,
		At:      ev.At.Unix(),
	})
}
