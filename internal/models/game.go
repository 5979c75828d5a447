package models

import (
	"time"

	"blockjack-backend/internal/blockjack"
)

type Variant string

const (
	VariantNaive  Variant = "naive"
	VariantSecure Variant = "secure"
)

func (v Variant) Valid() bool {
	return v == VariantNaive || v == VariantSecure
}

// GameView is the API rendering of one player's game. Cards are plain
// ranks for the naive variant and sealed handles for the secure one.
type GameView struct {
	Variant        Variant         `json:"variant"`
	Player         string          `json:"player"`
	GameID         string          `json:"game_id,omitempty"`
	State          blockjack.State `json:"state"`
	CardsForPlayer any             `json:"cards_for_player"`
	CardsForDealer any             `json:"cards_for_dealer"`
	PlayerTotal    *int            `json:"player_total,omitempty"`
	DealerTotal    *int            `json:"dealer_total,omitempty"`
	CardsLeft      int             `json:"cards_left"`
	Checking       bool            `json:"checking"`
	Seq            uint64          `json:"seq"`
	UpdatedAt      time.Time       `json:"updated_at,omitempty"`
}

// RevealView carries the opened cards of a sealed game. DealerCards stays
// empty until the game is over.
type RevealView struct {
	GameID      string           `json:"game_id"`
	State       blockjack.State  `json:"state"`
	PlayerCards []blockjack.Card `json:"player_cards"`
	DealerCards []blockjack.Card `json:"dealer_cards,omitempty"`
}

type FinishedGame struct {
	GameID     string          `json:"game_id"`
	Variant    Variant         `json:"variant"`
	Player     string          `json:"player"`
	Outcome    blockjack.State `json:"outcome"`
	FinishedAt time.Time       `json:"finished_at"`
}

// GameEvent is pushed to the player's websocket connections.
type GameEvent struct {
	Type    blockjack.EventKind `json:"type"`
	Variant Variant             `json:"variant"`
	GameID  string              `json:"game_id,omitempty"`
	Cards   any                 `json:"cards,omitempty"`
	State   blockjack.State     `json:"state"`
	At      int64               `json:"timestamp"`
}

type PlantDeckRequest struct {
	Cards []string `json:"cards" binding:"required,min=1,max=52"`
}
