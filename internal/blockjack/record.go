package blockjack

import "time"

// Record is the game owned by one key. C is the card representation:
// plaintext Card for the naive variant, a sealed handle for the secure one.
type Record[C any] struct {
	Key     string  `json:"key"`
	GameID  string  `json:"game_id,omitempty"`
	Player  []C     `json:"cards_for_player"`
	Dealer  []C     `json:"cards_for_dealer"`
	State   State   `json:"state"`
	Deck    Deck[C] `json:"deck"`
	Planted bool    `json:"planted,omitempty"`

	// Seq numbers the decisions taken for this game; a verdict applies only
	// to the Seq it was requested for.
	Seq     uint64   `json:"seq"`
	Pending *Pending `json:"pending,omitempty"`

	// Version is bumped by the store on every successful write.
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Pending describes the check a Checking record is waiting on.
type Pending struct {
	Seq         uint64    `json:"seq"`
	Check       Check     `json:"check"`
	RequestedAt time.Time `json:"requested_at"`
}

func emptyRecord[C any](key string) *Record[C] {
	return &Record[C]{
		Key:    key,
		Player: []C{},
		Dealer: []C{},
		State:  Uninitialized,
	}
}

// Clone returns a copy that shares no slices with r.
func (r *Record[C]) Clone() *Record[C] {
	if r == nil {
		return nil
	}
	out := *r
	out.Player = append([]C{}, r.Player...)
	out.Dealer = append([]C{}, r.Dealer...)
	out.Deck = Deck[C]{Cards: append([]C(nil), r.Deck.Cards...)}
	if r.Pending != nil {
		p := *r.Pending
		out.Pending = &p
	}
	return &out
}
