package blockjack

import "errors"

var (
	// ErrIllegalState is returned when an action is not permitted in the record's state.
	ErrIllegalState = errors.New("illegal state")
	// ErrEmptyDeck is returned when a card is dealt from an exhausted deck.
	ErrEmptyDeck        = errors.New("empty deck")
	ErrPlantingDisabled = errors.New("deck planting is disabled")
	ErrInvalidCard      = errors.New("invalid card")
	// ErrConflict is returned by a Store when a record changed since it was loaded.
	ErrConflict = errors.New("record modified concurrently")
)
