package blockjack

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"time"
)

// DeckSize is the number of cards in a fresh deck: four of each rank.
const DeckSize = 52

// Deck is an ordered pile of cards. Deal takes from the tail, so the last
// element of a planted deck is dealt first.
type Deck[C any] struct {
	Cards []C `json:"cards"`
}

// NewDeck returns an unshuffled deck holding four of each rank 2..14.
func NewDeck() Deck[Card] {
	cards := make([]Card, 0, DeckSize)
	for i := 0; i < 4; i++ {
		for r := MinRank; r <= MaxRank; r++ {
			cards = append(cards, r)
		}
	}
	return Deck[Card]{Cards: cards}
}

// Shuffle permutes the deck in place with a Fisher-Yates pass over rng.
func (d *Deck[C]) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.Cards), func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	})
}

// Plant replaces the deck contents verbatim.
func (d *Deck[C]) Plant(cards []C) {
	d.Cards = append([]C(nil), cards...)
}

func (d *Deck[C]) Deal() (C, error) {
	var zero C
	n := len(d.Cards)
	if n == 0 {
		return zero, ErrEmptyDeck
	}
	c := d.Cards[n-1]
	d.Cards = d.Cards[:n-1]
	return c, nil
}

func (d *Deck[C]) Len() int {
	return len(d.Cards)
}

// NewSeededRand derives a deterministic source from seed, so a session can
// replay the exact same shuffles.
func NewSeededRand(seed []byte) *rand.Rand {
	h := sha256.Sum256(seed)
	return rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(h[:8]))))
}

func newTimeSeededRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
