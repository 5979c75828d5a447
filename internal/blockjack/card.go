package blockjack

import (
	"fmt"
	"strconv"
)

// Card is a rank in [2,14]. 11..14 are Jack, Queen, King and Ace.
type Card uint8

const (
	Jack  Card = 11
	Queen Card = 12
	King  Card = 13
	Ace   Card = 14

	MinRank Card = 2
	MaxRank Card = Ace
)

func (c Card) Valid() bool {
	return c >= MinRank && c <= MaxRank
}

// Value is the blackjack value with the ace counted high.
func (c Card) Value() int {
	switch {
	case c == Ace:
		return 11
	case c >= Jack:
		return 10
	default:
		return int(c)
	}
}

func (c Card) String() string {
	switch c {
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	}
	return strconv.Itoa(int(c))
}

// ParseCard accepts "2".."10", "J", "Q", "K", "A" and the numeric ranks "11".."14".
func ParseCard(s string) (Card, error) {
	switch s {
	case "J", "j":
		return Jack, nil
	case "Q", "q":
		return Queen, nil
	case "K", "k":
		return King, nil
	case "A", "a":
		return Ace, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < int(MinRank) || n > int(MaxRank) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCard, s)
	}
	return Card(n), nil
}

// MarshalJSON writes the numeric value. Without it a []Card would encode
// as a base64 string like any other byte slice.
func (c Card) MarshalJSON() ([]byte, error) {
	return strconv.AppendUint(nil, uint64(c), 10), nil
}

func (c *Card) UnmarshalJSON(b []byte) error {
	n, err := strconv.ParseUint(string(b), 10, 8)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCard, b)
	}
	*c = Card(n)
	return nil
}
