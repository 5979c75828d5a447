package blockjack

const (
	// Blackjack is the best possible total; anything above it busts.
	Blackjack = 21
	// DealerStandsOn is the total at which the dealer stops drawing.
	DealerStandsOn = 17
)

// Hand is the ordered list of cards held by the player or the dealer.
type Hand []Card

// Total sums the hand counting aces as 11, demoting them to 1 one at a time
// while the total is above 21.
func (h Hand) Total() int {
	total, aces := 0, 0
	for _, c := range h {
		total += c.Value()
		if c == Ace {
			aces++
		}
	}
	for total > Blackjack && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

func (h Hand) IsBust() bool {
	return h.Total() > Blackjack
}

// IsNatural reports an opening two-card 21.
func (h Hand) IsNatural() bool {
	return len(h) == 2 && h.Total() == Blackjack
}

// Facts are the boolean and ordering results the decision table consumes.
// The secure variant receives them from the bridge instead of computing them.
type Facts struct {
	PlayerBusts   bool `json:"player_busts"`
	DealerBusts   bool `json:"dealer_busts"`
	PlayerNatural bool `json:"player_natural"`
	DealerNatural bool `json:"dealer_natural"`
	DealerDraws   bool `json:"dealer_draws"`
	// Comparison is the sign of the player total minus the dealer total.
	Comparison int `json:"comparison"`
}

// Evaluate computes Facts from plaintext hands.
func Evaluate(player, dealer Hand) Facts {
	pt, dt := player.Total(), dealer.Total()

	cmp := 0
	switch {
	case pt > dt:
		cmp = 1
	case pt < dt:
		cmp = -1
	}

	return Facts{
		PlayerBusts:   pt > Blackjack,
		DealerBusts:   dt > Blackjack,
		PlayerNatural: player.IsNatural(),
		DealerNatural: dealer.IsNatural(),
		DealerDraws:   dt < DealerStandsOn,
		Comparison:    cmp,
	}
}
