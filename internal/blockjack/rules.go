package blockjack

// Check names the decision point a Facts evaluation answers.
type Check uint8

const (
	// CheckOpening follows the initial two-and-two deal.
	CheckOpening Check = iota + 1
	// CheckPlayer follows a player hit.
	CheckPlayer
	// CheckDealer follows a stand or a dealer hit.
	CheckDealer
)

func (c Check) String() string {
	switch c {
	case CheckOpening:
		return "opening"
	case CheckPlayer:
		return "player"
	case CheckDealer:
		return "dealer"
	}
	return "unknown"
}

// Rules maps the shared decision table onto a variant's states.
type Rules struct {
	// PlayerTurn is the state in which the player may hit or stand.
	PlayerTurn State
	// DealerTurn is the state in which the dealer must draw again.
	DealerTurn State
	PlayerBust State
	DealerBust State
	// AutoDealer makes Stand draw for the dealer until the dealer stands or
	// busts. Without it the dealer draws through HitAsDealer.
	AutoDealer bool
}

// NaiveRules resolve everything inside the call and fold busts into the
// opponent's win.
var NaiveRules = Rules{
	PlayerTurn: Waiting,
	DealerTurn: Waiting,
	PlayerBust: DealerWins,
	DealerBust: PlayerWins,
	AutoDealer: true,
}

// SecureRules keep busts distinct and split the waiting state per side.
var SecureRules = Rules{
	PlayerTurn: WaitingForPlayer,
	DealerTurn: WaitingForDealer,
	PlayerBust: PlayerBusts,
	DealerBust: DealerBusts,
}

// Decide applies the decision table for check to f.
func Decide(check Check, f Facts, r Rules) State {
	switch check {
	case CheckOpening:
		switch {
		case f.PlayerBusts && f.DealerBusts:
			return Tie
		case f.PlayerBusts:
			return r.PlayerBust
		case f.DealerBusts:
			return r.DealerBust
		case f.PlayerNatural && f.DealerNatural:
			return Tie
		case f.PlayerNatural:
			return PlayerWins
		case f.DealerNatural:
			return DealerWins
		}
		return r.PlayerTurn

	case CheckPlayer:
		if f.PlayerBusts {
			return r.PlayerBust
		}
		return r.PlayerTurn

	case CheckDealer:
		switch {
		case f.PlayerBusts && f.DealerBusts:
			return Tie
		case f.DealerBusts:
			return r.DealerBust
		case f.DealerDraws:
			return r.DealerTurn
		}
		return compare(f.Comparison)
	}
	return Uninitialized
}

func compare(cmp int) State {
	switch {
	case cmp > 0:
		return PlayerWins
	case cmp < 0:
		return DealerWins
	}
	return Tie
}
