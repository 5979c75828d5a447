package blockjack

import "fmt"

// State is the lifecycle position of a game record.
type State uint8

const (
	Uninitialized State = iota
	Checking
	DealerBusts
	DealerWins
	PlayerBusts
	PlayerWins
	Tie
	Waiting
	WaitingForDealer
	WaitingForPlayer
)

var stateNames = [...]string{
	Uninitialized:    "Uninitialized",
	Checking:         "Checking",
	DealerBusts:      "DealerBusts",
	DealerWins:       "DealerWins",
	PlayerBusts:      "PlayerBusts",
	PlayerWins:       "PlayerWins",
	Tie:              "Tie",
	Waiting:          "Waiting",
	WaitingForDealer: "WaitingForDealer",
	WaitingForPlayer: "WaitingForPlayer",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// Terminal reports whether the game is over.
func (s State) Terminal() bool {
	switch s {
	case DealerBusts, DealerWins, PlayerBusts, PlayerWins, Tie:
		return true
	}
	return false
}

func (s State) MarshalText() ([]byte, error) {
	if int(s) >= len(stateNames) {
		return nil, fmt.Errorf("unknown state %d", s)
	}
	return []byte(stateNames[s]), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}
