package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"blockjack-backend/internal/blockjack"
)

var playerPattern = regexp.MustCompile(`^[a-z0-9_:\-]{1,128}$`)

func GenerateSessionID() string {
	return uuid.NewString()
}

// NormalizePlayer lower-cases an account address and checks that it is
// usable as a game key.
func NormalizePlayer(player string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(player))
	if !playerPattern.MatchString(p) {
		return "", fmt.Errorf("invalid player address %q", player)
	}
	return p, nil
}

// ParseCards converts request strings to cards. "0" is accepted as filler
// for the bottom of a planted deck.
func ParseCards(raw []string) ([]blockjack.Card, error) {
	cards := make([]blockjack.Card, 0, len(raw))
	for i, s := range raw {
		s = strings.TrimSpace(s)
		if s == "0" {
			cards = append(cards, 0)
			continue
		}
		c, err := blockjack.ParseCard(s)
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i, err)
		}
		cards = append(cards, c)
	}
	return cards, nil
}

func Totals(player, dealer []blockjack.Card) (int, int) {
	return blockjack.Hand(player).Total(), blockjack.Hand(dealer).Total()
}
