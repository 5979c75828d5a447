package confidential

import (
	"context"
	"fmt"

	"blockjack-backend/internal/blockjack"
)

// Request asks the oracle to evaluate one decision of a sealed game.
type Request struct {
	Key    string          `json:"key"`
	GameID string          `json:"game_id"`
	Seq    uint64          `json:"seq"`
	Check  blockjack.Check `json:"check"`
	Player []Ciphertext    `json:"cards_for_player"`
	Dealer []Ciphertext    `json:"cards_for_dealer"`
}

func RequestFor(q blockjack.Query[Ciphertext]) Request {
	return Request{
		Key:    q.Key,
		GameID: q.GameID,
		Seq:    q.Seq,
		Check:  q.Check,
		Player: q.Player,
		Dealer: q.Dealer,
	}
}

// Revealer opens sealed cards for display to their owner.
type Revealer interface {
	Reveal(ctx context.Context, cards []Ciphertext) ([]blockjack.Card, error)
}

// Oracle holds the secret key and answers requests with the facts the
// engine needs. Card values never leave it except through Reveal.
type Oracle struct {
	opener *Opener
}

func NewOracle(kp KeyPair) *Oracle {
	return &Oracle{opener: NewOpener(kp)}
}

func (o *Oracle) Evaluate(req Request) (blockjack.Verdict, error) {
	player, err := o.opener.OpenHand(req.Player)
	if err != nil {
		return blockjack.Verdict{}, fmt.Errorf("open player hand: %w", err)
	}
	dealer, err := o.opener.OpenHand(req.Dealer)
	if err != nil {
		return blockjack.Verdict{}, fmt.Errorf("open dealer hand: %w", err)
	}

	return blockjack.Verdict{
		Key:    req.Key,
		GameID: req.GameID,
		Seq:    req.Seq,
		Facts:  blockjack.Evaluate(player, dealer),
	}, nil
}

func (o *Oracle) Reveal(_ context.Context, cards []Ciphertext) ([]blockjack.Card, error) {
	hand, err := o.opener.OpenHand(cards)
	if err != nil {
		return nil, err
	}
	return []blockjack.Card(hand), nil
}
