package blockjack

import (
	"context"
	"fmt"
)

// Query is one decision the engine needs answered.
type Query[C any] struct {
	Key    string
	GameID string
	Seq    uint64
	Check  Check
	Player []C
	Dealer []C
}

// Verdict carries the answer to a Query back to Engine.Resume.
type Verdict struct {
	Key    string `json:"key"`
	GameID string `json:"game_id"`
	Seq    uint64 `json:"seq"`
	Facts  Facts  `json:"facts"`
}

// Resolver answers queries. It either returns the facts directly (done is
// true) or hands the query to an asynchronous evaluator whose answer arrives
// later through Engine.Resume (done is false).
type Resolver[C any] interface {
	Resolve(ctx context.Context, q Query[C]) (f Facts, done bool, err error)
}

// PlainResolver evaluates plaintext hands synchronously.
type PlainResolver struct{}

func (PlainResolver) Resolve(_ context.Context, q Query[Card]) (Facts, bool, error) {
	return Evaluate(q.Player, q.Dealer), true, nil
}

// Codec turns a plaintext card into the engine's card representation.
type Codec[C any] interface {
	Encode(c Card) (C, error)
}

// PlainCodec is the identity codec for plaintext engines.
type PlainCodec struct{}

func (PlainCodec) Encode(c Card) (Card, error) {
	if !c.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCard, c)
	}
	return c, nil
}
