package confidential

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"blockjack-backend/internal/blockjack"
)

var ErrBridgeBusy = errors.New("bridge queue full")

// Bridge carries requests to the oracle. Verdicts come back through a
// VerdictHandler, normally Engine.Resume.
type Bridge interface {
	Submit(ctx context.Context, req Request) error
}

type VerdictHandler func(ctx context.Context, v blockjack.Verdict) error

// BridgeResolver hands every query to a bridge and leaves the record
// waiting for the verdict.
type BridgeResolver struct {
	bridge Bridge
}

func NewBridgeResolver(b Bridge) *BridgeResolver {
	return &BridgeResolver{bridge: b}
}

func (r *BridgeResolver) Resolve(ctx context.Context, q blockjack.Query[Ciphertext]) (blockjack.Facts, bool, error) {
	if err := r.bridge.Submit(ctx, RequestFor(q)); err != nil {
		return blockjack.Facts{}, false, err
	}
	return blockjack.Facts{}, false, nil
}

// LocalBridge runs the oracle in process behind a FIFO queue, so verdicts
// are delivered in request order and always after the request's record
// has been stored.
type LocalBridge struct {
	oracle *Oracle
	queue  chan Request
	log    logrus.FieldLogger
}

func NewLocalBridge(oracle *Oracle, size int, log logrus.FieldLogger) *LocalBridge {
	if size <= 0 {
		size = 256
	}
	return &LocalBridge{
		oracle: oracle,
		queue:  make(chan Request, size),
		log:    log.WithField("component", "local-bridge"),
	}
}

// Submit never blocks: it runs under the engine's key lock, and the worker
// may be waiting on that same lock to deliver.
func (b *LocalBridge) Submit(_ context.Context, req Request) error {
	select {
	case b.queue <- req:
		return nil
	default:
		return ErrBridgeBusy
	}
}

// Run evaluates queued requests until ctx is done.
func (b *LocalBridge) Run(ctx context.Context, deliver VerdictHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-b.queue:
			b.handle(ctx, req, deliver)
		}
	}
}

func (b *LocalBridge) handle(ctx context.Context, req Request, deliver VerdictHandler) {
	fields := logrus.Fields{"key": req.Key, "game_id": req.GameID, "seq": req.Seq, "check": req.Check}

	v, err := b.oracle.Evaluate(req)
	if err != nil {
		b.log.WithFields(fields).WithError(err).Error("evaluate request")
		return
	}
	if err := deliver(ctx, v); err != nil {
		b.log.WithFields(fields).WithError(err).Error("deliver verdict")
	}
}

func (b *LocalBridge) Reveal(ctx context.Context, cards []Ciphertext) ([]blockjack.Card, error) {
	return b.oracle.Reveal(ctx, cards)
}
