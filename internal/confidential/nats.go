package confidential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"blockjack-backend/internal/blockjack"
)

const (
	SubjectRequest = "blockjack.bridge.request"
	SubjectVerdict = "blockjack.bridge.verdict"
	SubjectReveal  = "blockjack.bridge.reveal"

	eventSubjectPrefix = "blockjack.events."
	oracleQueue        = "blockjack-oracle"
)

// Connect dials NATS with the reconnect policy shared by the API server
// and the oracle.
func Connect(url, name string) (*nats.Conn, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(5),
	}
	return nats.Connect(url, opts...)
}

// EventSubject is the subject a key's game events are published on.
func EventSubject(key string) string {
	return eventSubjectPrefix + strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, key)
}

type revealRequest struct {
	Cards []Ciphertext `json:"cards"`
}

type revealReply struct {
	Cards []blockjack.Card `json:"cards,omitempty"`
	Error string           `json:"error,omitempty"`
}

// NATSBridge is the API server's side of a remote oracle.
type NATSBridge struct {
	nc  *nats.Conn
	log logrus.FieldLogger
}

func NewNATSBridge(nc *nats.Conn, log logrus.FieldLogger) *NATSBridge {
	return &NATSBridge{nc: nc, log: log.WithField("component", "nats-bridge")}
}

func (b *NATSBridge) Submit(_ context.Context, req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if err := b.nc.Publish(SubjectRequest, data); err != nil {
		return fmt.Errorf("publish request: %w", err)
	}
	return nil
}

// Listen delivers verdicts published by the oracle. NATS hands messages of
// one subscription to the callback one at a time, in order.
func (b *NATSBridge) Listen(ctx context.Context, deliver VerdictHandler) (*nats.Subscription, error) {
	return b.nc.Subscribe(SubjectVerdict, func(m *nats.Msg) {
		var v blockjack.Verdict
		if err := json.Unmarshal(m.Data, &v); err != nil {
			b.log.WithError(err).Warn("discarding malformed verdict")
			return
		}
		if err := deliver(ctx, v); err != nil {
			b.log.WithFields(logrus.Fields{"key": v.Key, "game_id": v.GameID, "seq": v.Seq}).
				WithError(err).Error("deliver verdict")
		}
	})
}

func (b *NATSBridge) Reveal(ctx context.Context, cards []Ciphertext) ([]blockjack.Card, error) {
	data, err := json.Marshal(revealRequest{Cards: cards})
	if err != nil {
		return nil, err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}

	msg, err := b.nc.RequestWithContext(ctx, SubjectReveal, data)
	if err != nil {
		return nil, fmt.Errorf("reveal request: %w", err)
	}
	var reply revealReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return nil, fmt.Errorf("decode reveal reply: %w", err)
	}
	if reply.Error != "" {
		return nil, errors.New(reply.Error)
	}
	return reply.Cards, nil
}

// OracleServer serves requests and reveals for a remote API server.
type OracleServer struct {
	nc     *nats.Conn
	oracle *Oracle
	log    logrus.FieldLogger
	subs   []*nats.Subscription
}

func NewOracleServer(nc *nats.Conn, oracle *Oracle, log logrus.FieldLogger) *OracleServer {
	return &OracleServer{nc: nc, oracle: oracle, log: log.WithField("component", "oracle")}
}

func (s *OracleServer) Start() error {
	req, err := s.nc.QueueSubscribe(SubjectRequest, oracleQueue, s.handleRequest)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectRequest, err)
	}
	rev, err := s.nc.QueueSubscribe(SubjectReveal, oracleQueue, s.handleReveal)
	if err != nil {
		_ = req.Unsubscribe()
		return fmt.Errorf("subscribe %s: %w", SubjectReveal, err)
	}
	s.subs = append(s.subs, req, rev)
	return s.nc.Flush()
}

func (s *OracleServer) Stop() {
	for _, sub := range s.subs {
		if err := sub.Drain(); err != nil {
			s.log.WithError(err).Warn("drain subscription")
		}
	}
	s.subs = nil
}

func (s *OracleServer) handleRequest(m *nats.Msg) {
	var req Request
	if err := json.Unmarshal(m.Data, &req); err != nil {
		s.log.WithError(err).Warn("discarding malformed request")
		return
	}
	fields := logrus.Fields{"key": req.Key, "game_id": req.GameID, "seq": req.Seq, "check": req.Check}

	v, err := s.oracle.Evaluate(req)
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("evaluate request")
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("encode verdict")
		return
	}
	if err := s.nc.Publish(SubjectVerdict, data); err != nil {
		s.log.WithFields(fields).WithError(err).Error("publish verdict")
		return
	}
	s.log.WithFields(fields).Debug("verdict published")
}

func (s *OracleServer) handleReveal(m *nats.Msg) {
	var reply revealReply
	var req revealRequest
	if err := json.Unmarshal(m.Data, &req); err != nil {
		reply.Error = "malformed reveal request"
	} else if cards, err := s.oracle.Reveal(context.Background(), req.Cards); err != nil {
		reply.Error = err.Error()
	} else {
		reply.Cards = cards
	}

	data, _ := json.Marshal(reply)
	if err := m.Respond(data); err != nil {
		s.log.WithError(err).Warn("respond to reveal")
	}
}

// EventPublisher forwards game events to NATS for other processes.
type EventPublisher struct {
	nc  *nats.Conn
	log logrus.FieldLogger
}

func NewEventPublisher(nc *nats.Conn, log logrus.FieldLogger) *EventPublisher {
	return &EventPublisher{nc: nc, log: log.WithField("component", "event-publisher")}
}

func (p *EventPublisher) Notify(_ context.Context, ev blockjack.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.WithError(err).Error("encode event")
		return
	}
	if err := p.nc.Publish(EventSubject(ev.Key), data); err != nil {
		p.log.WithError(err).WithField("key", ev.Key).Warn("publish event")
	}
}
