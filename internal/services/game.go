package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"blockjack-backend/internal/blockjack"
	"blockjack-backend/internal/confidential"
	"blockjack-backend/internal/models"
)

var (
	ErrUnknownVariant = errors.New("unknown variant")
	ErrNoGame         = errors.New("no game in progress")
)

type Action string

const (
	ActionCreate    Action = "create"
	ActionHit       Action = "hit"
	ActionDealerHit Action = "dealer_hit"
	ActionStand     Action = "stand"
)

// GameService routes player actions to the engine of the requested variant
// and renders the results.
type GameService struct {
	naive    *blockjack.Engine[blockjack.Card]
	secure   *blockjack.Engine[confidential.Ciphertext]
	revealer confidential.Revealer
	redis    *RedisService
	log      logrus.FieldLogger
}

func NewGameService(
	naive *blockjack.Engine[blockjack.Card],
	secure *blockjack.Engine[confidential.Ciphertext],
	revealer confidential.Revealer,
	redis *RedisService,
	log logrus.FieldLogger,
) *GameService {
	return &GameService{
		naive:    naive,
		secure:   secure,
		revealer: revealer,
		redis:    redis,
		log:      log.WithField("component", "games"),
	}
}

func (s *GameService) Act(ctx context.Context, variant models.Variant, player string, action Action) (*models.GameView, error) {
	switch variant {
	case models.VariantNaive:
		rec, err := act(ctx, s.naive, player, action)
		if err != nil {
			return nil, err
		}
		return s.naiveView(rec), nil
	case models.VariantSecure:
		rec, err := act(ctx, s.secure, player, action)
		if err != nil {
			return nil, err
		}
		return s.secureView(rec), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
}

func act[C any](ctx context.Context, e *blockjack.Engine[C], player string, action Action) (*blockjack.Record[C], error) {
	switch action {
	case ActionCreate:
		return e.CreateGame(ctx, player)
	case ActionHit:
		return e.HitAsPlayer(ctx, player)
	case ActionDealerHit:
		return e.HitAsDealer(ctx, player)
	case ActionStand:
		return e.Stand(ctx, player)
	}
	return nil, fmt.Errorf("unknown action %q", action)
}

func (s *GameService) Get(ctx context.Context, variant models.Variant, player string) (*models.GameView, error) {
	switch variant {
	case models.VariantNaive:
		rec, err := s.naive.GetGame(ctx, player)
		if err != nil {
			return nil, err
		}
		return s.naiveView(rec), nil
	case models.VariantSecure:
		rec, err := s.secure.GetGame(ctx, player)
		if err != nil {
			return nil, err
		}
		return s.secureView(rec), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
}

func (s *GameService) Delete(ctx context.Context, variant models.Variant, player string) error {
	switch variant {
	case models.VariantNaive:
		return s.naive.DeleteGame(ctx, player)
	case models.VariantSecure:
		return s.secure.DeleteGame(ctx, player)
	}
	return fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
}

func (s *GameService) PlantDeck(ctx context.Context, variant models.Variant, player string, cards []blockjack.Card) (*models.GameView, error) {
	switch variant {
	case models.VariantNaive:
		rec, err := s.naive.PlantDeck(ctx, player, cards)
		if err != nil {
			return nil, err
		}
		return s.naiveView(rec), nil
	case models.VariantSecure:
		rec, err := s.secure.PlantDeck(ctx, player, cards)
		if err != nil {
			return nil, err
		}
		return s.secureView(rec), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
}

// Reveal opens the player's sealed cards. The dealer's cards are opened
// only once the game is over.
func (s *GameService) Reveal(ctx context.Context, player string) (*models.RevealView, error) {
	rec, err := s.secure.GetGame(ctx, player)
	if err != nil {
		return nil, err
	}
	if rec.State == blockjack.Uninitialized {
		return nil, ErrNoGame
	}

	view := &models.RevealView{GameID: rec.GameID, State: rec.State}
	if view.PlayerCards, err = s.revealer.Reveal(ctx, rec.Player); err != nil {
		return nil, fmt.Errorf("reveal player cards: %w", err)
	}
	if rec.State.Terminal() {
		if view.DealerCards, err = s.revealer.Reveal(ctx, rec.Dealer); err != nil {
			return nil, fmt.Errorf("reveal dealer cards: %w", err)
		}
	}
	return view, nil
}

func (s *GameService) History(ctx context.Context, player string, limit int64) ([]*models.FinishedGame, error) {
	return s.redis.GetGameHistory(ctx, player, limit)
}

func (s *GameService) naiveView(rec *blockjack.Record[blockjack.Card]) *models.GameView {
	view := baseView(models.Variant(s.naive.Variant()), rec)
	view.CardsForPlayer = rec.Player
	view.CardsForDealer = rec.Dealer
	if len(rec.Player) > 0 {
		pt, dt := models.Totals(rec.Player, rec.Dealer)
		view.PlayerTotal, view.DealerTotal = &pt, &dt
	}
	return view
}

func (s *GameService) secureView(rec *blockjack.Record[confidential.Ciphertext]) *models.GameView {
	view := baseView(models.Variant(s.secure.Variant()), rec)
	view.CardsForPlayer = rec.Player
	view.CardsForDealer = rec.Dealer
	return view
}

func baseView[C any](variant models.Variant, rec *blockjack.Record[C]) *models.GameView {
	return &models.GameView{
		Variant:   variant,
		Player:    rec.Key,
		GameID:    rec.GameID,
		State:     rec.State,
		CardsLeft: rec.Deck.Len(),
		Checking:  rec.State == blockjack.Checking,
		Seq:       rec.Seq,
		UpdatedAt: rec.UpdatedAt,
	}
}
