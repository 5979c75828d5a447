package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"blockjack-backend/internal/config"
	"blockjack-backend/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

type RedisService struct {
	client *redis.Client
}

func NewRedisService(ctx context.Context, cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisServiceFromClient(client), nil
}

func NewRedisServiceFromClient(client *redis.Client) *RedisService {
	return &RedisService{client: client}
}

func (s *RedisService) Client() *redis.Client {
	return s.client
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) StoreUserSession(ctx context.Context, session *models.UserSession, expiry time.Duration) error {
	key := fmt.Sprintf(KeyUserSession, session.PlayerID, session.SessionID)

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, key, data, expiry).Err()
}

func (s *RedisService) GetUserSession(ctx context.Context, playerID, sessionID string) (*models.UserSession, error) {
	key := fmt.Sprintf(KeyUserSession, playerID, sessionID)

	data, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session models.UserSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	session.LastAccessed = time.Now()
	if updated, err := json.Marshal(session); err == nil {
		s.client.Set(ctx, key, updated, redis.KeepTTL)
	}

	return &session, nil
}

func (s *RedisService) DeleteUserSession(ctx context.Context, playerID, sessionID string) error {
	key := fmt.Sprintf(KeyUserSession, playerID, sessionID)
	return s.client.Del(ctx, key).Err()
}

// RecordFinishedGame stores a finished game and indexes it under its
// player, keeping the newest MaxHistory entries.
func (s *RedisService) RecordFinishedGame(ctx context.Context, game *models.FinishedGame) error {
	data, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to marshal finished game: %w", err)
	}

	gameKey := fmt.Sprintf(KeyFinishedGame, game.GameID)
	listKey := fmt.Sprintf(KeyUserFinishedGames, game.Player)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, gameKey, data, TTLFinishedGame)
	pipe.ZAdd(ctx, listKey, redis.Z{
		Score:  float64(game.FinishedAt.UnixMilli()),
		Member: game.GameID,
	})
	pipe.ZRemRangeByRank(ctx, listKey, 0, -(MaxHistory + 1))
	pipe.Expire(ctx, listKey, TTLFinishedGame)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record finished game: %w", err)
	}
	return nil
}

// GetGameHistory returns the player's finished games, newest first.
func (s *RedisService) GetGameHistory(ctx context.Context, playerID string, limit int64) ([]*models.FinishedGame, error) {
	if limit <= 0 || limit > MaxHistory {
		limit = 50
	}

	listKey := fmt.Sprintf(KeyUserFinishedGames, playerID)
	gameIDs, err := s.client.ZRevRange(ctx, listKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get game IDs: %w", err)
	}
	if len(gameIDs) == 0 {
		return []*models.FinishedGame{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(gameIDs))
	for i, id := range gameIDs {
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(KeyFinishedGame, id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("pipeline execution failed: %w", err)
	}

	games := make([]*models.FinishedGame, 0, len(cmds))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue
		}

		var game models.FinishedGame
		if err := json.Unmarshal([]byte(data), &game); err != nil {
			continue
		}
		games = append(games, &game)
	}

	return games, nil
}

func (s *RedisService) CheckRateLimit(ctx context.Context, playerID, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, playerID, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}
