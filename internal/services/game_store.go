package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"blockjack-backend/internal/blockjack"
)

// TTLGameRecord bounds how long an untouched game is kept.
const TTLGameRecord = 7 * 24 * time.Hour

// saveGameScript writes a record only if its stored version still matches
// the version the caller loaded.
var saveGameScript = redis.NewScript(`
	local key = KEYS[1]
	local expected = tonumber(ARGV[1])
	local ttl = tonumber(ARGV[3])

	local current = tonumber(redis.call("HGET", key, "version") or "0")
	if current ~= expected then
		return redis.error_reply("version conflict")
	end

	local next = current + 1
	redis.call("HSET", key, "version", next, "data", ARGV[2])
	if ttl > 0 then
		redis.call("PEXPIRE", key, ttl)
	end

	return next
`)

// RedisGameStore keeps one variant's records in Redis hashes. It satisfies
// blockjack.Store, so several API processes can share games safely.
type RedisGameStore[C any] struct {
	client  *redis.Client
	variant string
	ttl     time.Duration
}

func NewRedisGameStore[C any](client *redis.Client, variant string) *RedisGameStore[C] {
	return &RedisGameStore[C]{client: client, variant: variant, ttl: TTLGameRecord}
}

func (s *RedisGameStore[C]) key(key string) string {
	return fmt.Sprintf(KeyGameRecord, s.variant, key)
}

func (s *RedisGameStore[C]) Get(ctx context.Context, key string) (*blockjack.Record[C], error) {
	fields, err := s.client.HMGet(ctx, s.key(key), "version", "data").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	data, ok := fields[1].(string)
	if !ok {
		return nil, nil
	}

	var rec blockjack.Record[C]
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}
	if v, ok := fields[0].(string); ok {
		if _, err := fmt.Sscan(v, &rec.Version); err != nil {
			return nil, fmt.Errorf("bad game version %q: %w", v, err)
		}
	}
	return &rec, nil
}

func (s *RedisGameStore[C]) Put(ctx context.Context, rec *blockjack.Record[C]) error {
	out := *rec
	out.UpdatedAt = time.Now()
	out.Version = rec.Version + 1

	data, err := json.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal game: %w", err)
	}

	next, err := saveGameScript.Run(ctx, s.client, []string{s.key(rec.Key)},
		rec.Version, data, s.ttl.Milliseconds()).Int64()
	if err != nil {
		if strings.Contains(err.Error(), "version conflict") {
			return blockjack.ErrConflict
		}
		return fmt.Errorf("failed to save game: %w", err)
	}

	rec.Version = next
	rec.UpdatedAt = out.UpdatedAt
	return nil
}

func (s *RedisGameStore[C]) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	return nil
}
