package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"scalpd/internal/domain/models"
	domrepo "scalpd/internal/domain/repository"
)

// RedisStateStore persists the engine's durable state as a JSON blob under a
// single key. Load returns (nil, nil) on a cold start with no saved state.
type RedisStateStore struct {
	cli *redis.Client
	key string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	StateKey string
}

func NewRedisStateStore(cfg RedisConfig) *RedisStateStore {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	key := cfg.StateKey
	if key == "" {
		key = "scalpd:state"
	}
	return &RedisStateStore{cli: rdb, key: key}
}

var _ domrepo.StateStore = (*RedisStateStore)(nil)

func encodeState(st *models.BotState) ([]byte, error) {
	b, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return b, nil
}

func decodeState(b []byte) (*models.BotState, error) {
	var st models.BotState
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &st, nil
}

func (r *RedisStateStore) Save(ctx context.Context, st *models.BotState) error {
	b, err := encodeState(st)
	if err != nil {
		return err
	}
	if err := r.cli.Set(ctx, r.key, b, 0).Err(); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (r *RedisStateStore) Load(ctx context.Context) (*models.BotState, error) {
	b, err := r.cli.Get(ctx, r.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load state: %w", err)
	}
	return decodeState(b)
}

func (r *RedisStateStore) Close() error {
	return r.cli.Close()
}
