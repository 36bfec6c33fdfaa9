package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dexgate/dexgate/internal/config"
	"github.com/dexgate/dexgate/internal/model"
)

type RedisClient struct {
	Client     *redis.Client
	pendingKey string
	pendingMax int
}

func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	pendingKey := cfg.Redis.PendingKey
	if pendingKey == "" {
		pendingKey = "gasless_trades"
	}
	pendingMax := cfg.Redis.PendingKeyMax
	if pendingMax <= 0 {
		pendingMax = 1000
	}

	return &RedisClient{Client: rdb, pendingKey: pendingKey, pendingMax: pendingMax}, nil
}

// Implement service.UsageRepo

func (r *RedisClient) GetDailyUsage(ctx context.Context, key string) (int, float64, error) {
	today := time.Now().UTC().Format("2006-01-02")
	keyVol := fmt.Sprintf("usage:%s:%s:volume", key, today)
	keyCount := fmt.Sprintf("usage:%s:%s:count", key, today)

	pipe := r.Client.Pipeline()
	volCmd := pipe.Get(ctx, keyVol)
	countCmd := pipe.Get(ctx, keyCount)
	_, err := pipe.Exec(ctx)

	if err != nil && err != redis.Nil {
		return 0, 0, err
	}

	vol, _ := volCmd.Float64()
	count, _ := countCmd.Int()

	return count, vol, nil
}

func (r *RedisClient) AddDailyUsage(ctx context.Context, key string, swaps int, amount float64) error {
	today := time.Now().UTC().Format("2006-01-02")
	keyVol := fmt.Sprintf("usage:%s:%s:volume", key, today)
	keyCount := fmt.Sprintf("usage:%s:%s:count", key, today)

	pipe := r.Client.Pipeline()
	pipe.IncrByFloat(ctx, keyVol, amount)
	pipe.IncrBy(ctx, keyCount, int64(swaps))
	pipe.Expire(ctx, keyVol, 48*time.Hour)
	pipe.Expire(ctx, keyCount, 48*time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

// Implement service.PendingStore

func (r *RedisClient) SavePending(ctx context.Context, trade model.PendingTrade) error {
	payload, err := json.Marshal(trade)
	if err != nil {
		return err
	}
	pipe := r.Client.Pipeline()
	pipe.HSet(ctx, r.pendingKey, trade.TradeHash, payload)
	pipe.Expire(ctx, r.pendingKey, 7*24*time.Hour)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisClient) RemovePending(ctx context.Context, tradeHash string) error {
	return r.Client.HDel(ctx, r.pendingKey, tradeHash).Err()
}

// ListPending returns trades that were submitted but never observed reaching
// a terminal status, so the watcher can resume them after a restart.
func (r *RedisClient) ListPending(ctx context.Context) ([]model.PendingTrade, error) {
	entries, err := r.Client.HGetAll(ctx, r.pendingKey).Result()
	if err != nil {
		return nil, err
	}
	trades := make([]model.PendingTrade, 0, len(entries))
	for _, raw := range entries {
		var trade model.PendingTrade
		if err := json.Unmarshal([]byte(raw), &trade); err != nil {
			continue
		}
		trades = append(trades, trade)
	}
	sort.Slice(trades, func(i, j int) bool {
		return trades[i].CreatedAt.Before(trades[j].CreatedAt)
	})
	if len(trades) > r.pendingMax {
		trades = trades[:r.pendingMax]
	}
	return trades, nil
}
