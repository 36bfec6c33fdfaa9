package service

import (
	"context"
	"sync"
	"time"
)

// UsageRepo tracks realized daily swap usage for limit enforcement.
type UsageRepo interface {
	GetDailyUsage(ctx context.Context, key string) (int, float64, error)
	AddDailyUsage(ctx context.Context, key string, swaps int, amount float64) error
}

// SwapUsageStore is the in-memory UsageRepo used when Redis is not
// configured.
type SwapUsageStore struct {
	mu          sync.RWMutex
	dailyVolume map[string]float64 // Key: scope:YYYY-MM-DD
	dailySwaps  map[string]int
}

func NewSwapUsageStore() *SwapUsageStore {
	return &SwapUsageStore{
		dailyVolume: make(map[string]float64),
		dailySwaps:  make(map[string]int),
	}
}

func (s *SwapUsageStore) GetDailyUsage(ctx context.Context, key string) (int, float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k := s.makeKey(key)
	return s.dailySwaps[k], s.dailyVolume[k], nil
}

func (s *SwapUsageStore) AddDailyUsage(ctx context.Context, key string, swaps int, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.makeKey(key)
	s.dailyVolume[k] += amount
	s.dailySwaps[k] += swaps
	return nil
}

func (s *SwapUsageStore) makeKey(key string) string {
	// Buckets roll over at UTC midnight
	return key + ":" + time.Now().UTC().Format("2006-01-02")
}
