package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dexgate/dexgate/internal/config"
	"github.com/dexgate/dexgate/internal/model"
	"github.com/dexgate/dexgate/internal/pkg/apperrors"
)

func testTokens() *TokenRegistry {
	return NewTokenRegistry([]config.TokenConfig{
		{ChainID: 137, Address: sellTokenAddr, Symbol: "usdc", Decimals: 6},
	})
}

func limitsRequest(sellAmount string) *model.SwapRequest {
	return &model.SwapRequest{
		ChainID:    137,
		SellToken:  sellTokenAddr,
		BuyToken:   buyTokenAddr,
		SellAmount: sellAmount,
		Side:       "sell",
	}
}

func TestLimitsNoCapsPass(t *testing.T) {
	g := NewLimitsGuard(config.LimitsConfig{}, NewSwapUsageStore(), testTokens())

	err := g.CheckSwap(context.Background(), limitsRequest("1000000000000"))
	assert.NoError(t, err)
}

func TestLimitsBlacklist(t *testing.T) {
	g := NewLimitsGuard(config.LimitsConfig{
		BlacklistedTokens: []string{sellTokenAddr},
	}, NewSwapUsageStore(), testTokens())

	err := g.CheckSwap(context.Background(), limitsRequest("1000000"))
	assert.True(t, apperrors.Is(err, apperrors.ErrLimitReject))
}

func TestLimitsMaxOrderValue(t *testing.T) {
	g := NewLimitsGuard(config.LimitsConfig{MaxOrderValue: 100}, NewSwapUsageStore(), testTokens())

	// 50 USDC (6 decimals) is under the cap
	assert.NoError(t, g.CheckSwap(context.Background(), limitsRequest("50000000")))

	// 150 USDC exceeds it
	err := g.CheckSwap(context.Background(), limitsRequest("150000000"))
	assert.True(t, apperrors.Is(err, apperrors.ErrLimitReject))
}

func TestLimitsDailySwapCount(t *testing.T) {
	usage := NewSwapUsageStore()
	g := NewLimitsGuard(config.LimitsConfig{MaxDailySwaps: 2}, usage, testTokens())

	req := limitsRequest("1000000")
	for i := 0; i < 2; i++ {
		assert.NoError(t, g.CheckSwap(context.Background(), req))
		assert.NoError(t, g.RecordSwap(context.Background(), req))
	}

	err := g.CheckSwap(context.Background(), req)
	assert.True(t, apperrors.Is(err, apperrors.ErrLimitReject))
}

func TestLimitsDailyVolume(t *testing.T) {
	usage := NewSwapUsageStore()
	g := NewLimitsGuard(config.LimitsConfig{MaxDailyValue: 100}, usage, testTokens())

	req := limitsRequest("80000000") // 80 USDC
	assert.NoError(t, g.CheckSwap(context.Background(), req))
	assert.NoError(t, g.RecordSwap(context.Background(), req))

	// 80 + 80 would exceed the 100 cap
	err := g.CheckSwap(context.Background(), req)
	assert.True(t, apperrors.Is(err, apperrors.ErrLimitReject))
}
