package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dexgate/dexgate/internal/config"
	"github.com/dexgate/dexgate/internal/model"
	"github.com/dexgate/dexgate/internal/pkg/apperrors"
	"github.com/dexgate/dexgate/internal/pkg/metrics"
)

// usageScope keys daily usage buckets. The gateway serves one wallet, so a
// single scope is enough.
const usageScope = "gateway"

// LimitsGuard enforces pre-trade checks: token blacklist, per-swap value cap
// and daily volume/count caps. A zero cap disables that check.
type LimitsGuard struct {
	cfg       config.LimitsConfig
	usage     UsageRepo
	tokens    *TokenRegistry
	blacklist map[string]struct{}
}

func NewLimitsGuard(cfg config.LimitsConfig, usage UsageRepo, tokens *TokenRegistry) *LimitsGuard {
	blacklist := make(map[string]struct{}, len(cfg.BlacklistedTokens))
	for _, t := range cfg.BlacklistedTokens {
		blacklist[strings.ToLower(t)] = struct{}{}
	}
	return &LimitsGuard{cfg: cfg, usage: usage, tokens: tokens, blacklist: blacklist}
}

// CheckSwap runs before any quote is acted on. Rejections are terminal for
// the attempt, never retried silently.
func (g *LimitsGuard) CheckSwap(ctx context.Context, req *model.SwapRequest) error {
	for _, token := range []string{req.SellToken, req.BuyToken} {
		if _, ok := g.blacklist[strings.ToLower(token)]; ok {
			metrics.LimitRejects.WithLabelValues("blacklisted_token").Inc()
			return apperrors.NewLimitReject(fmt.Sprintf("token %s is blacklisted", token))
		}
	}

	value := g.swapValue(req)

	if g.cfg.MaxOrderValue > 0 && value.GreaterThan(decimal.NewFromFloat(g.cfg.MaxOrderValue)) {
		metrics.LimitRejects.WithLabelValues("max_order_value").Inc()
		return apperrors.NewLimitReject(
			fmt.Sprintf("swap value %s exceeds max order value %.2f", value.String(), g.cfg.MaxOrderValue))
	}

	if g.cfg.MaxDailyValue > 0 || g.cfg.MaxDailySwaps > 0 {
		swaps, volume, err := g.usage.GetDailyUsage(ctx, usageScope)
		if err != nil {
			return apperrors.Wrap(err)
		}
		if g.cfg.MaxDailySwaps > 0 && swaps >= g.cfg.MaxDailySwaps {
			metrics.LimitRejects.WithLabelValues("max_daily_swaps").Inc()
			return apperrors.NewLimitReject("daily swap count limit reached")
		}
		if g.cfg.MaxDailyValue > 0 {
			total := decimal.NewFromFloat(volume).Add(value)
			if total.GreaterThan(decimal.NewFromFloat(g.cfg.MaxDailyValue)) {
				metrics.LimitRejects.WithLabelValues("max_daily_value").Inc()
				return apperrors.NewLimitReject("daily swap volume limit reached")
			}
		}
	}

	return nil
}

// RecordSwap accounts a settled swap against the daily buckets.
func (g *LimitsGuard) RecordSwap(ctx context.Context, req *model.SwapRequest) error {
	return g.usage.AddDailyUsage(ctx, usageScope, 1, g.swapValue(req).InexactFloat64())
}

// swapValue normalizes the sell amount to whole sell-token units.
func (g *LimitsGuard) swapValue(req *model.SwapRequest) decimal.Decimal {
	amount := req.SellAmount
	token := req.SellToken
	if amount == "" {
		amount = req.BuyAmount
		token = req.BuyToken
	}
	raw, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero
	}
	return raw.Shift(int32(-g.tokens.Decimals(req.ChainID, token)))
}
