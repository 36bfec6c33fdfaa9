package service

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"github.com/dexgate/dexgate/internal/config"
	"github.com/dexgate/dexgate/internal/model"
)

// TokenStore is the persistence hook for the registry. Optional.
type TokenStore interface {
	List(ctx context.Context) ([]model.Token, error)
	Upsert(ctx context.Context, token model.Token) error
}

// TokenRegistry holds per-chain token metadata used for notification values,
// limit math and the allowance helper.
type TokenRegistry struct {
	mu      sync.RWMutex
	byChain map[int64]map[string]model.Token
}

func NewTokenRegistry(seed []config.TokenConfig) *TokenRegistry {
	r := &TokenRegistry{byChain: make(map[int64]map[string]model.Token)}
	for _, t := range seed {
		r.put(model.Token{
			ChainID:  t.ChainID,
			Address:  t.Address,
			Symbol:   t.Symbol,
			Decimals: t.Decimals,
		})
	}
	return r
}

// Load merges persisted tokens over the config seed.
func (r *TokenRegistry) Load(ctx context.Context, store TokenStore) error {
	tokens, err := store.List(ctx)
	if err != nil {
		return err
	}
	for _, t := range tokens {
		r.put(t)
	}
	return nil
}

// Register adds or updates a token, writing through to the store when one is
// configured.
func (r *TokenRegistry) Register(ctx context.Context, store TokenStore, t model.Token) error {
	r.put(t)
	if store != nil {
		return store.Upsert(ctx, t)
	}
	return nil
}

func (r *TokenRegistry) put(t model.Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chain, ok := r.byChain[t.ChainID]
	if !ok {
		chain = make(map[string]model.Token)
		r.byChain[t.ChainID] = chain
	}
	chain[strings.ToLower(t.Address)] = t
}

func (r *TokenRegistry) Lookup(chainID int64, address string) (model.Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byChain[chainID][strings.ToLower(address)]
	return t, ok
}

// Symbol returns the upper-cased symbol, or a shortened address when the
// token is unknown.
func (r *TokenRegistry) Symbol(chainID int64, address string) string {
	if t, ok := r.Lookup(chainID, address); ok && t.Symbol != "" {
		return strings.ToUpper(t.Symbol)
	}
	if len(address) > 10 {
		return strings.ToUpper(address[:10])
	}
	return strings.ToUpper(address)
}

// Decimals returns the token's decimals, defaulting to 18 for unknown tokens.
func (r *TokenRegistry) Decimals(chainID int64, address string) int {
	if t, ok := r.Lookup(chainID, address); ok && t.Decimals > 0 {
		return t.Decimals
	}
	return 18
}

// legacyAllowanceUnits is the fixed human-unit threshold the legacy balance
// helper compares allowances against. It is intentionally not derived from
// the swap amount; callers that need an exact check use the quote issues.
const legacyAllowanceUnits = 10

// HasLegacySpendableAllowance reports whether an allowance clears the legacy
// fixed threshold of 10 whole tokens.
func (r *TokenRegistry) HasLegacySpendableAllowance(chainID int64, address string, allowance *big.Int) bool {
	if allowance == nil {
		return false
	}
	threshold := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(r.Decimals(chainID, address))), nil)
	threshold.Mul(threshold, big.NewInt(legacyAllowanceUnits))
	return allowance.Cmp(threshold) >= 0
}
