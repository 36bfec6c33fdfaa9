package service

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dexgate/dexgate/internal/config"
)

func TestTokenRegistryLookup(t *testing.T) {
	r := NewTokenRegistry([]config.TokenConfig{
		{ChainID: 137, Address: "0xAbCd00000000000000000000000000000000AbCd", Symbol: "usdc", Decimals: 6},
	})

	tok, ok := r.Lookup(137, "0xabcd00000000000000000000000000000000abcd")
	assert.True(t, ok) // addresses match case-insensitively
	assert.Equal(t, "usdc", tok.Symbol)

	_, ok = r.Lookup(1, "0xabcd00000000000000000000000000000000abcd")
	assert.False(t, ok)
}

func TestTokenRegistrySymbolFallback(t *testing.T) {
	r := NewTokenRegistry([]config.TokenConfig{
		{ChainID: 137, Address: "0xaaaa000000000000000000000000000000000001", Symbol: "weth", Decimals: 18},
	})

	assert.Equal(t, "WETH", r.Symbol(137, "0xaaaa000000000000000000000000000000000001"))
	// unknown tokens shorten to the address prefix
	assert.Equal(t, "0XBBBB0000", r.Symbol(137, "0xbbbb000000000000000000000000000000000002"))
}

func TestTokenRegistryDecimalsFallback(t *testing.T) {
	r := NewTokenRegistry([]config.TokenConfig{
		{ChainID: 137, Address: "0xaaaa000000000000000000000000000000000001", Decimals: 6},
	})

	assert.Equal(t, 6, r.Decimals(137, "0xaaaa000000000000000000000000000000000001"))
	assert.Equal(t, 18, r.Decimals(137, "0xunknown"))
}

func TestHasLegacySpendableAllowance(t *testing.T) {
	r := NewTokenRegistry([]config.TokenConfig{
		{ChainID: 137, Address: "0xaaaa000000000000000000000000000000000001", Decimals: 6},
	})
	addr := "0xaaaa000000000000000000000000000000000001"

	// threshold is 10 whole tokens: 10 * 10^6
	assert.False(t, r.HasLegacySpendableAllowance(137, addr, nil))
	assert.False(t, r.HasLegacySpendableAllowance(137, addr, big.NewInt(9_999_999)))
	assert.True(t, r.HasLegacySpendableAllowance(137, addr, big.NewInt(10_000_000)))
	assert.True(t, r.HasLegacySpendableAllowance(137, addr, big.NewInt(10_000_001)))
}
