package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dexgate/dexgate/internal/zrx"
)

type mockSupportedAPI struct {
	calls int
	resp  *zrx.SupportedResponse
	err   error
}

func (m *mockSupportedAPI) GaslessSupported(ctx context.Context, chainID int64) (*zrx.SupportedResponse, error) {
	m.calls++
	return m.resp, m.err
}

func TestEligibilityWholeChain(t *testing.T) {
	api := &mockSupportedAPI{resp: &zrx.SupportedResponse{
		Chains: []zrx.SupportedChain{{ChainID: 137}},
	}}
	r := NewEligibilityResolver(api)

	ok, err := r.IsGaslessSupported(context.Background(), 137, "0xToken")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.IsGaslessSupported(context.Background(), 137, "0xOther")
	assert.NoError(t, err)
	assert.True(t, ok)

	// Lookups after the first hit the cache
	assert.Equal(t, 1, api.calls)
}

func TestEligibilityTokenList(t *testing.T) {
	api := &mockSupportedAPI{resp: &zrx.SupportedResponse{
		Chains: []zrx.SupportedChain{{ChainID: 137, Tokens: []string{"0xAAAA"}}},
	}}
	r := NewEligibilityResolver(api)

	ok, _ := r.IsGaslessSupported(context.Background(), 137, "0xaaaa")
	assert.True(t, ok) // case-insensitive match

	ok, _ = r.IsGaslessSupported(context.Background(), 137, "0xbbbb")
	assert.False(t, ok)
}

func TestEligibilityUnsupportedChain(t *testing.T) {
	api := &mockSupportedAPI{resp: &zrx.SupportedResponse{
		Chains: []zrx.SupportedChain{{ChainID: 1}},
	}}
	r := NewEligibilityResolver(api)

	ok, err := r.IsGaslessSupported(context.Background(), 137, "0xToken")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestEligibilityAbsentInputs(t *testing.T) {
	api := &mockSupportedAPI{}
	r := NewEligibilityResolver(api)

	ok, err := r.IsGaslessSupported(context.Background(), 0, "0xToken")
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.IsGaslessSupported(context.Background(), 137, "")
	assert.NoError(t, err)
	assert.False(t, ok)

	// Absent inputs never trigger a fetch
	assert.Equal(t, 0, api.calls)
}

func TestEligibilityFetchErrorNotCached(t *testing.T) {
	api := &mockSupportedAPI{err: fmt.Errorf("upstream down")}
	r := NewEligibilityResolver(api)

	_, err := r.IsGaslessSupported(context.Background(), 137, "0xToken")
	assert.Error(t, err)

	api.err = nil
	api.resp = &zrx.SupportedResponse{Chains: []zrx.SupportedChain{{ChainID: 137}}}

	ok, err := r.IsGaslessSupported(context.Background(), 137, "0xToken")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, api.calls) // failed fetch retried, success cached
}
