package service

import (
	"context"
	"strings"
	"sync"

	"github.com/dexgate/dexgate/internal/zrx"
)

// SupportedAPI is the slice of the swap client the resolver needs.
type SupportedAPI interface {
	GaslessSupported(ctx context.Context, chainID int64) (*zrx.SupportedResponse, error)
}

type gaslessSupport struct {
	supported bool
	// nil means the whole chain is eligible; otherwise the allowed token set
	tokens map[string]struct{}
}

// EligibilityResolver answers whether a token on a chain can settle
// gaslessly. The per-chain supported list is fetched once and cached for the
// process lifetime; it gates which quote variant and settlement branch runs.
type EligibilityResolver struct {
	api SupportedAPI

	mu    sync.Mutex
	cache map[int64]*gaslessSupport
}

func NewEligibilityResolver(api SupportedAPI) *EligibilityResolver {
	return &EligibilityResolver{
		api:   api,
		cache: make(map[int64]*gaslessSupport),
	}
}

// IsGaslessSupported returns false, never an error, for absent inputs. A
// fetch failure is returned as an error and not cached, so the next call
// retries.
func (r *EligibilityResolver) IsGaslessSupported(ctx context.Context, chainID int64, tokenAddress string) (bool, error) {
	if chainID == 0 || tokenAddress == "" {
		return false, nil
	}

	support, err := r.chainSupport(ctx, chainID)
	if err != nil {
		return false, err
	}
	if !support.supported {
		return false, nil
	}
	if support.tokens == nil {
		return true, nil
	}
	_, ok := support.tokens[strings.ToLower(tokenAddress)]
	return ok, nil
}

func (r *EligibilityResolver) chainSupport(ctx context.Context, chainID int64) (*gaslessSupport, error) {
	r.mu.Lock()
	if cached, ok := r.cache[chainID]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	resp, err := r.api.GaslessSupported(ctx, chainID)
	if err != nil {
		return nil, err
	}

	support := &gaslessSupport{}
	for _, chain := range resp.Chains {
		if chain.ChainID != chainID {
			continue
		}
		support.supported = true
		if len(chain.Tokens) > 0 {
			support.tokens = make(map[string]struct{}, len(chain.Tokens))
			for _, t := range chain.Tokens {
				support.tokens[strings.ToLower(t)] = struct{}{}
			}
		}
		break
	}

	r.mu.Lock()
	r.cache[chainID] = support
	r.mu.Unlock()
	return support, nil
}
