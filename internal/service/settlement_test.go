package service

import (
	"context"
	"encoding/hex"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"

	"github.com/dexgate/dexgate/internal/chain"
	"github.com/dexgate/dexgate/internal/config"
	"github.com/dexgate/dexgate/internal/model"
	"github.com/dexgate/dexgate/internal/zrx"
)

const (
	sellTokenAddr = "0x2791bca1f2de4661ed88a30c99a7a9449aa84174"
	buyTokenAddr  = "0x7ceb23fd6bc0add59e62ac25578270cff1b9f619"
)

// 65-byte signature with v = 27
var testSigHex = "0x" + strings.Repeat("11", 32) + strings.Repeat("22", 32) + "1b"

type mockQuoteAPI struct {
	quotes       []*zrx.Quote
	quoteCalls   int
	gaslessFlags []bool
	submitted    *zrx.GaslessSubmission
	submitResp   *zrx.SubmitResponse
	status       *zrx.TradeStatusResponse
}

func (m *mockQuoteAPI) Price(ctx context.Context, req *zrx.QuoteRequest, gasless bool) (*zrx.Quote, error) {
	return m.Quote(ctx, req, gasless)
}

func (m *mockQuoteAPI) Quote(ctx context.Context, req *zrx.QuoteRequest, gasless bool) (*zrx.Quote, error) {
	i := m.quoteCalls
	if i >= len(m.quotes) {
		i = len(m.quotes) - 1
	}
	m.quoteCalls++
	m.gaslessFlags = append(m.gaslessFlags, gasless)
	return m.quotes[i], nil
}

func (m *mockQuoteAPI) SubmitGasless(ctx context.Context, sub *zrx.GaslessSubmission) (*zrx.SubmitResponse, error) {
	m.submitted = sub
	return m.submitResp, nil
}

func (m *mockQuoteAPI) TradeStatus(ctx context.Context, tradeHash string) (*zrx.TradeStatusResponse, error) {
	return m.status, nil
}

type mockWallet struct {
	signs int
}

func (m *mockWallet) Address() common.Address {
	return common.HexToAddress("0x00000000000000000000000000000000000000a1")
}

func (m *mockWallet) SignTypedData(typed *apitypes.TypedData) (string, error) {
	m.signs++
	return testSigHex, nil
}

type mockChainAPI struct {
	approvals   int
	sent        *chain.TxRequest
	wrongChain  bool
	balance     *big.Int
	lastSpender common.Address
}

func (m *mockChainAPI) RequireChain(chainID int64) error {
	if m.wrongChain {
		return assert.AnError
	}
	return nil
}

func (m *mockChainAPI) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	if m.balance != nil {
		return m.balance, nil
	}
	return new(big.Int).Lsh(big.NewInt(1), 128), nil
}

func (m *mockChainAPI) ApproveERC20(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error) {
	m.approvals++
	m.lastSpender = spender
	return common.HexToHash("0x00000000000000000000000000000000000000000000000000000000000000a9"), nil
}

func (m *mockChainAPI) SendSettlement(ctx context.Context, req *chain.TxRequest) (common.Hash, error) {
	m.sent = req
	return common.HexToHash("0x00000000000000000000000000000000000000000000000000000000000000f1"), nil
}

func newTestService(quotes *mockQuoteAPI, wallet *mockWallet, chainAPI *mockChainAPI, gaslessChains []zrx.SupportedChain) *SettlementService {
	eligibility := NewEligibilityResolver(&mockSupportedAPI{
		resp: &zrx.SupportedResponse{Chains: gaslessChains},
	})
	tokens := NewTokenRegistry([]config.TokenConfig{
		{ChainID: 137, Address: sellTokenAddr, Symbol: "usdc", Decimals: 6},
		{ChainID: 137, Address: buyTokenAddr, Symbol: "weth", Decimals: 18},
	})
	limits := NewLimitsGuard(config.LimitsConfig{}, NewSwapUsageStore(), tokens)
	poller := NewStatusPoller(quotes, time.Millisecond)
	notifier := NewNotifier(poller, nil, nil)

	return NewSettlementService(
		quotes, wallet, chainAPI, eligibility, limits, notifier, tokens, nil,
		config.SwapConfig{SlippageBps: 100})
}

func sellRequest(gasless bool) *model.SwapRequest {
	return &model.SwapRequest{
		ChainID:    137,
		SellToken:  sellTokenAddr,
		BuyToken:   buyTokenAddr,
		SellAmount: "1000000",
		Side:       "sell",
		UseGasless: gasless,
	}
}

func standardQuote() *zrx.Quote {
	return &zrx.Quote{
		Kind:               zrx.QuoteStandard,
		Price:              "0.5",
		SellToken:          sellTokenAddr,
		BuyToken:           buyTokenAddr,
		SellAmount:         "1000000",
		BuyAmount:          "500000",
		LiquidityAvailable: true,
		Transaction: &zrx.Transaction{
			To:   "0x00000000000000000000000000000000000000e1",
			Data: "0xdeadbeef",
			Gas:  "210000",
		},
		Permit2: &zrx.Permit2{EIP712: &apitypes.TypedData{}},
	}
}

func TestExecuteSwapStandardNoApproval(t *testing.T) {
	quotes := &mockQuoteAPI{quotes: []*zrx.Quote{standardQuote()}}
	wallet := &mockWallet{}
	chainAPI := &mockChainAPI{}
	svc := newTestService(quotes, wallet, chainAPI, nil)

	receipt, err := svc.ExecuteSwap(context.Background(), sellRequest(false))
	assert.NoError(t, err)

	assert.Equal(t, "standard", receipt.Mode)
	assert.Equal(t, string(StateConfirmed), receipt.State)
	assert.NotEmpty(t, receipt.TxHash)
	assert.Empty(t, receipt.TradeHash)

	assert.Equal(t, 1, quotes.quoteCalls)
	assert.Equal(t, 0, chainAPI.approvals)
	assert.Equal(t, 1, wallet.signs) // permit2 only

	// calldata = original data + 32-byte big-endian sig length + sig
	data := chainAPI.sent.Data
	orig := common.FromHex("0xdeadbeef")
	sig := common.FromHex(testSigHex)
	assert.Equal(t, len(orig)+32+len(sig), len(data))
	assert.Equal(t, orig, data[:len(orig)])

	length := new(big.Int).SetBytes(data[len(orig) : len(orig)+32])
	assert.Equal(t, int64(len(sig)), length.Int64())
	assert.Equal(t, sig, data[len(orig)+32:])

	// settlement emits a side-tagged notification immediately
	notes := svc.notifier.Drain()
	assert.Len(t, notes, 1)
	assert.Equal(t, model.SubtypeMarketSell, notes[0].Subtype)
	assert.Equal(t, receipt.TxHash, notes[0].Metadata.Hash)
	assert.Equal(t, "USDC", notes[0].Values["sellTokenSymbol"])
	assert.Equal(t, "WETH", notes[0].Values["buyTokenSymbol"])
}

func TestExecuteSwapStandardWithApproval(t *testing.T) {
	first := standardQuote()
	first.Issues = &zrx.Issues{Allowance: &zrx.AllowanceIssue{
		Actual:  "0",
		Spender: "0x00000000000000000000000000000000000000d1",
	}}
	quotes := &mockQuoteAPI{quotes: []*zrx.Quote{first, standardQuote()}}
	wallet := &mockWallet{}
	chainAPI := &mockChainAPI{}
	svc := newTestService(quotes, wallet, chainAPI, nil)

	receipt, err := svc.ExecuteSwap(context.Background(), sellRequest(false))
	assert.NoError(t, err)
	assert.Equal(t, string(StateConfirmed), receipt.State)

	// approval, then a fresh quote before signing
	assert.Equal(t, 1, chainAPI.approvals)
	assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000d1"), chainAPI.lastSpender)
	assert.Equal(t, 2, quotes.quoteCalls)
}

func TestExecuteSwapStandardNativeSellSkipsApproval(t *testing.T) {
	quote := standardQuote()
	quote.SellToken = zrx.NativeTokenAddress
	quote.Issues = &zrx.Issues{Allowance: &zrx.AllowanceIssue{Actual: "0", Spender: "0xd1"}}
	quotes := &mockQuoteAPI{quotes: []*zrx.Quote{quote}}
	chainAPI := &mockChainAPI{}
	svc := newTestService(quotes, &mockWallet{}, chainAPI, nil)

	req := sellRequest(false)
	req.SellToken = zrx.NativeTokenAddress

	_, err := svc.ExecuteSwap(context.Background(), req)
	assert.NoError(t, err)
	assert.Equal(t, 0, chainAPI.approvals)
	assert.Equal(t, 1, quotes.quoteCalls)
}

func gaslessQuote(withAllowanceIssue, gaslessApproval bool) *zrx.Quote {
	q := &zrx.Quote{
		Kind:               zrx.QuoteGasless,
		Price:              "0.5",
		SellToken:          sellTokenAddr,
		BuyToken:           buyTokenAddr,
		SellAmount:         "1000000",
		BuyAmount:          "500000",
		LiquidityAvailable: true,
		Trade: &zrx.TradePayload{
			Type:   "metatransaction_v2",
			EIP712: &apitypes.TypedData{},
		},
	}
	if withAllowanceIssue {
		q.Issues = &zrx.Issues{Allowance: &zrx.AllowanceIssue{
			Actual:  "0",
			Spender: "0x00000000000000000000000000000000000000d1",
		}}
		q.Approval = &zrx.ApprovalPayload{
			IsRequired:         true,
			IsGaslessAvailable: gaslessApproval,
			Type:               "executeMetaTransaction::approve",
		}
		if gaslessApproval {
			q.Approval.EIP712 = &apitypes.TypedData{}
		}
	}
	return q
}

func gaslessChain() []zrx.SupportedChain {
	return []zrx.SupportedChain{{ChainID: 137}}
}

func TestExecuteSwapGaslessWithSignedApproval(t *testing.T) {
	quotes := &mockQuoteAPI{
		quotes:     []*zrx.Quote{gaslessQuote(true, true)},
		submitResp: &zrx.SubmitResponse{Type: "metatransaction_v2", TradeHash: "0xtrade"},
	}
	wallet := &mockWallet{}
	chainAPI := &mockChainAPI{}
	svc := newTestService(quotes, wallet, chainAPI, gaslessChain())

	receipt, err := svc.ExecuteSwap(context.Background(), sellRequest(true))
	assert.NoError(t, err)

	assert.Equal(t, "gasless", receipt.Mode)
	assert.Equal(t, string(StateAwaitingConfirmation), receipt.State)
	assert.Equal(t, "0xtrade", receipt.TradeHash)
	assert.Empty(t, receipt.TxHash)

	// approval + trade signatures, no on-chain approval
	assert.Equal(t, 2, wallet.signs)
	assert.Equal(t, 0, chainAPI.approvals)
	assert.Equal(t, 1, quotes.quoteCalls)
	assert.True(t, quotes.gaslessFlags[0])

	sub := quotes.submitted
	assert.NotNil(t, sub.Approval)
	assert.NotNil(t, sub.Trade)
	assert.Equal(t, "137", sub.ChainID)

	// split signatures keep full 64-char scalars and derived recovery param
	assert.Len(t, sub.Trade.Signature.R, 66)
	assert.Len(t, sub.Trade.Signature.S, 66)
	assert.Equal(t, 27, sub.Trade.Signature.V)
	assert.Equal(t, 0, sub.Trade.Signature.RecoveryParam)
	assert.Equal(t, 2, sub.Trade.Signature.SignatureType)
	assert.Equal(t, sub.Trade.Signature.R, sub.Approval.Signature.R)
}

func TestExecuteSwapGaslessOnchainApprovalFallback(t *testing.T) {
	quotes := &mockQuoteAPI{
		quotes:     []*zrx.Quote{gaslessQuote(true, false), gaslessQuote(false, false)},
		submitResp: &zrx.SubmitResponse{TradeHash: "0xtrade"},
	}
	wallet := &mockWallet{}
	chainAPI := &mockChainAPI{}
	svc := newTestService(quotes, wallet, chainAPI, gaslessChain())

	receipt, err := svc.ExecuteSwap(context.Background(), sellRequest(true))
	assert.NoError(t, err)
	assert.Equal(t, "0xtrade", receipt.TradeHash)

	// on-chain approval, fresh gasless quote, then trade signature only
	assert.Equal(t, 1, chainAPI.approvals)
	assert.Equal(t, 2, quotes.quoteCalls)
	assert.True(t, quotes.gaslessFlags[1])
	assert.Equal(t, 1, wallet.signs)
	assert.Nil(t, quotes.submitted.Approval)
}

func TestExecuteSwapGaslessNoAllowanceIssue(t *testing.T) {
	quotes := &mockQuoteAPI{
		quotes:     []*zrx.Quote{gaslessQuote(false, false)},
		submitResp: &zrx.SubmitResponse{TradeHash: "0xtrade"},
	}
	wallet := &mockWallet{}
	chainAPI := &mockChainAPI{}
	svc := newTestService(quotes, wallet, chainAPI, gaslessChain())

	_, err := svc.ExecuteSwap(context.Background(), sellRequest(true))
	assert.NoError(t, err)

	assert.Equal(t, 0, chainAPI.approvals)
	assert.Equal(t, 1, wallet.signs) // trade signature is unconditional
	assert.Nil(t, quotes.submitted.Approval)
}

func TestExecuteSwapGaslessFallsBackToStandardWhenIneligible(t *testing.T) {
	quotes := &mockQuoteAPI{quotes: []*zrx.Quote{standardQuote()}}
	chainAPI := &mockChainAPI{}
	// no chain is gasless-eligible
	svc := newTestService(quotes, &mockWallet{}, chainAPI, nil)

	receipt, err := svc.ExecuteSwap(context.Background(), sellRequest(true))
	assert.NoError(t, err)
	assert.Equal(t, "standard", receipt.Mode)
	assert.False(t, quotes.gaslessFlags[0])
	assert.NotNil(t, chainAPI.sent)
}

func TestExecuteSwapWrongChain(t *testing.T) {
	quotes := &mockQuoteAPI{quotes: []*zrx.Quote{standardQuote()}}
	svc := newTestService(quotes, &mockWallet{}, &mockChainAPI{wrongChain: true}, nil)

	_, err := svc.ExecuteSwap(context.Background(), sellRequest(false))
	assert.Error(t, err)
	assert.Equal(t, 0, quotes.quoteCalls)
}

func TestExecuteSwapInsufficientBalance(t *testing.T) {
	quotes := &mockQuoteAPI{quotes: []*zrx.Quote{standardQuote()}}
	chainAPI := &mockChainAPI{balance: big.NewInt(1)}
	svc := newTestService(quotes, &mockWallet{}, chainAPI, nil)

	_, err := svc.ExecuteSwap(context.Background(), sellRequest(false))
	assert.Error(t, err)
	assert.Equal(t, 0, quotes.quoteCalls)
}

func TestAppendPermit2Signature(t *testing.T) {
	data := []byte{0x01, 0x02}
	sig, _ := hex.DecodeString(strings.TrimPrefix(testSigHex, "0x"))

	out := appendPermit2Signature(data, sig)
	assert.Equal(t, 2+32+65, len(out))
	assert.Equal(t, byte(65), out[2+31]) // length word is big-endian
	assert.Equal(t, sig, out[2+32:])
}
