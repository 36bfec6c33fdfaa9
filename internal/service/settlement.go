package service

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/google/uuid"

	"github.com/dexgate/dexgate/internal/chain"
	"github.com/dexgate/dexgate/internal/config"
	"github.com/dexgate/dexgate/internal/model"
	"github.com/dexgate/dexgate/internal/pkg/apperrors"
	"github.com/dexgate/dexgate/internal/pkg/logger"
	"github.com/dexgate/dexgate/internal/pkg/metrics"
	"github.com/dexgate/dexgate/internal/signer"
	"github.com/dexgate/dexgate/internal/zrx"
)

// Settlement states. Within one attempt transitions are strictly sequential;
// a failure at any step aborts the attempt and surfaces the error.
type State string

const (
	StateQuoting                   State = "quoting"
	StateAwaitingApprovalSignature State = "awaiting_approval_signature"
	StateAwaitingOnchainApproval   State = "awaiting_onchain_approval"
	StateAwaitingTradeSignature    State = "awaiting_trade_signature"
	StateSubmitting                State = "submitting"
	StateAwaitingConfirmation      State = "awaiting_confirmation"
	StateConfirmed                 State = "confirmed"
	StateFailed                    State = "failed"
)

// QuoteAPI is the slice of the swap client the orchestrator needs.
type QuoteAPI interface {
	Price(ctx context.Context, req *zrx.QuoteRequest, gasless bool) (*zrx.Quote, error)
	Quote(ctx context.Context, req *zrx.QuoteRequest, gasless bool) (*zrx.Quote, error)
	SubmitGasless(ctx context.Context, sub *zrx.GaslessSubmission) (*zrx.SubmitResponse, error)
	TradeStatus(ctx context.Context, tradeHash string) (*zrx.TradeStatusResponse, error)
}

// Wallet signs EIP-712 payloads on behalf of the gateway.
type Wallet interface {
	Address() common.Address
	SignTypedData(typed *apitypes.TypedData) (string, error)
}

// ChainAPI performs on-chain reads and blocking writes.
type ChainAPI interface {
	RequireChain(chainID int64) error
	BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error)
	ApproveERC20(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error)
	SendSettlement(ctx context.Context, req *chain.TxRequest) (common.Hash, error)
}

// SettlementStore persists settlement history rows. Optional.
type SettlementStore interface {
	Insert(ctx context.Context, rec *model.SettlementRecord) error
	UpdateStatus(ctx context.Context, id, status, txHash, reason string) error
	Get(ctx context.Context, id string) (*model.SettlementRecord, error)
	List(ctx context.Context, limit int) ([]*model.SettlementRecord, error)
}

// SettlementService drives the quote, approval, signature and submission
// sequence for one swap, branching on the standard vs. gasless path.
type SettlementService struct {
	quotes      QuoteAPI
	wallet      Wallet
	chain       ChainAPI
	eligibility *EligibilityResolver
	limits      *LimitsGuard
	notifier    *Notifier
	tokens      *TokenRegistry
	history     SettlementStore
	swapCfg     config.SwapConfig
}

func NewSettlementService(
	quotes QuoteAPI,
	wallet Wallet,
	chainAPI ChainAPI,
	eligibility *EligibilityResolver,
	limits *LimitsGuard,
	notifier *Notifier,
	tokens *TokenRegistry,
	history SettlementStore,
	swapCfg config.SwapConfig,
) *SettlementService {
	return &SettlementService{
		quotes:      quotes,
		wallet:      wallet,
		chain:       chainAPI,
		eligibility: eligibility,
		limits:      limits,
		notifier:    notifier,
		tokens:      tokens,
		history:     history,
		swapCfg:     swapCfg,
	}
}

// Price fetches an indicative price, gated by the eligibility resolver.
func (s *SettlementService) Price(ctx context.Context, req *model.SwapRequest) (*zrx.Quote, error) {
	gasless, err := s.canGasless(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.quotes.Price(ctx, s.buildQuoteRequest(req), gasless)
}

// Quote fetches a firm quote, gated by the eligibility resolver.
func (s *SettlementService) Quote(ctx context.Context, req *model.SwapRequest) (*zrx.Quote, error) {
	gasless, err := s.canGasless(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.quotes.Quote(ctx, s.buildQuoteRequest(req), gasless)
}

// GaslessSupported exposes the resolver's verdict for one token.
func (s *SettlementService) GaslessSupported(ctx context.Context, chainID int64, token string) (bool, error) {
	return s.eligibility.IsGaslessSupported(ctx, chainID, token)
}

// TradeState fetches the live relayer status for a trade hash.
func (s *SettlementService) TradeState(ctx context.Context, tradeHash string) (TradeState, error) {
	status, err := s.quotes.TradeStatus(ctx, tradeHash)
	if err != nil {
		return TradeState{}, err
	}
	return DeriveTradeState(tradeHash, status), nil
}

// GetSettlement returns one persisted settlement record.
func (s *SettlementService) GetSettlement(ctx context.Context, id string) (*model.SettlementRecord, error) {
	if s.history == nil {
		return nil, apperrors.New(apperrors.ErrNotFound, "settlement history is not configured", nil)
	}
	rec, err := s.history.Get(ctx, id)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrNotFound, "settlement not found", err)
	}
	return rec, nil
}

// ListSettlements returns the most recent persisted settlement records.
func (s *SettlementService) ListSettlements(ctx context.Context, limit int) ([]*model.SettlementRecord, error) {
	if s.history == nil {
		return nil, apperrors.New(apperrors.ErrNotFound, "settlement history is not configured", nil)
	}
	return s.history.List(ctx, limit)
}

// ExecuteSwap runs one settlement attempt end to end.
func (s *SettlementService) ExecuteSwap(ctx context.Context, req *model.SwapRequest) (*model.SwapReceipt, error) {
	started := time.Now()

	if err := s.chain.RequireChain(req.ChainID); err != nil {
		return nil, err
	}
	if err := s.limits.CheckSwap(ctx, req); err != nil {
		return nil, err
	}
	if err := s.checkSellBalance(ctx, req); err != nil {
		return nil, err
	}

	gasless, err := s.canGasless(ctx, req)
	if err != nil {
		return nil, err
	}

	mode := "standard"
	if gasless {
		mode = "gasless"
	}
	receipt := &model.SwapReceipt{
		ID:      uuid.NewString(),
		Mode:    mode,
		ChainID: req.ChainID,
		Side:    req.Side,
	}

	qreq := s.buildQuoteRequest(req)
	s.transition(receipt, StateQuoting)

	quote, err := s.quotes.Quote(ctx, qreq, gasless)
	if err != nil {
		return s.fail(ctx, req, receipt, err)
	}
	receipt.SellAmount = quote.SellAmount
	receipt.BuyAmount = quote.BuyAmount
	receipt.Price = quote.Price

	s.recordHistory(ctx, req, receipt)

	if gasless {
		err = s.settleGasless(ctx, req, qreq, quote, receipt)
	} else {
		err = s.settleStandard(ctx, req, qreq, quote, receipt)
	}
	if err != nil {
		return s.fail(ctx, req, receipt, err)
	}

	if err := s.limits.RecordSwap(ctx, req); err != nil {
		logger.Warn("failed to record swap usage", "error", err)
	}

	metrics.SwapsTotal.WithLabelValues("ok", req.Side, mode).Inc()
	metrics.SettlementDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
	s.updateHistory(ctx, receipt, "")
	return receipt, nil
}

// settleStandard drives the on-chain path: conditional blocking approval,
// post-approval re-quote, permit2 signature spliced into calldata, then a
// single settlement transaction.
func (s *SettlementService) settleStandard(ctx context.Context, req *model.SwapRequest, qreq *zrx.QuoteRequest, quote *zrx.Quote, receipt *model.SwapReceipt) error {
	nativeSell := strings.EqualFold(quote.SellToken, zrx.NativeTokenAddress)

	if !nativeSell && quote.Issues != nil && quote.Issues.Allowance != nil {
		s.transition(receipt, StateAwaitingOnchainApproval)
		if err := s.approveOnchain(ctx, quote); err != nil {
			return err
		}

		// Approval can change permit2 eligibility; re-quote before signing.
		s.transition(receipt, StateQuoting)
		fresh, err := s.quotes.Quote(ctx, qreq, false)
		if err != nil {
			return err
		}
		quote = fresh
	}

	if quote.Transaction == nil {
		return apperrors.New(apperrors.ErrUpstream, "quote carries no settlement transaction", nil)
	}

	data := common.FromHex(quote.Transaction.Data)

	if quote.Permit2 != nil && quote.Permit2.EIP712 != nil {
		sigHex, err := s.wallet.SignTypedData(quote.Permit2.EIP712)
		if err != nil {
			return apperrors.New(apperrors.ErrSignatureRejected, "permit2 signature rejected", err)
		}
		data = appendPermit2Signature(data, common.FromHex(sigHex))
	}

	s.transition(receipt, StateSubmitting)
	txReq, err := buildTxRequest(quote.Transaction, data)
	if err != nil {
		return err
	}

	s.transition(receipt, StateAwaitingConfirmation)
	hash, err := s.chain.SendSettlement(ctx, txReq)
	if err != nil {
		return err
	}

	receipt.TxHash = hash.Hex()
	s.transition(receipt, StateConfirmed)

	s.notifier.Notify(model.Notification{
		Type:    "transaction",
		Subtype: model.SubtypeForSide(req.Side),
		Metadata: model.NotificationMetadata{
			Hash:    receipt.TxHash,
			ChainID: req.ChainID,
		},
		Values: s.notificationValues(req, quote),
	})
	return nil
}

// settleGasless drives the relayer path: gasless approval signature when
// available, on-chain approval fallback, unconditional trade signature, one
// submission carrying both split signatures.
func (s *SettlementService) settleGasless(ctx context.Context, req *model.SwapRequest, qreq *zrx.QuoteRequest, quote *zrx.Quote, receipt *model.SwapReceipt) error {
	var approvalPayload *zrx.SignedPayload

	tokenApprovalRequired := quote.Issues != nil && quote.Issues.Allowance != nil
	gaslessApprovalAvailable := quote.Approval != nil && quote.Approval.IsGaslessAvailable && quote.Approval.EIP712 != nil

	if tokenApprovalRequired {
		if gaslessApprovalAvailable {
			s.transition(receipt, StateAwaitingApprovalSignature)
			sigHex, err := s.wallet.SignTypedData(quote.Approval.EIP712)
			if err != nil {
				return apperrors.New(apperrors.ErrSignatureRejected, "gasless approval signature rejected", err)
			}
			split, err := signer.Split(sigHex)
			if err != nil {
				return apperrors.New(apperrors.ErrSignatureRejected, "invalid approval signature", err)
			}
			approvalPayload = &zrx.SignedPayload{
				Type:      quote.Approval.Type,
				EIP712:    quote.Approval.EIP712,
				Signature: split,
			}
		} else {
			s.transition(receipt, StateAwaitingOnchainApproval)
			if err := s.approveOnchain(ctx, quote); err != nil {
				return err
			}

			s.transition(receipt, StateQuoting)
			fresh, err := s.quotes.Quote(ctx, qreq, true)
			if err != nil {
				return err
			}
			quote = fresh
		}
	}

	if quote.Trade == nil || quote.Trade.EIP712 == nil {
		return apperrors.New(apperrors.ErrUpstream, "gasless quote carries no trade payload", nil)
	}

	s.transition(receipt, StateAwaitingTradeSignature)
	sigHex, err := s.wallet.SignTypedData(quote.Trade.EIP712)
	if err != nil {
		return apperrors.New(apperrors.ErrSignatureRejected, "trade signature rejected", err)
	}
	tradeSplit, err := signer.Split(sigHex)
	if err != nil {
		return apperrors.New(apperrors.ErrSignatureRejected, "invalid trade signature", err)
	}

	s.transition(receipt, StateSubmitting)
	resp, err := s.quotes.SubmitGasless(ctx, &zrx.GaslessSubmission{
		Trade: &zrx.SignedPayload{
			Type:      quote.Trade.Type,
			EIP712:    quote.Trade.EIP712,
			Signature: tradeSplit,
		},
		Approval: approvalPayload,
		ChainID:  strconv.FormatInt(req.ChainID, 10),
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUpstream) {
			return apperrors.New(apperrors.ErrSubmissionFailed, "relayer rejected the signed payload", err)
		}
		return err
	}

	receipt.TradeHash = resp.TradeHash
	s.transition(receipt, StateAwaitingConfirmation)

	// Hand off to the status poller via the notification watcher.
	s.notifier.RecordPending(model.PendingTrade{
		Subtype:   model.SubtypeForSide(req.Side),
		ChainID:   req.ChainID,
		TradeHash: resp.TradeHash,
		Values:    s.notificationValues(req, quote),
	})
	return nil
}

func (s *SettlementService) approveOnchain(ctx context.Context, quote *zrx.Quote) error {
	spender := common.HexToAddress(quote.Issues.Allowance.Spender)
	token := common.HexToAddress(quote.SellToken)

	// Approve the sell amount, or unlimited when it is unknown.
	amount, ok := new(big.Int).SetString(quote.SellAmount, 10)
	if !ok {
		amount = nil
	}
	_, err := s.chain.ApproveERC20(ctx, token, spender, amount)
	return err
}

// checkSellBalance rejects sell-side swaps the wallet cannot fund. Native
// sells are skipped: gas accounting makes a plain balance compare misleading.
func (s *SettlementService) checkSellBalance(ctx context.Context, req *model.SwapRequest) error {
	if req.SellAmount == "" || strings.EqualFold(req.SellToken, zrx.NativeTokenAddress) {
		return nil
	}
	amount, ok := new(big.Int).SetString(req.SellAmount, 10)
	if !ok {
		return nil
	}
	balance, err := s.chain.BalanceOf(ctx, common.HexToAddress(req.SellToken), s.wallet.Address())
	if err != nil {
		logger.Warn("balance lookup failed, proceeding on quote issues", "token", req.SellToken, "error", err)
		return nil
	}
	if balance.Cmp(amount) < 0 {
		return apperrors.New(apperrors.ErrInvalidRequest,
			fmt.Sprintf("wallet balance %s is below sell amount %s", balance, req.SellAmount), nil)
	}
	return nil
}

func (s *SettlementService) canGasless(ctx context.Context, req *model.SwapRequest) (bool, error) {
	if !req.UseGasless {
		return false, nil
	}
	// Evaluated before every quote fetch; the resolver caches per chain.
	return s.eligibility.IsGaslessSupported(ctx, req.ChainID, req.SellToken)
}

func (s *SettlementService) buildQuoteRequest(req *model.SwapRequest) *zrx.QuoteRequest {
	slippage := req.SlippageBps
	if slippage <= 0 {
		slippage = s.swapCfg.SlippageBps
	}
	return &zrx.QuoteRequest{
		ChainID:      req.ChainID,
		SellToken:    req.SellToken,
		BuyToken:     req.BuyToken,
		SellAmount:   req.SellAmount,
		BuyAmount:    req.BuyAmount,
		Taker:        s.wallet.Address().Hex(),
		SlippageBps:  slippage,
		FeeRecipient: s.swapCfg.FeeRecipient,
		FeeBps:       s.swapCfg.FeeBps,
		FeeToken:     s.swapCfg.FeeToken,
	}
}

func (s *SettlementService) notificationValues(req *model.SwapRequest, quote *zrx.Quote) map[string]string {
	return map[string]string{
		"sellAmount":      quote.SellAmount,
		"sellTokenSymbol": s.tokens.Symbol(req.ChainID, req.SellToken),
		"buyAmount":       quote.BuyAmount,
		"buyTokenSymbol":  s.tokens.Symbol(req.ChainID, req.BuyToken),
	}
}

func (s *SettlementService) transition(receipt *model.SwapReceipt, state State) {
	receipt.State = string(state)
	logger.Debug("settlement state", "id", receipt.ID, "state", state, "mode", receipt.Mode)
}

func (s *SettlementService) fail(ctx context.Context, req *model.SwapRequest, receipt *model.SwapReceipt, err error) (*model.SwapReceipt, error) {
	s.transition(receipt, StateFailed)
	metrics.SwapsTotal.WithLabelValues("error", req.Side, receipt.Mode).Inc()
	s.updateHistory(ctx, receipt, err.Error())
	return receipt, err
}

func (s *SettlementService) recordHistory(ctx context.Context, req *model.SwapRequest, receipt *model.SwapReceipt) {
	if s.history == nil {
		return
	}
	now := time.Now().UTC()
	err := s.history.Insert(ctx, &model.SettlementRecord{
		ID:         receipt.ID,
		ChainID:    req.ChainID,
		Mode:       receipt.Mode,
		Side:       req.Side,
		SellToken:  req.SellToken,
		BuyToken:   req.BuyToken,
		SellAmount: receipt.SellAmount,
		BuyAmount:  receipt.BuyAmount,
		TradeHash:  receipt.TradeHash,
		Status:     receipt.State,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		logger.Warn("failed to insert settlement record", "id", receipt.ID, "error", err)
	}
}

func (s *SettlementService) updateHistory(ctx context.Context, receipt *model.SwapReceipt, reason string) {
	if s.history == nil {
		return
	}
	if err := s.history.UpdateStatus(ctx, receipt.ID, receipt.State, receipt.TxHash, reason); err != nil {
		logger.Warn("failed to update settlement record", "id", receipt.ID, "error", err)
	}
}

// appendPermit2Signature reproduces the settlement contract's calldata
// convention: the signature length as a 32-byte big-endian word, then the
// signature bytes, appended to the transaction data.
func appendPermit2Signature(data, sig []byte) []byte {
	length := make([]byte, 32)
	big.NewInt(int64(len(sig))).FillBytes(length)

	out := make([]byte, 0, len(data)+len(length)+len(sig))
	out = append(out, data...)
	out = append(out, length...)
	out = append(out, sig...)
	return out
}

func buildTxRequest(tx *zrx.Transaction, data []byte) (*chain.TxRequest, error) {
	req := &chain.TxRequest{
		To:   common.HexToAddress(tx.To),
		Data: data,
	}
	if tx.Value != "" {
		value, ok := new(big.Int).SetString(tx.Value, 10)
		if !ok {
			return nil, apperrors.New(apperrors.ErrUpstream, "quote transaction value is not an integer", nil)
		}
		req.Value = value
	}
	if tx.Gas != "" {
		gas, err := strconv.ParseUint(tx.Gas, 10, 64)
		if err != nil {
			return nil, apperrors.New(apperrors.ErrUpstream, "quote transaction gas is not an integer", nil)
		}
		req.Gas = gas
	}
	if tx.GasPrice != "" {
		gasPrice, ok := new(big.Int).SetString(tx.GasPrice, 10)
		if !ok {
			return nil, apperrors.New(apperrors.ErrUpstream, "quote transaction gasPrice is not an integer", nil)
		}
		req.GasPrice = gasPrice
	}
	return req, nil
}
