package zrx

import (
	"fmt"
	"math/big"
	"net/url"
	"strconv"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/dexgate/dexgate/internal/signer"
)

// NativeTokenAddress is the pseudo-address the swap API uses for the chain's
// native asset. Native sells never need an ERC-20 allowance.
const NativeTokenAddress = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

// QuoteRequest describes one price or quote lookup. Amounts are base-unit
// integer strings; exactly one of SellAmount/BuyAmount must be set.
type QuoteRequest struct {
	ChainID      int64
	SellToken    string
	BuyToken     string
	SellAmount   string
	BuyAmount    string
	Taker        string
	SlippageBps  int
	FeeRecipient string
	FeeBps       int
	FeeToken     string
}

func (r *QuoteRequest) Validate() error {
	if r.ChainID == 0 {
		return fmt.Errorf("chainId is required")
	}
	if r.SellToken == "" || r.BuyToken == "" {
		return fmt.Errorf("sellToken and buyToken are required")
	}
	if (r.SellAmount == "") == (r.BuyAmount == "") {
		return fmt.Errorf("exactly one of sellAmount and buyAmount must be set")
	}
	for _, amt := range []string{r.SellAmount, r.BuyAmount} {
		if amt == "" {
			continue
		}
		n, ok := new(big.Int).SetString(amt, 10)
		if !ok || n.Sign() < 0 {
			return fmt.Errorf("amount must be a non-negative base-unit integer string: %q", amt)
		}
	}
	return nil
}

func (r *QuoteRequest) values() url.Values {
	v := url.Values{}
	v.Set("chainId", strconv.FormatInt(r.ChainID, 10))
	v.Set("sellToken", r.SellToken)
	v.Set("buyToken", r.BuyToken)
	if r.SellAmount != "" {
		v.Set("sellAmount", r.SellAmount)
	}
	if r.BuyAmount != "" {
		v.Set("buyAmount", r.BuyAmount)
	}
	if r.Taker != "" {
		v.Set("taker", r.Taker)
	}
	if r.SlippageBps > 0 {
		v.Set("slippageBps", strconv.Itoa(r.SlippageBps))
	}
	if r.FeeRecipient != "" {
		v.Set("swapFeeRecipient", r.FeeRecipient)
		v.Set("swapFeeBps", strconv.Itoa(r.FeeBps))
		if r.FeeToken != "" {
			v.Set("swapFeeToken", r.FeeToken)
		}
	}
	return v
}

// QuoteKind tags which endpoint variant produced a quote. It is resolved once
// at fetch time so consumers never re-inspect the wire shape.
type QuoteKind string

const (
	QuoteStandard QuoteKind = "standard"
	QuoteGasless  QuoteKind = "gasless"
)

type Quote struct {
	Kind QuoteKind `json:"kind"`

	Price      string `json:"price"`
	SellToken  string `json:"sellToken"`
	BuyToken   string `json:"buyToken"`
	SellAmount string `json:"sellAmount"`
	BuyAmount  string `json:"buyAmount"`

	LiquidityAvailable bool   `json:"liquidityAvailable"`
	AllowanceTarget    string `json:"allowanceTarget,omitempty"`

	Issues *Issues `json:"issues,omitempty"`

	// Standard variant
	Transaction *Transaction `json:"transaction,omitempty"`
	Permit2     *Permit2     `json:"permit2,omitempty"`

	// Gasless variant
	Trade    *TradePayload    `json:"trade,omitempty"`
	Approval *ApprovalPayload `json:"approval,omitempty"`
}

type Issues struct {
	Allowance *AllowanceIssue `json:"allowance"`
}

type AllowanceIssue struct {
	Actual  string `json:"actual"`
	Spender string `json:"spender"`
}

type Transaction struct {
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	Gas      string `json:"gas"`
	GasPrice string `json:"gasPrice"`
}

type Permit2 struct {
	Type   string             `json:"type"`
	Hash   string             `json:"hash"`
	EIP712 *apitypes.TypedData `json:"eip712"`
}

type TradePayload struct {
	Type   string             `json:"type"`
	Hash   string             `json:"hash"`
	EIP712 *apitypes.TypedData `json:"eip712"`
}

type ApprovalPayload struct {
	IsRequired         bool                `json:"isRequired"`
	IsGaslessAvailable bool                `json:"isGaslessAvailable"`
	Type               string              `json:"type"`
	EIP712             *apitypes.TypedData `json:"eip712"`
}

// SignedPayload is one half of a gasless submission: the EIP-712 payload the
// relayer handed out plus the split signature over it.
type SignedPayload struct {
	Type      string              `json:"type"`
	EIP712    *apitypes.TypedData `json:"eip712"`
	Signature *signer.Signature   `json:"signature"`
}

type GaslessSubmission struct {
	Trade    *SignedPayload `json:"trade"`
	Approval *SignedPayload `json:"approval,omitempty"`
	ChainID  string         `json:"chainId"`
}

type SubmitResponse struct {
	Type      string `json:"type"`
	TradeHash string `json:"tradeHash"`
}

type TradeStatus string

const (
	StatusSubmitted TradeStatus = "submitted"
	StatusPending   TradeStatus = "pending"
	StatusConfirmed TradeStatus = "confirmed"
	StatusSucceeded TradeStatus = "succeeded"
	StatusFailed    TradeStatus = "failed"
)

// Terminal reports whether no further status transitions are possible.
func (s TradeStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

type StatusTransaction struct {
	Hash      string `json:"hash"`
	Timestamp int64  `json:"timestamp"`
}

type TradeStatusResponse struct {
	Status       TradeStatus         `json:"status"`
	Transactions []StatusTransaction `json:"transactions"`
	Reason       string              `json:"reason,omitempty"`
}

type SupportedChain struct {
	ChainID int64    `json:"chainId"`
	Tokens  []string `json:"tokens,omitempty"`
}

type SupportedResponse struct {
	Chains []SupportedChain `json:"chains"`
}
