package model

import "time"

// SwapRequest represents the incoming JSON body for quote and settlement
// calls. Amounts are base-unit integer strings; exactly one side is set.
type SwapRequest struct {
	ChainID     int64  `json:"chain_id" binding:"required"`
	SellToken   string `json:"sell_token" binding:"required"`
	BuyToken    string `json:"buy_token" binding:"required"`
	SellAmount  string `json:"sell_amount,omitempty"`
	BuyAmount   string `json:"buy_amount,omitempty"`
	Side        string `json:"side" binding:"required,oneof=buy sell"`
	SlippageBps int    `json:"slippage_bps,omitempty"`
	UseGasless  bool   `json:"use_gasless,omitempty"`
}

// SwapReceipt is the terminal view of one settlement attempt returned to the
// caller. Standard swaps carry a transaction hash; gasless swaps carry the
// trade hash used to poll the relayer.
type SwapReceipt struct {
	ID         string `json:"id"`
	Mode       string `json:"mode"` // standard | gasless
	State      string `json:"state"`
	ChainID    int64  `json:"chain_id"`
	Side       string `json:"side"`
	SellAmount string `json:"sell_amount"`
	BuyAmount  string `json:"buy_amount"`
	Price      string `json:"price,omitempty"`
	TxHash     string `json:"tx_hash,omitempty"`
	TradeHash  string `json:"trade_hash,omitempty"`
}

type NotificationMetadata struct {
	Hash    string `json:"hash"`
	ChainID int64  `json:"chainId"`
}

// Notification mirrors the app notification envelope the UI layer consumes.
type Notification struct {
	ID        string               `json:"id"`
	Type      string               `json:"type"`
	Subtype   string               `json:"subtype"`
	Metadata  NotificationMetadata `json:"metadata"`
	Values    map[string]string    `json:"values"`
	CreatedAt time.Time            `json:"created_at"`
}

// PendingTrade is one gasless trade awaiting a terminal relayer status. It is
// appended by the settlement orchestrator and drained by the notification
// watcher.
type PendingTrade struct {
	Subtype   string            `json:"type"`
	ChainID   int64             `json:"chainId"`
	TradeHash string            `json:"tradeHash"`
	Values    map[string]string `json:"values"`
	CreatedAt time.Time         `json:"created_at"`
}

// Notification subtypes per trade side.
const (
	SubtypeMarketBuy  = "marketBuy"
	SubtypeMarketSell = "marketSell"
)

func SubtypeForSide(side string) string {
	if side == "buy" {
		return SubtypeMarketBuy
	}
	return SubtypeMarketSell
}
