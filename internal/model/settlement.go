package model

import "time"

// SettlementRecord is the persisted history row for one settlement attempt.
type SettlementRecord struct {
	ID         string    `db:"id" json:"id"`
	ChainID    int64     `db:"chain_id" json:"chain_id"`
	Mode       string    `db:"mode" json:"mode"`
	Side       string    `db:"side" json:"side"`
	SellToken  string    `db:"sell_token" json:"sell_token"`
	BuyToken   string    `db:"buy_token" json:"buy_token"`
	SellAmount string    `db:"sell_amount" json:"sell_amount"`
	BuyAmount  string    `db:"buy_amount" json:"buy_amount"`
	TxHash     string    `db:"tx_hash" json:"tx_hash,omitempty"`
	TradeHash  string    `db:"trade_hash" json:"trade_hash,omitempty"`
	Status     string    `db:"status" json:"status"`
	Reason     string    `db:"reason" json:"reason,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
