package model

import "time"

// Token is one registry entry of per-chain token metadata. Persisted via gorm
// when a database is configured, seeded from config otherwise.
type Token struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	ChainID   int64     `gorm:"index:idx_chain_address,unique" json:"chain_id"`
	Address   string    `gorm:"index:idx_chain_address,unique;size:64" json:"address"`
	Symbol    string    `gorm:"size:32" json:"symbol"`
	Decimals  int       `json:"decimals"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
