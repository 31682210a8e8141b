package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AssetType string

const (
	AssetTypeStock  AssetType = "stock"
	AssetTypeCrypto AssetType = "crypto"
)

func (t AssetType) Valid() bool {
	return t == AssetTypeStock || t == AssetTypeCrypto
}

type Operation string

const (
	OperationBuy  Operation = "buy"
	OperationSell Operation = "sell"
)

// Holding is a row of the flat-list variant: added and removed whole,
// identified by a persistent serial id.
type Holding struct {
	ID        int64
	Symbol    string
	AssetType AssetType
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// Transaction is an append-only ledger entry. Price is captured at write
// time and the row is never mutated afterwards.
type Transaction struct {
	ID        int64
	Symbol    string
	AssetType AssetType
	Operation Operation
	Amount    decimal.Decimal
	Price     decimal.Decimal
	CreatedAt time.Time
}

// Position is derived from the ledger: net amount held per (symbol, asset
// type). Only positive net amounts count as held.
type Position struct {
	Symbol    string
	AssetType AssetType
	NetAmount decimal.Decimal
}
