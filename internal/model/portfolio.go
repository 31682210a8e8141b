package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioItem is a valuated position. Price is nil when no provider could
// resolve one; such items still show up with a zero value.
type PortfolioItem struct {
	Symbol    string
	AssetType AssetType
	Amount    decimal.Decimal
	Price     *decimal.Decimal
	Value     decimal.Decimal
}

type PortfolioSummary struct {
	Items      []PortfolioItem
	TotalValue decimal.Decimal
}

// HoldingItem is a valuated flat-list holding.
type HoldingItem struct {
	ID        int64
	CreatedAt time.Time
	PortfolioItem
}

type HoldingsSummary struct {
	Items      []HoldingItem
	TotalValue decimal.Decimal
}

type ChartPoint struct {
	Date  string
	Price decimal.Decimal
}
