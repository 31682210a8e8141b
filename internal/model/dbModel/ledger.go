package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Holding struct {
	ID        int64           `db:"id"`
	Symbol    string          `db:"symbol"`
	AssetType string          `db:"asset_type"`
	Amount    decimal.Decimal `db:"amount"`
	CreatedAt time.Time       `db:"dt_create"`
}

type Transaction struct {
	ID        int64           `db:"id"`
	Symbol    string          `db:"symbol"`
	AssetType string          `db:"asset_type"`
	Operation string          `db:"operation"`
	Amount    decimal.Decimal `db:"amount"`
	Price     decimal.Decimal `db:"price"`
	CreatedAt time.Time       `db:"dt_create"`
}

type Position struct {
	Symbol    string          `db:"symbol"`
	AssetType string          `db:"asset_type"`
	NetAmount decimal.Decimal `db:"net_amount"`
}
