package priceResolver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/smolenkov/portfolio_tracker/internal/externalApi"
	"github.com/smolenkov/portfolio_tracker/internal/model"
	"github.com/smolenkov/portfolio_tracker/utils"
)

type StockSource interface {
	GetDailyClose(ctx context.Context, ticker string) (decimal.Decimal, error)
}

type CryptoSource interface {
	GetSpotPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Resolver maps (symbol, asset type) to a current unit price, dispatching to
// the capability-specific lookup for each asset type.
type Resolver struct {
	stocks StockSource
	crypto CryptoSource
}

func New(stocks StockSource, crypto CryptoSource) *Resolver {
	return &Resolver{stocks: stocks, crypto: crypto}
}

// Resolve returns the current price for the pair, or ok=false when no price
// could be obtained. Lookup failures of any kind (network, timeout, unknown
// symbol, bad payload) degrade to absent with a logged diagnostic: one bad
// price must never block valuation of the rest of the portfolio.
func (r *Resolver) Resolve(ctx context.Context, symbol string, assetType model.AssetType) (decimal.Decimal, bool) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	var price decimal.Decimal
	var err error

	switch assetType {
	case model.AssetTypeStock:
		price, err = r.stocks.GetDailyClose(ctx, symbol)
	case model.AssetTypeCrypto:
		price, err = r.crypto.GetSpotPrice(ctx, symbol)
	default:
		slog.Warn("unknown asset type in price resolver", slog.String("rqID", rqID), slog.String("assetType", string(assetType)))
		return decimal.Decimal{}, false
	}

	if err != nil {
		if errors.Is(err, externalApi.ErrNotFound) {
			slog.Warn("no price for symbol", slog.String("rqID", rqID), slog.String("symbol", symbol), slog.String("assetType", string(assetType)))
		} else {
			slog.Warn("price lookup failed", slog.String("rqID", rqID), slog.String("symbol", symbol), slog.String("err", err.Error()))
		}
		return decimal.Decimal{}, false
	}

	return price, true
}
