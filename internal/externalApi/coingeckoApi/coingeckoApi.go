package coingeckoApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/smolenkov/portfolio_tracker/config"
	"github.com/smolenkov/portfolio_tracker/internal/externalApi"
	"github.com/smolenkov/portfolio_tracker/internal/model"
	"github.com/smolenkov/portfolio_tracker/utils"
)

// coinIDs maps well-known tickers to CoinGecko identifiers. Symbols outside
// this table cannot be priced and resolve as not found.
var coinIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"USDT":  "tether",
	"BNB":   "binancecoin",
	"SOL":   "solana",
	"XRP":   "ripple",
	"USDC":  "usd-coin",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"AVAX":  "avalanche-2",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
	"LTC":   "litecoin",
}

type CoingeckoApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *CoingeckoApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.CoingeckoApi.Url)
	return &CoingeckoApi{client: client}
}

// GetSpotPrice returns the current USD spot price for the ticker.
func (a *CoingeckoApi) GetSpotPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	coinID, ok := coinIDs[strings.ToUpper(symbol)]
	if !ok {
		slog.Debug("no coingecko id mapping for symbol", slog.String("rqID", rqID), slog.String("symbol", symbol))
		return decimal.Decimal{}, externalApi.ErrNotFound
	}

	slog.Debug("start CoingeckoApi.GetSpotPrice request", slog.String("rqID", rqID), slog.String("coinID", coinID))

	params := map[string]string{
		"ids":           coinID,
		"vs_currencies": "usd",
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get("/api/v3/simple/price")

	if err != nil {
		slog.Error("error while dialing CoingeckoApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return decimal.Decimal{}, err
	}

	if resp.IsError() {
		return decimal.Decimal{}, fmt.Errorf("coingecko api status %d", resp.StatusCode())
	}

	prices := map[string]map[string]float64{}
	err = json.Unmarshal(resp.Body(), &prices)
	if err != nil {
		slog.Error("can't unmarshall CoingeckoApi response", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return decimal.Decimal{}, err
	}

	// the provider omits the key entirely for unknown ids
	usd, ok := prices[coinID]["usd"]
	if !ok {
		return decimal.Decimal{}, externalApi.ErrNotFound
	}

	slog.Debug("CoingeckoApi.GetSpotPrice request complete", slog.String("rqID", rqID))

	return decimal.NewFromFloat(usd), nil
}

// GetPriceHistory returns days of daily USD prices, oldest first.
func (a *CoingeckoApi) GetPriceHistory(ctx context.Context, symbol string, days int) ([]model.ChartPoint, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	coinID, ok := coinIDs[strings.ToUpper(symbol)]
	if !ok {
		slog.Debug("no coingecko id mapping for symbol", slog.String("rqID", rqID), slog.String("symbol", symbol))
		return nil, externalApi.ErrNotFound
	}

	slog.Debug("start CoingeckoApi.GetPriceHistory request", slog.String("rqID", rqID), slog.String("coinID", coinID))

	params := map[string]string{
		"vs_currency": "usd",
		"days":        fmt.Sprintf("%d", days),
		"interval":    "daily",
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(fmt.Sprintf("/api/v3/coins/%s/market_chart", coinID))

	if err != nil {
		slog.Error("error while dialing CoingeckoApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	if resp.IsError() {
		if resp.StatusCode() == 404 {
			return nil, externalApi.ErrNotFound
		}
		return nil, fmt.Errorf("coingecko api status %d", resp.StatusCode())
	}

	chart := struct {
		Prices [][2]float64 `json:"prices"`
	}{}
	err = json.Unmarshal(resp.Body(), &chart)
	if err != nil {
		slog.Error("can't unmarshall CoingeckoApi response", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	points := make([]model.ChartPoint, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		points = append(points, model.ChartPoint{
			Date:  time.UnixMilli(int64(p[0])).UTC().Format("2006-01-02"),
			Price: decimal.NewFromFloat(p[1]).Round(2),
		})
	}

	if len(points) == 0 {
		return nil, externalApi.ErrNotFound
	}

	slog.Debug("CoingeckoApi.GetPriceHistory request complete", slog.String("rqID", rqID))

	return points, nil
}
