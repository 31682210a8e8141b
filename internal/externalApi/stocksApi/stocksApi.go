package stocksApi

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

// StocksApi queries the market-data provider (Yahoo-compatible chart
// endpoint) for daily closing prices.
type StocksApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *StocksApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.StocksApi.Url).
		SetHeader("User-Agent", "portfolio_tracker/1.0")
	return &StocksApi{client: client}
}

type rawChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

// GetDailyClose returns the most recent daily closing price for the ticker.
func (a *StocksApi) GetDailyClose(ctx context.Context, ticker string) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start StocksApi.GetDailyClose request", slog.String("rqID", rqID), slog.String("ticker", ticker))

	raw, err := a.getChart(ctx, ticker, 1)
	if err != nil {
		slog.Error("error while dialing StocksApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return decimal.Decimal{}, err
	}

	closes, _, err := chartSeries(raw)
	if err != nil {
		return decimal.Decimal{}, err
	}

	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] != nil && *closes[i] > 0 {
			slog.Debug("StocksApi.GetDailyClose request complete", slog.String("rqID", rqID))
			return decimal.NewFromFloat(*closes[i]), nil
		}
	}

	return decimal.Decimal{}, externalApi.ErrNotFound
}

// GetPriceHistory returns up to days of daily closes, oldest first.
func (a *StocksApi) GetPriceHistory(ctx context.Context, ticker string, days int) ([]model.ChartPoint, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start StocksApi.GetPriceHistory request", slog.String("rqID", rqID), slog.String("ticker", ticker))

	raw, err := a.getChart(ctx, ticker, days)
	if err != nil {
		slog.Error("error while dialing StocksApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	closes, timestamps, err := chartSeries(raw)
	if err != nil {
		return nil, err
	}

	points := make([]model.ChartPoint, 0, len(timestamps))
	for i, ts := range timestamps {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		points = append(points, model.ChartPoint{
			Date:  time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Price: decimal.NewFromFloat(*closes[i]).Round(2),
		})
	}

	if len(points) == 0 {
		return nil, externalApi.ErrNotFound
	}

	slog.Debug("StocksApi.GetPriceHistory request complete", slog.String("rqID", rqID))

	return points, nil
}

func (a *StocksApi) getChart(ctx context.Context, ticker string, days int) (rawChart, error) {
	url := fmt.Sprintf("/v8/finance/chart/%s", strings.ToUpper(ticker))
	params := map[string]string{
		"interval": "1d",
		"range":    fmt.Sprintf("%dd", days),
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)

	if err != nil {
		return rawChart{}, err
	}

	if resp.IsError() {
		if resp.StatusCode() == 404 {
			return rawChart{}, externalApi.ErrNotFound
		}
		return rawChart{}, fmt.Errorf("stocks api status %d", resp.StatusCode())
	}

	raw := rawChart{}
	err = json.Unmarshal(resp.Body(), &raw)
	if err != nil {
		return rawChart{}, err
	}

	return raw, nil
}

func chartSeries(raw rawChart) (closes []*float64, timestamps []int64, err error) {
	if len(raw.Chart.Result) == 0 {
		return nil, nil, externalApi.ErrNotFound
	}

	result := raw.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, nil, externalApi.ErrNotFound
	}

	return result.Indicators.Quote[0].Close, result.Timestamp, nil
}
