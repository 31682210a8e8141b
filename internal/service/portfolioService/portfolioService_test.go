package portfolioService

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smolenkov/portfolio_tracker/internal/model"
	"github.com/smolenkov/portfolio_tracker/internal/service"
)

type stubRepo struct {
	positions    []model.Position
	transactions []model.Transaction
	holdings     []model.Holding
	netAmounts   map[string]decimal.Decimal
	inserted     []model.Transaction
}

func (r *stubRepo) InsertTransaction(_ context.Context, tr model.Transaction) (int64, error) {
	r.inserted = append(r.inserted, tr)
	return int64(len(r.inserted)), nil
}

func (r *stubRepo) GetTransactions(context.Context) ([]model.Transaction, error) {
	return r.transactions, nil
}

func (r *stubRepo) GetNetPositions(context.Context) ([]model.Position, error) {
	return r.positions, nil
}

func (r *stubRepo) GetNetPosition(_ context.Context, symbol string, assetType model.AssetType) (model.Position, error) {
	return model.Position{Symbol: symbol, AssetType: assetType, NetAmount: r.netAmounts[symbol]}, nil
}

func (r *stubRepo) InsertHolding(_ context.Context, h model.Holding) (int64, error) { return 1, nil }

func (r *stubRepo) GetHoldings(context.Context) ([]model.Holding, error) { return r.holdings, nil }

func (r *stubRepo) DeleteHolding(context.Context, int64) error { return nil }

func (r *stubRepo) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	return tFunc(ctx)
}

type stubResolver struct {
	prices map[string]decimal.Decimal
}

func (r *stubResolver) Resolve(_ context.Context, symbol string, _ model.AssetType) (decimal.Decimal, bool) {
	price, ok := r.prices[symbol]
	return price, ok
}

type stubHistory struct {
	points []model.ChartPoint
	err    error
	called bool
}

func (h *stubHistory) GetPriceHistory(_ context.Context, _ string, _ int) ([]model.ChartPoint, error) {
	h.called = true
	return h.points, h.err
}

func newTestService(repo *stubRepo, resolver *stubResolver) *PortfolioService {
	return New(repo, repo, resolver, nil, nil, nil, nil)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func tx(symbol string, assetType model.AssetType, operation model.Operation, amount string) model.Transaction {
	return model.Transaction{Symbol: symbol, AssetType: assetType, Operation: operation, Amount: dec(amount)}
}

func TestAggregatePositionsNetsPerPair(t *testing.T) {
	ledger := []model.Transaction{
		tx("BTC", model.AssetTypeCrypto, model.OperationBuy, "1.0"),
		tx("BTC", model.AssetTypeCrypto, model.OperationBuy, "0.5"),
		tx("BTC", model.AssetTypeCrypto, model.OperationSell, "0.3"),
		tx("AAPL", model.AssetTypeStock, model.OperationBuy, "10"),
	}

	positions := AggregatePositions(ledger)

	if len(positions) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(positions))
	}
	if positions[0].Symbol != "BTC" || !positions[0].NetAmount.Equal(dec("1.2")) {
		t.Fatalf("unexpected BTC position: %+v", positions[0])
	}
	if positions[1].Symbol != "AAPL" || !positions[1].NetAmount.Equal(dec("10")) {
		t.Fatalf("unexpected AAPL position: %+v", positions[1])
	}
}

func TestAggregatePositionsExcludesNonPositiveNet(t *testing.T) {
	ledger := []model.Transaction{
		tx("ETH", model.AssetTypeCrypto, model.OperationBuy, "2"),
		tx("ETH", model.AssetTypeCrypto, model.OperationSell, "5"),
		tx("SOL", model.AssetTypeCrypto, model.OperationBuy, "3"),
		tx("SOL", model.AssetTypeCrypto, model.OperationSell, "3"),
	}

	positions := AggregatePositions(ledger)

	if len(positions) != 0 {
		t.Fatalf("expected no positions, got %+v", positions)
	}
}

func TestAggregatePositionsSameSymbolDifferentType(t *testing.T) {
	// the same ticker as stock and as crypto are independent positions
	ledger := []model.Transaction{
		tx("X", model.AssetTypeStock, model.OperationBuy, "1"),
		tx("X", model.AssetTypeCrypto, model.OperationBuy, "2"),
	}

	positions := AggregatePositions(ledger)

	if len(positions) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(positions))
	}
}

func TestAggregatePositionsEmptyLedger(t *testing.T) {
	if got := AggregatePositions(nil); len(got) != 0 {
		t.Fatalf("expected empty output, got %+v", got)
	}
}

func TestAggregatePositionsIdempotent(t *testing.T) {
	ledger := []model.Transaction{
		tx("BTC", model.AssetTypeCrypto, model.OperationBuy, "1.0"),
		tx("DOGE", model.AssetTypeCrypto, model.OperationBuy, "100"),
		tx("BTC", model.AssetTypeCrypto, model.OperationSell, "0.4"),
	}

	first := AggregatePositions(ledger)
	second := AggregatePositions(ledger)

	if len(first) != len(second) {
		t.Fatalf("aggregation is not idempotent: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Symbol != second[i].Symbol || !first[i].NetAmount.Equal(second[i].NetAmount) {
			t.Fatalf("aggregation is not idempotent at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestGetPortfolioValuation(t *testing.T) {
	repo := &stubRepo{positions: []model.Position{
		{Symbol: "BTC", AssetType: model.AssetTypeCrypto, NetAmount: dec("1.2")},
		{Symbol: "AAPL", AssetType: model.AssetTypeStock, NetAmount: dec("10")},
	}}
	resolver := &stubResolver{prices: map[string]decimal.Decimal{
		"BTC":  dec("50000"),
		"AAPL": dec("150.12345"),
	}}
	srv := newTestService(repo, resolver)

	summary, err := srv.GetPortfolio(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(summary.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(summary.Items))
	}

	btc := summary.Items[0]
	if btc.Price == nil || !btc.Price.Equal(dec("50000")) {
		t.Fatalf("unexpected BTC price: %v", btc.Price)
	}
	if !btc.Value.Equal(dec("60000")) {
		t.Fatalf("unexpected BTC value: %s", btc.Value)
	}

	// listed price is rounded to 4 places, value to 2
	aapl := summary.Items[1]
	if aapl.Price == nil || aapl.Price.String() != "150.1235" {
		t.Fatalf("unexpected AAPL price: %v", aapl.Price)
	}
	if aapl.Value.String() != "1501.23" {
		t.Fatalf("unexpected AAPL value: %s", aapl.Value)
	}

	// total = 60000 + 1501.2345 rounded once
	if summary.TotalValue.String() != "61501.23" {
		t.Fatalf("unexpected total: %s", summary.TotalValue)
	}
}

func TestGetPortfolioAbsentPriceContributesZero(t *testing.T) {
	repo := &stubRepo{positions: []model.Position{
		{Symbol: "AAPL", AssetType: model.AssetTypeStock, NetAmount: dec("10")},
		{Symbol: "BTC", AssetType: model.AssetTypeCrypto, NetAmount: dec("2")},
	}}
	resolver := &stubResolver{prices: map[string]decimal.Decimal{"BTC": dec("100")}}
	srv := newTestService(repo, resolver)

	summary, err := srv.GetPortfolio(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	aapl := summary.Items[0]
	if aapl.Price != nil {
		t.Fatalf("expected absent price, got %v", aapl.Price)
	}
	if !aapl.Value.IsZero() {
		t.Fatalf("expected zero value, got %s", aapl.Value)
	}

	// the unpriced item is still listed and the priced one still counts
	if !summary.TotalValue.Equal(dec("200")) {
		t.Fatalf("unexpected total: %s", summary.TotalValue)
	}
}

func TestGetPortfolioTotalRoundsOnceAtTheEnd(t *testing.T) {
	// three items of raw value 1.004: per-item rounding would give 3.00,
	// summing unrounded gives 3.012 -> 3.01
	repo := &stubRepo{positions: []model.Position{
		{Symbol: "A", AssetType: model.AssetTypeStock, NetAmount: dec("1")},
		{Symbol: "B", AssetType: model.AssetTypeStock, NetAmount: dec("1")},
		{Symbol: "C", AssetType: model.AssetTypeStock, NetAmount: dec("1")},
	}}
	resolver := &stubResolver{prices: map[string]decimal.Decimal{
		"A": dec("1.004"),
		"B": dec("1.004"),
		"C": dec("1.004"),
	}}
	srv := newTestService(repo, resolver)

	summary, err := srv.GetPortfolio(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.TotalValue.String() != "3.01" {
		t.Fatalf("expected total 3.01, got %s", summary.TotalValue)
	}
}

func TestRecordBuyCapturesPriceAndTimestamp(t *testing.T) {
	repo := &stubRepo{netAmounts: map[string]decimal.Decimal{}}
	resolver := &stubResolver{prices: map[string]decimal.Decimal{"BTC": dec("50000")}}
	srv := newTestService(repo, resolver)

	tr, err := srv.RecordBuy(context.Background(), " btc ", model.AssetTypeCrypto, dec("0.5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tr.Symbol != "BTC" {
		t.Fatalf("expected normalized symbol BTC, got %q", tr.Symbol)
	}
	if !tr.Price.Equal(dec("50000")) {
		t.Fatalf("expected captured price, got %s", tr.Price)
	}
	if tr.CreatedAt.IsZero() {
		t.Fatalf("expected write-time timestamp")
	}
	if len(repo.inserted) != 1 || repo.inserted[0].Operation != model.OperationBuy {
		t.Fatalf("expected one buy inserted, got %+v", repo.inserted)
	}
}

func TestRecordBuyAbsentPriceStoredAsZero(t *testing.T) {
	repo := &stubRepo{netAmounts: map[string]decimal.Decimal{}}
	srv := newTestService(repo, &stubResolver{})

	tr, err := srv.RecordBuy(context.Background(), "XXXX", model.AssetTypeCrypto, dec("1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tr.Price.IsZero() {
		t.Fatalf("expected zero price, got %s", tr.Price)
	}
}

func TestRecordBuyValidation(t *testing.T) {
	repo := &stubRepo{}
	srv := newTestService(repo, &stubResolver{})

	cases := []struct {
		name      string
		symbol    string
		assetType model.AssetType
		amount    decimal.Decimal
	}{
		{"empty symbol", "  ", model.AssetTypeStock, dec("1")},
		{"unknown type", "AAPL", model.AssetType("bond"), dec("1")},
		{"zero amount", "AAPL", model.AssetTypeStock, dec("0")},
		{"negative amount", "AAPL", model.AssetTypeStock, dec("-5")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := srv.RecordBuy(context.Background(), tc.symbol, tc.assetType, tc.amount)
			if !errors.Is(err, service.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if len(repo.inserted) != 0 {
		t.Fatalf("invalid input must not change state, inserted %+v", repo.inserted)
	}
}

func TestRecordSellRejectsOversell(t *testing.T) {
	repo := &stubRepo{netAmounts: map[string]decimal.Decimal{"BTC": dec("2")}}
	srv := newTestService(repo, &stubResolver{prices: map[string]decimal.Decimal{"BTC": dec("100")}})

	_, err := srv.RecordSell(context.Background(), "BTC", model.AssetTypeCrypto, dec("5"))
	if !errors.Is(err, service.ErrInsufficientPosition) {
		t.Fatalf("expected insufficient position error, got %v", err)
	}
	if len(repo.inserted) != 0 {
		t.Fatalf("rejected sell must not change state, inserted %+v", repo.inserted)
	}
}

func TestRecordSellWithinPosition(t *testing.T) {
	repo := &stubRepo{netAmounts: map[string]decimal.Decimal{"BTC": dec("2")}}
	srv := newTestService(repo, &stubResolver{prices: map[string]decimal.Decimal{"BTC": dec("100")}})

	tr, err := srv.RecordSell(context.Background(), "BTC", model.AssetTypeCrypto, dec("2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Operation != model.OperationSell {
		t.Fatalf("expected sell, got %s", tr.Operation)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected one transaction inserted")
	}
}

func TestGetChartDispatchesByAssetType(t *testing.T) {
	point := model.ChartPoint{Date: "2026-01-01", Price: dec("150.25")}

	cases := []struct {
		name       string
		assetType  model.AssetType
		wantStock  bool
		wantCrypto bool
	}{
		{"stock", model.AssetTypeStock, true, false},
		{"crypto", model.AssetTypeCrypto, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stocks := &stubHistory{points: []model.ChartPoint{point}}
			crypto := &stubHistory{points: []model.ChartPoint{point}}
			srv := New(&stubRepo{}, &stubRepo{}, &stubResolver{}, stocks, crypto, nil, nil)

			points, err := srv.GetChart(context.Background(), tc.assetType, "BTC")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(points) != 1 || points[0] != point {
				t.Fatalf("unexpected points: %+v", points)
			}
			if stocks.called != tc.wantStock || crypto.called != tc.wantCrypto {
				t.Fatalf("wrong source hit: stocks=%v crypto=%v", stocks.called, crypto.called)
			}
		})
	}
}

func TestGetChartValidation(t *testing.T) {
	stocks := &stubHistory{}
	crypto := &stubHistory{}
	srv := New(&stubRepo{}, &stubRepo{}, &stubResolver{}, stocks, crypto, nil, nil)

	_, err := srv.GetChart(context.Background(), model.AssetType("bond"), "AAPL")
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected validation error for unknown asset type, got %v", err)
	}

	_, err = srv.GetChart(context.Background(), model.AssetTypeStock, "   ")
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("expected validation error for empty symbol, got %v", err)
	}

	if stocks.called || crypto.called {
		t.Fatalf("invalid input must not hit any source")
	}
}

func TestGetChartProviderFailure(t *testing.T) {
	stocks := &stubHistory{err: errors.New("dial tcp: timeout")}
	srv := New(&stubRepo{}, &stubRepo{}, &stubResolver{}, stocks, &stubHistory{}, nil, nil)

	_, err := srv.GetChart(context.Background(), model.AssetTypeStock, "AAPL")
	if !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expected not found on provider failure, got %v", err)
	}
}

func TestGetHoldingsValuatesRowByRow(t *testing.T) {
	repo := &stubRepo{}
	repo.holdings = []model.Holding{
		{ID: 1, Symbol: "AAPL", AssetType: model.AssetTypeStock, Amount: dec("10")},
		{ID: 2, Symbol: "XXXX", AssetType: model.AssetTypeCrypto, Amount: dec("3")},
	}
	resolver := &stubResolver{prices: map[string]decimal.Decimal{"AAPL": dec("150")}}
	srv := newTestService(repo, resolver)

	summary, err := srv.GetHoldings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(summary.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(summary.Items))
	}
	if summary.Items[1].Price != nil || !summary.Items[1].Value.IsZero() {
		t.Fatalf("unpriced holding must be listed with zero value: %+v", summary.Items[1])
	}
	if !summary.TotalValue.Equal(dec("1500")) {
		t.Fatalf("unexpected total: %s", summary.TotalValue)
	}
}
