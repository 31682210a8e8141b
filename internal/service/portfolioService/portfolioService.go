package portfolioService

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smolenkov/portfolio_tracker/internal/model"
	"github.com/smolenkov/portfolio_tracker/internal/service"
	"github.com/smolenkov/portfolio_tracker/utils"
)

const chartDays = 30

type Repository interface {
	InsertTransaction(ctx context.Context, tr model.Transaction) (id int64, err error)
	GetTransactions(ctx context.Context) ([]model.Transaction, error)
	GetNetPositions(ctx context.Context) ([]model.Position, error)
	GetNetPosition(ctx context.Context, symbol string, assetType model.AssetType) (model.Position, error)
	InsertHolding(ctx context.Context, h model.Holding) (id int64, err error)
	GetHoldings(ctx context.Context) ([]model.Holding, error)
	DeleteHolding(ctx context.Context, id int64) error
}

type TxManager interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
}

type PriceResolver interface {
	Resolve(ctx context.Context, symbol string, assetType model.AssetType) (decimal.Decimal, bool)
}

type StockHistory interface {
	GetPriceHistory(ctx context.Context, ticker string, days int) ([]model.ChartPoint, error)
}

type CryptoHistory interface {
	GetPriceHistory(ctx context.Context, symbol string, days int) ([]model.ChartPoint, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, summary model.PortfolioSummary, transactions []model.Transaction) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader *bytes.Reader, filename string) (downloadLink string, err error)
	DeleteOldFiles(ctx context.Context) error
}

type PortfolioService struct {
	repo          Repository
	txManager     TxManager
	resolver      PriceResolver
	stockHistory  StockHistory
	cryptoHistory CryptoHistory
	reportGen     ReportGenerator
	cloudStorage  CloudStorage
}

func New(
	repo Repository,
	txManager TxManager,
	resolver PriceResolver,
	stockHistory StockHistory,
	cryptoHistory CryptoHistory,
	reportGen ReportGenerator,
	cloudStorage CloudStorage,
) *PortfolioService {
	return &PortfolioService{
		repo:          repo,
		txManager:     txManager,
		resolver:      resolver,
		stockHistory:  stockHistory,
		cryptoHistory: cryptoHistory,
		reportGen:     reportGen,
		cloudStorage:  cloudStorage,
	}
}

func validateInput(symbol string, assetType model.AssetType, amount decimal.Decimal) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", fmt.Errorf("%w: symbol is required", service.ErrValidation)
	}
	if !assetType.Valid() {
		return "", fmt.Errorf("%w: unknown asset type %q", service.ErrValidation, assetType)
	}
	if !amount.IsPositive() {
		return "", fmt.Errorf("%w: amount must be positive", service.ErrValidation)
	}
	return symbol, nil
}

// RecordBuy appends a buy transaction, capturing the current price and
// timestamp at write time. The row is immutable afterwards.
func (s *PortfolioService) RecordBuy(ctx context.Context, symbol string, assetType model.AssetType, amount decimal.Decimal) (model.Transaction, error) {
	return s.recordTransaction(ctx, symbol, assetType, model.OperationBuy, amount)
}

// RecordSell appends a sell transaction. A sell larger than the current net
// position is rejected: silently accepting it would produce a negative net
// position that the aggregator filters out as if the asset were never held.
func (s *PortfolioService) RecordSell(ctx context.Context, symbol string, assetType model.AssetType, amount decimal.Decimal) (model.Transaction, error) {
	return s.recordTransaction(ctx, symbol, assetType, model.OperationSell, amount)
}

func (s *PortfolioService) recordTransaction(ctx context.Context, symbol string, assetType model.AssetType, operation model.Operation, amount decimal.Decimal) (model.Transaction, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.recordTransaction"

	slog.Debug("recordTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("operation", string(operation)))
	defer func() {
		slog.Debug("recordTransaction finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	}()

	symbol, err := validateInput(symbol, assetType, amount)
	if err != nil {
		return model.Transaction{}, err
	}

	// price at operation; an unresolvable price is stored as zero rather
	// than blocking the write
	price, _ := s.resolver.Resolve(ctx, symbol, assetType)

	tr := model.Transaction{
		Symbol:    symbol,
		AssetType: assetType,
		Operation: operation,
		Amount:    amount,
		Price:     price,
		CreatedAt: time.Now().UTC(),
	}

	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		if operation == model.OperationSell {
			position, err := s.repo.GetNetPosition(ctx, symbol, assetType)
			if err != nil {
				slog.Error("got error from repo.GetNetPosition", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
				return err
			}
			if amount.GreaterThan(position.NetAmount) {
				return service.ErrInsufficientPosition
			}
		}

		id, err := s.repo.InsertTransaction(ctx, tr)
		if err != nil {
			slog.Error("got error from repo.InsertTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}
		tr.ID = id
		return nil
	})
	if err != nil {
		return model.Transaction{}, err
	}

	return tr, nil
}

// GetPortfolio valuates the current net positions derived from the ledger.
func (s *PortfolioService) GetPortfolio(ctx context.Context) (model.PortfolioSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetPortfolio"

	slog.Debug("GetPortfolio start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetPortfolio finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	positions, err := s.repo.GetNetPositions(ctx)
	if err != nil {
		slog.Error("got error from repo.GetNetPositions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioSummary{}, err
	}

	return s.valuate(ctx, positions), nil
}

func (s *PortfolioService) GetTransactions(ctx context.Context) ([]model.Transaction, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetTransactions"

	transactions, err := s.repo.GetTransactions(ctx)
	if err != nil {
		slog.Error("got error from repo.GetTransactions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return transactions, nil
}

// AddHolding appends a row to the flat holdings list.
func (s *PortfolioService) AddHolding(ctx context.Context, symbol string, assetType model.AssetType, amount decimal.Decimal) (model.Holding, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.AddHolding"

	slog.Debug("AddHolding start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	defer func() {
		slog.Debug("AddHolding finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	}()

	symbol, err := validateInput(symbol, assetType, amount)
	if err != nil {
		return model.Holding{}, err
	}

	h := model.Holding{
		Symbol:    symbol,
		AssetType: assetType,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}

	id, err := s.repo.InsertHolding(ctx, h)
	if err != nil {
		slog.Error("got error from repo.InsertHolding", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}
	h.ID = id

	return h, nil
}

// RemoveHolding deletes a flat-list row by its persistent id.
func (s *PortfolioService) RemoveHolding(ctx context.Context, id int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RemoveHolding"

	err := s.repo.DeleteHolding(ctx, id)
	if err != nil {
		slog.Error("got error from repo.DeleteHolding", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// GetHoldings valuates the flat holdings list row by row.
func (s *PortfolioService) GetHoldings(ctx context.Context) (model.HoldingsSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetHoldings"

	slog.Debug("GetHoldings start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetHoldings finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	holdings, err := s.repo.GetHoldings(ctx)
	if err != nil {
		slog.Error("got error from repo.GetHoldings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.HoldingsSummary{}, err
	}

	summary := model.HoldingsSummary{Items: make([]model.HoldingItem, 0, len(holdings))}
	total := decimal.Decimal{}

	for _, h := range holdings {
		item, rawValue := valuateOne(ctx, s.resolver, model.Position{Symbol: h.Symbol, AssetType: h.AssetType, NetAmount: h.Amount})
		total = total.Add(rawValue)
		summary.Items = append(summary.Items, model.HoldingItem{ID: h.ID, CreatedAt: h.CreatedAt, PortfolioItem: item})
	}

	summary.TotalValue = total.Round(2)

	return summary, nil
}

// GetChart returns a 30-day daily price series for the pair.
func (s *PortfolioService) GetChart(ctx context.Context, assetType model.AssetType, symbol string) ([]model.ChartPoint, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetChart"

	slog.Debug("GetChart start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	defer func() {
		slog.Debug("GetChart finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	}()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", service.ErrValidation)
	}

	var points []model.ChartPoint
	var err error

	switch assetType {
	case model.AssetTypeStock:
		points, err = s.stockHistory.GetPriceHistory(ctx, symbol, chartDays)
	case model.AssetTypeCrypto:
		points, err = s.cryptoHistory.GetPriceHistory(ctx, symbol, chartDays)
	default:
		return nil, fmt.Errorf("%w: unknown asset type %q", service.ErrValidation, assetType)
	}

	if err != nil {
		slog.Warn("can't get price history", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, service.ErrNotFound
	}

	return points, nil
}

// GenerateReport renders the xlsx report from a single consistent read of
// the ledger, aggregating positions in memory.
func (s *PortfolioService) GenerateReport(ctx context.Context) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GenerateReport"

	slog.Debug("GenerateReport start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GenerateReport finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	transactions, err := s.repo.GetTransactions(ctx)
	if err != nil {
		slog.Error("got error from repo.GetTransactions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	summary := s.valuate(ctx, AggregatePositions(transactions))

	return s.reportGen.Generate(ctx, summary, transactions)
}

// BackupReport is the scheduled job body: render the report, push it to
// cloud storage and prune expired uploads.
func (s *PortfolioService) BackupReport(ctx context.Context) error {
	ctx = utils.CtxWithRqID(ctx, "job-report-backup")
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.BackupReport"

	fileBytes, fileExtension, err := s.GenerateReport(ctx)
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("portfolio_%s%s", time.Now().UTC().Format("2006-01-02"), fileExtension)

	link, err := s.cloudStorage.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
	if err != nil {
		slog.Error("got error from cloudStorage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Info("report backup uploaded", slog.String("rqID", rqID), slog.String("op", op), slog.String("link", link))

	return s.cloudStorage.DeleteOldFiles(ctx)
}

// AggregatePositions reduces a transaction sequence to net positions per
// (symbol, asset type), dropping pairs with net amount <= 0. Order of input
// does not matter and repeated runs over the same ledger give the same
// result.
func AggregatePositions(transactions []model.Transaction) []model.Position {
	type key struct {
		symbol    string
		assetType model.AssetType
	}

	nets := make(map[key]decimal.Decimal)
	order := make([]key, 0)

	for _, tr := range transactions {
		k := key{symbol: tr.Symbol, assetType: tr.AssetType}
		if _, ok := nets[k]; !ok {
			order = append(order, k)
		}
		if tr.Operation == model.OperationSell {
			nets[k] = nets[k].Sub(tr.Amount)
		} else {
			nets[k] = nets[k].Add(tr.Amount)
		}
	}

	positions := make([]model.Position, 0, len(order))
	for _, k := range order {
		if !nets[k].IsPositive() {
			continue
		}
		positions = append(positions, model.Position{Symbol: k.symbol, AssetType: k.assetType, NetAmount: nets[k]})
	}

	return positions
}

// valuate combines positions with current prices. The total accumulates
// unrounded per-item values and is rounded once at the end; rounding each
// item first can diverge in the last decimal.
func (s *PortfolioService) valuate(ctx context.Context, positions []model.Position) model.PortfolioSummary {
	summary := model.PortfolioSummary{Items: make([]model.PortfolioItem, 0, len(positions))}
	total := decimal.Decimal{}

	for _, pos := range positions {
		item, rawValue := valuateOne(ctx, s.resolver, pos)
		total = total.Add(rawValue)
		summary.Items = append(summary.Items, item)
	}

	summary.TotalValue = total.Round(2)

	return summary
}

// valuateOne prices a single position. The returned rawValue is the
// unrounded price * amount; the item carries the presentation-rounded
// price (4 places) and value (2 places).
func valuateOne(ctx context.Context, resolver PriceResolver, pos model.Position) (model.PortfolioItem, decimal.Decimal) {
	item := model.PortfolioItem{
		Symbol:    pos.Symbol,
		AssetType: pos.AssetType,
		Amount:    pos.NetAmount,
	}

	price, ok := resolver.Resolve(ctx, pos.Symbol, pos.AssetType)
	if !ok {
		// value unknown: listed with no price, contributes 0 to totals
		return item, decimal.Decimal{}
	}

	rawValue := price.Mul(pos.NetAmount)

	rounded := price.Round(4)
	item.Price = &rounded
	item.Value = rawValue.Round(2)

	return item, rawValue
}
