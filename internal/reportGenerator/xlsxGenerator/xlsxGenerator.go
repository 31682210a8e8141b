package xlsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/smolenkov/portfolio_tracker/internal/model"
	"github.com/smolenkov/portfolio_tracker/utils"
	"github.com/xuri/excelize/v2"
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

func (g *XLSXGenerator) Generate(ctx context.Context, summary model.PortfolioSummary, transactions []model.Transaction) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillPortfolioSheet(f, summary); err != nil {
		return nil, "", err
	}

	if err := g.fillHistorySheet(f, transactions); err != nil {
		return nil, "", err
	}

	// drop the default sheet
	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

func (g *XLSXGenerator) fillPortfolioSheet(f *excelize.File, summary model.PortfolioSummary) error {
	sheetName := "Portfolio"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "E1"); err != nil {
		return err
	}
	f.SetCellValue(sheetName, "A1", "Current positions")

	styleID, err := headerStyle(f, "#cfe2f3")
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "symbol")
	_ = f.SetCellStr(sheetName, "B2", "type")
	_ = f.SetCellStr(sheetName, "C2", "amount")
	_ = f.SetCellStr(sheetName, "D2", "price, USD")
	_ = f.SetCellStr(sheetName, "E2", "value, USD")

	for i, item := range summary.Items {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), item.Symbol)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), string(item.AssetType))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), item.Amount.InexactFloat64())
		if item.Price != nil {
			_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), item.Price.InexactFloat64())
		} else {
			_ = f.SetCellStr(sheetName, fmt.Sprintf("D%d", row), "n/a")
		}
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), item.Value.InexactFloat64())
	}

	totalRow := len(summary.Items) + 3
	_ = f.SetCellStr(sheetName, fmt.Sprintf("D%d", totalRow), "total")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", totalRow), summary.TotalValue.InexactFloat64())

	return nil
}

func (g *XLSXGenerator) fillHistorySheet(f *excelize.File, transactions []model.Transaction) error {
	sheetName := "History"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "F1"); err != nil {
		return err
	}
	f.SetCellValue(sheetName, "A1", "Transaction history")

	styleID, err := headerStyle(f, "#d9ead3")
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "symbol")
	_ = f.SetCellStr(sheetName, "B2", "type")
	_ = f.SetCellStr(sheetName, "C2", "operation")
	_ = f.SetCellStr(sheetName, "D2", "amount")
	_ = f.SetCellStr(sheetName, "E2", "price at operation, USD")
	_ = f.SetCellStr(sheetName, "F2", "date")

	for i, tr := range transactions {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), tr.Symbol)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), string(tr.AssetType))
		_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", row), string(tr.Operation))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), tr.Amount.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), tr.Price.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), tr.CreatedAt)
	}

	return nil
}
