package dbConverter

import (
	"github.com/smolenkov/portfolio_tracker/internal/model"
	"github.com/smolenkov/portfolio_tracker/internal/model/dbModel"
)

func ConvertHolding(h dbModel.Holding) model.Holding {
	return model.Holding{
		ID:        h.ID,
		Symbol:    h.Symbol,
		AssetType: model.AssetType(h.AssetType),
		Amount:    h.Amount,
		CreatedAt: h.CreatedAt,
	}
}

func ConvertTransaction(t dbModel.Transaction) model.Transaction {
	return model.Transaction{
		ID:        t.ID,
		Symbol:    t.Symbol,
		AssetType: model.AssetType(t.AssetType),
		Operation: model.Operation(t.Operation),
		Amount:    t.Amount,
		Price:     t.Price,
		CreatedAt: t.CreatedAt,
	}
}

func ConvertPosition(p dbModel.Position) model.Position {
	return model.Position{
		Symbol:    p.Symbol,
		AssetType: model.AssetType(p.AssetType),
		NetAmount: p.NetAmount,
	}
}
