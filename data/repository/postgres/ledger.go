package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/smolenkov/portfolio_tracker/data/repository"
	"github.com/smolenkov/portfolio_tracker/internal/converter/dbConverter"
	"github.com/smolenkov/portfolio_tracker/internal/model"
	"github.com/smolenkov/portfolio_tracker/internal/model/dbModel"
	"github.com/smolenkov/portfolio_tracker/utils"
)

func (r *Postgres) InsertTransaction(ctx context.Context, tr model.Transaction) (id int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertTransaction"
	query := `
		INSERT INTO transactions(symbol, asset_type, operation, amount, price, dt_create)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	slog.Debug("InsertTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("transaction", tr))
	defer func() {
		if err != nil {
			slog.Error("InsertTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertTransaction completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowxContext(
		ctx,
		query,
		tr.Symbol,
		string(tr.AssetType),
		string(tr.Operation),
		tr.Amount,
		tr.Price,
		tr.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (r *Postgres) GetTransactions(ctx context.Context) (transactions []model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetTransactions"
	query := `
		SELECT id, symbol, asset_type, operation, amount, price, dt_create
		FROM transactions
		ORDER BY id
	`

	slog.Debug("GetTransactions start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetTransactions failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTransactions completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var tr dbModel.Transaction
		err = rows.StructScan(&tr)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, dbConverter.ConvertTransaction(tr))
	}

	return transactions, nil
}

// GetNetPositions reduces the ledger to net amount held per (symbol, asset
// type). Pairs fully sold down to zero or negative are filtered out, not
// deleted: replaying the full history restores them.
func (r *Postgres) GetNetPositions(ctx context.Context) (positions []model.Position, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetNetPositions"
	query := `
		SELECT
			symbol,
			asset_type,
			SUM(CASE WHEN operation = 'buy' THEN amount ELSE -amount END) AS net_amount
		FROM transactions
		GROUP BY symbol, asset_type
		HAVING SUM(CASE WHEN operation = 'buy' THEN amount ELSE -amount END) > 0
		ORDER BY symbol
	`

	slog.Debug("GetNetPositions start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetNetPositions failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetNetPositions completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var pos dbModel.Position
		err = rows.StructScan(&pos)
		if err != nil {
			return nil, err
		}
		positions = append(positions, dbConverter.ConvertPosition(pos))
	}

	return positions, nil
}

// GetNetPosition returns the net amount for a single (symbol, asset type)
// pair, zero when the pair was never traded.
func (r *Postgres) GetNetPosition(ctx context.Context, symbol string, assetType model.AssetType) (position model.Position, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetNetPosition"
	query := `
		SELECT
			symbol,
			asset_type,
			SUM(CASE WHEN operation = 'buy' THEN amount ELSE -amount END) AS net_amount
		FROM transactions
		WHERE symbol = $1 AND asset_type = $2
		GROUP BY symbol, asset_type
	`

	slog.Debug("GetNetPosition start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("symbol", symbol))
	defer func() {
		if err != nil {
			slog.Error("GetNetPosition failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetNetPosition completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	var pos dbModel.Position
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, symbol, string(assetType)).StructScan(&pos)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Position{Symbol: symbol, AssetType: assetType}, nil
		}
		return model.Position{}, err
	}

	return dbConverter.ConvertPosition(pos), nil
}

func (r *Postgres) InsertHolding(ctx context.Context, h model.Holding) (id int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertHolding"
	query := `
		INSERT INTO assets(symbol, asset_type, amount, dt_create)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	slog.Debug("InsertHolding start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("holding", h))
	defer func() {
		if err != nil {
			slog.Error("InsertHolding failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertHolding completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, h.Symbol, string(h.AssetType), h.Amount, h.CreatedAt).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (r *Postgres) GetHoldings(ctx context.Context) (holdings []model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetHoldings"
	query := `
		SELECT id, symbol, asset_type, amount, dt_create
		FROM assets
		ORDER BY dt_create DESC
	`

	slog.Debug("GetHoldings start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetHoldings failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHoldings completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var h dbModel.Holding
		err = rows.StructScan(&h)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, dbConverter.ConvertHolding(h))
	}

	return holdings, nil
}

func (r *Postgres) DeleteHolding(ctx context.Context, id int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteHolding"
	query := `
		DELETE FROM assets
		WHERE id = $1
	`

	slog.Debug("DeleteHolding start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Int64("id", id))
	defer func() {
		if err != nil {
			slog.Error("DeleteHolding failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteHolding completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}
