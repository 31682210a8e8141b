package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/smolenkov/portfolio_tracker/config"
	"github.com/smolenkov/portfolio_tracker/data/repository"
	"github.com/smolenkov/portfolio_tracker/internal/model"
	"github.com/smolenkov/portfolio_tracker/internal/service"
	"github.com/smolenkov/portfolio_tracker/internal/transport/web/middleware"
	"github.com/smolenkov/portfolio_tracker/utils"
)

type PortfolioService interface {
	RecordBuy(ctx context.Context, symbol string, assetType model.AssetType, amount decimal.Decimal) (model.Transaction, error)
	RecordSell(ctx context.Context, symbol string, assetType model.AssetType, amount decimal.Decimal) (model.Transaction, error)
	GetPortfolio(ctx context.Context) (model.PortfolioSummary, error)
	GetTransactions(ctx context.Context) ([]model.Transaction, error)
	AddHolding(ctx context.Context, symbol string, assetType model.AssetType, amount decimal.Decimal) (model.Holding, error)
	RemoveHolding(ctx context.Context, id int64) error
	GetHoldings(ctx context.Context) (model.HoldingsSummary, error)
	GetChart(ctx context.Context, assetType model.AssetType, symbol string) ([]model.ChartPoint, error)
	GenerateReport(ctx context.Context) (fileBytes []byte, fileExtension string, err error)
}

type Session interface {
	SetSession(ctx context.Context, token string, session model.Session) error
	GetSession(ctx context.Context, token string) (model.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

type Controller struct {
	cfg              *config.Config
	portfolioService PortfolioService
	session          Session
}

func NewController(cfg *config.Config, portfolioService PortfolioService, session Session) *Controller {
	return &Controller{
		cfg:              cfg,
		portfolioService: portfolioService,
		session:          session,
	}
}

type loginRequest struct {
	Password string `json:"password" form:"password"`
}

type assetRequest struct {
	Symbol string `json:"symbol" form:"symbol"`
	Type   string `json:"type" form:"type"`
	Amount string `json:"amount" form:"amount"`
}

type portfolioItemResponse struct {
	Symbol string           `json:"symbol"`
	Type   string           `json:"type"`
	Amount decimal.Decimal  `json:"amount"`
	Price  *decimal.Decimal `json:"price"`
	Value  decimal.Decimal  `json:"value"`
}

type portfolioResponse struct {
	Items      []portfolioItemResponse `json:"items"`
	TotalValue decimal.Decimal         `json:"total_value"`
}

type holdingItemResponse struct {
	ID      int64  `json:"id"`
	AddedAt string `json:"added_at"`
	portfolioItemResponse
}

type holdingsResponse struct {
	Items      []holdingItemResponse `json:"items"`
	TotalValue decimal.Decimal       `json:"total_value"`
}

type transactionResponse struct {
	ID        int64           `json:"id"`
	Symbol    string          `json:"symbol"`
	Type      string          `json:"type"`
	Operation string          `json:"operation"`
	Amount    decimal.Decimal `json:"amount"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt string          `json:"created_at"`
}

type chartPointResponse struct {
	Date  string          `json:"date"`
	Price decimal.Decimal `json:"price"`
}

func (ctrl *Controller) Login(c echo.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	req := loginRequest{}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	if req.Password != ctrl.cfg.Web.Password {
		return echo.NewHTTPError(http.StatusUnauthorized, "wrong password")
	}

	token := uuid.NewString()
	err := ctrl.session.SetSession(ctx, token, model.Session{CreatedAt: time.Now().UTC()})
	if err != nil {
		slog.Error("got error from session.SetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return echo.NewHTTPError(http.StatusInternalServerError, "something went wrong")
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ctrl.cfg.SessionExpiration.Seconds()),
		HttpOnly: true,
	})

	return c.NoContent(http.StatusNoContent)
}

func (ctrl *Controller) Logout(c echo.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	cookie, err := c.Cookie(middleware.SessionCookieName)
	if err == nil {
		if err := ctrl.session.DeleteSession(ctx, cookie.Value); err != nil {
			slog.Error("got error from session.DeleteSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		}
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	return c.NoContent(http.StatusNoContent)
}

func (ctrl *Controller) GetPortfolio(c echo.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	summary, err := ctrl.portfolioService.GetPortfolio(ctx)
	if err != nil {
		slog.Error("got error from portfolioService.GetPortfolio", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return echo.NewHTTPError(http.StatusInternalServerError, "something went wrong")
	}

	return c.JSON(http.StatusOK, convertPortfolio(summary))
}

func (ctrl *Controller) GetTransactions(c echo.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	transactions, err := ctrl.portfolioService.GetTransactions(ctx)
	if err != nil {
		slog.Error("got error from portfolioService.GetTransactions", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return echo.NewHTTPError(http.StatusInternalServerError, "something went wrong")
	}

	resp := make([]transactionResponse, 0, len(transactions))
	for _, tr := range transactions {
		resp = append(resp, transactionResponse{
			ID:        tr.ID,
			Symbol:    tr.Symbol,
			Type:      string(tr.AssetType),
			Operation: string(tr.Operation),
			Amount:    tr.Amount,
			Price:     tr.Price,
			CreatedAt: tr.CreatedAt.Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusOK, resp)
}

func (ctrl *Controller) RecordBuy(c echo.Context) error {
	return ctrl.recordTransaction(c, ctrl.portfolioService.RecordBuy)
}

func (ctrl *Controller) RecordSell(c echo.Context) error {
	return ctrl.recordTransaction(c, ctrl.portfolioService.RecordSell)
}

func (ctrl *Controller) recordTransaction(
	c echo.Context,
	record func(ctx context.Context, symbol string, assetType model.AssetType, amount decimal.Decimal) (model.Transaction, error),
) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	req := assetRequest{}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "amount must be a number")
	}

	tr, err := record(ctx, req.Symbol, model.AssetType(req.Type), amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrInsufficientPosition):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			slog.Error("got error from portfolioService record", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return echo.NewHTTPError(http.StatusInternalServerError, "something went wrong")
		}
	}

	return c.JSON(http.StatusCreated, transactionResponse{
		ID:        tr.ID,
		Symbol:    tr.Symbol,
		Type:      string(tr.AssetType),
		Operation: string(tr.Operation),
		Amount:    tr.Amount,
		Price:     tr.Price,
		CreatedAt: tr.CreatedAt.Format(time.RFC3339),
	})
}

func (ctrl *Controller) GetHoldings(c echo.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	summary, err := ctrl.portfolioService.GetHoldings(ctx)
	if err != nil {
		slog.Error("got error from portfolioService.GetHoldings", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return echo.NewHTTPError(http.StatusInternalServerError, "something went wrong")
	}

	resp := holdingsResponse{Items: make([]holdingItemResponse, 0, len(summary.Items)), TotalValue: summary.TotalValue}
	for _, item := range summary.Items {
		resp.Items = append(resp.Items, holdingItemResponse{
			ID:                    item.ID,
			AddedAt:               item.CreatedAt.Format(time.RFC3339),
			portfolioItemResponse: convertItem(item.PortfolioItem),
		})
	}

	return c.JSON(http.StatusOK, resp)
}

func (ctrl *Controller) AddHolding(c echo.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	req := assetRequest{}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "amount must be a number")
	}

	h, err := ctrl.portfolioService.AddHolding(ctx, req.Symbol, model.AssetType(req.Type), amount)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		slog.Error("got error from portfolioService.AddHolding", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return echo.NewHTTPError(http.StatusInternalServerError, "something went wrong")
	}

	return c.JSON(http.StatusCreated, map[string]any{"id": h.ID})
}

func (ctrl *Controller) RemoveHolding(c echo.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}

	err = ctrl.portfolioService.RemoveHolding(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "holding not found")
		}
		slog.Error("got error from portfolioService.RemoveHolding", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return echo.NewHTTPError(http.StatusInternalServerError, "something went wrong")
	}

	return c.NoContent(http.StatusNoContent)
}

func (ctrl *Controller) GetChart(c echo.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	points, err := ctrl.portfolioService.GetChart(ctx, model.AssetType(c.Param("type")), c.Param("symbol"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "no data")
		default:
			slog.Error("got error from portfolioService.GetChart", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return echo.NewHTTPError(http.StatusInternalServerError, "something went wrong")
		}
	}

	resp := make([]chartPointResponse, 0, len(points))
	for _, p := range points {
		resp = append(resp, chartPointResponse{Date: p.Date, Price: p.Price})
	}

	return c.JSON(http.StatusOK, resp)
}

func (ctrl *Controller) ExportReport(c echo.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	fileBytes, fileExtension, err := ctrl.portfolioService.GenerateReport(ctx)
	if err != nil {
		slog.Error("got error from portfolioService.GenerateReport", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return echo.NewHTTPError(http.StatusInternalServerError, "something went wrong")
	}

	filename := "portfolio_" + time.Now().UTC().Format("2006-01-02") + fileExtension
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)

	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", fileBytes)
}

func convertItem(item model.PortfolioItem) portfolioItemResponse {
	return portfolioItemResponse{
		Symbol: item.Symbol,
		Type:   string(item.AssetType),
		Amount: item.Amount,
		Price:  item.Price,
		Value:  item.Value,
	}
}

func convertPortfolio(summary model.PortfolioSummary) portfolioResponse {
	resp := portfolioResponse{Items: make([]portfolioItemResponse, 0, len(summary.Items)), TotalValue: summary.TotalValue}
	for _, item := range summary.Items {
		resp.Items = append(resp.Items, convertItem(item))
	}
	return resp
}
