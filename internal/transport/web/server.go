package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/smolenkov/portfolio_tracker/config"
	"github.com/smolenkov/portfolio_tracker/internal/transport/web/middleware"
)

type Server struct {
	echo *echo.Echo
	cfg  *config.Config
}

func NewServer(cfg *config.Config, ctrl *Controller, sessionStore middleware.Session) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())

	e.POST("/login", ctrl.Login)
	e.POST("/logout", ctrl.Logout)

	api := e.Group("/api", middleware.Auth(sessionStore))
	api.GET("/portfolio", ctrl.GetPortfolio)
	api.GET("/portfolio/export", ctrl.ExportReport)
	api.GET("/transactions", ctrl.GetTransactions)
	api.POST("/transactions/buy", ctrl.RecordBuy)
	api.POST("/transactions/sell", ctrl.RecordSell)
	api.GET("/holdings", ctrl.GetHoldings)
	api.POST("/holdings", ctrl.AddHolding)
	api.DELETE("/holdings/:id", ctrl.RemoveHolding)
	api.GET("/chart/:type/:symbol", ctrl.GetChart)

	return &Server{echo: e, cfg: cfg}
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.cfg.Web.Port)
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		slog.Error("web server failed", slog.String("err", err.Error()))
		panic(err)
	}
}

func (s *Server) Shutdown(ctx context.Context) {
	if err := s.echo.Shutdown(ctx); err != nil {
		slog.Error("web server shutdown failed", slog.String("err", err.Error()))
	}
}
