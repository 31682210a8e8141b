package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/smolenkov/portfolio_tracker/config"
	"github.com/smolenkov/portfolio_tracker/data"
	"github.com/smolenkov/portfolio_tracker/data/repository/postgres"
	"github.com/smolenkov/portfolio_tracker/data/session"
	"github.com/smolenkov/portfolio_tracker/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/smolenkov/portfolio_tracker/internal/externalApi/coingeckoApi"
	"github.com/smolenkov/portfolio_tracker/internal/externalApi/stocksApi"
	"github.com/smolenkov/portfolio_tracker/internal/priceResolver"
	"github.com/smolenkov/portfolio_tracker/internal/reportGenerator/xlsxGenerator"
	"github.com/smolenkov/portfolio_tracker/internal/scheduler"
	"github.com/smolenkov/portfolio_tracker/internal/service/portfolioService"
	"github.com/smolenkov/portfolio_tracker/internal/transport/web"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisSession := session.NewRedisSession(redisClient, cfg)

	stocksApiClient := stocksApi.New(cfg)
	coingeckoApiClient := coingeckoApi.New(cfg)

	resolver := priceResolver.New(stocksApiClient, coingeckoApiClient)

	reportGenerator := xlsxGenerator.New()

	googleDrive := googleDriveApi.New(ctx, cfg)

	portfolioSrv := portfolioService.New(pgRepo, pgRepo, resolver, stocksApiClient, coingeckoApiClient, reportGenerator, googleDrive)

	sched := scheduler.New()
	sched.NewCrontabJob("report backup", portfolioSrv.BackupReport, cfg.Jobs.ReportBackupCrontab, false)
	sched.Start()
	defer sched.Stop()

	controller := web.NewController(cfg, portfolioSrv, redisSession)

	server := web.NewServer(cfg, controller, redisSession)
	go server.Start()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
