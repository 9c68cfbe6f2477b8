package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ducminhle1904/crypto-exec-engine/internal/config"
	"github.com/ducminhle1904/crypto-exec-engine/internal/executor"
	"github.com/ducminhle1904/crypto-exec-engine/internal/monitoring"
	"github.com/ducminhle1904/crypto-exec-engine/internal/order"
	"github.com/ducminhle1904/crypto-exec-engine/internal/risk"
	"github.com/ducminhle1904/crypto-exec-engine/pkg/reporting"
)

func main() {
	// Load .env file if present
	godotenv.Load()

	cfg := config.Load()
	log := newLogger(cfg.LogLevel)
	defer log.Sync()

	log.Info("starting execution engine demo", zap.String("environment", cfg.Environment))

	// Risk manager
	riskManager := risk.NewManager(risk.ManagerConfig{
		InitialCapital:   cfg.Risk.InitialCapital,
		RiskPerTrade:     cfg.Risk.RiskPerTrade,
		MaxPortfolioRisk: cfg.Risk.MaxPortfolioRisk,
		Level:            risk.ParseLevel(cfg.Risk.RiskLevel),
		Kelly: risk.KellyParams{
			WinRate: cfg.Risk.KellyWinRate,
			AvgWin:  cfg.Risk.KellyAvgWin,
			AvgLoss: cfg.Risk.KellyAvgLoss,
		},
		RiskFreeRate: cfg.Risk.RiskFreeRate,
	}, log)

	venues := buildVenues(cfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for _, venue := range venues {
		if err := venue.Connect(ctx); err != nil {
			log.Fatal("venue connection failed", zap.String("exchange", venue.Name()), zap.Error(err))
		}
	}

	router := executor.NewSmartOrderRouter(
		venues,
		executor.RouterConfig{
			MaxVenueShare: decimal.NewFromFloat(cfg.Execution.MaxVenueShare),
			MinChunk:      decimal.NewFromFloat(cfg.Execution.MinChunk),
		},
		log,
	)

	// Prometheus endpoint
	setupMonitoringServer(cfg, log)

	runDemoFlow(ctx, cfg, riskManager, venues[0], router, log)

	// Wait for interrupt so the metrics endpoint stays up
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		log.Info("demo completed")
	case <-sigChan:
		log.Info("demo interrupted by user")
	}
}

// buildVenues assembles the execution venues. With a live exchange
// configured and credentialed it trades on that single venue; otherwise it
// falls back to two simulated venues with slightly different quotes so the
// router has something to choose between.
func buildVenues(cfg *config.Config, log *zap.Logger) []executor.OrderExecutor {
	if cfg.Exchange.Name != "" && cfg.Exchange.Name != "mock" && cfg.Exchange.APIKey != "" {
		venue, err := executor.NewVenue(executor.VenueConfig{
			Name:              cfg.Exchange.Name,
			APIKey:            cfg.Exchange.APIKey,
			APISecret:         cfg.Exchange.APISecret,
			Testnet:           cfg.Exchange.Testnet,
			Demo:              cfg.Exchange.Demo,
			RateLimitRequests: cfg.Execution.RateLimitRequests,
			RateLimitWindow:   cfg.Execution.RateLimitWindow,
		}, log)
		if err != nil {
			log.Fatal("live venue construction failed",
				zap.String("exchange", cfg.Exchange.Name), zap.Error(err))
		}
		log.Info("trading on live venue",
			zap.String("exchange", venue.Name()),
			zap.Bool("testnet", cfg.Exchange.Testnet),
			zap.Bool("demo", cfg.Exchange.Demo))
		return []executor.OrderExecutor{venue}
	}

	log.Info("no live exchange credentials, paper trading on simulated venues")
	venues := make([]executor.OrderExecutor, 0, 2)
	for _, label := range []string{"alpha", "beta"} {
		venue, err := executor.NewVenue(executor.VenueConfig{
			Name:              "mock",
			Label:             label,
			RateLimitRequests: cfg.Execution.RateLimitRequests,
			RateLimitWindow:   cfg.Execution.RateLimitWindow,
			SimulatedDelay:    cfg.Execution.SimulatedDelay,
		}, log)
		if err != nil {
			log.Fatal("mock venue construction failed", zap.Error(err))
		}
		venues = append(venues, venue)
	}
	if mock, ok := venues[1].(*executor.MockExecutor); ok {
		mock.SetTicker("BTC/USDT", decimal.NewFromInt(50050))
	}
	return venues
}

func runDemoFlow(ctx context.Context, cfg *config.Config, riskManager *risk.Manager,
	venue executor.OrderExecutor, router *executor.SmartOrderRouter, log *zap.Logger) {

	// Size a BTC position from the configured risk budget
	entryPrice := 50000.0
	stopLoss := 49000.0
	size, metrics := riskManager.CalculatePositionSize(entryPrice, stopLoss, 0)
	log.Info("position sized",
		zap.Float64("size", size),
		zap.Float64("risk_amount", metrics.RiskAmount),
		zap.Float64("position_value", metrics.PositionValue))

	// Validate before executing
	ok, violations := riskManager.ValidateTrade(risk.TradeCandidate{
		Symbol:        "BTC/USDT",
		PositionSize:  size,
		PositionValue: size * entryPrice,
		EntryPrice:    entryPrice,
		StopLoss:      stopLoss,
	}, riskManager.Positions())
	if !ok {
		monitoring.RecordTradeBlocked("BTC/USDT")
		log.Warn("trade blocked by risk validation", zap.Strings("violations", violations))
		return
	}

	// Route the sized order across venues
	reports, err := router.ExecuteWithSmartRouting(ctx, "BTC/USDT", order.SideBuy,
		order.TypeMarket, decimal.NewFromFloat(size))
	if err != nil {
		log.Error("smart routing failed", zap.Error(err))
		return
	}
	log.Info("smart routing finished", zap.Int("chunks", len(reports)))

	// Track position risk from the executed price
	if len(reports) > 0 {
		avgPrice := reports[0].ExecutedPrice.InexactFloat64()
		riskManager.UpdatePositionRisk("BTC/USDT", size, avgPrice, avgPrice, stopLoss, 52000, 0.04)
	}
	monitoring.UpdateCapital(riskManager.CurrentCapital())

	// Protective bracket on one venue
	bracket, err := executor.CreateBracketOrder(ctx, venue, "ETH/USDT", order.SideBuy,
		decimal.NewFromFloat(0.5), decimal.NewFromInt(2990),
		decimal.NewFromInt(3200), decimal.NewFromInt(2850))
	if err != nil {
		log.Error("bracket placement failed", zap.Error(err))
	} else {
		log.Info("bracket placed", zap.Int("legs", len(bracket)))
	}

	// Reporting
	report := riskManager.GenerateReport()
	monitoring.UpdatePortfolioVaR(report.PortfolioMetrics.VaR95)

	console := reporting.NewConsoleReporter()
	console.PrintRiskReport(report)
	console.PrintExecutionSummary(venue.OrderSummary())

	if cfg.Reporting.JSONLPath != "" {
		writeJSONLReport(cfg.Reporting.JSONLPath, report, log)
	}
	if cfg.Reporting.ExcelPath != "" {
		history, _ := venue.GetOrderHistory(ctx, executor.HistoryFilter{})
		excel := reporting.NewExcelReporter()
		if err := excel.WriteWorkbook(history, report, cfg.Reporting.ExcelPath); err != nil {
			log.Error("excel report failed", zap.Error(err))
		}
	}
}

func writeJSONLReport(path string, report *risk.Report, log *zap.Logger) {
	writer, err := reporting.NewJSONLWriter(path)
	if err != nil {
		log.Error("jsonl writer failed", zap.Error(err))
		return
	}
	defer writer.Close()
	if err := writer.Write(report); err != nil {
		log.Error("jsonl write failed", zap.Error(err))
	}
}

func setupMonitoringServer(cfg *config.Config, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())

	addr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
	go func() {
		log.Info("metrics server listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()
}

func newLogger(level string) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		zapCfg.Level = lvl
	}
	logger, err := zapCfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
