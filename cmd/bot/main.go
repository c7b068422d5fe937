package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alejandrodnm/lateshot/config"
	"github.com/alejandrodnm/lateshot/internal/adapters/feed"
	"github.com/alejandrodnm/lateshot/internal/adapters/notify"
	"github.com/alejandrodnm/lateshot/internal/adapters/polymarket"
	"github.com/alejandrodnm/lateshot/internal/adapters/storage"
	"github.com/alejandrodnm/lateshot/internal/analytics"
	"github.com/alejandrodnm/lateshot/internal/application/engine"
	"github.com/alejandrodnm/lateshot/internal/domain"
	"github.com/alejandrodnm/lateshot/internal/execution"
	"github.com/alejandrodnm/lateshot/internal/indicators"
	"github.com/alejandrodnm/lateshot/internal/instrumentation"
	"github.com/alejandrodnm/lateshot/internal/marketdata"
	"github.com/alejandrodnm/lateshot/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("lateshot starting",
		"config", *configPath,
		"eval_interval", cfg.EvalInterval(),
		"assets", len(domain.SupportedAssets),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Venue client.
	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase, cfg.API.DataBase, cfg.API.APIKey)

	// Market data plumbing: spot tape, resolution oracle and the prediction
	// market's own books.
	store := marketdata.NewStore(marketdata.DefaultRetention)
	binance := feed.NewBinanceFeed(cfg.API.BinanceWS, domain.SupportedAssets, store)
	oracle := feed.NewOraclePoller(cfg.API.OracleBase, domain.SupportedAssets, store)
	books := feed.NewPolymarketFeed(client, client, store)
	go binance.Run(ctx)
	go oracle.Run(ctx)
	go books.Run(ctx)

	journal, err := storage.NewSQLiteJournal(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open journal", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer journal.Close()

	// Strategy pipeline.
	ind := indicators.NewEngine(store)
	phases := indicators.NewPhaseDetector()
	edges := indicators.NewEdgeCalculator(ind)
	signals := strategy.NewSignalEngine(nil)
	risk := strategy.NewRiskManager(strategy.RiskSettings{
		MaxDailyLossUSDC:       cfg.Risk.MaxDailyLossUSDC,
		MaxConsecutiveLosses:   cfg.Risk.MaxConsecutiveLosses,
		MaxDrawdownPct:         cfg.Risk.MaxDrawdownPct,
		MaxConcurrentPositions: cfg.Risk.MaxConcurrentPositions,
		MaxPositionUSDC:        cfg.Risk.MaxPositionUSDC,
		KellyFraction:          cfg.Risk.KellyFraction,
		MinPositionUSDC:        cfg.Risk.MinPositionUSDC,
	}, cfg.Risk.StartBalanceUSDC)
	evaluator := strategy.NewEvaluator(ind, phases, edges, signals, risk, strategy.Thresholds{
		MinEdgePct:            cfg.Signal.MinEdgePct,
		MinLeaderConfidence:   cfg.Signal.MinLeaderConfidence,
		RequiredConfirmations: cfg.Signal.RequiredConfirmations,
		EntryWindowSeconds:    cfg.Signal.EntryWindowSeconds,
	})

	// Execution and accounting.
	orders := execution.NewOrderManager(client)
	redeemer := execution.NewRedeemer(client, client)
	pnl := analytics.NewTracker()
	notifier := notify.NewConsole()

	redeemer.OnRedeemed = func(result domain.RedemptionResult) {
		if err := journal.LogRedemption(ctx, result); err != nil {
			slog.Warn("journal redemption failed", "err", err)
		}
	}

	metrics := instrumentation.NewMetrics(prometheus.DefaultRegisterer)
	if cfg.Metrics.Addr != "" {
		go serveMetrics(ctx, cfg.Metrics.Addr)
	}

	eng := engine.New(client, client, client, evaluator, orders, redeemer, risk, pnl,
		journal, notifier, metrics, engine.Config{
			EvalInterval: cfg.EvalInterval(),
			SummaryEvery: cfg.SummaryEvery(),
		})

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("engine exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("lateshot stopped cleanly")
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	slog.Info("metrics endpoint up", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Warn("metrics server stopped", "err", err)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
