// Package engine runs the trading loop: refresh markets, evaluate each one,
// execute decisions, track resolutions and keep the books.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alejandrodnm/lateshot/internal/analytics"
	"github.com/alejandrodnm/lateshot/internal/domain"
	"github.com/alejandrodnm/lateshot/internal/execution"
	"github.com/alejandrodnm/lateshot/internal/instrumentation"
	"github.com/alejandrodnm/lateshot/internal/ports"
	"github.com/alejandrodnm/lateshot/internal/strategy"
)

const (
	defaultEvalInterval  = 5 * time.Second
	defaultStaleSweep    = 30 * time.Second
	defaultSummaryEvery  = 60 * time.Second
	resolutionGraceAfter = 30 * time.Second
)

// ResolutionChecker reports whether a market has resolved and how. Decouples
// the engine from the concrete market adapter.
type ResolutionChecker interface {
	ResolvedOutcome(ctx context.Context, conditionID string) (resolved bool, outcome string, err error)
}

// BalanceSource reads the venue account balance.
type BalanceSource interface {
	Balance(ctx context.Context) (float64, error)
}

// Config holds the loop timings. Zero values take defaults.
type Config struct {
	EvalInterval time.Duration
	StaleSweep   time.Duration
	SummaryEvery time.Duration
}

// activeTrade is a filled entry awaiting market resolution.
type activeTrade struct {
	decision domain.TradeDecision
	order    domain.ManagedOrder
}

// Engine wires the evaluation pipeline to execution and accounting.
type Engine struct {
	markets     ports.MarketProvider
	resolutions ResolutionChecker
	balances    BalanceSource
	evaluator   *strategy.Evaluator
	orders      *execution.OrderManager
	redeemer    *execution.Redeemer
	risk        *strategy.RiskManager
	pnl         *analytics.Tracker
	journal     ports.TradeStore
	notifier    ports.Notifier
	metrics     *instrumentation.Metrics
	cfg         Config

	mu     sync.Mutex
	active map[string]activeTrade // conditionID -> trade awaiting resolution
}

// New creates an Engine.
func New(
	markets ports.MarketProvider,
	resolutions ResolutionChecker,
	balances BalanceSource,
	evaluator *strategy.Evaluator,
	orders *execution.OrderManager,
	redeemer *execution.Redeemer,
	risk *strategy.RiskManager,
	pnl *analytics.Tracker,
	journal ports.TradeStore,
	notifier ports.Notifier,
	metrics *instrumentation.Metrics,
	cfg Config,
) *Engine {
	if cfg.EvalInterval <= 0 {
		cfg.EvalInterval = defaultEvalInterval
	}
	if cfg.StaleSweep <= 0 {
		cfg.StaleSweep = defaultStaleSweep
	}
	if cfg.SummaryEvery <= 0 {
		cfg.SummaryEvery = defaultSummaryEvery
	}

	return &Engine{
		markets:     markets,
		resolutions: resolutions,
		balances:    balances,
		evaluator:   evaluator,
		orders:      orders,
		redeemer:    redeemer,
		risk:        risk,
		pnl:         pnl,
		journal:     journal,
		notifier:    notifier,
		metrics:     metrics,
		cfg:         cfg,
		active:      make(map[string]activeTrade),
	}
}

// Run drives the loop until the context is cancelled. The redeemer runs in
// its own goroutine; everything else shares this one so the evaluator's
// per-market state never sees concurrent mutation.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine started",
		"eval_interval", e.cfg.EvalInterval,
		"summary_every", e.cfg.SummaryEvery,
	)

	go e.redeemer.Run(ctx)

	evalTicker := time.NewTicker(e.cfg.EvalInterval)
	defer evalTicker.Stop()
	staleTicker := time.NewTicker(e.cfg.StaleSweep)
	defer staleTicker.Stop()
	summaryTicker := time.NewTicker(e.cfg.SummaryEvery)
	defer summaryTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopping")
			e.shutdown()
			return ctx.Err()
		case <-evalTicker.C:
			e.cycle(ctx)
		case <-staleTicker.C:
			if swept := e.orders.CleanupStale(ctx); swept > 0 {
				slog.Info("stale sweep", "cancelled", swept)
			}
		case <-summaryTicker.C:
			e.heartbeat(ctx)
		}
	}
}

// cycle is one full pass: refresh quotes, settle resolutions, evaluate and
// execute. A failed market refresh skips the pass; resolution tracking does
// not depend on fresh quotes.
func (e *Engine) cycle(ctx context.Context) {
	start := time.Now()

	quotes, err := e.markets.ActiveMarkets(ctx)
	if err != nil {
		slog.Warn("market refresh failed, skipping cycle", "err", err)
		e.checkResolutions(ctx)
		return
	}

	e.checkResolutions(ctx)

	for _, quote := range quotes {
		if ctx.Err() != nil {
			return
		}
		e.evaluateOne(ctx, quote)
	}

	e.metrics.EvaluationSeconds.Observe(time.Since(start).Seconds())
	_, _, _, dailyPnL, _ := e.risk.Stats()
	e.metrics.DailyPnLUSDC.Set(dailyPnL)
}

func (e *Engine) evaluateOne(ctx context.Context, quote domain.MarketQuote) {
	e.mu.Lock()
	_, alreadyIn := e.active[quote.Market.ConditionID]
	e.mu.Unlock()
	if alreadyIn {
		return
	}

	e.metrics.EvaluationsTotal.WithLabelValues(string(quote.Market.Asset)).Inc()

	decision := e.evaluator.Evaluate(quote)
	e.metrics.DecisionsTotal.WithLabelValues(string(decision.Signal.Direction)).Inc()

	// Routine holds and pre-signal skips are not worth journaling.
	actionable := decision.Signal.Direction == domain.BuyYes || decision.Signal.Direction == domain.BuyNo
	if actionable || decision.ShouldTrade {
		e.logSignal(ctx, decision)
	}

	if !decision.ShouldTrade {
		return
	}

	e.execute(ctx, decision)
}

func (e *Engine) execute(ctx context.Context, decision domain.TradeDecision) {
	order, err := e.orders.PlaceMarketOrder(ctx, decision)
	e.metrics.OrdersTotal.WithLabelValues(string(order.Status)).Inc()
	if err != nil {
		slog.Error("order placement failed",
			"asset", decision.Market.Asset,
			"direction", decision.Signal.Direction,
			"err", err,
		)
		return
	}

	e.risk.PositionOpened()
	e.metrics.OpenPositions.Inc()

	e.mu.Lock()
	e.active[decision.Market.ConditionID] = activeTrade{decision: decision, order: order}
	e.mu.Unlock()

	if err := e.notifier.AlertTrade(ctx, decision, order); err != nil {
		slog.Warn("trade alert failed", "err", err)
	}
}

// checkResolutions settles every active trade whose market is past close.
func (e *Engine) checkResolutions(ctx context.Context) {
	e.mu.Lock()
	var due []activeTrade
	now := time.Now()
	for _, trade := range e.active {
		if now.After(trade.decision.Market.CloseTimestamp.Add(resolutionGraceAfter)) {
			due = append(due, trade)
		}
	}
	e.mu.Unlock()

	for _, trade := range due {
		if ctx.Err() != nil {
			return
		}

		resolved, outcome, err := e.resolutions.ResolvedOutcome(ctx, trade.decision.Market.ConditionID)
		if err != nil {
			slog.Warn("resolution check failed",
				"condition_id", trade.decision.Market.ConditionID, "err", err)
			continue
		}
		if !resolved {
			continue
		}
		e.handleResolution(ctx, trade, outcome)
	}
}

// handleResolution books PnL, updates risk, journals the trade and queues
// redemption of winning shares.
func (e *Engine) handleResolution(ctx context.Context, trade activeTrade, outcome string) {
	market := trade.decision.Market
	won := (trade.decision.Signal.Direction == domain.BuyYes && outcome == "YES") ||
		(trade.decision.Signal.Direction == domain.BuyNo && outcome == "NO")

	shares := trade.order.FillSize
	size := trade.order.SizeUSDC
	pnl := e.pnl.RecordResolution(market.Asset, shares, size, won)
	e.risk.RecordTradeResult(pnl, won)
	e.risk.PositionClosed()
	e.metrics.OpenPositions.Dec()

	slog.Info("market resolved",
		"asset", market.Asset,
		"condition_id", market.ConditionID,
		"outcome", outcome,
		"won", won,
		"pnl", pnl,
	)

	e.logTrade(ctx, trade, won, pnl)

	if err := e.notifier.AlertResolution(ctx, market.Asset, outcome, pnl); err != nil {
		slog.Warn("resolution alert failed", "err", err)
	}

	if won && shares > 0 {
		e.redeemer.Add(market.ConditionID, market.TokenFor(trade.decision.Signal.Direction))
		e.metrics.RedemptionsTotal.WithLabelValues("queued").Inc()
	}

	// The market is settled; resting limit orders tied to it are dead weight.
	if n := e.orders.CancelMarket(ctx, market.ConditionID); n > 0 {
		slog.Info("resting orders cancelled", "condition_id", market.ConditionID, "count", n)
	}

	// Limit breaches surface through TradingAllowed; run it now so a kill
	// caused by this loss is alerted immediately, not on the next tick.
	e.risk.TradingAllowed()
	if killed, reason := e.risk.Killed(); killed {
		if _, err := e.orders.CancelAll(ctx); err != nil {
			slog.Warn("kill cancel-all failed", "err", err)
		}
		if err := e.notifier.AlertRisk(ctx, reason); err != nil {
			slog.Warn("risk alert failed", "err", err)
		}
	}

	e.evaluator.Cleanup(market.ConditionID)
	e.mu.Lock()
	delete(e.active, market.ConditionID)
	e.mu.Unlock()
}

// shutdown cancels every resting order before the engine exits. The run
// context is already dead by the time this is called, so it gets its own.
func (e *Engine) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n, err := e.orders.CancelAll(ctx)
	if err != nil {
		slog.Warn("shutdown cancel-all failed", "err", err)
		return
	}
	if n > 0 {
		slog.Info("resting orders cancelled on shutdown", "count", n)
	}
}

// heartbeat refreshes the balance from the venue and prints the periodic
// session summary.
func (e *Engine) heartbeat(ctx context.Context) {
	if bal, err := e.balances.Balance(ctx); err != nil {
		slog.Warn("balance refresh failed", "err", err)
	} else {
		e.risk.UpdateBalance(bal)
	}

	trades, wins, losses, dailyPnL, balance := e.risk.Stats()
	killed, killReason := e.risk.Killed()

	report := e.pnl.Snapshot()
	report.Balance = balance
	report.DailyPnL = dailyPnL
	report.Trades = trades
	report.Wins = wins
	report.Losses = losses
	if trades > 0 {
		report.WinRate = float64(wins) / float64(trades)
	}
	e.mu.Lock()
	report.ActiveTrades = len(e.active)
	e.mu.Unlock()
	report.ActiveOrders = len(e.orders.ActiveOrders())
	report.PendingRedemptions = e.redeemer.Pending()
	report.Killed = killed
	report.KillReason = killReason

	if err := e.notifier.Summary(ctx, report); err != nil {
		slog.Warn("summary failed", "err", err)
	}
}

func (e *Engine) logSignal(ctx context.Context, decision domain.TradeDecision) {
	entry := domain.SignalLogEntry{
		Timestamp:  time.Now(),
		Asset:      decision.Market.Asset,
		MarketID:   decision.Market.ConditionID,
		Direction:  decision.Signal.Direction,
		Edge:       decision.Signal.Edge,
		Confidence: decision.Signal.Confidence,
		Phase:      decision.PhaseInfo.Phase,
		Reasons:    strings.Join(decision.Signal.Reasons, "; "),
		Traded:     decision.ShouldTrade,
	}
	if err := e.journal.LogSignal(ctx, entry); err != nil {
		slog.Warn("journal signal failed", "err", err)
	}
}

func (e *Engine) logTrade(ctx context.Context, trade activeTrade, won bool, pnl float64) {
	result := "LOSS"
	if won {
		result = "WIN"
	}
	_, leaderPrice := leader(trade.decision)
	entry := domain.TradeLogEntry{
		Timestamp:        time.Now(),
		Asset:            trade.decision.Market.Asset,
		MarketID:         trade.decision.Market.ConditionID,
		Side:             trade.decision.Signal.Direction,
		EntryPrice:       trade.order.FillPrice,
		SizeUSDC:         trade.order.SizeUSDC,
		EdgeAtEntry:      trade.decision.Signal.Edge,
		Phase:            trade.decision.PhaseInfo.Phase,
		LeaderConfidence: leaderPrice,
		Outcome:          result,
		PnL:              pnl,
	}
	if err := e.journal.LogTrade(ctx, entry); err != nil {
		slog.Warn("journal trade failed", "err", err)
	}
}

func leader(decision domain.TradeDecision) (side string, price float64) {
	if decision.EdgeResult.YesPrice >= decision.EdgeResult.NoPrice {
		return "YES", decision.EdgeResult.YesPrice
	}
	return "NO", decision.EdgeResult.NoPrice
}
