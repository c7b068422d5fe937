package strategy

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/lateshot/internal/domain"
	"github.com/alejandrodnm/lateshot/internal/indicators"
)

// EntryWindowSeconds is how close to resolution an entry becomes acceptable.
// Earlier than this the outcome is still too uncertain to price an edge.
const EntryWindowSeconds = 240

// Evaluator chains phase detection, edge calculation, signal evaluation and
// sizing into a single TradeDecision per market. It owns the phase detector's
// per-market history and must be driven from one goroutine.
type Evaluator struct {
	indicators *indicators.Engine
	phases     *indicators.PhaseDetector
	edges      *indicators.EdgeCalculator
	signals    *SignalEngine
	risk       *RiskManager
	thresholds Thresholds
	now        func() time.Time
}

// NewEvaluator wires the pipeline together.
func NewEvaluator(
	ind *indicators.Engine,
	phases *indicators.PhaseDetector,
	edges *indicators.EdgeCalculator,
	signals *SignalEngine,
	risk *RiskManager,
	th Thresholds,
) *Evaluator {
	return &Evaluator{
		indicators: ind,
		phases:     phases,
		edges:      edges,
		signals:    signals,
		risk:       risk,
		thresholds: th,
		now:        time.Now,
	}
}

// Evaluate produces a decision for one market quote. Every return carries
// the full evaluation context so skipped markets are as auditable as traded
// ones.
func (e *Evaluator) Evaluate(q domain.MarketQuote) domain.TradeDecision {
	decision := domain.TradeDecision{Market: q.Market}

	phase := e.phases.Detect(q.Market, q.YesPrice, q.NoPrice, e.now())
	decision.PhaseInfo = phase

	if phase.Phase != domain.PhaseLate {
		decision.SkipReason = fmt.Sprintf("Phase %s, waiting for LATE", phase.Phase)
		return decision
	}
	window := e.thresholds.EntryWindowSeconds
	if window <= 0 {
		window = EntryWindowSeconds
	}
	if phase.RemainingSeconds > window {
		decision.SkipReason = fmt.Sprintf("Entry window not reached (%.0fs remaining)", phase.RemainingSeconds)
		return decision
	}

	if ok, reason := e.risk.TradingAllowed(); !ok {
		decision.SkipReason = reason
		return decision
	}

	edge := e.edges.Compute(q.Market.Asset, q.YesPrice, q.NoPrice, phase.RemainingSeconds, q.Market.Direction())
	decision.EdgeResult = edge

	// Flow indicators read the spot tape; the book confirmation reads the
	// prediction market's own YES-token depth.
	core := e.indicators.Compute(q.Market.Asset, domain.SourceBinance)
	book := e.indicators.ComputeBook(q.Market.Asset, domain.SourcePolymarket, indicators.DefaultBookDepth)

	signal := e.signals.Evaluate(edge, phase, core, book, e.thresholds)
	decision.Signal = signal

	if signal.Direction == domain.Hold {
		if len(signal.Reasons) > 0 {
			decision.SkipReason = signal.Reasons[0]
		} else {
			decision.SkipReason = "No signal"
		}
		return decision
	}

	// Kelly odds come from the modeled probability of the side we buy.
	winProb := edge.FairValueYes
	if signal.Direction == domain.BuyNo {
		winProb = edge.FairValueNo
	}
	size := e.risk.ComputePositionSize(signal.Edge, winProb, e.risk.settings.MaxPositionUSDC)
	decision.PositionSize = size
	if size < e.risk.settings.MinPositionUSDC {
		decision.SkipReason = fmt.Sprintf("Position size %.2f below minimum", size)
		return decision
	}

	decision.ShouldTrade = true
	slog.Info("trade decision",
		"asset", q.Market.Asset,
		"direction", signal.Direction,
		"edge", signal.Edge,
		"confidence", signal.Confidence,
		"size_usdc", size,
		"remaining_s", phase.RemainingSeconds,
	)
	return decision
}

// Cleanup drops per-market evaluation state after resolution.
func (e *Evaluator) Cleanup(conditionID string) {
	e.phases.Cleanup(conditionID)
}
