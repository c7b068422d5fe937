package strategy

import (
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/lateshot/internal/domain"
	"github.com/alejandrodnm/lateshot/internal/indicators"
	"github.com/alejandrodnm/lateshot/internal/ports"
)

const (
	bookImbalanceThreshold = 0.1
	predictorThreshold     = 0.55
	predictorEdgeBoost     = 0.02
)

// Thresholds are the tunable gates of the decision protocol.
type Thresholds struct {
	MinEdgePct            float64
	MinLeaderConfidence   float64
	RequiredConfirmations int
	EntryWindowSeconds    float64
}

// DefaultThresholds returns the production gates.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinEdgePct:            0.02,
		MinLeaderConfidence:   0.60,
		RequiredConfirmations: 2,
		EntryWindowSeconds:    EntryWindowSeconds,
	}
}

// SignalEngine aggregates edge, phase confidence and independent
// confirmations into a BUY_YES / BUY_NO / HOLD signal. The predictor is an
// optional capability; the engine is fully functional without it.
type SignalEngine struct {
	predictor ports.Predictor
}

// NewSignalEngine creates a SignalEngine. predictor may be nil.
func NewSignalEngine(predictor ports.Predictor) *SignalEngine {
	return &SignalEngine{predictor: predictor}
}

// Evaluate runs the decision protocol. The first reason in the returned
// signal is always the binding one, required for audit and not just logging.
// Absent indicators count as non-confirming, never as errors.
func (s *SignalEngine) Evaluate(
	edge domain.EdgeResult,
	phase domain.PhaseInfo,
	core indicators.Snapshot,
	book *indicators.BookMetrics,
	th Thresholds,
) domain.Signal {
	var reasons []string
	confirmations := 0

	hasEdge := edge.FeeAdjustedEdge >= th.MinEdgePct
	if hasEdge {
		reasons = append(reasons, fmt.Sprintf("Edge %.3f >= %.3f (side=%s)",
			edge.FeeAdjustedEdge, th.MinEdgePct, edge.BestSide))
	}

	leaderPrice := edge.YesPrice
	if edge.NoPrice > leaderPrice {
		leaderPrice = edge.NoPrice
	}
	leaderConfident := leaderPrice >= th.MinLeaderConfidence
	if leaderConfident {
		reasons = append(reasons, fmt.Sprintf("Leader price %.3f >= %.3f", leaderPrice, th.MinLeaderConfidence))
	}

	// Independent confirmations: CVD slope, book imbalance, underlying momentum.
	if core.CVD != nil {
		switch {
		case edge.BestSide == "YES" && core.CVD.Slope > 0:
			confirmations++
			reasons = append(reasons, fmt.Sprintf("CVD slope positive (%.4f)", core.CVD.Slope))
		case edge.BestSide == "NO" && core.CVD.Slope < 0:
			confirmations++
			reasons = append(reasons, fmt.Sprintf("CVD slope negative (%.4f)", core.CVD.Slope))
		}
	}

	if book != nil {
		switch {
		case edge.BestSide == "YES" && book.BidAskImbalance > bookImbalanceThreshold:
			confirmations++
			reasons = append(reasons, fmt.Sprintf("Book imbalance bullish (%.3f)", book.BidAskImbalance))
		case edge.BestSide == "NO" && book.BidAskImbalance < -bookImbalanceThreshold:
			confirmations++
			reasons = append(reasons, fmt.Sprintf("Book imbalance bearish (%.3f)", book.BidAskImbalance))
		}
	}

	if core.Momentum != nil {
		roc := core.Momentum.ROC
		switch {
		case edge.BestSide == "YES" && roc > 0:
			confirmations++
			reasons = append(reasons, fmt.Sprintf("Underlying momentum positive (%.5f)", roc))
		case edge.BestSide == "NO" && roc < 0:
			confirmations++
			reasons = append(reasons, fmt.Sprintf("Underlying momentum negative (%.5f)", roc))
		}
	}

	mlBoost := 0.0
	if s.predictor != nil {
		if prob, ok := s.predictor.Predict(featureVector(core, book)); ok && prob > predictorThreshold {
			mlBoost = predictorEdgeBoost
			reasons = append(reasons, fmt.Sprintf("Model confirms (%.3f)", prob))
		}
	}

	var direction domain.SignalDirection
	switch {
	case !hasEdge:
		direction = domain.Hold
		reasons = prepend(reasons, fmt.Sprintf("Insufficient edge: %.3f", edge.FeeAdjustedEdge))
	case !leaderConfident:
		direction = domain.Hold
		reasons = prepend(reasons, fmt.Sprintf("Leader not confident enough: %.3f", leaderPrice))
	case confirmations < th.RequiredConfirmations:
		direction = domain.Hold
		reasons = prepend(reasons, fmt.Sprintf("Only %d/%d confirmations", confirmations, th.RequiredConfirmations))
	case edge.BestSide == "YES":
		direction = domain.BuyYes
	default:
		direction = domain.BuyNo
	}

	sig := domain.Signal{
		Direction:  direction,
		Edge:       edge.FeeAdjustedEdge + mlBoost,
		Confidence: edge.Confidence * phase.Confidence,
		Reasons:    reasons,
	}

	slog.Debug("signal evaluated",
		"direction", sig.Direction,
		"edge", sig.Edge,
		"confidence", sig.Confidence,
		"confirmations", confirmations,
	)
	return sig
}

// featureVector flattens the indicator snapshot for the optional predictor.
// Missing categories are simply absent from the map.
func featureVector(core indicators.Snapshot, book *indicators.BookMetrics) map[string]float64 {
	f := make(map[string]float64, 8)
	if core.VWAP != nil {
		f["vwap"] = core.VWAP.Value
		f["volume"] = core.VWAP.CumulativeVolume
	}
	if core.CVD != nil {
		f["cvd"] = core.CVD.Value
		f["cvd_slope"] = core.CVD.Slope
	}
	if core.Volatility != nil {
		f["realized_vol"] = core.Volatility.Realized
		f["atr"] = core.Volatility.ATR
	}
	if core.Momentum != nil {
		f["roc"] = core.Momentum.ROC
		f["trend_strength"] = core.Momentum.TrendStrength
	}
	if book != nil {
		f["book_imbalance"] = book.BidAskImbalance
		f["flow_imbalance"] = book.OrderFlowImbalance
	}
	return f
}

func prepend(list []string, first string) []string {
	return append([]string{first}, list...)
}
