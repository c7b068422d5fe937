package ports

import (
	"context"

	"github.com/alejandrodnm/lateshot/internal/domain"
)

// MarketProvider discovers active 15-minute markets and their current
// YES/NO quotes. The engine never discovers markets itself.
type MarketProvider interface {
	// ActiveMarkets returns every open market with fresh quotes, plus any
	// recently closed markets flagged Resolved with their outcome set.
	ActiveMarkets(ctx context.Context) ([]domain.MarketQuote, error)
}

// Predictor is an optional probability model plugged into the signal
// engine. Implementations must be safe to call with partial features.
type Predictor interface {
	// Predict returns the model probability that the current leader holds,
	// and ok=false when the model cannot produce an estimate.
	Predict(features map[string]float64) (prob float64, ok bool)
}
