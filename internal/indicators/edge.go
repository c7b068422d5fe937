package indicators

// edge.go — modelo de fair value y cálculo de edge contra los precios cotizados.
//
// El modelo es una aproximación heurística deliberada, no un modelo de
// mercado calibrado: su contrato es determinismo con inputs idénticos. Los
// fallbacks de ventana se conservan tal cual por paridad de la lógica de
// trading, aunque no sean numéricamente elegantes.

import (
	"math"

	"github.com/alejandrodnm/lateshot/internal/domain"
)

const (
	// FeeRate es el fee efectivo (~2%) sobre posiciones ganadoras.
	FeeRate = 0.02

	timeDecayWeight = 0.3
	defaultLowVol   = 0.001
	timeFractionMin = 0.001
	cvdSlopeScale   = 0.01
	cvdSlopeCap     = 0.1
	logisticK       = 1.7
)

// EdgeCalculator convierte indicadores + tiempo restante en una probabilidad
// de fair value y la compara con los precios YES/NO cotizados.
type EdgeCalculator struct {
	core *Engine
}

// NewEdgeCalculator crea un EdgeCalculator sobre el engine de indicadores.
func NewEdgeCalculator(core *Engine) *EdgeCalculator {
	return &EdgeCalculator{core: core}
}

// Compute calcula el edge de un mercado a partir del feed del subyacente.
func (c *EdgeCalculator) Compute(asset domain.Asset, yesPrice, noPrice, remainingSeconds float64, direction domain.StrikeDirection) domain.EdgeResult {
	snap := c.core.Compute(asset, domain.SourceBinance)
	return ComputeEdge(snap, yesPrice, noPrice, remainingSeconds, direction)
}

// ComputeEdge es la versión pura sobre un Snapshot ya calculado.
func ComputeEdge(snap Snapshot, yesPrice, noPrice, remainingSeconds float64, direction domain.StrikeDirection) domain.EdgeResult {
	var priceChange, volatility, cvdSlope float64
	volatility = defaultLowVol
	if snap.Momentum != nil {
		priceChange = snap.Momentum.ROC
	}
	if snap.Volatility != nil {
		volatility = snap.Volatility.Realized
	}
	if snap.CVD != nil {
		cvdSlope = snap.CVD.Slope
	}

	fairYes := modelFairValue(priceChange, volatility, remainingSeconds, direction, cvdSlope)
	fairNo := 1.0 - fairYes

	edgeYes := fairYes - yesPrice
	edgeNo := fairNo - noPrice

	best := "YES"
	bestEdge := edgeYes
	if edgeNo > edgeYes {
		best = "NO"
		bestEdge = edgeNo
	}

	return domain.EdgeResult{
		FairValueYes:    fairYes,
		FairValueNo:     fairNo,
		YesPrice:        yesPrice,
		NoPrice:         noPrice,
		EdgeYes:         edgeYes,
		EdgeNo:          edgeNo,
		BestSide:        best,
		BestEdge:        bestEdge,
		FeeAdjustedEdge: bestEdge - FeeRate,
		PriceChangePct:  priceChange,
		Confidence:      edgeConfidence(snap, remainingSeconds),
	}
}

// modelFairValue estima P(YES) combinando drift, flujo (CVD) y volatilidad
// ajustada por tiempo, pasando por una CDF normal aproximada, y mezclando
// hacia el estado observado según se agota el tiempo.
func modelFairValue(priceChangePct, volatility, remainingSeconds float64, direction domain.StrikeDirection, cvdSlope float64) float64 {
	timeFraction := remainingSeconds / domain.MarketDuration.Seconds()

	volAdjusted := volatility * math.Sqrt(math.Max(timeFraction, timeFractionMin))

	flowSignal := 0.0
	if cvdSlope != 0 {
		flowSignal = math.Max(-cvdSlopeCap, math.Min(cvdSlopeCap, cvdSlope*cvdSlopeScale))
	}

	combined := priceChangePct + flowSignal
	if direction == domain.DirectionDown {
		combined = -combined
	}

	var z float64
	if volAdjusted > 0 {
		z = combined / volAdjusted
	} else {
		// Sin volatilidad, la señal se toma casi como certeza.
		z = combined * 100
	}

	prob := logisticCDF(z)

	// Con menos tiempo queda menos margen de reversión: la estimación
	// gravita hacia la dirección observada ahora mismo.
	timeWeight := 1.0 - timeFraction
	state := 0.0
	if combined > 0 {
		state = 1.0
	}
	prob = prob*(1-timeWeight*timeDecayWeight) + state*(timeWeight*timeDecayWeight)

	return math.Max(0.01, math.Min(0.99, prob))
}

// edgeConfidence parte de 0.5 y suma por categoría de indicador disponible
// más un término por cercanía al cierre, con techo en 1.0.
func edgeConfidence(snap Snapshot, remainingSeconds float64) float64 {
	confidence := 0.5
	if snap.VWAP != nil && snap.VWAP.CumulativeVolume > 0 {
		confidence += 0.1
	}
	if snap.CVD != nil {
		confidence += 0.1
	}
	if snap.Volatility != nil {
		confidence += 0.1
	}
	timeFraction := remainingSeconds / domain.MarketDuration.Seconds()
	confidence += 0.2 * (1 - timeFraction)
	return math.Min(1.0, confidence)
}

// logisticCDF aproxima la CDF normal estándar con una logística (k=1.7).
func logisticCDF(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-logisticK*x))
}
