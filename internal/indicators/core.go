package indicators

// core.go — indicadores técnicos básicos: VWAP, CVD, volatilidad, momentum.
//
// Todas las funciones son puras sobre slices de trades/velas. Datos
// insuficientes producen resultados parciales (punteros nil en Snapshot),
// nunca ceros que se disfracen de señal.

import (
	"math"
	"time"

	"github.com/alejandrodnm/lateshot/internal/domain"
	"github.com/alejandrodnm/lateshot/internal/marketdata"
)

const (
	// TradeLookback es la ventana de trades usada para VWAP y CVD.
	TradeLookback = 900 * time.Second
	// BarInterval es el ancho de vela para volatilidad y momentum.
	BarInterval = 5 * time.Second

	cvdSlopeWindow   = 50
	momentumLookback = 20
)

// VWAP es el precio medio ponderado por volumen de la ventana.
type VWAP struct {
	Value            float64 // 0 si no hubo volumen (centinela, no error)
	CumulativeVolume float64
	CumulativePV     float64
}

// CVD es el delta de volumen acumulado: volumen comprador menos vendedor.
type CVD struct {
	Value      float64
	BuyVolume  float64
	SellVolume float64
	Slope      float64 // pendiente por mínimos cuadrados de los últimos puntos
}

// Volatility agrupa los tres estimadores de volatilidad sobre velas.
type Volatility struct {
	Realized  float64 // desviación típica muestral de log-returns de cierres
	Parkinson float64 // estimador high-low
	ATR       float64 // rango verdadero medio
}

// Momentum describe la dirección y fuerza del movimiento reciente.
type Momentum struct {
	ROC           float64 // rate of change sobre los últimos k cierres
	Acceleration  float64 // ROC[t] - ROC[t-1]
	TrendStrength float64 // |2·(fracción de subidas) - 1| en [0, 1]
}

// Snapshot es la salida completa de los indicadores core para un activo.
// Un campo nil significa "sin datos suficientes", no valor neutro.
type Snapshot struct {
	Asset      domain.Asset
	VWAP       *VWAP
	CVD        *CVD
	Volatility *Volatility
	Momentum   *Momentum
}

// Engine calcula indicadores leyendo del data store.
type Engine struct {
	store *marketdata.Store
}

// NewEngine crea un Engine sobre el store dado.
func NewEngine(store *marketdata.Store) *Engine {
	return &Engine{store: store}
}

// Compute calcula todos los indicadores core de un activo desde el feed dado.
func (e *Engine) Compute(asset domain.Asset, source domain.Source) Snapshot {
	trades := e.store.Trades(source, asset, TradeLookback)
	bars := e.store.Bars(asset, BarInterval, source)

	snap := Snapshot{Asset: asset}
	if len(trades) > 0 {
		v := ComputeVWAP(trades)
		c := ComputeCVD(trades)
		snap.VWAP = &v
		snap.CVD = &c
	}
	if len(bars) >= 2 {
		vol := ComputeVolatility(bars)
		mom := ComputeMomentum(bars)
		snap.Volatility = &vol
		snap.Momentum = &mom
	}
	return snap
}

// ComputeVWAP calcula Σ(precio·cantidad)/Σ(cantidad) sobre la ventana.
func ComputeVWAP(trades []domain.Trade) VWAP {
	var pv, vol float64
	for _, t := range trades {
		pv += t.Price * t.Quantity
		vol += t.Quantity
	}
	v := VWAP{CumulativeVolume: vol, CumulativePV: pv}
	if vol > 0 {
		v.Value = pv / vol
	}
	return v
}

// ComputeCVD acumula el volumen con signo (+taker buy, -taker sell) y estima
// la pendiente de la serie acumulada por mínimos cuadrados sobre los últimos
// min(50, N) puntos contra su índice. Es un estimador de tendencia simple,
// no una regresión ponderada por tiempo.
func ComputeCVD(trades []domain.Trade) CVD {
	var c CVD
	series := make([]float64, 0, len(trades))
	for _, t := range trades {
		if t.IsBuyerMaker {
			c.SellVolume += t.Quantity
			c.Value -= t.Quantity
		} else {
			c.BuyVolume += t.Quantity
			c.Value += t.Quantity
		}
		series = append(series, c.Value)
	}

	n := len(series)
	if n > cvdSlopeWindow {
		series = series[n-cvdSlopeWindow:]
		n = cvdSlopeWindow
	}
	if n >= 2 {
		xMean := float64(n-1) / 2.0
		var yMean float64
		for _, y := range series {
			yMean += y
		}
		yMean /= float64(n)

		var num, den float64
		for i, y := range series {
			dx := float64(i) - xMean
			num += dx * (y - yMean)
			den += dx * dx
		}
		if den > 0 {
			c.Slope = num / den
		}
	}
	return c
}

// ComputeVolatility calcula volatilidad realizada, Parkinson y ATR sobre velas.
func ComputeVolatility(bars []domain.Bar) Volatility {
	var vol Volatility

	// Realizada: std muestral de log-returns consecutivos (necesita >= 2 returns).
	var returns []float64
	for i := 1; i < len(bars); i++ {
		if bars[i-1].Close > 0 && bars[i].Close > 0 {
			returns = append(returns, math.Log(bars[i].Close/bars[i-1].Close))
		}
	}
	if len(returns) >= 2 {
		var mean float64
		for _, r := range returns {
			mean += r
		}
		mean /= float64(len(returns))
		var variance float64
		for _, r := range returns {
			variance += (r - mean) * (r - mean)
		}
		variance /= float64(len(returns) - 1)
		vol.Realized = math.Sqrt(variance)
	}

	// Parkinson: sqrt(Σ ln(high/low)² / (4·N·ln 2)) sobre velas con high ≠ low.
	var sum float64
	valid := 0
	for _, b := range bars {
		if b.High > 0 && b.Low > 0 && b.High != b.Low {
			lr := math.Log(b.High / b.Low)
			sum += lr * lr
			valid++
		}
	}
	if valid > 0 {
		vol.Parkinson = math.Sqrt(sum / (4 * float64(valid) * math.Ln2))
	}

	// ATR: media del true range por vela.
	var trSum float64
	trCount := 0
	for i := 1; i < len(bars); i++ {
		tr := math.Max(bars[i].High-bars[i].Low,
			math.Max(math.Abs(bars[i].High-bars[i-1].Close), math.Abs(bars[i].Low-bars[i-1].Close)))
		trSum += tr
		trCount++
	}
	if trCount > 0 {
		vol.ATR = trSum / float64(trCount)
	}

	return vol
}

// ComputeMomentum calcula ROC, aceleración y fuerza de tendencia sobre cierres.
// Con pocas velas la aceleración reusa el mejor lookback disponible; ese
// fallback se conserva tal cual por paridad con la lógica de trading.
func ComputeMomentum(bars []domain.Bar) Momentum {
	var closes []float64
	for _, b := range bars {
		if b.Close > 0 {
			closes = append(closes, b.Close)
		}
	}
	if len(closes) < 3 {
		return Momentum{}
	}

	n := len(closes)
	lookback := momentumLookback
	if n-1 < lookback {
		lookback = n - 1
	}

	var m Momentum
	ref := closes[n-1-lookback]
	if ref > 0 {
		m.ROC = (closes[n-1] - ref) / ref
	}

	if n >= 4 {
		prevLookback := lookback
		if n-3 < prevLookback {
			prevLookback = n - 3
		}
		prevRef := closes[n-2-prevLookback]
		var rocPrev float64
		if prevRef > 0 {
			rocPrev = (closes[n-2] - prevRef) / prevRef
		}
		m.Acceleration = m.ROC - rocPrev
	}

	upMoves := 0
	for i := 1; i < n; i++ {
		if closes[i] > closes[i-1] {
			upMoves++
		}
	}
	totalMoves := n - 1
	if totalMoves > 0 {
		m.TrendStrength = math.Abs(2*(float64(upMoves)/float64(totalMoves)) - 1)
	}
	return m
}
