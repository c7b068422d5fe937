// Package analytics lleva la contabilidad de la sesión: PnL realizado,
// ratios de acierto y desglose por activo. Usa aritmética decimal para que
// los totales cuadren al céntimo con el venue.
package analytics

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/lateshot/internal/domain"
)

// Tracker acumula resultados de trades resueltos. Seguro para uso
// concurrente.
type Tracker struct {
	mu        sync.Mutex
	startedAt time.Time
	total     decimal.Decimal
	daily     decimal.Decimal
	trades    int
	wins      int
	losses    int
	perAsset  map[domain.Asset]*assetAcc
}

type assetAcc struct {
	trades int
	wins   int
	pnl    decimal.Decimal
}

// NewTracker crea un tracker vacío.
func NewTracker() *Tracker {
	return &Tracker{
		startedAt: time.Now(),
		perAsset:  make(map[domain.Asset]*assetAcc),
	}
}

// RecordResolution registra el PnL de un mercado resuelto. Para una posición
// ganadora de n shares compradas a precio p con size USDC, el PnL es
// shares*1 - size; para una perdedora, -size.
func (t *Tracker) RecordResolution(asset domain.Asset, shares, sizeUSDC float64, won bool) float64 {
	var pnl decimal.Decimal
	size := decimal.NewFromFloat(sizeUSDC)
	if won {
		pnl = decimal.NewFromFloat(shares).Sub(size)
	} else {
		pnl = size.Neg()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.trades++
	t.total = t.total.Add(pnl)
	t.daily = t.daily.Add(pnl)
	if won {
		t.wins++
	} else {
		t.losses++
	}

	acc, ok := t.perAsset[asset]
	if !ok {
		acc = &assetAcc{}
		t.perAsset[asset] = acc
	}
	acc.trades++
	if won {
		acc.wins++
	}
	acc.pnl = acc.pnl.Add(pnl)

	f, _ := pnl.Float64()
	return f
}

// ResetDaily pone a cero el PnL diario.
func (t *Tracker) ResetDaily() {
	t.mu.Lock()
	t.daily = decimal.Zero
	t.mu.Unlock()
}

// Snapshot devuelve el estado agregado de la sesión. Los campos de riesgo y
// órdenes los completa el llamante.
func (t *Tracker) Snapshot() domain.SessionSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	winRate := 0.0
	if t.trades > 0 {
		winRate = float64(t.wins) / float64(t.trades)
	}

	perAsset := make([]domain.AssetStats, 0, len(t.perAsset))
	for asset, acc := range t.perAsset {
		pnl, _ := acc.pnl.Float64()
		perAsset = append(perAsset, domain.AssetStats{
			Asset:  asset,
			Trades: acc.trades,
			Wins:   acc.wins,
			PnL:    pnl,
		})
	}
	sort.Slice(perAsset, func(i, j int) bool { return perAsset[i].Asset < perAsset[j].Asset })

	total, _ := t.total.Float64()
	daily, _ := t.daily.Float64()
	return domain.SessionSummary{
		StartedAt: t.startedAt,
		DailyPnL:  daily,
		TotalPnL:  total,
		Trades:    t.trades,
		Wins:      t.wins,
		Losses:    t.losses,
		WinRate:   winRate,
		PerAsset:  perAsset,
	}
}
