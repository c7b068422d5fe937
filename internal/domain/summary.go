package domain

import "time"

// AssetStats agrega resultados por activo dentro de la sesión.
type AssetStats struct {
	Asset  Asset
	Trades int
	Wins   int
	PnL    float64
}

// SessionSummary es la foto del estado de la sesión para reporting.
type SessionSummary struct {
	StartedAt          time.Time
	Balance            float64
	DailyPnL           float64
	TotalPnL           float64
	Trades             int
	Wins               int
	Losses             int
	WinRate            float64 // 0 – 1
	ActiveTrades       int
	ActiveOrders       int
	PendingRedemptions int
	Killed             bool
	KillReason         string
	PerAsset           []AssetStats
}
