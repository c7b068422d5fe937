package domain

import "time"

// SignalLogEntry es el registro de una evaluación de señal, se persista o no
// la operación resultante.
type SignalLogEntry struct {
	Timestamp  time.Time
	Asset      Asset
	MarketID   string
	Direction  SignalDirection
	Edge       float64
	Confidence float64
	Phase      MarketPhase
	Reasons    string // primeras razones unidas por "; "
	Traded     bool
}

// TradeLogEntry es el registro de una operación resuelta.
type TradeLogEntry struct {
	Timestamp        time.Time
	Asset            Asset
	MarketID         string
	Side             SignalDirection
	EntryPrice       float64
	SizeUSDC         float64
	EdgeAtEntry      float64
	Phase            MarketPhase
	LeaderConfidence float64
	Outcome          string // "WIN" | "LOSS"
	PnL              float64
}
