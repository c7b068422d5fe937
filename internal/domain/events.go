package domain

import "time"

// Source identifica el origen de un evento de mercado.
type Source string

const (
	SourceBinance    Source = "binance"
	SourcePolymarket Source = "polymarket"
	SourceOracle     Source = "chainlink"
)

// Trade es una ejecución individual normalizada de cualquier feed.
// Inmutable una vez registrada.
type Trade struct {
	Timestamp    time.Time
	Source       Source
	Asset        Asset
	Price        float64
	Quantity     float64
	IsBuyerMaker bool // true = agresor vendedor (taker sell)
}

// BookLevel es un nivel de precio del orderbook.
type BookLevel struct {
	Price float64
	Size  float64
}

// BookSnapshot es una foto completa del orderbook en un instante.
// El snapshot más reciente por (source, asset) es el autoritativo.
type BookSnapshot struct {
	Timestamp time.Time
	Source    Source
	Asset     Asset
	Bids      []BookLevel // ordenados de mejor (mayor precio) a peor
	Asks      []BookLevel // ordenados de mejor (menor precio) a peor
}

// OraclePrice es un precio de referencia publicado por el oráculo.
type OraclePrice struct {
	Timestamp time.Time
	Asset     Asset
	Price     float64
	Source    Source
}

// Bar es una vela OHLCV derivada de trades. Se construye bajo demanda,
// nunca se almacena.
type Bar struct {
	Timestamp  time.Time // inicio del bucket
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	BuyVolume  float64
	SellVolume float64
}
