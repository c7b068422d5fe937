package indicators

// orderbook.go — métricas derivadas del orderbook: imbalance, spread, presión.

import (
	"sort"
	"time"

	"github.com/alejandrodnm/lateshot/internal/domain"
)

const (
	// DefaultBookDepth son los niveles usados para el imbalance top-N.
	DefaultBookDepth = 5
	// flowWindow es la ventana corta del flow imbalance.
	flowWindow = 60 * time.Second
)

// BookMetrics son las métricas del último snapshot del orderbook.
type BookMetrics struct {
	Asset              domain.Asset
	Source             domain.Source
	BidAskImbalance    float64 // (bid_size - ask_size)/(suma) sobre top-N, en [-1, 1]
	WeightedMidpoint   float64 // midpoint ponderado por tamaño cruzado
	SpreadPct          float64 // (ask - bid)/mid
	DepthAsymmetry     float64 // mismo imbalance sobre el libro completo
	OrderFlowImbalance float64 // (buy_vol - sell_vol)/(suma) en la ventana corta
}

// ComputeBook calcula las métricas del orderbook para el último snapshot de
// (source, asset). Devuelve nil si no hay libro o está vacío de algún lado.
func (e *Engine) ComputeBook(asset domain.Asset, source domain.Source, topN int) *BookMetrics {
	snap, ok := e.store.LatestBook(source, asset)
	if !ok || len(snap.Bids) == 0 || len(snap.Asks) == 0 {
		return nil
	}
	trades := e.store.Trades(source, asset, flowWindow)
	return ComputeBookMetrics(snap, trades, topN)
}

// ComputeBookMetrics es la versión pura sobre un snapshot y los trades recientes.
func ComputeBookMetrics(snap domain.BookSnapshot, recentTrades []domain.Trade, topN int) *BookMetrics {
	if len(snap.Bids) == 0 || len(snap.Asks) == 0 {
		return nil
	}
	if topN <= 0 {
		topN = DefaultBookDepth
	}

	bids := append([]domain.BookLevel(nil), snap.Bids...)
	asks := append([]domain.BookLevel(nil), snap.Asks...)
	sort.Slice(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })

	top := func(levels []domain.BookLevel) []domain.BookLevel {
		if len(levels) > topN {
			return levels[:topN]
		}
		return levels
	}

	m := &BookMetrics{Asset: snap.Asset, Source: snap.Source}

	// Imbalance en los top-N niveles.
	var bidSize, askSize float64
	for _, l := range top(bids) {
		bidSize += l.Size
	}
	for _, l := range top(asks) {
		askSize += l.Size
	}
	if total := bidSize + askSize; total > 0 {
		m.BidAskImbalance = (bidSize - askSize) / total
	}

	// Midpoint ponderado por tamaño cruzado del mejor nivel.
	bestBid, bestAsk := bids[0], asks[0]
	if totalTop := bestBid.Size + bestAsk.Size; totalTop > 0 {
		m.WeightedMidpoint = (bestBid.Price*bestAsk.Size + bestAsk.Price*bestBid.Size) / totalTop
	} else {
		m.WeightedMidpoint = (bestBid.Price + bestAsk.Price) / 2
	}

	if mid := (bestBid.Price + bestAsk.Price) / 2; mid > 0 {
		m.SpreadPct = (bestAsk.Price - bestBid.Price) / mid
	}

	// Asimetría de profundidad sobre el libro completo.
	var allBid, allAsk float64
	for _, l := range snap.Bids {
		allBid += l.Size
	}
	for _, l := range snap.Asks {
		allAsk += l.Size
	}
	if depth := allBid + allAsk; depth > 0 {
		m.DepthAsymmetry = (allBid - allAsk) / depth
	}

	// Flow imbalance de los trades recientes.
	var buyVol, sellVol float64
	for _, t := range recentTrades {
		if t.IsBuyerMaker {
			sellVol += t.Quantity
		} else {
			buyVol += t.Quantity
		}
	}
	if flow := buyVol + sellVol; flow > 0 {
		m.OrderFlowImbalance = (buyVol - sellVol) / flow
	}

	return m
}

// BookPressure combina imbalance y flow en una señal direccional [-1, 1]
// del libro del subyacente.
func (e *Engine) BookPressure(asset domain.Asset) float64 {
	m := e.ComputeBook(asset, domain.SourceBinance, 1)
	if m == nil {
		return 0
	}
	return 0.6*m.BidAskImbalance + 0.4*m.OrderFlowImbalance
}
