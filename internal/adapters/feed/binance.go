// Package feed conecta los feeds externos de datos de mercado (Binance
// websocket, oráculo de precios) con el store en memoria.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alejandrodnm/lateshot/internal/domain"
	"github.com/alejandrodnm/lateshot/internal/marketdata"
)

const (
	defaultBinanceWS = "wss://stream.binance.com:9443"

	reconnectBaseWait = time.Second
	reconnectMaxWait  = 30 * time.Second
	readDeadline      = 90 * time.Second
	depthLevels       = 20
)

// binanceSymbols mapea cada activo a su par de Binance.
var binanceSymbols = map[domain.Asset]string{
	domain.AssetBTC: "btcusdt",
	domain.AssetETH: "ethusdt",
	domain.AssetSOL: "solusdt",
	domain.AssetXRP: "xrpusdt",
}

// BinanceFeed consume los streams combinados aggTrade y depth de Binance y
// alimenta el store. Reconecta con backoff exponencial ante cualquier corte;
// los mensajes malformados se descartan con log sin tirar la conexión.
type BinanceFeed struct {
	baseURL string
	assets  []domain.Asset
	store   *marketdata.Store
}

// NewBinanceFeed crea el feed. baseURL vacío usa producción.
func NewBinanceFeed(baseURL string, assets []domain.Asset, store *marketdata.Store) *BinanceFeed {
	if baseURL == "" {
		baseURL = defaultBinanceWS
	}
	return &BinanceFeed{baseURL: baseURL, assets: assets, store: store}
}

// Run mantiene la conexión viva hasta que el contexto se cancela.
func (f *BinanceFeed) Run(ctx context.Context) {
	wait := reconnectBaseWait
	for {
		if ctx.Err() != nil {
			return
		}

		err := f.consume(ctx)
		if ctx.Err() != nil {
			return
		}

		slog.Warn("binance feed disconnected, reconnecting", "err", err, "wait", wait)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		wait = nextReconnectWait(wait)
	}
}

func nextReconnectWait(wait time.Duration) time.Duration {
	wait *= 2
	if wait > reconnectMaxWait {
		wait = reconnectMaxWait
	}
	return wait
}

// consume abre la conexión y procesa mensajes hasta el primer error.
func (f *BinanceFeed) consume(ctx context.Context) error {
	url := f.streamURL()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("feed.consume: dial %s: %w", url, err)
	}
	defer conn.Close()

	slog.Info("binance feed connected", "assets", len(f.assets))

	// Cerrar la conexión cuando el contexto muera desbloquea ReadMessage.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed.consume: read: %w", err)
		}
		if err := f.handleMessage(raw); err != nil {
			slog.Debug("dropping malformed feed message", "err", err)
		}
	}
}

func (f *BinanceFeed) streamURL() string {
	streams := make([]string, 0, len(f.assets)*2)
	for _, asset := range f.assets {
		sym := binanceSymbols[asset]
		streams = append(streams,
			sym+"@aggTrade",
			fmt.Sprintf("%s@depth%d@100ms", sym, depthLevels),
		)
	}
	return fmt.Sprintf("%s/stream?streams=%s", f.baseURL, strings.Join(streams, "/"))
}

// streamMsg es el wrapper de los streams combinados de Binance.
type streamMsg struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// aggTradeMsg es un trade agregado. Precios y cantidades llegan como strings.
type aggTradeMsg struct {
	Symbol       string `json:"s"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

// depthMsg es un snapshot parcial del orderbook.
type depthMsg struct {
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
}

func (f *BinanceFeed) handleMessage(raw []byte) error {
	var msg streamMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("outer: %w", err)
	}

	asset, kind, ok := parseStream(msg.Stream)
	if !ok {
		return fmt.Errorf("unknown stream %q", msg.Stream)
	}

	switch {
	case kind == "aggTrade":
		return f.handleTrade(asset, msg.Data)
	case strings.HasPrefix(kind, "depth"):
		return f.handleDepth(asset, msg.Data)
	default:
		return fmt.Errorf("unhandled stream kind %q", kind)
	}
}

func (f *BinanceFeed) handleTrade(asset domain.Asset, data json.RawMessage) error {
	var t aggTradeMsg
	if err := json.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("aggTrade: %w", err)
	}
	price, err := strconv.ParseFloat(t.Price, 64)
	if err != nil {
		return fmt.Errorf("aggTrade price %q: %w", t.Price, err)
	}
	qty, err := strconv.ParseFloat(t.Quantity, 64)
	if err != nil {
		return fmt.Errorf("aggTrade qty %q: %w", t.Quantity, err)
	}

	f.store.RecordTrade(domain.Trade{
		Timestamp:    time.UnixMilli(t.TradeTime),
		Source:       domain.SourceBinance,
		Asset:        asset,
		Price:        price,
		Quantity:     qty,
		IsBuyerMaker: t.IsBuyerMaker,
	})
	return nil
}

func (f *BinanceFeed) handleDepth(asset domain.Asset, data json.RawMessage) error {
	var d depthMsg
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("depth: %w", err)
	}

	snap := domain.BookSnapshot{
		Timestamp: time.Now(),
		Source:    domain.SourceBinance,
		Asset:     asset,
		Bids:      parseLevels(d.Bids),
		Asks:      parseLevels(d.Asks),
	}
	f.store.RecordBook(snap)
	return nil
}

func parseLevels(raw [][2]string) []domain.BookLevel {
	levels := make([]domain.BookLevel, 0, len(raw))
	for _, lv := range raw {
		price, err := strconv.ParseFloat(lv[0], 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseFloat(lv[1], 64)
		if err != nil {
			continue
		}
		levels = append(levels, domain.BookLevel{Price: price, Size: size})
	}
	return levels
}

// parseStream separa "btcusdt@aggTrade" en activo y tipo de stream.
func parseStream(stream string) (domain.Asset, string, bool) {
	parts := strings.SplitN(stream, "@", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	for asset, sym := range binanceSymbols {
		if parts[0] == sym {
			return asset, parts[1], true
		}
	}
	return "", "", false
}
