package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alejandrodnm/lateshot/internal/domain"
	"github.com/alejandrodnm/lateshot/internal/marketdata"
)

const (
	defaultOracleBase = "https://api.chain.link/v1"
	oraclePollEvery   = 5 * time.Second
)

// oracleFeedIDs mapea cada activo a su feed de precio del oráculo.
var oracleFeedIDs = map[domain.Asset]string{
	domain.AssetBTC: "btc-usd",
	domain.AssetETH: "eth-usd",
	domain.AssetSOL: "sol-usd",
	domain.AssetXRP: "xrp-usd",
}

// OraclePoller consulta periódicamente el precio de referencia que usa la
// resolución de los mercados. Un fallo de polling no es fatal: el precio
// anterior sigue en el store y el siguiente tick reintenta.
type OraclePoller struct {
	http    *http.Client
	baseURL string
	assets  []domain.Asset
	store   *marketdata.Store
	every   time.Duration
}

// NewOraclePoller crea el poller. baseURL vacío usa producción.
func NewOraclePoller(baseURL string, assets []domain.Asset, store *marketdata.Store) *OraclePoller {
	if baseURL == "" {
		baseURL = defaultOracleBase
	}
	return &OraclePoller{
		http:    &http.Client{Timeout: 5 * time.Second},
		baseURL: baseURL,
		assets:  assets,
		store:   store,
		every:   oraclePollEvery,
	}
}

// Run sondea hasta que el contexto se cancela.
func (p *OraclePoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollAll(ctx)
		}
	}
}

func (p *OraclePoller) pollAll(ctx context.Context) {
	for _, asset := range p.assets {
		price, err := p.fetch(ctx, asset)
		if err != nil {
			slog.Warn("oracle poll failed", "asset", asset, "err", err)
			continue
		}
		p.store.RecordOracle(domain.OraclePrice{
			Timestamp: time.Now(),
			Asset:     asset,
			Price:     price,
			Source:    domain.SourceOracle,
		})
	}
}

// oracleResponse es la respuesta del endpoint de precio.
type oracleResponse struct {
	Price json.Number `json:"price"`
}

func (p *OraclePoller) fetch(ctx context.Context, asset domain.Asset) (float64, error) {
	feedID, ok := oracleFeedIDs[asset]
	if !ok {
		return 0, fmt.Errorf("feed.fetch: no oracle feed for %s", asset)
	}

	url := fmt.Sprintf("%s/feeds/%s/latest", p.baseURL, feedID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("feed.fetch: %w", err)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("feed.fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("feed.fetch: status %d", resp.StatusCode)
	}

	var out oracleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("feed.fetch: decode: %w", err)
	}
	price, err := strconv.ParseFloat(out.Price.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("feed.fetch: price %q: %w", out.Price, err)
	}
	return price, nil
}
