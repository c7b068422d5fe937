package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/lateshot/internal/domain"
)

const gammaMarketsPath = "/markets"

// slugPrefixes mapea cada activo soportado al prefijo de slug de sus
// mercados de 15 minutos en Gamma.
var slugPrefixes = map[domain.Asset]string{
	domain.AssetBTC: "bitcoin-up-or-down",
	domain.AssetETH: "ethereum-up-or-down",
	domain.AssetSOL: "solana-up-or-down",
	domain.AssetXRP: "xrp-up-or-down",
}

// ActiveMarkets implementa ports.MarketProvider: descubre los mercados de
// 15 minutos activos de los activos soportados con sus precios actuales.
// Mercados con datos malformados se descartan con log, no abortan el ciclo.
func (c *Client) ActiveMarkets(ctx context.Context) ([]domain.MarketQuote, error) {
	url := fmt.Sprintf("%s%s?closed=false&active=true&tag_slug=15M&limit=100", c.gammaBase, gammaMarketsPath)

	var resp gammaMarketsResponse
	if err := c.get(ctx, c.gammaLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("polymarket.ActiveMarkets: %w", err)
	}

	var quotes []domain.MarketQuote
	for _, gm := range resp {
		asset, ok := assetForSlug(gm.Slug)
		if !ok {
			continue
		}
		quote, err := toQuote(gm, asset)
		if err != nil {
			slog.Debug("skipping malformed market", "slug", gm.Slug, "err", err)
			continue
		}
		quotes = append(quotes, quote)
	}

	slog.Debug("active markets discovered", "total", len(resp), "usable", len(quotes))
	return quotes, nil
}

// ResolvedOutcome consulta si un mercado ya resolvió y su resultado.
func (c *Client) ResolvedOutcome(ctx context.Context, conditionID string) (resolved bool, outcome string, err error) {
	url := fmt.Sprintf("%s%s?condition_ids=%s", c.gammaBase, gammaMarketsPath, conditionID)

	var resp gammaMarketsResponse
	if err := c.get(ctx, c.gammaLimiter, url, &resp); err != nil {
		return false, "", fmt.Errorf("polymarket.ResolvedOutcome: %w", err)
	}
	if len(resp) == 0 {
		return false, "", fmt.Errorf("polymarket.ResolvedOutcome: market %s not found", conditionID)
	}

	gm := resp[0]
	if !gm.Closed {
		return false, "", nil
	}

	prices, err := parseStringArray(gm.OutcomePrices)
	if err != nil || len(prices) < 2 {
		return false, "", fmt.Errorf("polymarket.ResolvedOutcome: outcome prices: %w", err)
	}
	yes, _ := strconv.ParseFloat(prices[0], 64)
	if yes >= 0.5 {
		return true, "YES", nil
	}
	return true, "NO", nil
}

func assetForSlug(slug string) (domain.Asset, bool) {
	for asset, prefix := range slugPrefixes {
		if strings.HasPrefix(slug, prefix) {
			return asset, true
		}
	}
	return "", false
}

// toQuote convierte un mercado de Gamma al modelo de dominio. Gamma entrega
// los token IDs y precios como arrays JSON serializados dentro de strings.
func toQuote(gm gammaMarket, asset domain.Asset) (domain.MarketQuote, error) {
	tokens, err := parseStringArray(gm.ClobTokenIDs)
	if err != nil || len(tokens) < 2 {
		return domain.MarketQuote{}, fmt.Errorf("token ids: %w", err)
	}
	prices, err := parseStringArray(gm.OutcomePrices)
	if err != nil || len(prices) < 2 {
		return domain.MarketQuote{}, fmt.Errorf("outcome prices: %w", err)
	}

	yes, err := strconv.ParseFloat(prices[0], 64)
	if err != nil {
		return domain.MarketQuote{}, fmt.Errorf("yes price %q: %w", prices[0], err)
	}
	no, err := strconv.ParseFloat(prices[1], 64)
	if err != nil {
		return domain.MarketQuote{}, fmt.Errorf("no price %q: %w", prices[1], err)
	}

	closeAt, err := time.Parse(time.RFC3339, gm.EndDateISO)
	if err != nil {
		return domain.MarketQuote{}, fmt.Errorf("end date %q: %w", gm.EndDateISO, err)
	}

	return domain.MarketQuote{
		Market: domain.Market{
			ConditionID:    gm.ConditionID,
			YesTokenID:     tokens[0],
			NoTokenID:      tokens[1],
			Asset:          asset,
			Question:       gm.Question,
			CloseTimestamp: closeAt,
		},
		YesPrice: yes,
		NoPrice:  no,
	}, nil
}

// parseStringArray decodifica un array JSON serializado como string,
// p.ej. `"[\"0.52\", \"0.48\"]"`.
func parseStringArray(raw string) ([]string, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty array")
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}
