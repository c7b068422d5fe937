package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/lateshot/internal/adapters/polymarket"
	"github.com/alejandrodnm/lateshot/internal/domain"
)

const gammaMarketsPayload = `[
  {
    "conditionId": "0xbtc1",
    "question": "Will BTC be up at 3:15 PM ET?",
    "slug": "bitcoin-up-or-down-aug-30-3pm",
    "endDate": "2026-08-30T15:15:00Z",
    "clobTokenIds": "[\"tok-yes-1\", \"tok-no-1\"]",
    "outcomePrices": "[\"0.62\", \"0.38\"]",
    "outcomes": "[\"Yes\", \"No\"]",
    "active": true,
    "closed": false
  },
  {
    "conditionId": "0xother",
    "question": "Will it rain tomorrow?",
    "slug": "rain-tomorrow",
    "endDate": "2026-08-30T15:15:00Z",
    "clobTokenIds": "[\"a\", \"b\"]",
    "outcomePrices": "[\"0.5\", \"0.5\"]",
    "active": true,
    "closed": false
  },
  {
    "conditionId": "0xeth-broken",
    "question": "Will ETH be up at 3:15 PM ET?",
    "slug": "ethereum-up-or-down-aug-30-3pm",
    "endDate": "2026-08-30T15:15:00Z",
    "clobTokenIds": "not-a-json-array",
    "outcomePrices": "[\"0.5\", \"0.5\"]",
    "active": true,
    "closed": false
  }
]`

func newGammaClient(srv *httptest.Server) *polymarket.Client {
	return polymarket.NewClient("", srv.URL, "", "")
}

func TestActiveMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("closed"))
		assert.Equal(t, "15M", r.URL.Query().Get("tag_slug"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(gammaMarketsPayload))
	}))
	defer srv.Close()

	client := newGammaClient(srv)
	quotes, err := client.ActiveMarkets(context.Background())
	require.NoError(t, err)

	// Slug sin prefijo conocido y mercado malformado se descartan.
	require.Len(t, quotes, 1)

	q := quotes[0]
	assert.Equal(t, "0xbtc1", q.Market.ConditionID)
	assert.Equal(t, domain.AssetBTC, q.Market.Asset)
	assert.Equal(t, "tok-yes-1", q.Market.YesTokenID)
	assert.Equal(t, "tok-no-1", q.Market.NoTokenID)
	assert.InDelta(t, 0.62, q.YesPrice, 0.001)
	assert.InDelta(t, 0.38, q.NoPrice, 0.001)
	assert.Equal(t, domain.DirectionUp, q.Market.Direction())

	expected := time.Date(2026, 8, 30, 15, 15, 0, 0, time.UTC)
	assert.True(t, q.Market.CloseTimestamp.Equal(expected))
}

func TestActiveMarkets_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newGammaClient(srv)
	_, err := client.ActiveMarkets(context.Background())
	assert.Error(t, err)
}

func TestResolvedOutcome(t *testing.T) {
	payload := `[{
		"conditionId": "0xbtc1",
		"slug": "bitcoin-up-or-down-aug-30-3pm",
		"outcomePrices": "[\"1\", \"0\"]",
		"closed": true
	}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0xbtc1", r.URL.Query().Get("condition_ids"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	client := newGammaClient(srv)
	resolved, outcome, err := client.ResolvedOutcome(context.Background(), "0xbtc1")
	require.NoError(t, err)
	assert.True(t, resolved)
	assert.Equal(t, "YES", outcome)
}

func TestResolvedOutcome_StillOpen(t *testing.T) {
	payload := `[{
		"conditionId": "0xbtc1",
		"slug": "bitcoin-up-or-down-aug-30-3pm",
		"outcomePrices": "[\"0.62\", \"0.38\"]",
		"closed": false
	}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	client := newGammaClient(srv)
	resolved, outcome, err := client.ResolvedOutcome(context.Background(), "0xbtc1")
	require.NoError(t, err)
	assert.False(t, resolved)
	assert.Empty(t, outcome)
}

func TestResolvedOutcome_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := newGammaClient(srv)
	_, _, err := client.ResolvedOutcome(context.Background(), "0xmissing")
	assert.Error(t, err)
}
