package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/lateshot/internal/adapters/polymarket"
)

const clobBookPayload = `{
  "market": "tok-yes-1",
  "bids": [
    {"price": "0.61", "size": "400"},
    {"price": "0.60", "size": "350"},
    {"price": "bad", "size": "10"},
    {"price": "0.59", "size": "0"}
  ],
  "asks": [
    {"price": "0.63", "size": "40"},
    {"price": "0.64", "size": "not-a-number"}
  ]
}`

func TestBook(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/book", r.URL.Path)
		gotQuery = r.URL.Query().Get("token_id")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(clobBookPayload))
	}))
	defer srv.Close()

	c := polymarket.NewClient(srv.URL, "", "", "")
	bids, asks, err := c.Book(context.Background(), "tok-yes-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-yes-1", gotQuery)

	// El nivel con precio malformado y el de tamaño cero se descartan.
	require.Len(t, bids, 2)
	assert.InDelta(t, 0.61, bids[0].Price, 0.001)
	assert.InDelta(t, 400.0, bids[0].Size, 0.001)
	assert.InDelta(t, 0.60, bids[1].Price, 0.001)

	require.Len(t, asks, 1)
	assert.InDelta(t, 0.63, asks[0].Price, 0.001)
	assert.InDelta(t, 40.0, asks[0].Size, 0.001)
}

func TestBook_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such token", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := polymarket.NewClient(srv.URL, "", "", "")
	_, _, err := c.Book(context.Background(), "tok-missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "polymarket.Book")
}
