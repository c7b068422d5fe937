package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/lateshot/internal/domain"
	"github.com/alejandrodnm/lateshot/internal/marketdata"
)

// --- mocks ---

type fakeMarkets struct {
	quotes []domain.MarketQuote
	err    error
}

func (f *fakeMarkets) ActiveMarkets(context.Context) ([]domain.MarketQuote, error) {
	return f.quotes, f.err
}

type fakeBooks struct {
	bids  []domain.BookLevel
	asks  []domain.BookLevel
	err   error
	calls []string
}

func (f *fakeBooks) Book(_ context.Context, tokenID string) ([]domain.BookLevel, []domain.BookLevel, error) {
	f.calls = append(f.calls, tokenID)
	return f.bids, f.asks, f.err
}

func quoteFor(asset domain.Asset, conditionID, yesToken string, closeAt time.Time) domain.MarketQuote {
	return domain.MarketQuote{
		Market: domain.Market{
			ConditionID:    conditionID,
			YesTokenID:     yesToken,
			NoTokenID:      yesToken + "-no",
			Asset:          asset,
			CloseTimestamp: closeAt,
		},
		YesPrice: 0.55,
		NoPrice:  0.45,
	}
}

// --- tests ---

func TestPolymarketFeed_RecordsYesTokenBook(t *testing.T) {
	store := marketdata.NewStore(marketdata.DefaultRetention)
	markets := &fakeMarkets{quotes: []domain.MarketQuote{
		quoteFor(domain.AssetBTC, "cond-1", "tok-yes-1", time.Now().Add(10*time.Minute)),
	}}
	books := &fakeBooks{
		bids: []domain.BookLevel{{Price: 0.61, Size: 400}},
		asks: []domain.BookLevel{{Price: 0.63, Size: 40}},
	}
	f := NewPolymarketFeed(markets, books, store)

	f.refresh(context.Background())
	f.pollBooks(context.Background())

	require.Equal(t, []string{"tok-yes-1"}, books.calls)
	book, ok := store.LatestBook(domain.SourcePolymarket, domain.AssetBTC)
	require.True(t, ok)
	assert.Equal(t, domain.SourcePolymarket, book.Source)
	require.Len(t, book.Bids, 1)
	assert.InDelta(t, 0.61, book.Bids[0].Price, 0.001)
	require.Len(t, book.Asks, 1)
	assert.InDelta(t, 0.63, book.Asks[0].Price, 0.001)
}

func TestPolymarketFeed_PollFailureSkipsMarket(t *testing.T) {
	store := marketdata.NewStore(marketdata.DefaultRetention)
	markets := &fakeMarkets{quotes: []domain.MarketQuote{
		quoteFor(domain.AssetBTC, "cond-1", "tok-yes-1", time.Now().Add(10*time.Minute)),
	}}
	books := &fakeBooks{err: errors.New("clob down")}
	f := NewPolymarketFeed(markets, books, store)

	f.refresh(context.Background())
	f.pollBooks(context.Background())

	_, ok := store.LatestBook(domain.SourcePolymarket, domain.AssetBTC)
	assert.False(t, ok)
}

func TestPolymarketFeed_EmptyBookNotRecorded(t *testing.T) {
	store := marketdata.NewStore(marketdata.DefaultRetention)
	markets := &fakeMarkets{quotes: []domain.MarketQuote{
		quoteFor(domain.AssetETH, "cond-2", "tok-yes-2", time.Now().Add(10*time.Minute)),
	}}
	books := &fakeBooks{}
	f := NewPolymarketFeed(markets, books, store)

	f.refresh(context.Background())
	f.pollBooks(context.Background())

	_, ok := store.LatestBook(domain.SourcePolymarket, domain.AssetETH)
	assert.False(t, ok)
}

func TestPolymarketFeed_RefreshPrunesExpired(t *testing.T) {
	store := marketdata.NewStore(marketdata.DefaultRetention)
	markets := &fakeMarkets{quotes: []domain.MarketQuote{
		quoteFor(domain.AssetBTC, "cond-old", "tok-old", time.Now().Add(-10*time.Minute)),
		quoteFor(domain.AssetETH, "cond-new", "tok-new", time.Now().Add(10*time.Minute)),
	}}
	f := NewPolymarketFeed(markets, &fakeBooks{}, store)

	f.refresh(context.Background())

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Len(t, f.tracked, 1)
	_, still := f.tracked["cond-new"]
	assert.True(t, still)
}

func TestPolymarketFeed_RefreshFailureKeepsTracking(t *testing.T) {
	store := marketdata.NewStore(marketdata.DefaultRetention)
	markets := &fakeMarkets{quotes: []domain.MarketQuote{
		quoteFor(domain.AssetBTC, "cond-1", "tok-yes-1", time.Now().Add(10*time.Minute)),
	}}
	f := NewPolymarketFeed(markets, &fakeBooks{}, store)
	f.refresh(context.Background())

	markets.err = errors.New("gamma down")
	f.refresh(context.Background())

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Len(t, f.tracked, 1)
}
