package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/lateshot/internal/domain"
	"github.com/alejandrodnm/lateshot/internal/marketdata"
	"github.com/alejandrodnm/lateshot/internal/ports"
)

const (
	marketRefreshEvery = 30 * time.Second
	bookPollEvery      = 2 * time.Second
	// Gracia tras el cierre antes de dejar de seguir un mercado.
	trackingGrace = 5 * time.Minute
)

// BookClient lee el orderbook de un token del CLOB.
type BookClient interface {
	Book(ctx context.Context, tokenID string) (bids, asks []domain.BookLevel, err error)
}

// trackedMarket es lo mínimo necesario para sondear el libro de un mercado.
type trackedMarket struct {
	asset      domain.Asset
	yesTokenID string
	closeAt    time.Time
}

// PolymarketFeed sigue los mercados de 15 minutos activos y vuelca al store
// el orderbook del token YES de cada uno. La confirmación por libro del
// pipeline se calcula sobre esta profundidad, la del propio mercado de
// predicción, no sobre el spot.
type PolymarketFeed struct {
	markets ports.MarketProvider
	books   BookClient
	store   *marketdata.Store

	refreshEvery time.Duration
	pollEvery    time.Duration

	mu      sync.Mutex
	tracked map[string]trackedMarket // conditionID -> token YES
}

// NewPolymarketFeed crea el feed sobre el proveedor de mercados y el client
// de libros (en producción ambos son el mismo Client del CLOB).
func NewPolymarketFeed(markets ports.MarketProvider, books BookClient, store *marketdata.Store) *PolymarketFeed {
	return &PolymarketFeed{
		markets:      markets,
		books:        books,
		store:        store,
		refreshEvery: marketRefreshEvery,
		pollEvery:    bookPollEvery,
		tracked:      make(map[string]trackedMarket),
	}
}

// Run descubre mercados y sondea sus libros hasta que el contexto se cancela.
func (f *PolymarketFeed) Run(ctx context.Context) {
	f.refresh(ctx)

	refreshTicker := time.NewTicker(f.refreshEvery)
	defer refreshTicker.Stop()
	pollTicker := time.NewTicker(f.pollEvery)
	defer pollTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-refreshTicker.C:
			f.refresh(ctx)
		case <-pollTicker.C:
			f.pollBooks(ctx)
		}
	}
}

// refresh actualiza el conjunto de mercados seguidos y poda los expirados.
// Un fallo de descubrimiento no es fatal: se sigue sondeando lo conocido.
func (f *PolymarketFeed) refresh(ctx context.Context) {
	quotes, err := f.markets.ActiveMarkets(ctx)
	if err != nil {
		slog.Warn("polymarket market refresh failed", "err", err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range quotes {
		f.tracked[q.Market.ConditionID] = trackedMarket{
			asset:      q.Market.Asset,
			yesTokenID: q.Market.YesTokenID,
			closeAt:    q.Market.CloseTimestamp,
		}
	}
	cutoff := time.Now().Add(-trackingGrace)
	for cid, tm := range f.tracked {
		if tm.closeAt.Before(cutoff) {
			delete(f.tracked, cid)
		}
	}
}

// pollBooks registra un snapshot del libro YES de cada mercado seguido.
func (f *PolymarketFeed) pollBooks(ctx context.Context) {
	f.mu.Lock()
	targets := make([]trackedMarket, 0, len(f.tracked))
	for _, tm := range f.tracked {
		targets = append(targets, tm)
	}
	f.mu.Unlock()

	for _, tm := range targets {
		if ctx.Err() != nil {
			return
		}
		bids, asks, err := f.books.Book(ctx, tm.yesTokenID)
		if err != nil {
			slog.Warn("polymarket book poll failed", "asset", tm.asset, "err", err)
			continue
		}
		if len(bids) == 0 && len(asks) == 0 {
			continue
		}
		f.store.RecordBook(domain.BookSnapshot{
			Timestamp: time.Now(),
			Source:    domain.SourcePolymarket,
			Asset:     tm.asset,
			Bids:      bids,
			Asks:      asks,
		})
	}
}
