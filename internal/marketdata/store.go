package marketdata

// store.go — caché en memoria con ventana rodante para todos los datos de mercado.
//
// Estrategia:
//   - Un único mutex por instancia: varios feeds escriben, el pipeline de
//     evaluación lee. Las lecturas devuelven copias, nunca referencias vivas.
//   - Prune en cada escritura — sin sweeps de fondo. La ventana nunca
//     retiene entradas más viejas que la retención configurada.
//   - Las velas OHLCV se construyen bajo demanda desde los trades crudos;
//     no se almacenan.

import (
	"sync"
	"time"

	"github.com/alejandrodnm/lateshot/internal/domain"
)

// DefaultRetention es la ventana rodante por defecto (60 minutos).
const DefaultRetention = 60 * time.Minute

type key struct {
	source domain.Source
	asset  domain.Asset
}

// Store es el almacén concurrente de trades, orderbooks y precios de oráculo,
// indexado por (source, asset).
type Store struct {
	mu        sync.Mutex
	retention time.Duration
	now       func() time.Time

	trades map[key][]domain.Trade
	books  map[key][]domain.BookSnapshot
	oracle map[domain.Asset][]domain.OraclePrice
}

// NewStore crea un Store con la retención dada (0 = DefaultRetention).
func NewStore(retention time.Duration) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{
		retention: retention,
		now:       time.Now,
		trades:    make(map[key][]domain.Trade),
		books:     make(map[key][]domain.BookSnapshot),
		oracle:    make(map[domain.Asset][]domain.OraclePrice),
	}
}

// RecordTrade añade un trade y poda la ventana de su clave.
func (s *Store) RecordTrade(t domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{t.Source, t.Asset}
	s.trades[k] = pruneTrades(append(s.trades[k], t), s.cutoff())
}

// RecordBook añade un snapshot de orderbook y poda la ventana de su clave.
func (s *Store) RecordBook(b domain.BookSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{b.Source, b.Asset}
	s.books[k] = pruneBooks(append(s.books[k], b), s.cutoff())
}

// RecordOracle añade un precio de oráculo y poda la ventana del activo.
func (s *Store) RecordOracle(p domain.OraclePrice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oracle[p.Asset] = pruneOracle(append(s.oracle[p.Asset], p), s.cutoff())
}

// Trades devuelve una copia de los trades de (source, asset). Con lookback > 0
// filtra a los últimos lookback segundos respecto al reloj del store.
func (s *Store) Trades(source domain.Source, asset domain.Asset, lookback time.Duration) []domain.Trade {
	s.mu.Lock()
	all := s.trades[key{source, asset}]
	out := make([]domain.Trade, len(all))
	copy(out, all)
	s.mu.Unlock()

	if lookback <= 0 {
		return out
	}
	cutoff := s.now().Add(-lookback)
	i := 0
	for ; i < len(out); i++ {
		if !out[i].Timestamp.Before(cutoff) {
			break
		}
	}
	return out[i:]
}

// LatestBook devuelve el snapshot más reciente de (source, asset).
func (s *Store) LatestBook(source domain.Source, asset domain.Asset) (domain.BookSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	books := s.books[key{source, asset}]
	if len(books) == 0 {
		return domain.BookSnapshot{}, false
	}
	return copyBook(books[len(books)-1]), true
}

// LatestOracle devuelve el último precio de oráculo del activo.
func (s *Store) LatestOracle(asset domain.Asset) (domain.OraclePrice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prices := s.oracle[asset]
	if len(prices) == 0 {
		return domain.OraclePrice{}, false
	}
	return prices[len(prices)-1], true
}

// Bars construye velas OHLCV bucketeando los trades de (source, asset) en
// intervalos fijos. Una vela arranca en floor(ts/interval)*interval; cruzar
// el límite del bucket cierra la vela actual aunque esté parcial, y la vela
// final (posiblemente parcial) siempre se incluye.
func (s *Store) Bars(asset domain.Asset, interval time.Duration, source domain.Source) []domain.Bar {
	trades := s.Trades(source, asset, 0)
	return BuildBars(trades, interval)
}

// BuildBars agrupa trades ya ordenados por timestamp en velas de ancho fijo.
func BuildBars(trades []domain.Trade, interval time.Duration) []domain.Bar {
	if len(trades) == 0 || interval <= 0 {
		return nil
	}

	iv := interval.Milliseconds()
	bucket := func(t time.Time) int64 {
		ms := t.UnixMilli()
		return ms - ms%iv
	}

	var bars []domain.Bar
	cur := newBar(trades[0], bucket(trades[0].Timestamp))

	for _, t := range trades {
		if t.Timestamp.UnixMilli() >= cur.Timestamp.UnixMilli()+iv {
			bars = append(bars, cur)
			cur = newBar(t, bucket(t.Timestamp))
		}
		if t.Price > cur.High {
			cur.High = t.Price
		}
		if t.Price < cur.Low {
			cur.Low = t.Price
		}
		cur.Close = t.Price
		cur.Volume += t.Quantity
		if t.IsBuyerMaker {
			cur.SellVolume += t.Quantity
		} else {
			cur.BuyVolume += t.Quantity
		}
	}

	// La última vela parcial siempre cuenta.
	return append(bars, cur)
}

func newBar(t domain.Trade, startMs int64) domain.Bar {
	return domain.Bar{
		Timestamp: time.UnixMilli(startMs).UTC(),
		Open:      t.Price,
		High:      t.Price,
		Low:       t.Price,
		Close:     t.Price,
	}
}

// --- poda interna (con el lock tomado) ---

func (s *Store) cutoff() time.Time {
	return s.now().Add(-s.retention)
}

func pruneTrades(ts []domain.Trade, cutoff time.Time) []domain.Trade {
	i := 0
	for ; i < len(ts); i++ {
		if !ts[i].Timestamp.Before(cutoff) {
			break
		}
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0], ts[i:]...)
}

func pruneBooks(bs []domain.BookSnapshot, cutoff time.Time) []domain.BookSnapshot {
	i := 0
	for ; i < len(bs); i++ {
		if !bs[i].Timestamp.Before(cutoff) {
			break
		}
	}
	if i == 0 {
		return bs
	}
	return append(bs[:0], bs[i:]...)
}

func pruneOracle(ps []domain.OraclePrice, cutoff time.Time) []domain.OraclePrice {
	i := 0
	for ; i < len(ps); i++ {
		if !ps[i].Timestamp.Before(cutoff) {
			break
		}
	}
	if i == 0 {
		return ps
	}
	return append(ps[:0], ps[i:]...)
}

func copyBook(b domain.BookSnapshot) domain.BookSnapshot {
	out := b
	out.Bids = append([]domain.BookLevel(nil), b.Bids...)
	out.Asks = append([]domain.BookLevel(nil), b.Asks...)
	return out
}
