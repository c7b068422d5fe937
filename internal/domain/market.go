package domain

import (
	"strings"
	"time"
)

// MarketDuration es la duración total de los mercados que operamos (15 min).
const MarketDuration = 900 * time.Second

// Asset es el activo subyacente del mercado de predicción.
type Asset string

const (
	AssetBTC Asset = "BTC"
	AssetETH Asset = "ETH"
	AssetSOL Asset = "SOL"
	AssetXRP Asset = "XRP"
)

// SupportedAssets son los activos con feed de datos configurado.
var SupportedAssets = []Asset{AssetBTC, AssetETH, AssetSOL, AssetXRP}

// StrikeDirection indica si el mercado resuelve YES con movimiento al alza o a la baja.
type StrikeDirection string

const (
	DirectionUp   StrikeDirection = "UP"
	DirectionDown StrikeDirection = "DOWN"
)

// Market representa un mercado de predicción binario de 15 minutos.
// Se crea al descubrirlo vía Gamma; solo muta para marcar resolución.
type Market struct {
	ConditionID    string
	YesTokenID     string
	NoTokenID      string
	Asset          Asset
	Question       string
	CloseTimestamp time.Time // momento en que el mercado resuelve
	Resolved       bool
	Outcome        string // "YES" | "NO" tras la resolución, vacío antes
}

// StartTime devuelve el inicio del mercado (cierre menos la duración fija).
func (m Market) StartTime() time.Time {
	return m.CloseTimestamp.Add(-MarketDuration)
}

// Remaining devuelve los segundos hasta el cierre en el instante dado.
// Negativo si el mercado ya cerró.
func (m Market) Remaining(now time.Time) float64 {
	return m.CloseTimestamp.Sub(now).Seconds()
}

// Elapsed devuelve los segundos transcurridos desde el inicio, acotados a [0, duración].
func (m Market) Elapsed(now time.Time) float64 {
	e := now.Sub(m.StartTime()).Seconds()
	if e < 0 {
		return 0
	}
	if maxS := MarketDuration.Seconds(); e > maxS {
		return maxS
	}
	return e
}

// Direction infiere la dirección del strike a partir de la pregunta del mercado.
// "Will BTC be up at..." → UP; cualquier otra cosa → DOWN.
func (m Market) Direction() StrikeDirection {
	if strings.Contains(strings.ToLower(m.Question), "up") {
		return DirectionUp
	}
	return DirectionDown
}

// TokenFor devuelve el token ID del lado que compra la señal dada.
func (m Market) TokenFor(d SignalDirection) string {
	if d == BuyYes {
		return m.YesTokenID
	}
	return m.NoTokenID
}

// MarketQuote es un mercado activo junto con sus precios YES/NO actuales.
type MarketQuote struct {
	Market   Market
	YesPrice float64
	NoPrice  float64
}

// Leader devuelve el lado líder (precio implícito más alto) y su precio.
func (q MarketQuote) Leader() (side string, price float64) {
	if q.YesPrice >= q.NoPrice {
		return "YES", q.YesPrice
	}
	return "NO", q.NoPrice
}
