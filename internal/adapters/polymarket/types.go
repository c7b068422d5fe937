package polymarket

import "encoding/json"

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete;
// la conversión a domain entities se hace en markets.go y exec.go.

// --- Gamma API ---

// gammaMarketsResponse es la respuesta de GET /markets de Gamma.
type gammaMarketsResponse []gammaMarket

// gammaMarket es un mercado de Gamma. Varios campos numéricos y los arrays
// de tokens/precios llegan como strings JSON anidados.
type gammaMarket struct {
	ConditionID   string      `json:"conditionId"`
	Question      string      `json:"question"`
	Slug          string      `json:"slug"`
	EndDateISO    string      `json:"endDate"`
	ClobTokenIDs  string      `json:"clobTokenIds"`  // JSON array como string
	OutcomePrices string      `json:"outcomePrices"` // JSON array como string
	Outcomes      string      `json:"outcomes"`      // JSON array como string
	Volume24h     json.Number `json:"volume24hr"`
	Active        bool        `json:"active"`
	Closed        bool        `json:"closed"`
	UMAResolution string      `json:"umaResolutionStatus"`
}

// --- CLOB API ---

// clobOrderRequest es el body del POST /order.
type clobOrderRequest struct {
	TokenID   string  `json:"token_id"`
	Side      string  `json:"side"`
	Price     float64 `json:"price,omitempty"`
	SizeUSDC  float64 `json:"size"`
	OrderType string  `json:"order_type"` // FOK para mercado, GTC para límite
}

// clobOrderResponse es la respuesta del POST /order.
type clobOrderResponse struct {
	Success      bool   `json:"success"`
	OrderID      string `json:"orderID"`
	ErrorMsg     string `json:"errorMsg"`
	MakingAmount string `json:"makingAmount"`
	TakingAmount string `json:"takingAmount"`
}

// clobBookLevel es un nivel del orderbook del CLOB; precio y tamaño llegan
// como strings.
type clobBookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// clobBookResponse es la respuesta del GET /book.
type clobBookResponse struct {
	Market string          `json:"market"`
	Bids   []clobBookLevel `json:"bids"`
	Asks   []clobBookLevel `json:"asks"`
}

// clobCancelAllResponse es la respuesta del DELETE /cancel-all.
type clobCancelAllResponse struct {
	Canceled []string `json:"canceled"`
}

// --- Data API ---

// dataPosition es una posición del Data API.
type dataPosition struct {
	Asset    string  `json:"asset"` // token ID
	Size     float64 `json:"size"`
	AvgPrice float64 `json:"avgPrice"`
}

// dataBalance es la respuesta de GET /balance.
type dataBalance struct {
	Balance json.Number `json:"balance"`
}

// --- Redemption relay ---

// redeemRequest es el body del POST /redeem del relayer.
type redeemRequest struct {
	ConditionID string `json:"condition_id"`
	TokenID     string `json:"token_id"`
}

// redeemResponse es la respuesta del relayer.
type redeemResponse struct {
	Success bool        `json:"success"`
	Amount  json.Number `json:"amount"`
	Error   string      `json:"error"`
}
