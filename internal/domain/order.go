package domain

import "time"

// OrderSide es el lado de una orden enviada al CLOB.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderStatus es el estado de una orden gestionada. Las transiciones solo
// avanzan (PENDING → SUBMITTED → MATCHED → CONFIRMED → SETTLED), salvo los
// dos estados terminales de fallo.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusSubmitted OrderStatus = "SUBMITTED"
	StatusMatched   OrderStatus = "MATCHED"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusSettled   OrderStatus = "SETTLED"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusFailed    OrderStatus = "FAILED"
)

// rank define el orden de progreso de los estados no terminales.
var statusRank = map[OrderStatus]int{
	StatusPending:   0,
	StatusSubmitted: 1,
	StatusMatched:   2,
	StatusConfirmed: 3,
	StatusSettled:   4,
}

// IsTerminal devuelve true si el estado no admite más transiciones.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusSettled, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo valida que el cambio de estado respete la monotonía:
// avance hacia delante, o salto a un terminal de fallo desde un estado vivo.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StatusCancelled || next == StatusFailed {
		return true
	}
	return statusRank[next] > statusRank[s]
}

// ManagedOrder es una orden rastreada por el order manager desde el intento
// de envío hasta un estado terminal.
type ManagedOrder struct {
	ID          string // UUID local, asignado al crear
	CLOBOrderID string // ID devuelto por el venue, vacío si el envío falló
	TokenID     string
	Side        OrderSide
	Price       float64 // 0 para órdenes de mercado
	SizeUSDC    float64
	Status      OrderStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	FillPrice   float64
	FillSize    float64
	Error       string
	ConditionID string
	Asset       Asset
}

// Age devuelve la antigüedad de la orden en el instante dado.
func (o ManagedOrder) Age(now time.Time) time.Duration {
	return now.Sub(o.CreatedAt)
}

// OrderResult es la respuesta del cliente de ejecución a un envío.
type OrderResult struct {
	Success     bool
	OrderID     string
	Error       string
	FilledSize  float64
	FilledPrice float64
}

// Position es una posición abierta reportada por el venue.
type Position struct {
	TokenID  string
	Size     float64
	AvgPrice float64
}

// RedemptionResult es el resultado de convertir shares ganadoras en cash.
type RedemptionResult struct {
	ConditionID string
	TokenID     string
	Amount      float64
	Success     bool
	Error       string
	Timestamp   time.Time
}
