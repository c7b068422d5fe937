package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/lateshot/internal/domain"
	"github.com/alejandrodnm/lateshot/internal/ports"
)

// StaleOrderTimeout is how long a live order may sit without progress before
// the stale sweep cancels it.
const StaleOrderTimeout = 120 * time.Second

// OrderManager tracks every order from submission intent to terminal state.
// Status changes go through setStatus, which enforces forward-only
// transitions; an illegal transition is a bug upstream and is logged and
// dropped rather than applied.
type OrderManager struct {
	mu       sync.Mutex
	client   ports.ExecutionClient
	orders   map[string]*domain.ManagedOrder
	byMarket map[string][]string // conditionID -> local order IDs
	now      func() time.Time
}

// NewOrderManager creates a manager around an execution client.
func NewOrderManager(client ports.ExecutionClient) *OrderManager {
	return &OrderManager{
		client:   client,
		orders:   make(map[string]*domain.ManagedOrder),
		byMarket: make(map[string][]string),
		now:      time.Now,
	}
}

// PlaceMarketOrder submits a market order and tracks it. The returned order
// reflects the submission outcome: SUBMITTED on success, FAILED with the
// venue error otherwise. The order is tracked either way so failures show up
// in the audit trail.
func (m *OrderManager) PlaceMarketOrder(ctx context.Context, decision domain.TradeDecision) (domain.ManagedOrder, error) {
	tokenID := decision.Market.TokenFor(decision.Signal.Direction)
	order := m.track(tokenID, domain.SideBuy, 0, decision.PositionSize, decision.Market)

	result, err := m.client.SubmitMarketOrder(ctx, tokenID, domain.SideBuy, decision.PositionSize)
	return m.applySubmission(order.ID, result, err)
}

// PlaceLimitOrder submits a limit order at the given price and tracks it.
func (m *OrderManager) PlaceLimitOrder(ctx context.Context, decision domain.TradeDecision, price float64) (domain.ManagedOrder, error) {
	tokenID := decision.Market.TokenFor(decision.Signal.Direction)
	order := m.track(tokenID, domain.SideBuy, price, decision.PositionSize, decision.Market)

	result, err := m.client.SubmitLimitOrder(ctx, tokenID, domain.SideBuy, price, decision.PositionSize)
	return m.applySubmission(order.ID, result, err)
}

func (m *OrderManager) track(tokenID string, side domain.OrderSide, price, size float64, market domain.Market) *domain.ManagedOrder {
	m.mu.Lock()
	defer m.mu.Unlock()

	order := &domain.ManagedOrder{
		ID:          uuid.NewString(),
		TokenID:     tokenID,
		Side:        side,
		Price:       price,
		SizeUSDC:    size,
		Status:      domain.StatusPending,
		CreatedAt:   m.now(),
		UpdatedAt:   m.now(),
		ConditionID: market.ConditionID,
		Asset:       market.Asset,
	}
	m.orders[order.ID] = order
	m.byMarket[market.ConditionID] = append(m.byMarket[market.ConditionID], order.ID)
	return order
}

func (m *OrderManager) applySubmission(orderID string, result domain.OrderResult, err error) (domain.ManagedOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order := m.orders[orderID]
	switch {
	case err != nil:
		order.Error = err.Error()
		m.setStatusLocked(order, domain.StatusFailed)
		return *order, fmt.Errorf("execution.PlaceOrder: submit: %w", err)
	case !result.Success:
		order.Error = result.Error
		m.setStatusLocked(order, domain.StatusFailed)
		return *order, fmt.Errorf("execution.PlaceOrder: venue rejected: %s", result.Error)
	default:
		order.CLOBOrderID = result.OrderID
		order.FillSize = result.FilledSize
		order.FillPrice = result.FilledPrice
		m.setStatusLocked(order, domain.StatusSubmitted)
		if result.FilledSize > 0 {
			m.setStatusLocked(order, domain.StatusMatched)
		}
		return *order, nil
	}
}

// UpdateStatus applies an externally observed status change (fills,
// confirmations, settlement) with transition validation.
func (m *OrderManager) UpdateStatus(orderID string, status domain.OrderStatus) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return false
	}
	return m.setStatusLocked(order, status)
}

func (m *OrderManager) setStatusLocked(order *domain.ManagedOrder, next domain.OrderStatus) bool {
	if !order.Status.CanTransitionTo(next) {
		slog.Warn("illegal order transition ignored",
			"order_id", order.ID,
			"from", order.Status,
			"to", next,
		)
		return false
	}
	order.Status = next
	order.UpdatedAt = m.now()
	return true
}

// Cancel cancels one tracked order at the venue and marks it CANCELLED.
func (m *OrderManager) Cancel(ctx context.Context, orderID string) error {
	m.mu.Lock()
	order, ok := m.orders[orderID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("execution.Cancel: unknown order %s", orderID)
	}
	if order.Status.IsTerminal() {
		m.mu.Unlock()
		return nil
	}
	clobID := order.CLOBOrderID
	m.mu.Unlock()

	if clobID != "" {
		if err := m.client.Cancel(ctx, clobID); err != nil {
			return fmt.Errorf("execution.Cancel: venue: %w", err)
		}
	}

	m.mu.Lock()
	m.setStatusLocked(order, domain.StatusCancelled)
	m.mu.Unlock()
	return nil
}

// CancelMarket cancels every live order tied to one market.
func (m *OrderManager) CancelMarket(ctx context.Context, conditionID string) int {
	m.mu.Lock()
	ids := append([]string(nil), m.byMarket[conditionID]...)
	m.mu.Unlock()

	cancelled := 0
	for _, id := range ids {
		if err := m.Cancel(ctx, id); err != nil {
			slog.Warn("cancel failed", "order_id", id, "err", err)
			continue
		}
		cancelled++
	}
	return cancelled
}

// CancelAll cancels every live order, venue-wide first and then locally.
func (m *OrderManager) CancelAll(ctx context.Context) (int, error) {
	n, err := m.client.CancelAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("execution.CancelAll: %w", err)
	}

	m.mu.Lock()
	for _, order := range m.orders {
		if !order.Status.IsTerminal() {
			m.setStatusLocked(order, domain.StatusCancelled)
		}
	}
	m.mu.Unlock()
	return n, nil
}

// CleanupStale cancels live orders older than StaleOrderTimeout and returns
// how many it swept.
func (m *OrderManager) CleanupStale(ctx context.Context) int {
	m.mu.Lock()
	var stale []string
	for id, order := range m.orders {
		if !order.Status.IsTerminal() && order.Age(m.now()) > StaleOrderTimeout {
			stale = append(stale, id)
		}
	}
	m.mu.Unlock()

	swept := 0
	for _, id := range stale {
		if err := m.Cancel(ctx, id); err != nil {
			slog.Warn("stale cancel failed", "order_id", id, "err", err)
			continue
		}
		slog.Info("stale order cancelled", "order_id", id)
		swept++
	}
	return swept
}

// ActiveOrders returns copies of every non-terminal order.
func (m *OrderManager) ActiveOrders() []domain.ManagedOrder {
	m.mu.Lock()
	defer m.mu.Unlock()

	var active []domain.ManagedOrder
	for _, order := range m.orders {
		if !order.Status.IsTerminal() {
			active = append(active, *order)
		}
	}
	return active
}

// Order returns a copy of one tracked order.
func (m *OrderManager) Order(orderID string) (domain.ManagedOrder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return domain.ManagedOrder{}, false
	}
	return *order, true
}
