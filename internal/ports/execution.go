package ports

import (
	"context"

	"github.com/alejandrodnm/lateshot/internal/domain"
)

// ExecutionClient places and cancels orders on the trading venue and reads
// account state. All operations are fallible and retry-safe; reads are
// idempotent.
type ExecutionClient interface {
	// SubmitMarketOrder places a FOK market order for size USDC of the token.
	SubmitMarketOrder(ctx context.Context, tokenID string, side domain.OrderSide, sizeUSDC float64) (domain.OrderResult, error)

	// SubmitLimitOrder places a GTC limit order at the given price.
	SubmitLimitOrder(ctx context.Context, tokenID string, side domain.OrderSide, price, sizeUSDC float64) (domain.OrderResult, error)

	// Cancel cancels a specific order by its venue order ID.
	Cancel(ctx context.Context, orderID string) error

	// CancelAll cancels every open order for this account.
	CancelAll(ctx context.Context) (int, error)

	// Positions returns all open positions held by this account.
	Positions(ctx context.Context) ([]domain.Position, error)

	// Balance returns the available USDC balance.
	Balance(ctx context.Context) (float64, error)
}

// RedemptionClient converts winning conditional tokens back into collateral
// once a market has resolved.
type RedemptionClient interface {
	Redeem(ctx context.Context, conditionID, tokenID string) (domain.RedemptionResult, error)
}
