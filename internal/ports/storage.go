package ports

import (
	"context"

	"github.com/alejandrodnm/lateshot/internal/domain"
)

// TradeStore persists the trading journal: every signal evaluation, every
// resolved trade, and every redemption.
type TradeStore interface {
	LogSignal(ctx context.Context, entry domain.SignalLogEntry) error
	LogTrade(ctx context.Context, entry domain.TradeLogEntry) error
	LogRedemption(ctx context.Context, result domain.RedemptionResult) error

	// RecentTrades returns the last n resolved trades, newest first.
	RecentTrades(ctx context.Context, n int) ([]domain.TradeLogEntry, error)

	Close() error
}
