package ports

import (
	"context"

	"github.com/alejandrodnm/lateshot/internal/domain"
)

// Notifier receives trading events for operator-facing surfaces
// (console, chat, alerting). Failures are logged, never fatal.
type Notifier interface {
	// AlertTrade announces an executed entry.
	AlertTrade(ctx context.Context, decision domain.TradeDecision, order domain.ManagedOrder) error

	// AlertResolution announces a market resolution and its PnL.
	AlertResolution(ctx context.Context, asset domain.Asset, outcome string, pnl float64) error

	// AlertRisk announces a risk kill with its reason.
	AlertRisk(ctx context.Context, reason string) error

	// Summary prints the periodic session report.
	Summary(ctx context.Context, report domain.SessionSummary) error
}
