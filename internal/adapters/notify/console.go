package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/lateshot/internal/domain"
)

// Console implementa ports.Notifier escribiendo a stdout.
type Console struct {
	out io.Writer
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// AlertTrade anuncia una entrada ejecutada en una línea compacta.
func (c *Console) AlertTrade(_ context.Context, decision domain.TradeDecision, order domain.ManagedOrder) error {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "[%s][TRADE] %s %s $%.2f edge=%.3f conf=%.2f remaining=%.0fs order=%s\n",
		now,
		decision.Market.Asset,
		decision.Signal.Direction,
		decision.PositionSize,
		decision.Signal.Edge,
		decision.Signal.Confidence,
		decision.PhaseInfo.RemainingSeconds,
		order.ID[:8],
	)
	return nil
}

// AlertResolution anuncia una resolución con su PnL.
func (c *Console) AlertResolution(_ context.Context, asset domain.Asset, outcome string, pnl float64) error {
	now := time.Now().Format("15:04:05")
	mark := "WIN"
	if pnl < 0 {
		mark = "LOSS"
	}
	fmt.Fprintf(c.out, "[%s][RESOLVED] %s → %s  %s $%.2f\n", now, asset, outcome, mark, pnl)
	return nil
}

// AlertRisk anuncia la activación del kill switch.
func (c *Console) AlertRisk(_ context.Context, reason string) error {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "[%s][RISK] !! trading halted: %s\n", now, reason)
	return nil
}

// Summary imprime el reporte de sesión con desglose por activo.
func (c *Console) Summary(_ context.Context, report domain.SessionSummary) error {
	fmt.Fprintf(c.out, "\n=== SESSION (since %s) ===\n", report.StartedAt.Format("15:04:05"))
	fmt.Fprintf(c.out, "  Balance: $%.2f | Daily PnL: $%.2f | Total PnL: $%.2f\n",
		report.Balance, report.DailyPnL, report.TotalPnL)
	fmt.Fprintf(c.out, "  Trades: %d (W:%d L:%d, %.0f%%) | Active orders: %d | Pending redemptions: %d\n",
		report.Trades, report.Wins, report.Losses, report.WinRate*100,
		report.ActiveOrders, report.PendingRedemptions)
	if report.Killed {
		fmt.Fprintf(c.out, "  !! KILLED: %s\n", report.KillReason)
	}

	if len(report.PerAsset) > 0 {
		table := tablewriter.NewWriter(c.out)
		table.Header("Asset", "Trades", "Wins", "Win%", "PnL")
		for _, stats := range report.PerAsset {
			winPct := 0.0
			if stats.Trades > 0 {
				winPct = float64(stats.Wins) / float64(stats.Trades) * 100
			}
			table.Append(
				string(stats.Asset),
				fmt.Sprintf("%d", stats.Trades),
				fmt.Sprintf("%d", stats.Wins),
				fmt.Sprintf("%.0f%%", winPct),
				fmt.Sprintf("$%.2f", stats.PnL),
			)
		}
		table.Render()
	}

	fmt.Fprintln(c.out)
	return nil
}
