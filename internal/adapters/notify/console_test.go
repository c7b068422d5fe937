package notify_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/lateshot/internal/adapters/notify"
	"github.com/alejandrodnm/lateshot/internal/domain"
)

func TestConsole_AlertTrade(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf)

	decision := domain.TradeDecision{
		Market:       domain.Market{Asset: domain.AssetBTC},
		Signal:       domain.Signal{Direction: domain.BuyYes, Edge: 0.083, Confidence: 0.71},
		PositionSize: 50,
		PhaseInfo:    domain.PhaseInfo{RemainingSeconds: 180},
	}
	order := domain.ManagedOrder{ID: "abcdef12-3456-7890-abcd-ef1234567890"}

	err := n.AlertTrade(context.Background(), decision, order)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "[TRADE]")
	assert.Contains(t, out, "BTC BUY_YES $50.00")
	assert.Contains(t, out, "edge=0.083")
	assert.Contains(t, out, "remaining=180s")
	assert.Contains(t, out, "order=abcdef12")
}

func TestConsole_AlertResolution(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf)

	require.NoError(t, n.AlertResolution(context.Background(), domain.AssetETH, "YES", 38.0))
	assert.Contains(t, buf.String(), "WIN $38.00")

	buf.Reset()
	require.NoError(t, n.AlertResolution(context.Background(), domain.AssetETH, "NO", -50.0))
	assert.Contains(t, buf.String(), "LOSS $-50.00")
}

func TestConsole_AlertRisk(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf)

	require.NoError(t, n.AlertRisk(context.Background(), "Daily loss limit: -210.00"))
	out := buf.String()
	assert.Contains(t, out, "[RISK]")
	assert.Contains(t, out, "trading halted: Daily loss limit")
}

func TestConsole_Summary(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf)

	report := domain.SessionSummary{
		StartedAt: time.Now(),
		Balance:   1038,
		DailyPnL:  38,
		TotalPnL:  38,
		Trades:    2,
		Wins:      1,
		Losses:    1,
		WinRate:   0.5,
		PerAsset: []domain.AssetStats{
			{Asset: domain.AssetBTC, Trades: 2, Wins: 1, PnL: 38},
		},
	}

	err := n.Summary(context.Background(), report)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "=== SESSION")
	assert.Contains(t, out, "Balance: $1038.00")
	assert.Contains(t, out, "Trades: 2 (W:1 L:1, 50%)")
	assert.Contains(t, out, "BTC")
	assert.Contains(t, out, "$38.00")
	assert.NotContains(t, out, "KILLED")
}

func TestConsole_Summary_Killed(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf)

	err := n.Summary(context.Background(), domain.SessionSummary{
		StartedAt:  time.Now(),
		Killed:     true,
		KillReason: "Consecutive losses: 5",
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "!! KILLED: Consecutive losses: 5")
}
