package strategy

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// RiskSettings bound the damage a bad session can do.
type RiskSettings struct {
	MaxDailyLossUSDC       float64
	MaxConsecutiveLosses   int
	MaxDrawdownPct         float64
	MaxConcurrentPositions int
	MaxPositionUSDC        float64
	KellyFraction          float64
	MinPositionUSDC        float64
}

// DefaultRiskSettings returns the production limits.
func DefaultRiskSettings() RiskSettings {
	return RiskSettings{
		MaxDailyLossUSDC:       200,
		MaxConsecutiveLosses:   5,
		MaxDrawdownPct:         0.15,
		MaxConcurrentPositions: 4,
		MaxPositionUSDC:        50,
		KellyFraction:          0.25,
		MinPositionUSDC:        1,
	}
}

// RiskManager is the single authority over whether trading may continue and
// how much capital a trade may commit. All methods are safe for concurrent
// use. Once killed, only an explicit ResetKill revives it.
type RiskManager struct {
	mu sync.Mutex

	settings RiskSettings
	now      func() time.Time

	startBalance      float64
	peakBalance       float64
	currentBalance    float64
	dailyPnL          float64
	dailyResetAt      time.Time
	consecutiveLosses int
	openPositions     int
	trades            int
	wins              int
	losses            int

	killed     bool
	killReason string
}

// NewRiskManager creates a manager seeded with the session's opening balance.
func NewRiskManager(settings RiskSettings, startBalance float64) *RiskManager {
	now := time.Now
	return &RiskManager{
		settings:       settings,
		now:            now,
		startBalance:   startBalance,
		peakBalance:    startBalance,
		currentBalance: startBalance,
		dailyResetAt:   now(),
	}
}

// TradingAllowed reports whether a new trade may be opened and, when not,
// why. Calling it also rolls the daily window when 24h have passed.
func (r *RiskManager) TradingAllowed() (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.maybeResetDaily()

	if r.killed {
		return false, r.killReason
	}
	if r.dailyPnL <= -r.settings.MaxDailyLossUSDC {
		r.kill(fmt.Sprintf("Daily loss limit reached: %.2f USDC", -r.dailyPnL))
		return false, r.killReason
	}
	if r.consecutiveLosses >= r.settings.MaxConsecutiveLosses {
		r.kill(fmt.Sprintf("Consecutive losses: %d", r.consecutiveLosses))
		return false, r.killReason
	}
	if dd := r.drawdownPct(); dd >= r.settings.MaxDrawdownPct {
		r.kill(fmt.Sprintf("Drawdown %.1f%% exceeds limit", dd*100))
		return false, r.killReason
	}
	if r.openPositions >= r.settings.MaxConcurrentPositions {
		return false, fmt.Sprintf("Max concurrent positions: %d", r.openPositions)
	}
	return true, ""
}

// ComputePositionSize returns the USDC to commit for a trade with the given
// fee-adjusted edge and estimated win probability. The Kelly computation uses
// b = 1/p - 1, the implied binary payout, and fractions it down before
// clamping to maxPosition and the remaining daily budget. Result is floored
// to whole cents.
func (r *RiskManager) ComputePositionSize(edge, winProb, maxPosition float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if edge <= 0 || winProb <= 0.5 {
		return 0
	}

	b := 1/winProb - 1
	if b <= 0 {
		return 0
	}
	q := 1 - winProb
	kelly := (b*winProb - q) / b
	if kelly <= 0 {
		return 0
	}

	sized := kelly * r.settings.KellyFraction * r.currentBalance

	if sized > maxPosition {
		sized = maxPosition
	}
	remaining := r.settings.MaxDailyLossUSDC + r.dailyPnL
	if remaining < 0 {
		remaining = 0
	}
	if sized > remaining {
		sized = remaining
	}

	return floorCents(sized)
}

// RecordTradeResult folds a settled trade into the running totals.
func (r *RiskManager) RecordTradeResult(pnl float64, won bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.trades++
	r.dailyPnL += pnl
	r.currentBalance += pnl
	if r.currentBalance > r.peakBalance {
		r.peakBalance = r.currentBalance
	}
	if won {
		r.wins++
		r.consecutiveLosses = 0
	} else {
		r.losses++
		r.consecutiveLosses++
	}

	slog.Info("trade result recorded",
		"pnl", pnl,
		"won", won,
		"daily_pnl", r.dailyPnL,
		"consecutive_losses", r.consecutiveLosses,
		"balance", r.currentBalance,
	)
}

// UpdateBalance overwrites the tracked balance with the venue-reported one,
// so drawdown follows the real account instead of accumulated PnL arithmetic.
func (r *RiskManager) UpdateBalance(balance float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentBalance = balance
	if balance > r.peakBalance {
		r.peakBalance = balance
	}
}

// PositionOpened and PositionClosed keep the concurrent-position count.
func (r *RiskManager) PositionOpened() {
	r.mu.Lock()
	r.openPositions++
	r.mu.Unlock()
}

func (r *RiskManager) PositionClosed() {
	r.mu.Lock()
	if r.openPositions > 0 {
		r.openPositions--
	}
	r.mu.Unlock()
}

// Kill trips the kill switch manually.
func (r *RiskManager) Kill(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kill(reason)
}

// ResetKill clears the kill switch and the counters that tripped it.
func (r *RiskManager) ResetKill() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.killed = false
	r.killReason = ""
	r.consecutiveLosses = 0
	slog.Warn("kill switch reset")
}

// Killed reports the kill state and reason.
func (r *RiskManager) Killed() (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.killed, r.killReason
}

// Stats returns a snapshot of the session counters.
func (r *RiskManager) Stats() (trades, wins, losses int, dailyPnL, balance float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trades, r.wins, r.losses, r.dailyPnL, r.currentBalance
}

func (r *RiskManager) kill(reason string) {
	if r.killed {
		return
	}
	r.killed = true
	r.killReason = reason
	slog.Error("kill switch activated", "reason", reason)
}

func (r *RiskManager) drawdownPct() float64 {
	if r.peakBalance <= 0 {
		return 0
	}
	return (r.peakBalance - r.currentBalance) / r.peakBalance
}

func (r *RiskManager) maybeResetDaily() {
	if r.now().Sub(r.dailyResetAt) < 24*time.Hour {
		return
	}
	r.dailyPnL = 0
	r.dailyResetAt = r.now()
	slog.Info("daily risk window reset")
}

// floorCents truncates to two decimals without float drift.
func floorCents(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).RoundFloor(2).Float64()
	return f
}
