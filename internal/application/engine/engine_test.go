package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/lateshot/internal/analytics"
	"github.com/alejandrodnm/lateshot/internal/domain"
	"github.com/alejandrodnm/lateshot/internal/execution"
	"github.com/alejandrodnm/lateshot/internal/indicators"
	"github.com/alejandrodnm/lateshot/internal/instrumentation"
	"github.com/alejandrodnm/lateshot/internal/marketdata"
	"github.com/alejandrodnm/lateshot/internal/strategy"
)

// --- mocks ---

type stubMarkets struct {
	quotes []domain.MarketQuote
	err    error
}

func (s *stubMarkets) ActiveMarkets(context.Context) ([]domain.MarketQuote, error) {
	return s.quotes, s.err
}

type stubResolutions struct {
	resolved bool
	outcome  string
	err      error
	calls    int
}

func (s *stubResolutions) ResolvedOutcome(context.Context, string) (bool, string, error) {
	s.calls++
	return s.resolved, s.outcome, s.err
}

type stubExec struct {
	result domain.OrderResult
	err    error

	balance    float64
	balanceErr error

	cancelled      []string
	cancelAllCalls int
}

func (s *stubExec) SubmitMarketOrder(context.Context, string, domain.OrderSide, float64) (domain.OrderResult, error) {
	return s.result, s.err
}

func (s *stubExec) SubmitLimitOrder(context.Context, string, domain.OrderSide, float64, float64) (domain.OrderResult, error) {
	return s.result, s.err
}

func (s *stubExec) Cancel(_ context.Context, orderID string) error {
	s.cancelled = append(s.cancelled, orderID)
	return nil
}

func (s *stubExec) CancelAll(context.Context) (int, error) {
	s.cancelAllCalls++
	return len(s.cancelled), nil
}

func (s *stubExec) Balance(context.Context) (float64, error) {
	return s.balance, s.balanceErr
}

func (s *stubExec) Positions(context.Context) ([]domain.Position, error) {
	return nil, nil
}

type stubRedemption struct{}

func (stubRedemption) Redeem(context.Context, string, string) (domain.RedemptionResult, error) {
	return domain.RedemptionResult{}, nil
}

type memJournal struct {
	signals     []domain.SignalLogEntry
	trades      []domain.TradeLogEntry
	redemptions []domain.RedemptionResult
}

func (j *memJournal) LogSignal(_ context.Context, e domain.SignalLogEntry) error {
	j.signals = append(j.signals, e)
	return nil
}

func (j *memJournal) LogTrade(_ context.Context, e domain.TradeLogEntry) error {
	j.trades = append(j.trades, e)
	return nil
}

func (j *memJournal) LogRedemption(_ context.Context, r domain.RedemptionResult) error {
	j.redemptions = append(j.redemptions, r)
	return nil
}

func (j *memJournal) RecentTrades(context.Context, int) ([]domain.TradeLogEntry, error) {
	return j.trades, nil
}

func (j *memJournal) Close() error { return nil }

type memNotifier struct {
	trades      int
	resolutions []float64
	riskAlerts  []string
	summaries   []domain.SessionSummary
}

func (n *memNotifier) AlertTrade(context.Context, domain.TradeDecision, domain.ManagedOrder) error {
	n.trades++
	return nil
}

func (n *memNotifier) AlertResolution(_ context.Context, _ domain.Asset, _ string, pnl float64) error {
	n.resolutions = append(n.resolutions, pnl)
	return nil
}

func (n *memNotifier) AlertRisk(_ context.Context, reason string) error {
	n.riskAlerts = append(n.riskAlerts, reason)
	return nil
}

func (n *memNotifier) Summary(_ context.Context, report domain.SessionSummary) error {
	n.summaries = append(n.summaries, report)
	return nil
}

// --- fixture ---

type fixture struct {
	engine      *Engine
	markets     *stubMarkets
	resolutions *stubResolutions
	exec        *stubExec
	orders      *execution.OrderManager
	risk        *strategy.RiskManager
	pnl         *analytics.Tracker
	journal     *memJournal
	notifier    *memNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := marketdata.NewStore(marketdata.DefaultRetention)
	ind := indicators.NewEngine(store)
	risk := strategy.NewRiskManager(strategy.DefaultRiskSettings(), 1000)
	evaluator := strategy.NewEvaluator(
		ind,
		indicators.NewPhaseDetector(),
		indicators.NewEdgeCalculator(ind),
		strategy.NewSignalEngine(nil),
		risk,
		strategy.DefaultThresholds(),
	)

	exec := &stubExec{
		result:  domain.OrderResult{Success: true, OrderID: "clob-1", FilledSize: 80, FilledPrice: 0.62},
		balance: 1000,
	}
	markets := &stubMarkets{}
	resolutions := &stubResolutions{}
	journal := &memJournal{}
	notifier := &memNotifier{}
	pnl := analytics.NewTracker()
	orders := execution.NewOrderManager(exec)

	f := &fixture{
		markets:     markets,
		resolutions: resolutions,
		exec:        exec,
		orders:      orders,
		risk:        risk,
		pnl:         pnl,
		journal:     journal,
		notifier:    notifier,
	}
	f.engine = New(
		markets,
		resolutions,
		exec,
		evaluator,
		orders,
		execution.NewRedeemer(exec, stubRedemption{}),
		risk,
		pnl,
		journal,
		notifier,
		instrumentation.NewMetrics(prometheus.NewRegistry()),
		Config{},
	)
	return f
}

func (f *fixture) openTrade(conditionID string, closeAt time.Time, direction domain.SignalDirection) {
	decision := domain.TradeDecision{
		Market: domain.Market{
			ConditionID:    conditionID,
			YesTokenID:     "tok-yes",
			NoTokenID:      "tok-no",
			Asset:          domain.AssetBTC,
			Question:       "Will BTC be up?",
			CloseTimestamp: closeAt,
		},
		Signal:       domain.Signal{Direction: direction, Edge: 0.08, Confidence: 0.7},
		PositionSize: 50,
		ShouldTrade:  true,
	}
	order := domain.ManagedOrder{
		ID:        "order-1",
		Status:    domain.StatusMatched,
		SizeUSDC:  50,
		FillSize:  80,
		FillPrice: 0.62,
	}
	f.risk.PositionOpened()
	f.engine.mu.Lock()
	f.engine.active[conditionID] = activeTrade{decision: decision, order: order}
	f.engine.mu.Unlock()
}

// --- tests ---

func TestCycle_SkipsActiveMarkets(t *testing.T) {
	f := newFixture(t)
	closeAt := time.Now().Add(2 * time.Minute)
	f.openTrade("cond-1", closeAt, domain.BuyYes)

	f.markets.quotes = []domain.MarketQuote{{
		Market: domain.Market{
			ConditionID:    "cond-1",
			Asset:          domain.AssetBTC,
			CloseTimestamp: closeAt,
		},
		YesPrice: 0.62,
		NoPrice:  0.38,
	}}

	f.engine.cycle(context.Background())

	// A market with an open position is never re-entered.
	f.engine.mu.Lock()
	_, still := f.engine.active["cond-1"]
	f.engine.mu.Unlock()
	assert.True(t, still)
	assert.Zero(t, f.notifier.trades)
}

func TestCycle_MarketRefreshFailureStillChecksResolutions(t *testing.T) {
	f := newFixture(t)
	f.markets.err = errors.New("gamma down")
	f.openTrade("cond-1", time.Now().Add(-5*time.Minute), domain.BuyYes)
	f.resolutions.resolved = true
	f.resolutions.outcome = "YES"

	f.engine.cycle(context.Background())

	assert.Equal(t, 1, f.resolutions.calls)
	f.engine.mu.Lock()
	assert.Empty(t, f.engine.active)
	f.engine.mu.Unlock()
}

func TestCheckResolutions_RespectsGracePeriod(t *testing.T) {
	f := newFixture(t)
	// Past close, but inside the grace window.
	f.openTrade("cond-1", time.Now().Add(-10*time.Second), domain.BuyYes)
	f.resolutions.resolved = true
	f.resolutions.outcome = "YES"

	f.engine.checkResolutions(context.Background())

	assert.Zero(t, f.resolutions.calls)
	f.engine.mu.Lock()
	assert.Len(t, f.engine.active, 1)
	f.engine.mu.Unlock()
}

func TestHandleResolution_Win(t *testing.T) {
	f := newFixture(t)
	f.openTrade("cond-1", time.Now().Add(-5*time.Minute), domain.BuyYes)
	f.resolutions.resolved = true
	f.resolutions.outcome = "YES"

	f.engine.checkResolutions(context.Background())

	// 80 shares at $1 minus 50 invested.
	require.Len(t, f.notifier.resolutions, 1)
	assert.InDelta(t, 30.0, f.notifier.resolutions[0], 0.001)

	require.Len(t, f.journal.trades, 1)
	entry := f.journal.trades[0]
	assert.Equal(t, "WIN", entry.Outcome)
	assert.Equal(t, domain.BuyYes, entry.Side)
	assert.InDelta(t, 30.0, entry.PnL, 0.001)

	// Winning shares go to the redemption queue.
	assert.Equal(t, 1, f.engine.redeemer.Pending())

	f.engine.mu.Lock()
	assert.Empty(t, f.engine.active)
	f.engine.mu.Unlock()

	_, _, losses, dailyPnL, balance := f.risk.Stats()
	assert.Zero(t, losses)
	assert.InDelta(t, 30.0, dailyPnL, 0.001)
	assert.InDelta(t, 1030.0, balance, 0.001)
}

func TestHandleResolution_Loss(t *testing.T) {
	f := newFixture(t)
	f.openTrade("cond-1", time.Now().Add(-5*time.Minute), domain.BuyYes)
	f.resolutions.resolved = true
	f.resolutions.outcome = "NO"

	f.engine.checkResolutions(context.Background())

	require.Len(t, f.notifier.resolutions, 1)
	assert.InDelta(t, -50.0, f.notifier.resolutions[0], 0.001)

	require.Len(t, f.journal.trades, 1)
	assert.Equal(t, "LOSS", f.journal.trades[0].Outcome)

	// Losing positions have nothing to redeem.
	assert.Zero(t, f.engine.redeemer.Pending())
}

func TestHandleResolution_BuyNoWinsOnNo(t *testing.T) {
	f := newFixture(t)
	f.openTrade("cond-1", time.Now().Add(-5*time.Minute), domain.BuyNo)
	f.resolutions.resolved = true
	f.resolutions.outcome = "NO"

	f.engine.checkResolutions(context.Background())

	require.Len(t, f.journal.trades, 1)
	assert.Equal(t, "WIN", f.journal.trades[0].Outcome)
}

func TestHandleResolution_KillTriggersAlert(t *testing.T) {
	f := newFixture(t)
	f.resolutions.resolved = true
	f.resolutions.outcome = "NO"

	// Three losses of 50 USDC on a 1000 USDC balance reach the 15% drawdown cap.
	for i := 0; i < 3; i++ {
		f.openTrade("cond-1", time.Now().Add(-5*time.Minute), domain.BuyYes)
		f.engine.checkResolutions(context.Background())
	}

	require.NotEmpty(t, f.notifier.riskAlerts)
	assert.Contains(t, f.notifier.riskAlerts[len(f.notifier.riskAlerts)-1], "Drawdown")
	killed, _ := f.risk.Killed()
	assert.True(t, killed)

	// A kill clears the venue of every resting order.
	assert.NotZero(t, f.exec.cancelAllCalls)
}

func TestHandleResolution_CancelsRestingOrders(t *testing.T) {
	f := newFixture(t)
	closeAt := time.Now().Add(-5 * time.Minute)
	f.openTrade("cond-1", closeAt, domain.BuyYes)

	// A limit order still resting on the settled market.
	_, err := f.orders.PlaceLimitOrder(context.Background(), domain.TradeDecision{
		Market: domain.Market{
			ConditionID:    "cond-1",
			YesTokenID:     "tok-yes",
			NoTokenID:      "tok-no",
			Asset:          domain.AssetBTC,
			CloseTimestamp: closeAt,
		},
		Signal:       domain.Signal{Direction: domain.BuyYes},
		PositionSize: 20,
	}, 0.58)
	require.NoError(t, err)
	require.Len(t, f.orders.ActiveOrders(), 1)

	f.resolutions.resolved = true
	f.resolutions.outcome = "YES"
	f.engine.checkResolutions(context.Background())

	assert.Contains(t, f.exec.cancelled, "clob-1")
	assert.Empty(t, f.orders.ActiveOrders())
}

func TestCheckResolutions_UnresolvedStaysActive(t *testing.T) {
	f := newFixture(t)
	f.openTrade("cond-1", time.Now().Add(-5*time.Minute), domain.BuyYes)
	f.resolutions.resolved = false

	f.engine.checkResolutions(context.Background())

	assert.Equal(t, 1, f.resolutions.calls)
	f.engine.mu.Lock()
	assert.Len(t, f.engine.active, 1)
	f.engine.mu.Unlock()
	assert.Empty(t, f.journal.trades)
}

func TestHeartbeat_BuildsSummary(t *testing.T) {
	f := newFixture(t)
	f.openTrade("cond-1", time.Now().Add(2*time.Minute), domain.BuyYes)

	f.engine.heartbeat(context.Background())

	require.Len(t, f.notifier.summaries, 1)
	report := f.notifier.summaries[0]
	assert.Equal(t, 1, report.ActiveTrades)
	assert.InDelta(t, 1000.0, report.Balance, 0.001)
	assert.False(t, report.Killed)
}

func TestHeartbeat_RefreshesBalanceFromVenue(t *testing.T) {
	f := newFixture(t)
	f.exec.balance = 955.5

	f.engine.heartbeat(context.Background())

	require.Len(t, f.notifier.summaries, 1)
	assert.InDelta(t, 955.5, f.notifier.summaries[0].Balance, 0.001)
	_, _, _, _, balance := f.risk.Stats()
	assert.InDelta(t, 955.5, balance, 0.001)
}

func TestHeartbeat_BalanceFailureKeepsTracked(t *testing.T) {
	f := newFixture(t)
	f.exec.balanceErr = errors.New("data api down")

	f.engine.heartbeat(context.Background())

	require.Len(t, f.notifier.summaries, 1)
	assert.InDelta(t, 1000.0, f.notifier.summaries[0].Balance, 0.001)
}

func TestEvaluateOne_JournalsActionableSignalsOnly(t *testing.T) {
	f := newFixture(t)

	// Early-phase market: routine HOLD, not worth journaling.
	f.engine.evaluateOne(context.Background(), domain.MarketQuote{
		Market: domain.Market{
			ConditionID:    "cond-early",
			Asset:          domain.AssetBTC,
			Question:       "Will BTC be up?",
			CloseTimestamp: time.Now().Add(14 * time.Minute),
		},
		YesPrice: 0.55,
		NoPrice:  0.45,
	})

	assert.Empty(t, f.journal.signals)
	assert.Zero(t, f.notifier.trades)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.engine.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop on cancel")
	}

	// Shutdown sweeps the venue so no resting order survives the process.
	assert.Equal(t, 1, f.exec.cancelAllCalls)
}
