package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/lateshot/internal/domain"
)

// --- mocks ---

type fakeRedemptionClient struct {
	result domain.RedemptionResult
	err    error
	calls  int
}

func (f *fakeRedemptionClient) Redeem(_ context.Context, conditionID, tokenID string) (domain.RedemptionResult, error) {
	f.calls++
	if f.err != nil {
		return domain.RedemptionResult{}, f.err
	}
	res := f.result
	res.ConditionID = conditionID
	res.TokenID = tokenID
	return res, nil
}

func newTestRedeemer(exec *fakeExecClient, redeem *fakeRedemptionClient) *Redeemer {
	r := NewRedeemer(exec, redeem)
	r.retry.Sleep = func(context.Context, time.Duration) error { return nil }
	return r
}

func TestProcessPending_Redeems(t *testing.T) {
	exec := &fakeExecClient{positions: []domain.Position{{TokenID: "tok-1", Size: 120}}}
	redeem := &fakeRedemptionClient{result: domain.RedemptionResult{Amount: 120, Success: true}}
	r := newTestRedeemer(exec, redeem)

	var callbacks []domain.RedemptionResult
	r.OnRedeemed = func(res domain.RedemptionResult) { callbacks = append(callbacks, res) }

	r.Add("cond-1", "tok-1")
	require.Equal(t, 1, r.Pending())

	r.ProcessPending(context.Background())

	assert.Zero(t, r.Pending())
	assert.Equal(t, 1, redeem.calls)

	completed := r.Completed()
	require.Len(t, completed, 1)
	assert.Equal(t, "cond-1", completed[0].ConditionID)
	assert.Equal(t, 120.0, completed[0].Amount)
	assert.False(t, completed[0].Timestamp.IsZero())

	require.Len(t, callbacks, 1)
	assert.Equal(t, "tok-1", callbacks[0].TokenID)
}

func TestProcessPending_ZeroPositionDroppedQuietly(t *testing.T) {
	exec := &fakeExecClient{positions: []domain.Position{{TokenID: "tok-other", Size: 10}}}
	redeem := &fakeRedemptionClient{}
	r := newTestRedeemer(exec, redeem)

	fired := false
	r.OnRedeemed = func(domain.RedemptionResult) { fired = true }

	r.Add("cond-1", "tok-1")
	r.ProcessPending(context.Background())

	// Already redeemed (or never filled): no venue call, no completion log.
	assert.Zero(t, r.Pending())
	assert.Zero(t, redeem.calls)
	assert.Empty(t, r.Completed())
	assert.False(t, fired)
}

func TestProcessPending_FailureStaysPending(t *testing.T) {
	exec := &fakeExecClient{positions: []domain.Position{{TokenID: "tok-1", Size: 120}}}
	redeem := &fakeRedemptionClient{err: errors.New("relayer unavailable")}
	r := newTestRedeemer(exec, redeem)

	r.Add("cond-1", "tok-1")
	r.ProcessPending(context.Background())

	assert.Equal(t, 1, r.Pending(), "winnings are never abandoned")
	assert.Equal(t, redeemAttempts, redeem.calls)
	assert.Empty(t, r.Completed())

	// Next poll retries the same entry.
	r.ProcessPending(context.Background())
	assert.Equal(t, 2*redeemAttempts, redeem.calls)
}

func TestProcessPending_PositionLookupFailureRetried(t *testing.T) {
	exec := &fakeExecClient{positionsErr: errors.New("timeout")}
	redeem := &fakeRedemptionClient{}
	r := newTestRedeemer(exec, redeem)

	r.Add("cond-1", "tok-1")
	r.ProcessPending(context.Background())

	assert.Equal(t, 1, r.Pending())
	assert.Equal(t, redeemAttempts, exec.positionCalls)
	assert.Zero(t, redeem.calls)
}

func TestProcessPending_RechecksPositionPerAttempt(t *testing.T) {
	exec := &fakeExecClient{positions: []domain.Position{{TokenID: "tok-1", Size: 120}}}
	redeem := &fakeRedemptionClient{err: errors.New("relayer unavailable")}
	r := newTestRedeemer(exec, redeem)

	r.Add("cond-1", "tok-1")
	r.ProcessPending(context.Background())

	// Every attempt re-reads the position before redeeming.
	assert.Equal(t, redeemAttempts, exec.positionCalls)
}

func TestProcessPending_ContextCancelled(t *testing.T) {
	exec := &fakeExecClient{positions: []domain.Position{{TokenID: "tok-1", Size: 120}}}
	redeem := &fakeRedemptionClient{result: domain.RedemptionResult{Amount: 120, Success: true}}
	r := newTestRedeemer(exec, redeem)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r.Add("cond-1", "tok-1")
	r.ProcessPending(ctx)

	assert.Equal(t, 1, r.Pending())
	assert.Zero(t, redeem.calls)
}
