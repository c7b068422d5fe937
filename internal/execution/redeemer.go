package execution

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/lateshot/internal/domain"
	"github.com/alejandrodnm/lateshot/internal/ports"
)

const (
	redeemPollInterval = 30 * time.Second
	redeemAttempts     = 3
	redeemBackoffBase  = 2 * time.Second
)

// Redeemer converts winning shares into cash after resolution. Redemption is
// idempotent on-chain, so the loop re-reads the position before every attempt
// and drops entries that already show zero size. Failed redemptions stay
// pending and are retried on the next poll; winnings are never abandoned.
type Redeemer struct {
	mu        sync.Mutex
	exec      ports.ExecutionClient
	redeem    ports.RedemptionClient
	pending   map[string]string // conditionID -> tokenID
	completed []domain.RedemptionResult
	retry     RetryPolicy

	// OnRedeemed, when set, runs after each successful redemption.
	OnRedeemed func(domain.RedemptionResult)
}

// NewRedeemer creates a Redeemer with the production retry policy.
func NewRedeemer(exec ports.ExecutionClient, redeem ports.RedemptionClient) *Redeemer {
	return &Redeemer{
		exec:    exec,
		redeem:  redeem,
		pending: make(map[string]string),
		retry:   NewRetryPolicy(redeemAttempts, LinearBackoff(redeemBackoffBase)),
	}
}

// Add queues a resolved market for redemption.
func (r *Redeemer) Add(conditionID, tokenID string) {
	r.mu.Lock()
	r.pending[conditionID] = tokenID
	r.mu.Unlock()
	slog.Info("redemption queued", "condition_id", conditionID, "token_id", tokenID)
}

// Pending returns how many redemptions are waiting.
func (r *Redeemer) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Completed returns a copy of the finished redemptions.
func (r *Redeemer) Completed() []domain.RedemptionResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.RedemptionResult(nil), r.completed...)
}

// Run polls pending redemptions until the context is cancelled.
func (r *Redeemer) Run(ctx context.Context) {
	ticker := time.NewTicker(redeemPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ProcessPending(ctx)
		}
	}
}

// ProcessPending attempts every queued redemption once, with per-entry
// retries. Exported so the engine can trigger a pass outside the poll cycle.
func (r *Redeemer) ProcessPending(ctx context.Context) {
	r.mu.Lock()
	batch := make(map[string]string, len(r.pending))
	for cid, tid := range r.pending {
		batch[cid] = tid
	}
	r.mu.Unlock()

	for conditionID, tokenID := range batch {
		if ctx.Err() != nil {
			return
		}
		r.processOne(ctx, conditionID, tokenID)
	}
}

func (r *Redeemer) processOne(ctx context.Context, conditionID, tokenID string) {
	var result domain.RedemptionResult

	err := r.retry.Do(ctx, func(ctx context.Context) error {
		size, err := r.positionSize(ctx, tokenID)
		if err != nil {
			return err
		}
		if size <= 0 {
			// Already redeemed (or never filled): drop quietly.
			result = domain.RedemptionResult{ConditionID: conditionID, TokenID: tokenID, Success: true}
			return nil
		}

		res, err := r.redeem.Redeem(ctx, conditionID, tokenID)
		if err != nil {
			slog.Warn("redemption attempt failed", "condition_id", conditionID, "err", err)
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		slog.Error("redemption exhausted retries, will retry next poll",
			"condition_id", conditionID, "err", err)
		return
	}

	r.mu.Lock()
	delete(r.pending, conditionID)
	if result.Amount > 0 {
		result.Timestamp = time.Now()
		r.completed = append(r.completed, result)
	}
	r.mu.Unlock()

	if result.Amount > 0 {
		slog.Info("redemption completed",
			"condition_id", conditionID, "amount", result.Amount)
		if r.OnRedeemed != nil {
			r.OnRedeemed(result)
		}
	}
}

func (r *Redeemer) positionSize(ctx context.Context, tokenID string) (float64, error) {
	positions, err := r.exec.Positions(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range positions {
		if p.TokenID == tokenID {
			return p.Size, nil
		}
	}
	return 0, nil
}
