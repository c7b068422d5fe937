package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/alejandrodnm/lateshot/internal/domain"
)

const (
	clobOrderPath     = "/order"
	clobCancelPath    = "/order/%s"
	clobCancelAllPath = "/cancel-all"
	dataPositionsPath = "/positions"
	dataBalancePath   = "/balance"
	relayRedeemPath   = "/redeem"
)

// SubmitMarketOrder envía una orden FOK a mercado por size USDC del token.
func (c *Client) SubmitMarketOrder(ctx context.Context, tokenID string, side domain.OrderSide, sizeUSDC float64) (domain.OrderResult, error) {
	return c.submitOrder(ctx, clobOrderRequest{
		TokenID:   tokenID,
		Side:      string(side),
		SizeUSDC:  sizeUSDC,
		OrderType: "FOK",
	})
}

// SubmitLimitOrder envía una orden GTC al precio dado.
func (c *Client) SubmitLimitOrder(ctx context.Context, tokenID string, side domain.OrderSide, price, sizeUSDC float64) (domain.OrderResult, error) {
	return c.submitOrder(ctx, clobOrderRequest{
		TokenID:   tokenID,
		Side:      string(side),
		Price:     price,
		SizeUSDC:  sizeUSDC,
		OrderType: "GTC",
	})
}

func (c *Client) submitOrder(ctx context.Context, req clobOrderRequest) (domain.OrderResult, error) {
	var resp clobOrderResponse
	if err := c.post(ctx, c.tradeLimiter, c.clobBase+clobOrderPath, req, &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket.submitOrder: %w", err)
	}

	result := domain.OrderResult{
		Success: resp.Success,
		OrderID: resp.OrderID,
		Error:   resp.ErrorMsg,
	}
	if resp.Success {
		// makingAmount es el USDC entregado; takingAmount las shares recibidas.
		result.FilledSize = parseAmount(resp.TakingAmount)
		result.FilledPrice = fillPrice(resp.MakingAmount, resp.TakingAmount)
	}

	slog.Info("order submitted",
		"token_id", req.TokenID,
		"type", req.OrderType,
		"size_usdc", req.SizeUSDC,
		"success", resp.Success,
	)
	return result, nil
}

// Cancel cancela una orden por su ID del CLOB.
func (c *Client) Cancel(ctx context.Context, orderID string) error {
	url := c.clobBase + fmt.Sprintf(clobCancelPath, orderID)
	if err := c.del(ctx, c.tradeLimiter, url, nil); err != nil {
		return fmt.Errorf("polymarket.Cancel: %w", err)
	}
	return nil
}

// CancelAll cancela todas las órdenes abiertas de la cuenta.
func (c *Client) CancelAll(ctx context.Context) (int, error) {
	var resp clobCancelAllResponse
	if err := c.del(ctx, c.tradeLimiter, c.clobBase+clobCancelAllPath, &resp); err != nil {
		return 0, fmt.Errorf("polymarket.CancelAll: %w", err)
	}
	return len(resp.Canceled), nil
}

// Positions devuelve las posiciones abiertas de la cuenta.
func (c *Client) Positions(ctx context.Context) ([]domain.Position, error) {
	var resp []dataPosition
	if err := c.get(ctx, c.clobLimiter, c.dataBase+dataPositionsPath, &resp); err != nil {
		return nil, fmt.Errorf("polymarket.Positions: %w", err)
	}

	positions := make([]domain.Position, 0, len(resp))
	for _, p := range resp {
		positions = append(positions, domain.Position{
			TokenID:  p.Asset,
			Size:     p.Size,
			AvgPrice: p.AvgPrice,
		})
	}
	return positions, nil
}

// Balance devuelve el balance USDC disponible.
func (c *Client) Balance(ctx context.Context) (float64, error) {
	var resp dataBalance
	if err := c.get(ctx, c.clobLimiter, c.dataBase+dataBalancePath, &resp); err != nil {
		return 0, fmt.Errorf("polymarket.Balance: %w", err)
	}
	bal, err := resp.Balance.Float64()
	if err != nil {
		return 0, fmt.Errorf("polymarket.Balance: parse %q: %w", resp.Balance, err)
	}
	return bal, nil
}

// Redeem convierte las shares ganadoras de un mercado resuelto en USDC vía
// el relayer. Idempotente: redimir una posición ya redimida devuelve 0.
func (c *Client) Redeem(ctx context.Context, conditionID, tokenID string) (domain.RedemptionResult, error) {
	req := redeemRequest{ConditionID: conditionID, TokenID: tokenID}

	var resp redeemResponse
	if err := c.post(ctx, c.tradeLimiter, c.clobBase+relayRedeemPath, req, &resp); err != nil {
		return domain.RedemptionResult{}, fmt.Errorf("polymarket.Redeem: %w", err)
	}
	if !resp.Success {
		return domain.RedemptionResult{}, fmt.Errorf("polymarket.Redeem: relayer: %s", resp.Error)
	}

	amount, _ := resp.Amount.Float64()
	return domain.RedemptionResult{
		ConditionID: conditionID,
		TokenID:     tokenID,
		Amount:      amount,
		Success:     true,
		Timestamp:   time.Now(),
	}, nil
}

func parseAmount(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

func fillPrice(making, taking string) float64 {
	usdc := parseAmount(making)
	shares := parseAmount(taking)
	if shares <= 0 {
		return 0
	}
	return usdc / shares
}
