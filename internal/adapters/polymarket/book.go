package polymarket

import (
	"context"
	"fmt"
	"strconv"

	"github.com/alejandrodnm/lateshot/internal/domain"
)

const clobBookPath = "/book"

// Book devuelve el orderbook actual de un token en el CLOB. Niveles con
// precio o tamaño no parseables, o con tamaño cero, se descartan.
func (c *Client) Book(ctx context.Context, tokenID string) (bids, asks []domain.BookLevel, err error) {
	url := fmt.Sprintf("%s%s?token_id=%s", c.clobBase, clobBookPath, tokenID)

	var resp clobBookResponse
	if err := c.get(ctx, c.clobLimiter, url, &resp); err != nil {
		return nil, nil, fmt.Errorf("polymarket.Book: %w", err)
	}
	return parseBookLevels(resp.Bids), parseBookLevels(resp.Asks), nil
}

func parseBookLevels(raw []clobBookLevel) []domain.BookLevel {
	var levels []domain.BookLevel
	for _, l := range raw {
		price, err := strconv.ParseFloat(l.Price, 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseFloat(l.Size, 64)
		if err != nil || size <= 0 {
			continue
		}
		levels = append(levels, domain.BookLevel{Price: price, Size: size})
	}
	return levels
}
