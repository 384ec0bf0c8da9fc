package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/copysim/internal/domain"
)

const (
	tradesPerPage  = 1000
	tradesMaxPages = 5
)

// FetchTrades implementa ports.TradeHistory: trades buy dentro del rango
// [from, to), ordenados por timestamp ascendente y mapeados a señales.
// Solo el lado BUY — el path de entrada del simulador no opera sells.
func (c *Client) FetchTrades(ctx context.Context, from, to time.Time) ([]domain.Signal, error) {
	var all []domain.Signal

	for page := 0; page < tradesMaxPages; page++ {
		offset := page * tradesPerPage
		url := fmt.Sprintf("%s/trades?limit=%d&offset=%d&takerOnly=true&after=%d&before=%d",
			c.dataBase, tradesPerPage, offset, from.Unix(), to.Unix())

		var resp []rawDataTrade
		if err := c.get(ctx, c.dataLimiter, url, &resp); err != nil {
			return nil, fmt.Errorf("data-api.FetchTrades: %w", err)
		}

		if len(resp) == 0 {
			break
		}

		for _, rt := range resp {
			sig, ok := mapTrade(rt, from, to)
			if !ok {
				continue
			}
			all = append(all, sig)
		}

		slog.Debug("fetched trades page",
			"page", page,
			"count", len(resp),
			"kept", len(all),
		)

		if len(resp) < tradesPerPage {
			break
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})

	return all, nil
}

// FetchSignals implementa ports.SignalFeed: trades buy desde `since` hasta
// ahora, para el loop en vivo.
func (c *Client) FetchSignals(ctx context.Context, since time.Time) ([]domain.Signal, error) {
	return c.FetchTrades(ctx, since, time.Now().UTC())
}
