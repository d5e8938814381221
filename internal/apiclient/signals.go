package apiclient

import (
	"context"

	"github.com/trogers1052/ats/internal/models"
)

// LastSignalQuery identifies a strategy and ticker pair
type LastSignalQuery struct {
	StrategyID int    `schema:"strategy_id"`
	Ticker     string `schema:"ticker"`
}

// RecentSignals returns the signals of the last 24 hours, newest first
func (c *Client) RecentSignals(ctx context.Context) ([]models.Signal, error) {
	var list []models.Signal
	if err := c.get(ctx, "/signals/recent", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// LastSignal returns the latest action for one strategy and ticker
func (c *Client) LastSignal(ctx context.Context, strategyID int, ticker string) (*models.LastSignal, error) {
	q, err := c.encodeQuery(LastSignalQuery{StrategyID: strategyID, Ticker: ticker})
	if err != nil {
		return nil, err
	}
	var ls models.LastSignal
	if err := c.get(ctx, "/signals/last", q, &ls); err != nil {
		return nil, err
	}
	return &ls, nil
}
