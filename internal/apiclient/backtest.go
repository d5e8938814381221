package apiclient

import (
	"context"
	"strconv"

	"github.com/trogers1052/ats/internal/models"
)

// RunBacktest replays a strategy on the server
func (c *Client) RunBacktest(ctx context.Context, req models.BacktestRequest) (*models.BacktestResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Parameters == nil {
		req.Parameters = map[string]interface{}{}
	}
	var res models.BacktestResult
	if err := c.post(ctx, "/backtest/run", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// BacktestResult fetches a stored backtest
func (c *Client) BacktestResult(ctx context.Context, id int) (*models.BacktestResult, error) {
	var res models.BacktestResult
	if err := c.get(ctx, "/backtest/results/"+strconv.Itoa(id), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
