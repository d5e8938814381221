package apiclient

import (
	"context"

	"github.com/trogers1052/ats/internal/models"
)

// AnalyticsOverview returns aggregate performance for the filter
func (c *Client) AnalyticsOverview(ctx context.Context, f models.AnalyticsFilter) (*models.AnalyticsOverview, error) {
	var out models.AnalyticsOverview
	if err := c.analytics(ctx, "/overview", f, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StrategiesPnL returns realised PnL per strategy
func (c *Client) StrategiesPnL(ctx context.Context, f models.AnalyticsFilter) ([]models.StrategyPnL, error) {
	var out []models.StrategyPnL
	if err := c.analytics(ctx, "/strategies-pnl", f, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TopTickers returns the best performing tickers; the server defaults the limit to 5
func (c *Client) TopTickers(ctx context.Context, f models.AnalyticsFilter) ([]models.TopTicker, error) {
	var out []models.TopTicker
	if err := c.analytics(ctx, "/top-tickers", f, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EquityCurve returns cumulative PnL over time
func (c *Client) EquityCurve(ctx context.Context, f models.AnalyticsFilter) ([]models.EquityPoint, error) {
	var out []models.EquityPoint
	if err := c.analytics(ctx, "/equity-curve", f, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TradeLogs returns the logged trades matching the filter
func (c *Client) TradeLogs(ctx context.Context, f models.AnalyticsFilter) ([]models.TradeLog, error) {
	var out []models.TradeLog
	if err := c.analytics(ctx, "/trades", f, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) analytics(ctx context.Context, path string, f models.AnalyticsFilter, out interface{}) error {
	if err := f.Validate(); err != nil {
		return err
	}
	q, err := c.encodeQuery(f)
	if err != nil {
		return err
	}
	return c.get(ctx, "/analytics"+path, q, out)
}
