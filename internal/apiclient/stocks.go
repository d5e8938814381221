package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/trogers1052/ats/internal/models"
)

// PriceDataQuery selects the strategy overlay for chart data
type PriceDataQuery struct {
	StrategyID int  `schema:"strategy_id,omitempty"`
	Raw        bool `schema:"raw,omitempty"`
}

// WatchList returns the user's followed tickers
func (c *Client) WatchList(ctx context.Context) ([]string, error) {
	var wl models.WatchList
	if err := c.get(ctx, "/users/me/stocks", nil, &wl); err != nil {
		return nil, err
	}
	return wl.Stocks, nil
}

// AddStock follows a ticker
func (c *Client) AddStock(ctx context.Context, ticker string) error {
	return c.doJSON(ctx, http.MethodPost, "/users/me/stocks/add", tickerQuery(ticker), nil, nil)
}

// RemoveStock unfollows a ticker
func (c *Client) RemoveStock(ctx context.Context, ticker string) error {
	return c.delete(ctx, "/users/me/stocks/remove", tickerQuery(ticker), nil)
}

// Overview returns the latest price, RSI, EMA and signal for each followed ticker
func (c *Client) Overview(ctx context.Context) ([]models.TickerOverview, error) {
	var rows []models.TickerOverview
	if err := c.get(ctx, "/stocks/overview", nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// PriceData returns daily closes with buy/sell markers for a ticker
func (c *Client) PriceData(ctx context.Context, ticker string, q PriceDataQuery) ([]models.PriceBar, error) {
	query, err := c.encodeQuery(q)
	if err != nil {
		return nil, err
	}
	var series models.PriceSeries
	if err := c.get(ctx, "/api/data/"+url.PathEscape(ticker), query, &series); err != nil {
		return nil, err
	}
	return series.Data, nil
}

// Indicators returns the latest indicator values for a ticker
func (c *Client) Indicators(ctx context.Context, ticker string) (models.IndicatorSnapshot, error) {
	snap := models.IndicatorSnapshot{}
	if err := c.get(ctx, "/api/indicators/"+url.PathEscape(ticker), nil, &snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Prediction returns the AI model's buy and sell predictions for a ticker
func (c *Client) Prediction(ctx context.Context, ticker string) ([]models.Prediction, error) {
	var rows []models.Prediction
	if err := c.get(ctx, "/ai/predict/"+url.PathEscape(ticker), nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func tickerQuery(ticker string) url.Values {
	q := url.Values{}
	q.Set("ticker", ticker)
	return q
}
