package apiclient

import (
	"context"
	"fmt"
	"strconv"

	"github.com/trogers1052/ats/internal/models"
)

// TickerSet is the request and response body of the strategy tickers endpoint
type TickerSet struct {
	Tickers []string `json:"tickers"`
}

// LogsQuery bounds the strategy log listing
type LogsQuery struct {
	Limit int `schema:"limit,omitempty"`
}

func strategyPath(id int, suffix string) string {
	return "/strategies/" + strconv.Itoa(id) + suffix
}

// Strategies lists all strategies of the user
func (c *Client) Strategies(ctx context.Context) ([]models.Strategy, error) {
	var list []models.Strategy
	if err := c.get(ctx, "/strategies", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ActiveStrategies lists enabled strategies with their tickers
func (c *Client) ActiveStrategies(ctx context.Context) ([]models.Strategy, error) {
	var list []models.Strategy
	if err := c.get(ctx, "/strategies/active", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Strategy returns one strategy
func (c *Client) Strategy(ctx context.Context, id int) (*models.Strategy, error) {
	var s models.Strategy
	if err := c.get(ctx, strategyPath(id, ""), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateStrategy creates a strategy from a draft
func (c *Client) CreateStrategy(ctx context.Context, d models.StrategyDraft) (*models.Strategy, error) {
	var s models.Strategy
	if err := c.post(ctx, "/strategies", d, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateStrategy replaces the editable fields of a strategy
func (c *Client) UpdateStrategy(ctx context.Context, id int, d models.StrategyDraft) (*models.Strategy, error) {
	var s models.Strategy
	if err := c.put(ctx, strategyPath(id, ""), d, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteStrategy removes a strategy and everything attached to it
func (c *Client) DeleteStrategy(ctx context.Context, id int) error {
	return c.delete(ctx, strategyPath(id, ""), nil, nil)
}

// EnableStrategy starts evaluating a strategy
func (c *Client) EnableStrategy(ctx context.Context, id int) error {
	return c.put(ctx, strategyPath(id, "/enable"), nil, nil)
}

// DisableStrategy stops evaluating a strategy
func (c *Client) DisableStrategy(ctx context.Context, id int) error {
	return c.put(ctx, strategyPath(id, "/disable"), nil, nil)
}

// SetStrategyTickers replaces the full ticker set of a strategy
func (c *Client) SetStrategyTickers(ctx context.Context, id int, tickers []string) error {
	return c.post(ctx, strategyPath(id, "/tickers"), TickerSet{Tickers: tickers}, nil)
}

// StrategyTickers returns the ticker set of a strategy
func (c *Client) StrategyTickers(ctx context.Context, id int) ([]string, error) {
	var set TickerSet
	if err := c.get(ctx, strategyPath(id, "/tickers"), nil, &set); err != nil {
		return nil, err
	}
	return set.Tickers, nil
}

// TrainModel requests training of a model strategy
func (c *Client) TrainModel(ctx context.Context, id int) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	if err := c.post(ctx, strategyPath(id, "/train"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteModel removes the trained model of a strategy
func (c *Client) DeleteModel(ctx context.Context, id int) error {
	return c.delete(ctx, strategyPath(id, "/model"), nil, nil)
}

// StrategyLogs returns the most recent signals of a strategy
func (c *Client) StrategyLogs(ctx context.Context, id, limit int) ([]models.Signal, error) {
	q, err := c.encodeQuery(LogsQuery{Limit: limit})
	if err != nil {
		return nil, err
	}
	var logs []models.Signal
	if err := c.get(ctx, strategyPath(id, "/logs"), q, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// StrategyLastSignals returns the latest action of every ticker of a strategy in one call
func (c *Client) StrategyLastSignals(ctx context.Context, id int) (*models.LastSignals, error) {
	var ls models.LastSignals
	if err := c.get(ctx, strategyPath(id, "/signals/last"), nil, &ls); err != nil {
		return nil, err
	}
	if ls.Signals == nil {
		return nil, fmt.Errorf("failed to read last signals for strategy %d: empty response", id)
	}
	return &ls, nil
}
