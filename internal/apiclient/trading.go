package apiclient

import (
	"context"
	"net/url"

	"github.com/trogers1052/ats/internal/models"
)

// Positions returns the open broker positions
func (c *Client) Positions(ctx context.Context) ([]models.Position, error) {
	var list []models.Position
	if err := c.get(ctx, "/trades", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ClosePosition liquidates a position
func (c *Client) ClosePosition(ctx context.Context, symbol string) (*models.ActionResult, error) {
	var res models.ActionResult
	if err := c.delete(ctx, "/trades/"+url.PathEscape(symbol), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Orders returns the open broker orders
func (c *Client) Orders(ctx context.Context) ([]models.Order, error) {
	var list []models.Order
	if err := c.get(ctx, "/orders", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// PlaceOrder submits an order spec as is
func (c *Client) PlaceOrder(ctx context.Context, spec models.OrderSpec) (*models.Order, error) {
	var o models.Order
	if err := c.post(ctx, "/orders", spec, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// CancelOrder cancels an open order
func (c *Client) CancelOrder(ctx context.Context, id string) (*models.ActionResult, error) {
	var res models.ActionResult
	if err := c.delete(ctx, "/orders/"+url.PathEscape(id), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
