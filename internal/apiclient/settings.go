package apiclient

import (
	"context"

	"github.com/trogers1052/ats/internal/models"
)

// Settings returns the profile settings
func (c *Client) Settings(ctx context.Context) (*models.UserSettings, error) {
	var s models.UserSettings
	if err := c.get(ctx, "/user/settings", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateProfile changes username, email or password
func (c *Client) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) error {
	return c.put(ctx, "/user/settings/profile", upd, nil)
}

// NotificationSettings returns the notification toggles
func (c *Client) NotificationSettings(ctx context.Context) (*models.NotificationSettings, error) {
	var n models.NotificationSettings
	if err := c.get(ctx, "/settings/notifications", nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// SaveNotificationSettings replaces the notification toggles
func (c *Client) SaveNotificationSettings(ctx context.Context, n models.NotificationSettings) error {
	return c.post(ctx, "/settings/notifications", n, nil)
}

// TradingPreferences returns the defaults applied to new strategies
func (c *Client) TradingPreferences(ctx context.Context) (*models.TradingPreferences, error) {
	var p models.TradingPreferences
	if err := c.get(ctx, "/settings/trading", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveTradingPreferences replaces the trading defaults and returns the stored values
func (c *Client) SaveTradingPreferences(ctx context.Context, p models.TradingPreferences) (*models.TradingPreferences, error) {
	var saved models.TradingPreferences
	if err := c.post(ctx, "/settings/trading", p, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}
