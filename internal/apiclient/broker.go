package apiclient

import (
	"context"
	"net/url"

	"github.com/trogers1052/ats/internal/models"
)

// BrokerStatus returns the account snapshot of the default broker
func (c *Client) BrokerStatus(ctx context.Context) (*models.BrokerStatus, error) {
	var st models.BrokerStatus
	if err := c.get(ctx, "/user/broker/check", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// BrokerConnections lists stored broker connections
func (c *Client) BrokerConnections(ctx context.Context) ([]models.BrokerConnection, error) {
	var list []models.BrokerConnection
	if err := c.get(ctx, "/user/brokers", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ConnectBroker stores broker credentials
func (c *Client) ConnectBroker(ctx context.Context, creds models.BrokerCredentials) (*models.BrokerConnection, error) {
	var conn models.BrokerConnection
	if err := c.post(ctx, "/user/brokers", creds, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// DisconnectBroker removes stored credentials for a broker
func (c *Client) DisconnectBroker(ctx context.Context, broker string) error {
	return c.delete(ctx, "/user/brokers/"+url.PathEscape(broker), nil, nil)
}

// CheckBroker returns the account snapshot of a named broker
func (c *Client) CheckBroker(ctx context.Context, broker string) (*models.BrokerStatus, error) {
	var st models.BrokerStatus
	if err := c.get(ctx, "/user/brokers/"+url.PathEscape(broker)+"/check", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
