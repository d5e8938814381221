package orders

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/trogers1052/ats/internal/apiclient"
	"github.com/trogers1052/ats/internal/models"
)

var (
	// ErrAlreadySettled is returned when the order or position no longer exists at the broker
	ErrAlreadySettled = errors.New("already settled")

	// ErrBrokerNotConnected is returned when the user has no working broker connection
	ErrBrokerNotConnected = errors.New("broker not connected")
)

// API is the subset of the REST client used for trading
type API interface {
	PlaceOrder(ctx context.Context, spec models.OrderSpec) (*models.Order, error)
	CancelOrder(ctx context.Context, id string) (*models.ActionResult, error)
	ClosePosition(ctx context.Context, symbol string) (*models.ActionResult, error)
	Orders(ctx context.Context) ([]models.Order, error)
	Positions(ctx context.Context) ([]models.Position, error)
	BrokerStatus(ctx context.Context) (*models.BrokerStatus, error)
	CheckBroker(ctx context.Context, broker string) (*models.BrokerStatus, error)
}

// Service validates manual orders locally before they reach the broker
type Service struct {
	api API
	log log.FieldLogger
}

// NewService creates an order entry service
func NewService(api API, logger log.FieldLogger) *Service {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Service{api: api, log: logger}
}

// PlaceOrder normalises and validates the spec; invalid specs never reach the API
func (s *Service) PlaceOrder(ctx context.Context, spec models.OrderSpec) (*models.Order, error) {
	spec.Normalize()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	o, err := s.api.PlaceOrder(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to place %s %s order for %s: %w", spec.Side, spec.OrderType, spec.Symbol, err)
	}
	s.log.WithFields(log.Fields{
		"order_id": o.ID,
		"symbol":   spec.Symbol,
		"side":     spec.Side,
		"type":     spec.OrderType,
	}).Info("Order placed")
	return o, nil
}

// CancelOrder cancels an open order; an order that already filled or vanished yields ErrAlreadySettled
func (s *Service) CancelOrder(ctx context.Context, id string) error {
	res, err := s.api.CancelOrder(ctx, id)
	if err := settled(res, err); err != nil {
		return fmt.Errorf("failed to cancel order %s: %w", id, err)
	}
	s.log.WithField("order_id", id).Info("Order canceled")
	return nil
}

// ClosePosition liquidates a position; a position that is already closed yields ErrAlreadySettled
func (s *Service) ClosePosition(ctx context.Context, symbol string) error {
	res, err := s.api.ClosePosition(ctx, symbol)
	if err := settled(res, err); err != nil {
		return fmt.Errorf("failed to close position %s: %w", symbol, err)
	}
	s.log.WithField("symbol", symbol).Info("Position closed")
	return nil
}

// Orders lists open orders
func (s *Service) Orders(ctx context.Context) ([]models.Order, error) {
	list, err := s.api.Orders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return list, nil
}

// Positions lists open positions
func (s *Service) Positions(ctx context.Context) ([]models.Position, error) {
	list, err := s.api.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	return list, nil
}

// CheckBroker returns the broker account snapshot; an empty name checks the default broker.
// A missing or failing connection yields ErrBrokerNotConnected with the status when one was returned.
func (s *Service) CheckBroker(ctx context.Context, broker string) (*models.BrokerStatus, error) {
	var st *models.BrokerStatus
	var err error
	if broker == "" {
		st, err = s.api.BrokerStatus(ctx)
	} else {
		st, err = s.api.CheckBroker(ctx, broker)
	}
	if err != nil {
		if errors.Is(err, apiclient.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBrokerNotConnected, apiclient.Message(err))
		}
		return nil, fmt.Errorf("failed to check broker: %w", err)
	}
	if !st.Connected {
		if st.Error != "" {
			return st, fmt.Errorf("%w: %s", ErrBrokerNotConnected, st.Error)
		}
		return st, ErrBrokerNotConnected
	}
	return st, nil
}

func settled(res *models.ActionResult, err error) error {
	if err != nil {
		switch apiclient.StatusCode(err) {
		case http.StatusNotFound, http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %s", ErrAlreadySettled, apiclient.Message(err))
		}
		return err
	}
	if res != nil && res.Failed() {
		return fmt.Errorf("%w: %s", ErrAlreadySettled, res.Message)
	}
	return nil
}
