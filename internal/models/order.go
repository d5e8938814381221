package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Order side constants
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Order type constants
const (
	OrderTypeMarket       = "market"
	OrderTypeLimit        = "limit"
	OrderTypeStop         = "stop"
	OrderTypeStopLimit    = "stop_limit"
	OrderTypeTrailingStop = "trailing_stop"
)

// Time in force constants
const (
	TimeInForceDay = "day"
	TimeInForceGTC = "gtc"
)

// OrderSpec is a manual order request
type OrderSpec struct {
	Symbol       string           `json:"symbol"`
	Side         string           `json:"side"`
	OrderType    string           `json:"order_type"`
	Qty          *decimal.Decimal `json:"qty,omitempty"`
	Notional     *decimal.Decimal `json:"notional,omitempty"`
	TimeInForce  string           `json:"time_in_force"`
	LimitPrice   *decimal.Decimal `json:"limit_price,omitempty"`
	StopPrice    *decimal.Decimal `json:"stop_price,omitempty"`
	TrailPrice   *decimal.Decimal `json:"trail_price,omitempty"`
	TrailPercent *decimal.Decimal `json:"trail_percent,omitempty"`
}

// Order is the broker's view of a submitted order
type Order struct {
	ID           string              `json:"id"`
	Symbol       string              `json:"symbol"`
	OrderType    string              `json:"order_type"`
	Side         string              `json:"side"`
	Qty          decimal.NullDecimal `json:"qty"`
	FilledQty    decimal.NullDecimal `json:"filled_qty"`
	AvgFillPrice decimal.NullDecimal `json:"avg_fill_price"`
	Status       string              `json:"status"`
	SubmittedAt  *Timestamp          `json:"submitted_at"`
	FilledAt     *Timestamp          `json:"filled_at"`
}

// ActionResult is the status envelope returned by cancel and close calls
type ActionResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Failed reports whether the server answered with an error status
func (r ActionResult) Failed() bool {
	return strings.EqualFold(r.Status, "error")
}

// Normalize upper-cases the symbol and lower-cases the enum fields
func (s *OrderSpec) Normalize() {
	s.Symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))
	s.Side = strings.ToLower(strings.TrimSpace(s.Side))
	s.OrderType = strings.ToLower(strings.TrimSpace(s.OrderType))
	s.TimeInForce = strings.ToLower(strings.TrimSpace(s.TimeInForce))
	if s.TimeInForce == "" {
		s.TimeInForce = TimeInForceDay
	}
}

// Validate returns an *OrderSpecError when the spec cannot be submitted
func (s *OrderSpec) Validate() error {
	if s.Symbol == "" {
		return invalidOrder("symbol", "must not be empty")
	}
	if s.Side != SideBuy && s.Side != SideSell {
		return invalidOrder("side", "must be buy or sell")
	}
	switch s.OrderType {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStop, OrderTypeStopLimit, OrderTypeTrailingStop:
	default:
		return invalidOrder("order_type", "unknown order type %q", s.OrderType)
	}
	if s.TimeInForce != TimeInForceDay && s.TimeInForce != TimeInForceGTC {
		return invalidOrder("time_in_force", "must be day or gtc")
	}

	if (s.Qty == nil) == (s.Notional == nil) {
		return invalidOrder("qty", "exactly one of qty or notional is required")
	}
	if err := positive("qty", s.Qty); err != nil {
		return err
	}
	if err := positive("notional", s.Notional); err != nil {
		return err
	}
	if s.Notional != nil && (s.OrderType != OrderTypeMarket || s.TimeInForce != TimeInForceDay) {
		return invalidOrder("notional", "only allowed for market orders with day time in force")
	}

	needsLimit := s.OrderType == OrderTypeLimit || s.OrderType == OrderTypeStopLimit
	if err := presentIff("limit_price", s.LimitPrice, needsLimit); err != nil {
		return err
	}
	needsStop := s.OrderType == OrderTypeStop || s.OrderType == OrderTypeStopLimit
	if err := presentIff("stop_price", s.StopPrice, needsStop); err != nil {
		return err
	}

	if s.OrderType == OrderTypeTrailingStop {
		if (s.TrailPrice == nil) == (s.TrailPercent == nil) {
			return invalidOrder("trail_price", "exactly one of trail_price or trail_percent is required")
		}
	} else if s.TrailPrice != nil || s.TrailPercent != nil {
		return invalidOrder("trail_price", "only allowed for trailing_stop orders")
	}
	if err := positive("trail_price", s.TrailPrice); err != nil {
		return err
	}
	return positive("trail_percent", s.TrailPercent)
}

func positive(field string, v *decimal.Decimal) error {
	if v != nil && !v.IsPositive() {
		return invalidOrder(field, "must be positive")
	}
	return nil
}

func presentIff(field string, v *decimal.Decimal, required bool) error {
	if required && v == nil {
		return invalidOrder(field, "is required for this order type")
	}
	if !required && v != nil {
		return invalidOrder(field, "is not allowed for this order type")
	}
	return positive(field, v)
}
