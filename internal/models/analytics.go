package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AnalyticsFilter narrows analytics queries; zero fields are omitted
type AnalyticsFilter struct {
	StrategyID int       `schema:"strategy_id,omitempty"`
	Ticker     string    `schema:"ticker,omitempty"`
	StartDate  time.Time `schema:"start_date,omitempty"`
	EndDate    time.Time `schema:"end_date,omitempty"`
	Limit      int       `schema:"limit,omitempty"`
}

// Validate rejects inverted date ranges
func (f AnalyticsFilter) Validate() error {
	if !f.StartDate.IsZero() && !f.EndDate.IsZero() && f.EndDate.Before(f.StartDate) {
		return invalid("end_date", "must not be before start_date")
	}
	if f.Limit < 0 {
		return invalid("limit", "must not be negative")
	}
	return nil
}

// AnalyticsOverview summarises trading performance
type AnalyticsOverview struct {
	TotalTrades   int             `json:"total_trades"`
	TotalOrders   int             `json:"total_orders"`
	SuccessTrades int             `json:"success_trades"`
	WinRate       decimal.Decimal `json:"win_rate"`
	TotalPnL      decimal.Decimal `json:"total_pnl"`
	AveragePnL    decimal.Decimal `json:"average_pnl"`
	MaxDrawdown   decimal.Decimal `json:"max_drawdown"`
	SharpeRatio   decimal.Decimal `json:"sharpe_ratio"`
}

// StrategyPnL is the realised PnL of one strategy
type StrategyPnL struct {
	StrategyID int             `json:"strategy_id"`
	Title      string          `json:"title"`
	PnL        decimal.Decimal `json:"pnl"`
}

// TopTicker is a ticker ranked by PnL
type TopTicker struct {
	Symbol string          `json:"symbol"`
	PnL    decimal.Decimal `json:"pnl"`
}

// EquityPoint is one point of a cumulative PnL curve
type EquityPoint struct {
	Date Timestamp       `json:"date"`
	PnL  decimal.Decimal `json:"pnl"`
}
