package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BacktestRequest asks the server to replay a strategy over a date range
type BacktestRequest struct {
	StrategyID int                    `json:"strategy_id"`
	Ticker     string                 `json:"ticker"`
	Parameters map[string]interface{} `json:"parameters"`
	StartDate  time.Time              `json:"start_date"`
	EndDate    time.Time              `json:"end_date"`
}

// Validate checks the request before it is sent
func (r *BacktestRequest) Validate() error {
	if r.StrategyID <= 0 {
		return invalid("strategy_id", "is required")
	}
	if r.Ticker == "" {
		return invalid("ticker", "is required")
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return invalid("start_date", "start and end dates are required")
	}
	if !r.StartDate.Before(r.EndDate) {
		return invalid("start_date", "must be before end_date")
	}
	return nil
}

// BacktestMetrics summarises a backtest run
type BacktestMetrics struct {
	TotalPnL    decimal.Decimal     `json:"total_pnl"`
	WinRate     decimal.Decimal     `json:"win_rate"`
	MaxDrawdown decimal.Decimal     `json:"max_drawdown"`
	SharpeRatio decimal.NullDecimal `json:"sharpe_ratio"`
	AveragePnL  decimal.NullDecimal `json:"average_pnl"`
}

// BacktestTrade is a simulated trade
type BacktestTrade struct {
	Action string          `json:"action"`
	Price  decimal.Decimal `json:"price"`
	Result string          `json:"result"`
	PnL    decimal.Decimal `json:"pnl"`
	Time   Timestamp       `json:"time"`
}

// BacktestResult is a stored or freshly computed backtest
type BacktestResult struct {
	ID          *int            `json:"id"`
	Metrics     BacktestMetrics `json:"metrics"`
	EquityCurve []EquityPoint   `json:"equity_curve"`
	Trades      []BacktestTrade `json:"trades"`
}
