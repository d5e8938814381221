package models

import (
	"github.com/shopspring/decimal"
)

// Trade action constants
const (
	TradeActionBuy  = "BUY"
	TradeActionSell = "SELL"
)

// TradeLog is a logged automated trade, open until exit fields are filled
type TradeLog struct {
	ID         int                 `json:"id"`
	StrategyID int                 `json:"strategy_id"`
	Symbol     string              `json:"symbol"`
	Action     string              `json:"action"`
	Price      decimal.Decimal     `json:"price"`
	Quantity   int                 `json:"quantity"`
	Timestamp  Timestamp           `json:"timestamp"`
	ExitPrice  decimal.NullDecimal `json:"exit_price"`
	ExitTime   *Timestamp          `json:"exit_time"`
	PnL        decimal.NullDecimal `json:"pnl"`
}

// Open reports whether the trade has not been closed yet
func (t TradeLog) Open() bool {
	return t.ExitTime == nil
}
