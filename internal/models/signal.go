package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Signal action constants, upper-cased as displayed
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

// Signal is a logged strategy signal for one ticker
type Signal struct {
	ID            int                 `json:"id"`
	StrategyID    int                 `json:"strategy_id"`
	StrategyTitle string              `json:"strategy_title,omitempty"`
	Ticker        string              `json:"ticker"`
	Action        string              `json:"action"`
	Price         decimal.NullDecimal `json:"price"`
	Executed      bool                `json:"executed"`
	Result        string              `json:"result,omitempty"`
	CreatedAt     Timestamp           `json:"created_at"`
}

// LastSignal is the response of the per-ticker last signal lookup
type LastSignal struct {
	Action *string `json:"action"`
}

// Normalized returns the upper-cased action or HOLD when absent
func (l LastSignal) Normalized() string {
	if l.Action == nil {
		return ActionHold
	}
	return NormalizeAction(*l.Action)
}

// LastSignals maps every ticker of a strategy to its latest action
type LastSignals struct {
	StrategyID int               `json:"strategy_id"`
	Signals    map[string]string `json:"signals"`
}

// NormalizeAction upper-cases an action and maps empty or unknown values to HOLD
func NormalizeAction(action string) string {
	switch a := strings.ToUpper(strings.TrimSpace(action)); a {
	case ActionBuy, ActionSell:
		return a
	default:
		return ActionHold
	}
}
