package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Strategy lifecycle event type constants
const (
	EventStrategyCreated  = "STRATEGY_CREATED"
	EventStrategyUpdated  = "STRATEGY_UPDATED"
	EventStrategyEnabled  = "STRATEGY_ENABLED"
	EventStrategyDisabled = "STRATEGY_DISABLED"
	EventStrategyDeleted  = "STRATEGY_DELETED"
	EventTickersUpdated   = "TICKERS_UPDATED"
	EventTrainRequested   = "TRAIN_REQUESTED"
	EventModelDeleted     = "MODEL_DELETED"
)

// Event types consumed from the evaluation engine
const (
	EventSignalEmitted = "SIGNAL_EMITTED"
	EventModelTrained  = "MODEL_TRAINED"
)

// StrategyEvent is published for the evaluation engine whenever a strategy changes
type StrategyEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	UserID     int       `json:"user_id"`
	StrategyID int       `json:"strategy_id"`
	Strategy   *Strategy `json:"strategy,omitempty"`
	Tickers    []string  `json:"tickers,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// SignalEvent is emitted by the evaluation engine for a strategy and ticker
type SignalEvent struct {
	EventID    string                 `json:"event_id"`
	EventType  string                 `json:"event_type"`
	UserID     int                    `json:"user_id"`
	StrategyID int                    `json:"strategy_id"`
	Ticker     string                 `json:"ticker"`
	Action     string                 `json:"action"`
	Price      decimal.NullDecimal    `json:"price"`
	DebugData  map[string]interface{} `json:"debug_data,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}
