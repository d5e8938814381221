package models

import (
	"github.com/shopspring/decimal"
)

// BrokerAlpaca is the only supported broker
const BrokerAlpaca = "alpaca"

// NotificationSettings controls which events are emailed to the user
type NotificationSettings struct {
	EmailAlertsEnabled  bool `json:"email_alerts_enabled"`
	NotifyOnSignal      bool `json:"notify_on_signal"`
	NotifyOnOrderFilled bool `json:"notify_on_order_filled"`
	NotifyOnError       bool `json:"notify_on_error"`
}

// TradingPreferences are the defaults applied to new strategies
type TradingPreferences struct {
	DefaultTimeframe   string           `json:"default_timeframe"`
	AutoTradingEnabled bool             `json:"auto_trading_enabled"`
	DefaultTradeAmount decimal.Decimal  `json:"default_trade_amount"`
	UsePercentage      bool             `json:"use_percentage"`
	DefaultStopLoss    *decimal.Decimal `json:"default_stop_loss"`
	DefaultTakeProfit  *decimal.Decimal `json:"default_take_profit"`
}

// ApplyTo seeds a new draft with the user's defaults, leaving fields the draft already sets
func (p TradingPreferences) ApplyTo(d *StrategyDraft) {
	if d.DefaultTimeframe == "" && p.DefaultTimeframe != "" {
		d.DefaultTimeframe = p.DefaultTimeframe
	}
	if d.TradeAmount.IsZero() && p.DefaultTradeAmount.IsPositive() {
		d.TradeAmount = p.DefaultTradeAmount
	}
	if p.UsePercentage {
		d.SetUseBalancePercent(true)
		return
	}
	if d.StopLoss == nil && p.DefaultStopLoss != nil {
		v := *p.DefaultStopLoss
		d.StopLoss = &v
	}
	if d.TakeProfit == nil && p.DefaultTakeProfit != nil {
		v := *p.DefaultTakeProfit
		d.TakeProfit = &v
	}
}

// Validate checks the preference payload before it is saved
func (p TradingPreferences) Validate() error {
	if p.DefaultTimeframe != "" && !timeframes[p.DefaultTimeframe] {
		return invalid("default_timeframe", "unknown timeframe %q", p.DefaultTimeframe)
	}
	if p.DefaultTradeAmount.IsNegative() {
		return invalid("default_trade_amount", "must not be negative")
	}
	if p.DefaultStopLoss != nil && p.DefaultStopLoss.IsNegative() {
		return invalid("default_stop_loss", "must not be negative")
	}
	if p.DefaultTakeProfit != nil && p.DefaultTakeProfit.IsNegative() {
		return invalid("default_take_profit", "must not be negative")
	}
	return nil
}

// BrokerCredentials are the API keys used to connect a broker account
type BrokerCredentials struct {
	Broker    string `json:"broker"`
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	BaseURL   string `json:"base_url"`
}

// Validate rejects unsupported brokers and missing keys
func (c BrokerCredentials) Validate() error {
	if c.Broker != BrokerAlpaca {
		return invalid("broker", "unsupported broker %q", c.Broker)
	}
	if c.APIKey == "" {
		return invalid("api_key", "must not be empty")
	}
	if c.APISecret == "" {
		return invalid("api_secret", "must not be empty")
	}
	if c.BaseURL == "" {
		return invalid("base_url", "must not be empty")
	}
	return nil
}

// BrokerConnection is a stored broker connection without secrets
type BrokerConnection struct {
	ID        int       `json:"id"`
	Broker    string    `json:"broker"`
	BaseURL   string    `json:"base_url"`
	CreatedAt Timestamp `json:"created_at"`
}

// BrokerStatus is the account snapshot returned by the broker check
type BrokerStatus struct {
	Connected      bool                `json:"connected"`
	AccountStatus  string              `json:"account_status,omitempty"`
	Cash           decimal.NullDecimal `json:"cash"`
	BuyingPower    decimal.NullDecimal `json:"buying_power"`
	PortfolioValue decimal.NullDecimal `json:"portfolio_value"`
	TodayPnL       decimal.NullDecimal `json:"today_pnl"`
	TotalPnL       decimal.NullDecimal `json:"total_pnl"`
	Error          string              `json:"error,omitempty"`
}
