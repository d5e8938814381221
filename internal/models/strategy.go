package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The API exchanges amounts as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// Strategy type constants
const (
	StrategyTypeRule  = "rule"
	StrategyTypeModel = "ml_tf"
)

// Automation mode constants
const (
	AutomationManual     = "Manual"
	AutomationNotifyOnly = "Notify Only"
	AutomationSemiAuto   = "Semi-Automatic"
	AutomationFullAuto   = "Automatic"
)

// Timeframe constants
const (
	Timeframe1Min  = "1Min"
	Timeframe5Min  = "5Min"
	Timeframe15Min = "15Min"
	Timeframe30Min = "30Min"
	Timeframe1H    = "1H"
	Timeframe4H    = "4H"
	Timeframe1D    = "1D"
)

// DefaultCheckFrequency is used when a draft leaves market_check_frequency empty
const DefaultCheckFrequency = "1 Hour"

const dateLayout = "2006-01-02"

var checkFrequencies = map[string]time.Duration{
	"1 Minute":   time.Minute,
	"5 Minutes":  5 * time.Minute,
	"15 Minutes": 15 * time.Minute,
	"30 Minutes": 30 * time.Minute,
	"1 Hour":     time.Hour,
	"4 Hours":    4 * time.Hour,
	"1 Day":      24 * time.Hour,
}

var automationModes = map[string]bool{
	AutomationManual:     true,
	AutomationNotifyOnly: true,
	AutomationSemiAuto:   true,
	AutomationFullAuto:   true,
}

var timeframes = map[string]bool{
	Timeframe1Min:  true,
	Timeframe5Min:  true,
	Timeframe15Min: true,
	Timeframe30Min: true,
	Timeframe1H:    true,
	Timeframe4H:    true,
	Timeframe1D:    true,
}

var strategyOrderTypes = map[string]bool{
	OrderTypeMarket:       true,
	OrderTypeLimit:        true,
	OrderTypeStop:         true,
	OrderTypeTrailingStop: true,
}

// CheckInterval returns the polling interval for a market check frequency label
func CheckInterval(frequency string) (time.Duration, bool) {
	d, ok := checkFrequencies[frequency]
	return d, ok
}

// StrategyDraft is the editable part of a strategy, sent on create and update
type StrategyDraft struct {
	Title                string           `json:"title"`
	BuySignals           []SignalRule     `json:"buy_signals"`
	SellSignals          []SignalRule     `json:"sell_signals"`
	SignalLogic          string           `json:"signal_logic"`
	ConfirmationCandles  int              `json:"confirmation_candles"`
	MarketCheckFrequency string           `json:"market_check_frequency"`
	AutomationMode       string           `json:"automation_mode"`
	OrderType            string           `json:"order_type"`
	TradeAmount          decimal.Decimal  `json:"trade_amount"`
	UseNotional          bool             `json:"use_notional"`
	UseBalancePercent    bool             `json:"use_balance_percent"`
	StopLoss             *decimal.Decimal `json:"stop_loss"`
	TakeProfit           *decimal.Decimal `json:"take_profit"`
	SLTPIsPercent        bool             `json:"sl_tp_is_percent"`
	DefaultTimeframe     string           `json:"default_timeframe"`
	StrategyType         string           `json:"strategy_type"`
	TrainingTicker       string           `json:"training_ticker,omitempty"`
	TrainingFromDate     string           `json:"training_from_date,omitempty"`
	TrainingToDate       string           `json:"training_to_date,omitempty"`
}

// Strategy is a user-defined trading strategy as returned by the API
type Strategy struct {
	ID int `json:"id"`
	StrategyDraft
	IsEnabled     bool       `json:"is_enabled"`
	Tickers       []string   `json:"tickers"`
	LastTrainedAt *Timestamp `json:"last_trained_at,omitempty"`
	LastChecked   *Timestamp `json:"last_checked,omitempty"`
	CreatedAt     Timestamp  `json:"created_at"`
	UpdatedAt     Timestamp  `json:"updated_at"`

	// LastSignals maps ticker to the latest upper-cased action; filled client-side
	LastSignals map[string]string `json:"-"`
}

// IsModel reports whether the strategy is driven by a trained model
func (d *StrategyDraft) IsModel() bool {
	return d.StrategyType == StrategyTypeModel
}

// Draft returns a copy of the editable fields
func (s *Strategy) Draft() StrategyDraft {
	d := s.StrategyDraft
	d.BuySignals = append([]SignalRule(nil), s.BuySignals...)
	d.SellSignals = append([]SignalRule(nil), s.SellSignals...)
	if s.StopLoss != nil {
		v := *s.StopLoss
		d.StopLoss = &v
	}
	if s.TakeProfit != nil {
		v := *s.TakeProfit
		d.TakeProfit = &v
	}
	return d
}

// SetUseNotional toggles notional sizing; turning it on clears balance-percent sizing and SL/TP
func (d *StrategyDraft) SetUseNotional(on bool) {
	d.UseNotional = on
	if on {
		d.UseBalancePercent = false
		d.clearExits()
	}
}

// SetUseBalancePercent toggles balance-percent sizing; turning it on clears notional sizing and SL/TP
func (d *StrategyDraft) SetUseBalancePercent(on bool) {
	d.UseBalancePercent = on
	if on {
		d.UseNotional = false
		d.clearExits()
	}
}

func (d *StrategyDraft) clearExits() {
	d.StopLoss = nil
	d.TakeProfit = nil
}

// UnmarshalStrategyDraft decodes a JSON draft. A trade_amount given in the
// document must be positive; an absent one stays zero and Normalize fills the default.
func UnmarshalStrategyDraft(data []byte) (StrategyDraft, error) {
	var d StrategyDraft
	if err := json.Unmarshal(data, &d); err != nil {
		return d, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return d, err
	}
	if raw, ok := fields["trade_amount"]; ok && string(raw) != "null" && !d.TradeAmount.IsPositive() {
		return d, invalid("trade_amount", "must be positive")
	}
	return d, nil
}

// Normalize trims and upper-cases free text and fills defaults for empty fields.
// A zero trade amount means unset here; UnmarshalStrategyDraft rejects an explicit zero.
func (d *StrategyDraft) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.SignalLogic = strings.ToUpper(strings.TrimSpace(d.SignalLogic))
	if d.SignalLogic == "" {
		d.SignalLogic = LogicAnd
	}
	if d.ConfirmationCandles == 0 {
		d.ConfirmationCandles = 1
	}
	d.MarketCheckFrequency = strings.TrimSpace(d.MarketCheckFrequency)
	if d.MarketCheckFrequency == "" {
		d.MarketCheckFrequency = DefaultCheckFrequency
	}
	if d.AutomationMode == "" {
		d.AutomationMode = AutomationSemiAuto
	}
	d.OrderType = strings.ToLower(strings.TrimSpace(d.OrderType))
	if d.OrderType == "" {
		d.OrderType = OrderTypeMarket
	}
	if d.TradeAmount.IsZero() {
		d.TradeAmount = decimal.NewFromInt(1)
	}
	if d.DefaultTimeframe == "" {
		d.DefaultTimeframe = Timeframe1H
	}
	if d.StrategyType == "" {
		d.StrategyType = StrategyTypeRule
	}
	d.TrainingTicker = strings.ToUpper(strings.TrimSpace(d.TrainingTicker))
	d.TrainingFromDate = strings.TrimSpace(d.TrainingFromDate)
	d.TrainingToDate = strings.TrimSpace(d.TrainingToDate)
	if d.BuySignals == nil {
		d.BuySignals = []SignalRule{}
	}
	if d.SellSignals == nil {
		d.SellSignals = []SignalRule{}
	}
	if d.UseNotional || d.UseBalancePercent {
		d.clearExits()
	}
}

// Validate returns a *ValidationError describing the first invalid field
func (d *StrategyDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return invalid("title", "must not be empty")
	}
	if d.StrategyType != StrategyTypeRule && d.StrategyType != StrategyTypeModel {
		return invalid("strategy_type", "unknown strategy type %q", d.StrategyType)
	}
	if !d.IsModel() && len(d.BuySignals) == 0 && len(d.SellSignals) == 0 {
		return invalid("signals", "at least one buy or sell signal is required")
	}
	for i, r := range d.BuySignals {
		if err := r.validate("buy_signals", i); err != nil {
			return err
		}
	}
	for i, r := range d.SellSignals {
		if err := r.validate("sell_signals", i); err != nil {
			return err
		}
	}
	if d.SignalLogic != LogicAnd && d.SignalLogic != LogicOr {
		return invalid("signal_logic", "must be AND or OR")
	}
	if d.ConfirmationCandles < 1 {
		return invalid("confirmation_candles", "must be positive")
	}
	if _, ok := checkFrequencies[d.MarketCheckFrequency]; !ok {
		return invalid("market_check_frequency", "unknown frequency %q", d.MarketCheckFrequency)
	}
	if !automationModes[d.AutomationMode] {
		return invalid("automation_mode", "unknown mode %q", d.AutomationMode)
	}
	if !strategyOrderTypes[d.OrderType] {
		return invalid("order_type", "unknown order type %q", d.OrderType)
	}
	if !d.TradeAmount.IsPositive() {
		return invalid("trade_amount", "must be positive")
	}
	if d.UseNotional && d.UseBalancePercent {
		return invalid("use_notional", "cannot be combined with use_balance_percent")
	}
	if d.StopLoss != nil && d.StopLoss.IsNegative() {
		return invalid("stop_loss", "must not be negative")
	}
	if d.TakeProfit != nil && d.TakeProfit.IsNegative() {
		return invalid("take_profit", "must not be negative")
	}
	if !timeframes[d.DefaultTimeframe] {
		return invalid("default_timeframe", "unknown timeframe %q", d.DefaultTimeframe)
	}
	return d.validateTraining()
}

func (d *StrategyDraft) validateTraining() error {
	if d.IsModel() && d.TrainingTicker == "" {
		return invalid("training_ticker", "is required for model strategies")
	}
	var from, to time.Time
	var err error
	if d.TrainingFromDate != "" {
		if from, err = time.Parse(dateLayout, d.TrainingFromDate); err != nil {
			return invalid("training_from_date", "must be YYYY-MM-DD")
		}
	}
	if d.TrainingToDate != "" {
		if to, err = time.Parse(dateLayout, d.TrainingToDate); err != nil {
			return invalid("training_to_date", "must be YYYY-MM-DD")
		}
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return invalid("training_from_date", "must be before training_to_date")
	}
	return nil
}

// NormalizeTickers trims, upper-cases and de-duplicates tickers, keeping first-seen order
func NormalizeTickers(tickers []string) []string {
	out := make([]string, 0, len(tickers))
	seen := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
