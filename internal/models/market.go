package models

import "github.com/shopspring/decimal"

// Indicator snapshot keys returned by the indicators endpoint
const (
	IndicatorSMA10      = "SMA_10"
	IndicatorSMA50      = "SMA_50"
	IndicatorEMA10      = "EMA_10"
	IndicatorEMA50      = "EMA_50"
	IndicatorRSI14      = "RSI_14"
	IndicatorMACDLine   = "MACD"
	IndicatorMACDSignal = "MACD_Signal"
)

// IndicatorKeys lists snapshot keys in display order
var IndicatorKeys = []string{
	IndicatorSMA10, IndicatorSMA50, IndicatorEMA10, IndicatorEMA50,
	IndicatorRSI14, IndicatorMACDLine, IndicatorMACDSignal,
}

// TickerOverview is one row of the watchlist overview
type TickerOverview struct {
	Symbol string              `json:"symbol"`
	Price  decimal.NullDecimal `json:"price"`
	RSI    decimal.NullDecimal `json:"rsi"`
	EMA10  decimal.NullDecimal `json:"ema_10"`
	Signal string              `json:"signal"`
}

// PriceBar is a daily close with strategy markers, as served for charts
type PriceBar struct {
	Date       string              `json:"Date"`
	Close      decimal.Decimal     `json:"Close"`
	BuySignal  bool                `json:"Buy_Signal"`
	SellSignal bool                `json:"Sell_Signal"`
	SMAShort   decimal.NullDecimal `json:"SMA_Short"`
	SMALong    decimal.NullDecimal `json:"SMA_Long"`
}

// Prediction is one day of the AI model output for a ticker; the flags are 1 on predicted signals
type Prediction struct {
	Close          decimal.Decimal `json:"Close"`
	BuyPrediction  float64         `json:"Buy_Prediction"`
	SellPrediction float64         `json:"Sell_Prediction"`
}

// Buy reports a predicted buy signal
func (p Prediction) Buy() bool {
	return p.BuyPrediction == 1
}

// Sell reports a predicted sell signal
func (p Prediction) Sell() bool {
	return p.SellPrediction == 1
}

// PriceSeries wraps the chart data response
type PriceSeries struct {
	Data []PriceBar `json:"data"`
}

// IndicatorSnapshot holds the latest indicator values keyed by name
type IndicatorSnapshot map[string]decimal.Decimal

// WatchList is the user's followed tickers
type WatchList struct {
	Stocks []string `json:"stocks"`
}
