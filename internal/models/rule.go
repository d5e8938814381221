package models

import "fmt"

// Indicator constants accepted in signal rules
const (
	IndicatorRSI            = "RSI"
	IndicatorMACD           = "MACD"
	IndicatorSMA            = "SMA"
	IndicatorBollingerBands = "BollingerBands"
)

// Comparison operator constants
const (
	OperatorLess         = "<"
	OperatorLessEqual    = "<="
	OperatorEqual        = "=="
	OperatorGreaterEqual = ">="
	OperatorGreater      = ">"
)

// Signal logic constants
const (
	LogicAnd = "AND"
	LogicOr  = "OR"
)

var indicators = map[string]bool{
	IndicatorRSI:            true,
	IndicatorMACD:           true,
	IndicatorSMA:            true,
	IndicatorBollingerBands: true,
}

var operators = map[string]bool{
	OperatorLess:         true,
	OperatorLessEqual:    true,
	OperatorEqual:        true,
	OperatorGreaterEqual: true,
	OperatorGreater:      true,
}

// SignalRule is a single indicator condition of a strategy
type SignalRule struct {
	Indicator string  `json:"indicator" yaml:"indicator"`
	Operator  string  `json:"operator" yaml:"operator"`
	Value     float64 `json:"value" yaml:"value"`
}

func (r SignalRule) validate(field string, i int) error {
	name := fmt.Sprintf("%s[%d]", field, i)
	if !indicators[r.Indicator] {
		return invalid(name, "unknown indicator %q", r.Indicator)
	}
	if !operators[r.Operator] {
		return invalid(name, "unknown operator %q", r.Operator)
	}
	return nil
}

func (r SignalRule) String() string {
	return fmt.Sprintf("%s %s %g", r.Indicator, r.Operator, r.Value)
}
