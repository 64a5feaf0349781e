package model

import (
	"github.com/peter-kozarec/ibridge/pkg/utility/fixed"
	"go.uber.org/zap"
)

type AccountValue struct {
	Account  string
	Key      string
	Value    string
	Currency string
}

func (v AccountValue) Fields() []zap.Field {
	return []zap.Field{
		zap.String("account", v.Account),
		zap.String("key", v.Key),
		zap.String("value", v.Value),
		zap.String("currency", v.Currency),
	}
}

type PortfolioItem struct {
	Account       string
	Contract      Contract
	Position      fixed.Point
	MarketPrice   float64
	MarketValue   float64
	AverageCost   float64
	UnrealizedPNL float64
	RealizedPNL   float64
}

// CurrencyFilter restricts account values by currency. An empty filter allows everything.
type CurrencyFilter []string

func (f CurrencyFilter) Allows(currency string) bool {
	if len(f) == 0 {
		return true
	}
	for _, c := range f {
		if c == currency {
			return true
		}
	}
	return false
}
