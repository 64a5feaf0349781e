package model

import (
	"go.uber.org/zap"
)

type Contract struct {
	ConId                        int64
	Symbol                       string
	SecType                      string
	LastTradeDateOrContractMonth string
	Strike                       float64
	Right                        string
	Multiplier                   string
	Exchange                     string
	PrimaryExchange              string
	Currency                     string
	LocalSymbol                  string
	TradingClass                 string
}

func (c Contract) Fields() []zap.Field {
	return []zap.Field{
		zap.Int64("con_id", c.ConId),
		zap.String("symbol", c.Symbol),
		zap.String("sec_type", c.SecType),
		zap.String("exchange", c.Exchange),
		zap.String("currency", c.Currency),
	}
}

type ContractDetails struct {
	Contract       Contract
	MarketName     string
	MinTick        float64
	LongName       string
	OrderTypes     string
	ValidExchanges string
	UnderConId     int64
	TimeZoneId     string
	TradingHours   string
	LiquidHours    string
}

func NewStock(symbol, exchange, currency string) Contract {
	return Contract{Symbol: symbol, SecType: "STK", Exchange: exchange, Currency: currency}
}
