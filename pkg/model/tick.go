package model

import (
	"strconv"

	"github.com/peter-kozarec/ibridge/pkg/utility/fixed"
)

// TickType is the gateway's numeric tick field id.
type TickType int

const (
	TickBidSize                TickType = 0
	TickBid                    TickType = 1
	TickAsk                    TickType = 2
	TickAskSize                TickType = 3
	TickLast                   TickType = 4
	TickLastSize               TickType = 5
	TickHigh                   TickType = 6
	TickLow                    TickType = 7
	TickVolume                 TickType = 8
	TickClose                  TickType = 9
	TickBidOptionComputation   TickType = 10
	TickAskOptionComputation   TickType = 11
	TickLastOptionComputation  TickType = 12
	TickModelOptionComputation TickType = 13
	TickOpen                   TickType = 14
	TickAvgVolume              TickType = 21
	TickHistVolatility         TickType = 23
	TickImpliedVolatility      TickType = 24
	TickCallOpenInterest       TickType = 27
	TickPutOpenInterest        TickType = 28
	TickCallVolume             TickType = 29
	TickPutVolume              TickType = 30
	TickBidExchange            TickType = 32
	TickAskExchange            TickType = 33
	TickMarkPrice              TickType = 37
	TickLastTimestamp          TickType = 45
	TickShortable              TickType = 46
	TickRTVolume               TickType = 48
	TickHalted                 TickType = 49
	TickTradeCount             TickType = 54
	TickTradeRate              TickType = 55
	TickVolumeRate             TickType = 56
	TickLastRTHTrade           TickType = 57
	TickDelayedBid             TickType = 66
	TickDelayedAsk             TickType = 67
	TickDelayedLast            TickType = 68
	TickDelayedBidSize         TickType = 69
	TickDelayedAskSize         TickType = 70
	TickDelayedLastSize        TickType = 71
	TickDelayedHigh            TickType = 72
	TickDelayedLow             TickType = 73
	TickDelayedVolume          TickType = 74
	TickDelayedClose           TickType = 75
	TickDelayedOpen            TickType = 76
	TickDelayedBidOption       TickType = 80
	TickDelayedAskOption       TickType = 81
	TickDelayedLastOption      TickType = 82
	TickDelayedModelOption     TickType = 83
	TickLastExchange           TickType = 84
	TickDelayedLastTimestamp   TickType = 88
	TickShortableShares        TickType = 89
)

// Shape is the payload variant a tick type is delivered with.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapePrice
	ShapeSize
	ShapeString
	ShapeGeneric
	ShapeGreeks
)

func (s Shape) String() string {
	switch s {
	case ShapePrice:
		return "price"
	case ShapeSize:
		return "size"
	case ShapeString:
		return "string"
	case ShapeGeneric:
		return "generic"
	case ShapeGreeks:
		return "greeks"
	}
	return "unknown"
}

// Field is the semantic bucket a tick type updates. Live and delayed variants share a field.
type Field string

const (
	FieldBid               Field = "bid"
	FieldAsk               Field = "ask"
	FieldLast              Field = "last"
	FieldBidSize           Field = "bid_size"
	FieldAskSize           Field = "ask_size"
	FieldLastSize          Field = "last_size"
	FieldHigh              Field = "high"
	FieldLow               Field = "low"
	FieldVolume            Field = "volume"
	FieldClose             Field = "close"
	FieldOpen              Field = "open"
	FieldMark              Field = "mark"
	FieldAvgVolume         Field = "avg_volume"
	FieldBidGreeks         Field = "bid_greeks"
	FieldAskGreeks         Field = "ask_greeks"
	FieldLastGreeks        Field = "last_greeks"
	FieldModelGreeks       Field = "model_greeks"
	FieldHistVolatility    Field = "hist_volatility"
	FieldImpliedVolatility Field = "implied_volatility"
	FieldCallOpenInterest  Field = "call_open_interest"
	FieldPutOpenInterest   Field = "put_open_interest"
	FieldCallVolume        Field = "call_volume"
	FieldPutVolume         Field = "put_volume"
	FieldBidExchange       Field = "bid_exchange"
	FieldAskExchange       Field = "ask_exchange"
	FieldLastExchange      Field = "last_exchange"
	FieldLastTimestamp     Field = "last_timestamp"
	FieldShortable         Field = "shortable"
	FieldShortableShares   Field = "shortable_shares"
	FieldRTVolume          Field = "rt_volume"
	FieldHalted            Field = "halted"
	FieldTradeCount        Field = "trade_count"
	FieldTradeRate         Field = "trade_rate"
	FieldVolumeRate        Field = "volume_rate"
	FieldLastRTHTrade      Field = "last_rth_trade"
)

type tickInfo struct {
	name    string
	shape   Shape
	field   Field
	delayed bool
}

var tickTable = map[TickType]tickInfo{
	TickBidSize:                {"BID_SIZE", ShapeSize, FieldBidSize, false},
	TickBid:                    {"BID", ShapePrice, FieldBid, false},
	TickAsk:                    {"ASK", ShapePrice, FieldAsk, false},
	TickAskSize:                {"ASK_SIZE", ShapeSize, FieldAskSize, false},
	TickLast:                   {"LAST", ShapePrice, FieldLast, false},
	TickLastSize:               {"LAST_SIZE", ShapeSize, FieldLastSize, false},
	TickHigh:                   {"HIGH", ShapePrice, FieldHigh, false},
	TickLow:                    {"LOW", ShapePrice, FieldLow, false},
	TickVolume:                 {"VOLUME", ShapeSize, FieldVolume, false},
	TickClose:                  {"CLOSE", ShapePrice, FieldClose, false},
	TickBidOptionComputation:   {"BID_OPTION_COMPUTATION", ShapeGreeks, FieldBidGreeks, false},
	TickAskOptionComputation:   {"ASK_OPTION_COMPUTATION", ShapeGreeks, FieldAskGreeks, false},
	TickLastOptionComputation:  {"LAST_OPTION_COMPUTATION", ShapeGreeks, FieldLastGreeks, false},
	TickModelOptionComputation: {"MODEL_OPTION", ShapeGreeks, FieldModelGreeks, false},
	TickOpen:                   {"OPEN", ShapePrice, FieldOpen, false},
	TickAvgVolume:              {"AVG_VOLUME", ShapeSize, FieldAvgVolume, false},
	TickHistVolatility:         {"OPTION_HISTORICAL_VOL", ShapeGeneric, FieldHistVolatility, false},
	TickImpliedVolatility:      {"OPTION_IMPLIED_VOL", ShapeGeneric, FieldImpliedVolatility, false},
	TickCallOpenInterest:       {"OPTION_CALL_OPEN_INTEREST", ShapeSize, FieldCallOpenInterest, false},
	TickPutOpenInterest:        {"OPTION_PUT_OPEN_INTEREST", ShapeSize, FieldPutOpenInterest, false},
	TickCallVolume:             {"OPTION_CALL_VOLUME", ShapeSize, FieldCallVolume, false},
	TickPutVolume:              {"OPTION_PUT_VOLUME", ShapeSize, FieldPutVolume, false},
	TickBidExchange:            {"BID_EXCH", ShapeString, FieldBidExchange, false},
	TickAskExchange:            {"ASK_EXCH", ShapeString, FieldAskExchange, false},
	TickMarkPrice:              {"MARK_PRICE", ShapePrice, FieldMark, false},
	TickLastTimestamp:          {"LAST_TIMESTAMP", ShapeString, FieldLastTimestamp, false},
	TickShortable:              {"SHORTABLE", ShapeGeneric, FieldShortable, false},
	TickRTVolume:               {"RT_VOLUME", ShapeString, FieldRTVolume, false},
	TickHalted:                 {"HALTED", ShapeGeneric, FieldHalted, false},
	TickTradeCount:             {"TRADE_COUNT", ShapeGeneric, FieldTradeCount, false},
	TickTradeRate:              {"TRADE_RATE", ShapeGeneric, FieldTradeRate, false},
	TickVolumeRate:             {"VOLUME_RATE", ShapeGeneric, FieldVolumeRate, false},
	TickLastRTHTrade:           {"LAST_RTH_TRADE", ShapePrice, FieldLastRTHTrade, false},
	TickDelayedBid:             {"DELAYED_BID", ShapePrice, FieldBid, true},
	TickDelayedAsk:             {"DELAYED_ASK", ShapePrice, FieldAsk, true},
	TickDelayedLast:            {"DELAYED_LAST", ShapePrice, FieldLast, true},
	TickDelayedBidSize:         {"DELAYED_BID_SIZE", ShapeSize, FieldBidSize, true},
	TickDelayedAskSize:         {"DELAYED_ASK_SIZE", ShapeSize, FieldAskSize, true},
	TickDelayedLastSize:        {"DELAYED_LAST_SIZE", ShapeSize, FieldLastSize, true},
	TickDelayedHigh:            {"DELAYED_HIGH", ShapePrice, FieldHigh, true},
	TickDelayedLow:             {"DELAYED_LOW", ShapePrice, FieldLow, true},
	TickDelayedVolume:          {"DELAYED_VOLUME", ShapeSize, FieldVolume, true},
	TickDelayedClose:           {"DELAYED_CLOSE", ShapePrice, FieldClose, true},
	TickDelayedOpen:            {"DELAYED_OPEN", ShapePrice, FieldOpen, true},
	TickDelayedBidOption:       {"DELAYED_BID_OPTION", ShapeGreeks, FieldBidGreeks, true},
	TickDelayedAskOption:       {"DELAYED_ASK_OPTION", ShapeGreeks, FieldAskGreeks, true},
	TickDelayedLastOption:      {"DELAYED_LAST_OPTION", ShapeGreeks, FieldLastGreeks, true},
	TickDelayedModelOption:     {"DELAYED_MODEL_OPTION", ShapeGreeks, FieldModelGreeks, true},
	TickLastExchange:           {"LAST_EXCH", ShapeString, FieldLastExchange, false},
	TickDelayedLastTimestamp:   {"DELAYED_LAST_TIMESTAMP", ShapeString, FieldLastTimestamp, true},
	TickShortableShares:        {"SHORTABLE_SHARES", ShapeSize, FieldShortableShares, false},
}

func (t TickType) String() string {
	if info, ok := tickTable[t]; ok {
		return info.name
	}
	return "TICK_" + strconv.Itoa(int(t))
}

// Known reports whether the tick type has a declared shape.
func (t TickType) Known() bool {
	_, ok := tickTable[t]
	return ok
}

func (t TickType) Shape() Shape {
	return tickTable[t].shape
}

// Field returns the semantic bucket, or "" for undeclared tick types.
func (t TickType) Field() Field {
	return tickTable[t].field
}

func (t TickType) Delayed() bool {
	return tickTable[t].delayed
}

type TickAttrib struct {
	CanAutoExecute bool
	PastLimit      bool
	PreOpen        bool
}

// OptionComputation is the greeks payload of an option computation tick.
type OptionComputation struct {
	TickAttrib int
	ImpliedVol float64
	Delta      float64
	OptPrice   float64
	PvDividend float64
	Gamma      float64
	Vega       float64
	Theta      float64
	UndPrice   float64
}

type TradeTick struct {
	Time              int64
	Price             float64
	Size              fixed.Point
	PastLimit         bool
	Unreported        bool
	Exchange          string
	SpecialConditions string
}

type QuoteTick struct {
	Time        int64
	BidPrice    float64
	AskPrice    float64
	BidSize     fixed.Point
	AskSize     fixed.Point
	BidPastLow  bool
	AskPastHigh bool
}

type MidTick struct {
	Time     int64
	MidPoint float64
}
