package model

import (
	"github.com/peter-kozarec/ibridge/pkg/utility/fixed"
	"go.uber.org/zap"
)

// Bar is a historical, updated or real-time bar. Date is kept as delivered by the gateway.
type Bar struct {
	Date     string
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   fixed.Point
	WAP      fixed.Point
	BarCount int64
}

func (b Bar) Fields() []zap.Field {
	return []zap.Field{
		zap.String("date", b.Date),
		zap.Float64("open", b.Open),
		zap.Float64("high", b.High),
		zap.Float64("low", b.Low),
		zap.Float64("close", b.Close),
		zap.String("volume", b.Volume.String()),
	}
}

type HistoricalDataRequest struct {
	EndDateTime string
	Duration    string
	BarSize     string
	WhatToShow  string
	UseRTH      bool
	FormatDate  int
}

type HistoricalTicksRequest struct {
	StartDateTime string
	EndDateTime   string
	NumberOfTicks int
	WhatToShow    string
	UseRTH        bool
	IgnoreSize    bool
}

// HistoricalTick covers the midpoint, bid/ask and last historical tick shapes.
type HistoricalTick struct {
	Time              int64
	Price             float64
	Size              fixed.Point
	BidPrice          float64
	AskPrice          float64
	BidSize           fixed.Point
	AskSize           fixed.Point
	Exchange          string
	SpecialConditions string
}
