package stream

import (
	"context"
	"testing"

	"github.com/peter-kozarec/ibridge/pkg/bus"
	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/utility/fixed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func feedTicker(tk *Ticker, events ...bus.Event) {
	for _, ev := range events {
		tk.Handle(context.Background(), ev)
	}
}

func TestTicker_BidHistory(t *testing.T) {
	tk := NewTicker(zap.NewNop(), 1, model.Contract{Symbol: "AAPL"})

	for _, p := range []float64{100.0, 100.5, 100.25} {
		feedTicker(tk, bus.TickPrice{ReqId: 1, Field: model.TickBid, Price: p})
	}

	assert.Equal(t, []float64{100.0, 100.5, 100.25}, tk.History(model.FieldBid))
	assert.Equal(t, 100.25, tk.Bid())
	assert.Len(t, tk.Ticks(), 3)
}

func TestTicker_Retention(t *testing.T) {
	tk := NewTicker(zap.NewNop(), 1, model.Contract{}, WithRetention(2))

	for _, p := range []float64{1, 2, 3} {
		feedTicker(tk, bus.TickPrice{ReqId: 1, Field: model.TickLast, Price: p})
	}

	assert.Equal(t, []float64{2, 3}, tk.History(model.FieldLast))
	assert.Len(t, tk.Ticks(), 2)
	assert.Equal(t, 3.0, tk.Last())
}

func TestTicker_OpenFirstWriteWins(t *testing.T) {
	tk := NewTicker(zap.NewNop(), 1, model.Contract{})

	updates := 0
	tk.OnUpdate(func(TickerUpdate) { updates++ })

	feedTicker(tk,
		bus.TickPrice{ReqId: 1, Field: model.TickOpen, Price: 50.0},
		bus.TickPrice{ReqId: 1, Field: model.TickOpen, Price: 51.0},
	)

	assert.Equal(t, 50.0, tk.Open())
	assert.Equal(t, []float64{50.0}, tk.History(model.FieldOpen))
	assert.Equal(t, 1, updates)
}

func TestTicker_DelayedSharesBucket(t *testing.T) {
	tk := NewTicker(zap.NewNop(), 1, model.Contract{})

	feedTicker(tk,
		bus.TickPrice{ReqId: 1, Field: model.TickDelayedLast, Price: 10},
		bus.TickSize{ReqId: 1, Field: model.TickDelayedVolume, Size: fixed.FromInt64(1500, 0)},
	)

	assert.Equal(t, 10.0, tk.Last())
	assert.True(t, tk.Volume().Eq(fixed.FromInt64(1500, 0)))
}

func TestTicker_RoutesByDeclaredType(t *testing.T) {
	tk := NewTicker(zap.NewNop(), 1, model.Contract{})

	greeks := model.OptionComputation{Delta: 0.5, ImpliedVol: 0.2}
	feedTicker(tk,
		bus.TickOptionComputation{ReqId: 1, Field: model.TickModelOptionComputation, Computation: greeks},
		bus.TickGeneric{ReqId: 1, Field: model.TickHalted, Value: 1},
		bus.TickString{ReqId: 1, Field: model.TickLastTimestamp, Value: "1700000000"},
		bus.TickSize{ReqId: 1, Field: model.TickBidSize, Size: fixed.FromInt64(300, 0)},
	)

	got, ok := tk.Greeks(model.FieldModelGreeks)
	require.True(t, ok)
	assert.Equal(t, greeks, got)
	assert.True(t, tk.Halted())
	assert.Equal(t, "1700000000", tk.LastTimestamp())
	assert.True(t, tk.BidSize().Eq(fixed.FromInt64(300, 0)))
}

func TestTicker_ShapeMismatchDropped(t *testing.T) {
	tk := NewTicker(zap.NewNop(), 1, model.Contract{})

	feedTicker(tk,
		// BID is declared as a price tick, a size payload must not land in a bucket
		bus.TickSize{ReqId: 1, Field: model.TickBid, Size: fixed.FromInt64(7, 0)},
		// BID_SIZE delivered as a price
		bus.TickPrice{ReqId: 1, Field: model.TickBidSize, Price: 7},
		bus.TickPrice{ReqId: 1, Field: model.TickType(999), Price: 7},
	)

	_, ok := tk.Price(model.FieldBid)
	assert.False(t, ok)
	assert.True(t, tk.BidSize().IsUnset())
	assert.Empty(t, tk.Ticks())
}

func TestTicker_IgnoresOtherIds(t *testing.T) {
	tk := NewTicker(zap.NewNop(), 1, model.Contract{})
	feedTicker(tk, bus.TickPrice{ReqId: 2, Field: model.TickBid, Price: 1})
	assert.Empty(t, tk.History(model.FieldBid))
}

func TestTicker_TickByTick(t *testing.T) {
	tk := NewTicker(zap.NewNop(), 1, model.Contract{})

	feedTicker(tk,
		bus.TickByTickLast{ReqId: 1, Tick: model.TradeTick{Time: 1, Price: 10.5, Size: fixed.FromInt64(100, 0)}},
		bus.TickByTickBidAsk{ReqId: 1, Tick: model.QuoteTick{Time: 2, BidPrice: 10.4, AskPrice: 10.6}},
		bus.TickByTickMid{ReqId: 1, Tick: model.MidTick{Time: 3, MidPoint: 10.5}},
	)

	assert.Len(t, tk.Trades(), 1)
	assert.Len(t, tk.Quotes(), 1)
	assert.Len(t, tk.Mids(), 1)
	assert.Equal(t, 10.5, tk.Last())
	assert.InDelta(t, 10.5, tk.Midpoint(), 1e-9)
}
