package stream

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/peter-kozarec/ibridge/pkg/bus"
	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/reqid"
	"github.com/peter-kozarec/ibridge/pkg/utility/circular"
	"github.com/peter-kozarec/ibridge/pkg/utility/fixed"
	"go.uber.org/zap"
)

// TickRecord is one accepted tick, routed by its declared tick type.
type TickRecord struct {
	Time   time.Time
	Type   model.TickType
	Field  model.Field
	Shape  model.Shape
	Price  float64
	Size   fixed.Point
	Text   string
	Value  float64
	Greeks model.OptionComputation
}

// TickerUpdate carries exactly one of its fields.
type TickerUpdate struct {
	Tick  *TickRecord
	Trade *model.TradeTick
	Quote *model.QuoteTick
	Mid   *model.MidTick
}

var tickerKinds = []bus.Kind{
	bus.TickPriceKind,
	bus.TickSizeKind,
	bus.TickStringKind,
	bus.TickGenericKind,
	bus.TickOptionComputationKind,
	bus.TickByTickLastKind,
	bus.TickByTickBidAskKind,
	bus.TickByTickMidKind,
}

// DefaultRetention bounds every history and tick log of a ticker.
const DefaultRetention = 4096

type TickerOption func(*Ticker)

// WithRetention keeps the last n values of each history and tick log.
func WithRetention(n uint) TickerOption {
	return func(t *Ticker) {
		t.retention = max(n, 1)
	}
}

// Ticker is the live quote view of one market data subscription.
type Ticker struct {
	*Stream[TickerUpdate]

	contract  model.Contract
	now       func() time.Time
	retention uint

	mu           sync.RWMutex
	prices       map[model.Field]float64
	sizes        map[model.Field]fixed.Point
	texts        map[model.Field]string
	generics     map[model.Field]float64
	greeks       map[model.Field]model.OptionComputation
	priceHistory map[model.Field]*circular.Buffer[float64]
	sizeHistory  map[model.Field]*circular.Buffer[fixed.Point]
	ticks        *circular.Buffer[TickRecord]
	trades       *circular.Buffer[model.TradeTick]
	quotes       *circular.Buffer[model.QuoteTick]
	mids         *circular.Buffer[model.MidTick]
	updated      time.Time
}

func NewTicker(logger *zap.Logger, id reqid.Id, contract model.Contract, opts ...TickerOption) *Ticker {
	t := &Ticker{
		Stream:       newStream[TickerUpdate](logger, id),
		contract:     contract,
		now:          time.Now,
		retention:    DefaultRetention,
		prices:       make(map[model.Field]float64),
		sizes:        make(map[model.Field]fixed.Point),
		texts:        make(map[model.Field]string),
		generics:     make(map[model.Field]float64),
		greeks:       make(map[model.Field]model.OptionComputation),
		priceHistory: make(map[model.Field]*circular.Buffer[float64]),
		sizeHistory:  make(map[model.Field]*circular.Buffer[fixed.Point]),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.ticks = circular.NewBuffer[TickRecord](t.retention)
	t.trades = circular.NewBuffer[model.TradeTick](t.retention)
	t.quotes = circular.NewBuffer[model.QuoteTick](t.retention)
	t.mids = circular.NewBuffer[model.MidTick](t.retention)
	return t
}

func history[T any](m map[model.Field]*circular.Buffer[T], field model.Field, capacity uint) *circular.Buffer[T] {
	b, ok := m[field]
	if !ok {
		b = circular.NewBuffer[T](capacity)
		m[field] = b
	}
	return b
}

func data[T any](b *circular.Buffer[T]) []T {
	if b == nil {
		return nil
	}
	return b.Data()
}

func (t *Ticker) Contract() model.Contract {
	return t.contract
}

func (t *Ticker) Kinds() []bus.Kind {
	return tickerKinds
}

func (t *Ticker) Handle(_ context.Context, ev bus.Event) {
	if !t.Active() || ev.RequestId() != t.Id() {
		return
	}
	if u, ok := t.Apply(ev); ok {
		t.publish(u)
	}
}

// Apply folds ev into the ticker state without checking its id or state.
func (t *Ticker) Apply(ev bus.Event) (TickerUpdate, bool) {
	switch e := ev.(type) {
	case bus.TickPrice:
		return t.applyTick(e.Field, model.ShapePrice, TickRecord{Price: e.Price})
	case bus.TickSize:
		return t.applyTick(e.Field, model.ShapeSize, TickRecord{Size: e.Size})
	case bus.TickString:
		return t.applyTick(e.Field, model.ShapeString, TickRecord{Text: e.Value})
	case bus.TickGeneric:
		return t.applyTick(e.Field, model.ShapeGeneric, TickRecord{Value: e.Value})
	case bus.TickOptionComputation:
		return t.applyTick(e.Field, model.ShapeGreeks, TickRecord{Greeks: e.Computation})
	case bus.TickByTickLast:
		t.mu.Lock()
		t.trades.Push(e.Tick)
		t.prices[model.FieldLast] = e.Tick.Price
		t.sizes[model.FieldLastSize] = e.Tick.Size
		t.updated = t.now()
		t.mu.Unlock()
		return TickerUpdate{Trade: &e.Tick}, true
	case bus.TickByTickBidAsk:
		t.mu.Lock()
		t.quotes.Push(e.Tick)
		t.prices[model.FieldBid] = e.Tick.BidPrice
		t.prices[model.FieldAsk] = e.Tick.AskPrice
		t.sizes[model.FieldBidSize] = e.Tick.BidSize
		t.sizes[model.FieldAskSize] = e.Tick.AskSize
		t.updated = t.now()
		t.mu.Unlock()
		return TickerUpdate{Quote: &e.Tick}, true
	case bus.TickByTickMid:
		t.mu.Lock()
		t.mids.Push(e.Tick)
		t.updated = t.now()
		t.mu.Unlock()
		return TickerUpdate{Mid: &e.Tick}, true
	}
	return TickerUpdate{}, false
}

func (t *Ticker) applyTick(typ model.TickType, shape model.Shape, rec TickRecord) (TickerUpdate, bool) {
	if !typ.Known() {
		t.logger.Debug("undeclared tick type dropped",
			zap.Int64("req_id", t.Id().Int64()),
			zap.Int("tick_type", int(typ)))
		return TickerUpdate{}, false
	}
	if typ.Shape() != shape {
		t.logger.Warn("tick shape mismatch dropped",
			zap.Int64("req_id", t.Id().Int64()),
			zap.Stringer("tick_type", typ),
			zap.Stringer("declared", typ.Shape()),
			zap.Stringer("received", shape))
		return TickerUpdate{}, false
	}

	field := typ.Field()

	t.mu.Lock()
	defer t.mu.Unlock()

	switch shape {
	case model.ShapePrice:
		if _, seen := t.prices[field]; seen && field == model.FieldOpen {
			return TickerUpdate{}, false
		}
		t.prices[field] = rec.Price
		history(t.priceHistory, field, t.retention).Push(rec.Price)
	case model.ShapeSize:
		t.sizes[field] = rec.Size
		history(t.sizeHistory, field, t.retention).Push(rec.Size)
	case model.ShapeString:
		t.texts[field] = rec.Text
	case model.ShapeGeneric:
		t.generics[field] = rec.Value
	case model.ShapeGreeks:
		t.greeks[field] = rec.Greeks
	}

	rec.Time = t.now()
	rec.Type = typ
	rec.Field = field
	rec.Shape = shape
	t.ticks.Push(rec)
	t.updated = rec.Time

	return TickerUpdate{Tick: &rec}, true
}

// Price returns the latest value of a price field.
func (t *Ticker) Price(field model.Field) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.prices[field]
	return v, ok
}

func (t *Ticker) price(field model.Field) float64 {
	if v, ok := t.Price(field); ok {
		return v
	}
	return math.NaN()
}

func (t *Ticker) Bid() float64   { return t.price(model.FieldBid) }
func (t *Ticker) Ask() float64   { return t.price(model.FieldAsk) }
func (t *Ticker) Last() float64  { return t.price(model.FieldLast) }
func (t *Ticker) Open() float64  { return t.price(model.FieldOpen) }
func (t *Ticker) High() float64  { return t.price(model.FieldHigh) }
func (t *Ticker) Low() float64   { return t.price(model.FieldLow) }
func (t *Ticker) Close() float64 { return t.price(model.FieldClose) }
func (t *Ticker) Mark() float64  { return t.price(model.FieldMark) }

// Midpoint is NaN until both sides are quoted.
func (t *Ticker) Midpoint() float64 {
	return (t.Bid() + t.Ask()) / 2
}

func (t *Ticker) Size(field model.Field) fixed.Point {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if v, ok := t.sizes[field]; ok {
		return v
	}
	return fixed.Unset
}

func (t *Ticker) BidSize() fixed.Point  { return t.Size(model.FieldBidSize) }
func (t *Ticker) AskSize() fixed.Point  { return t.Size(model.FieldAskSize) }
func (t *Ticker) LastSize() fixed.Point { return t.Size(model.FieldLastSize) }
func (t *Ticker) Volume() fixed.Point   { return t.Size(model.FieldVolume) }

func (t *Ticker) Text(field model.Field) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.texts[field]
}

func (t *Ticker) LastTimestamp() string {
	return t.Text(model.FieldLastTimestamp)
}

func (t *Ticker) Generic(field model.Field) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.generics[field]
	return v, ok
}

func (t *Ticker) Halted() bool {
	v, ok := t.Generic(model.FieldHalted)
	return ok && v > 0
}

func (t *Ticker) Greeks(field model.Field) (model.OptionComputation, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.greeks[field]
	return v, ok
}

// History returns the retained values of a price field, oldest first.
func (t *Ticker) History(field model.Field) []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return data(t.priceHistory[field])
}

func (t *Ticker) SizeHistory(field model.Field) []fixed.Point {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return data(t.sizeHistory[field])
}

func (t *Ticker) Ticks() []TickRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ticks.Data()
}

func (t *Ticker) Trades() []model.TradeTick {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.trades.Data()
}

func (t *Ticker) Quotes() []model.QuoteTick {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.quotes.Data()
}

func (t *Ticker) Mids() []model.MidTick {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mids.Data()
}

func (t *Ticker) Updated() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.updated
}
