package stream

import (
	"context"
	"slices"
	"sync"

	"github.com/peter-kozarec/ibridge/pkg/bus"
	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/reqid"
	"go.uber.org/zap"
)

type BarUpdate struct {
	Bar      model.Bar
	Index    int
	Replaced bool
}

// Bars is an append-only bar history. Historical bars kept up to date replace
// the last bar in place while its period is still open.
type Bars struct {
	*Stream[BarUpdate]

	kinds []bus.Kind

	mu       sync.RWMutex
	bars     []model.Bar
	loaded   chan struct{}
	loadOnce sync.Once
}

func newBars(logger *zap.Logger, id reqid.Id, kinds ...bus.Kind) *Bars {
	return &Bars{
		Stream: newStream[BarUpdate](logger, id),
		kinds:  kinds,
		loaded: make(chan struct{}),
	}
}

// NewRealTimeBars follows five second real-time bars.
func NewRealTimeBars(logger *zap.Logger, id reqid.Id) *Bars {
	b := newBars(logger, id, bus.RealTimeBarKind)
	b.loadOnce.Do(func() { close(b.loaded) })
	return b
}

// NewHistoricalBars follows a historical request with keep-up-to-date set.
func NewHistoricalBars(logger *zap.Logger, id reqid.Id) *Bars {
	return newBars(logger, id, bus.HistoricalDataKind, bus.HistoricalDataEndKind, bus.HistoricalDataUpdateKind)
}

func (b *Bars) Kinds() []bus.Kind {
	return b.kinds
}

// Loaded is closed once the initial historical download ended.
func (b *Bars) Loaded() <-chan struct{} {
	return b.loaded
}

func (b *Bars) Handle(_ context.Context, ev bus.Event) {
	if !b.Active() || ev.RequestId() != b.Id() {
		return
	}

	switch e := ev.(type) {
	case bus.HistoricalData:
		b.publish(b.append(e.Bar))
	case bus.RealTimeBar:
		b.publish(b.append(e.Bar))
	case bus.HistoricalDataUpdate:
		b.publish(b.update(e.Bar))
	case bus.HistoricalDataEnd:
		b.loadOnce.Do(func() { close(b.loaded) })
	}
}

func (b *Bars) append(bar model.Bar) BarUpdate {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bars = append(b.bars, bar)
	return BarUpdate{Bar: bar, Index: len(b.bars) - 1}
}

func (b *Bars) update(bar model.Bar) BarUpdate {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := len(b.bars); n > 0 && b.bars[n-1].Date == bar.Date {
		b.bars[n-1] = bar
		return BarUpdate{Bar: bar, Index: n - 1, Replaced: true}
	}
	b.bars = append(b.bars, bar)
	return BarUpdate{Bar: bar, Index: len(b.bars) - 1}
}

func (b *Bars) Bars() []model.Bar {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.bars)
}

func (b *Bars) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.bars)
}

// Last returns the most recent bar.
func (b *Bars) Last() (model.Bar, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.bars) == 0 {
		return model.Bar{}, false
	}
	return b.bars[len(b.bars)-1], true
}
