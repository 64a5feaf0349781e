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

// OptionChain accumulates option parameters per exchange and trading class.
// Each delta is the merged chain for the key that changed.
type OptionChain struct {
	*Stream[model.OptionChain]

	mu           sync.RWMutex
	chains       []model.OptionChain
	complete     chan struct{}
	completeOnce sync.Once
}

func NewOptionChain(logger *zap.Logger, id reqid.Id) *OptionChain {
	return &OptionChain{
		Stream:   newStream[model.OptionChain](logger, id),
		complete: make(chan struct{}),
	}
}

func (c *OptionChain) Kinds() []bus.Kind {
	return []bus.Kind{bus.SecDefOptParamsKind, bus.SecDefOptParamsEndKind}
}

func (c *OptionChain) Handle(_ context.Context, ev bus.Event) {
	if !c.Active() || ev.RequestId() != c.Id() {
		return
	}

	switch e := ev.(type) {
	case bus.SecDefOptParams:
		c.publish(c.merge(e.Chain))
	case bus.SecDefOptParamsEnd:
		c.completeOnce.Do(func() { close(c.complete) })
	}
}

func (c *OptionChain) merge(chain model.OptionChain) model.OptionChain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chains = model.MergeChains(c.chains, chain)
	for _, ch := range c.chains {
		if ch.Key() == chain.Key() {
			return ch
		}
	}
	return chain
}

// Complete is closed once the gateway sent the end of the parameter set.
func (c *OptionChain) Complete() <-chan struct{} {
	return c.complete
}

func (c *OptionChain) Chains() []model.OptionChain {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.chains)
}

// Expirations returns the union of expirations over every exchange.
func (c *OptionChain) Expirations() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var all model.OptionChain
	for _, ch := range c.chains {
		all = all.Merge(model.OptionChain{Expirations: ch.Expirations})
	}
	return all.Expirations
}

func (c *OptionChain) Strikes() []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var all model.OptionChain
	for _, ch := range c.chains {
		all = all.Merge(model.OptionChain{Strikes: ch.Strikes})
	}
	return all.Strikes
}
