package model

import (
	"slices"
)

// OptionChain is the option parameter set for one exchange and trading class.
type OptionChain struct {
	Exchange        string
	UnderlyingConId int64
	TradingClass    string
	Multiplier      string
	Expirations     []string
	Strikes         []float64
}

// Key identifies a chain within a parameter set.
func (c OptionChain) Key() string {
	return c.Exchange + "/" + c.TradingClass
}

// Merge unions expirations and strikes of o into c. Both stay sorted without duplicates.
func (c OptionChain) Merge(o OptionChain) OptionChain {
	out := c
	out.Expirations = union(c.Expirations, o.Expirations)
	out.Strikes = union(c.Strikes, o.Strikes)
	if out.Multiplier == "" {
		out.Multiplier = o.Multiplier
	}
	if out.UnderlyingConId == 0 {
		out.UnderlyingConId = o.UnderlyingConId
	}
	return out
}

// MergeChains folds chain into chains, unioning with an existing entry of the same key.
func MergeChains(chains []OptionChain, chain OptionChain) []OptionChain {
	for i := range chains {
		if chains[i].Key() == chain.Key() {
			chains[i] = chains[i].Merge(chain)
			return chains
		}
	}
	return append(chains, chain.Merge(OptionChain{}))
}

func union[T string | float64](a, b []T) []T {
	out := make([]T, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}
