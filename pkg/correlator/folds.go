package correlator

import (
	"sort"

	"github.com/peter-kozarec/ibridge/pkg/bus"
	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/reqid"
)

// Append folds events of type E into a list through pick.
func Append[V any, E bus.Event](pick func(E) V) func([]V, bus.Event) []V {
	return func(acc []V, ev bus.Event) []V {
		if e, ok := ev.(E); ok {
			acc = append(acc, pick(e))
		}
		return acc
	}
}

func Bars(id reqid.Id) Spec[[]model.Bar] {
	return Spec[[]model.Bar]{
		Id:       id,
		Kinds:    []bus.Kind{bus.HistoricalDataKind},
		Terminal: bus.HistoricalDataEndKind,
		Fold:     Append(func(e bus.HistoricalData) model.Bar { return e.Bar }),
	}
}

// HistoricalTicks completes on the batch flagged Done or on an explicit end callback.
func HistoricalTicks(id reqid.Id) Spec[[]model.HistoricalTick] {
	return Spec[[]model.HistoricalTick]{
		Id:       id,
		Kinds:    []bus.Kind{bus.HistoricalTicksKind},
		Terminal: bus.HistoricalTicksEndKind,
		Fold: func(acc []model.HistoricalTick, ev bus.Event) []model.HistoricalTick {
			if e, ok := ev.(bus.HistoricalTicks); ok {
				acc = append(acc, e.Ticks...)
			}
			return acc
		},
		Completes: func(ev bus.Event) bool {
			e, ok := ev.(bus.HistoricalTicks)
			return ok && e.Done
		},
	}
}

func ContractDetails(id reqid.Id) Spec[[]model.ContractDetails] {
	return Spec[[]model.ContractDetails]{
		Id:       id,
		Kinds:    []bus.Kind{bus.ContractDetailsKind},
		Terminal: bus.ContractDetailsEndKind,
		Fold:     Append(func(e bus.ContractDetails) model.ContractDetails { return e.Details }),
	}
}

// Positions is id-less: the gateway sends one position stream per connection.
func Positions() Spec[[]model.Position] {
	return Spec[[]model.Position]{
		Id:       reqid.None,
		Key:      "positions",
		Kinds:    []bus.Kind{bus.PositionKind},
		Terminal: bus.PositionEndKind,
		Fold:     Append(func(e bus.Position) model.Position { return e.Position }),
	}
}

// Executions joins execution details with the commission reports that follow them.
// Reports the gateway sends after ExecDetailsEnd are not joined: the request has
// settled by then and the fill keeps a zero CommissionReport.
func Executions(id reqid.Id) Spec[[]model.Fill] {
	return Spec[[]model.Fill]{
		Id:       id,
		Kinds:    []bus.Kind{bus.ExecDetailsKind, bus.CommissionReportKind},
		Terminal: bus.ExecDetailsEndKind,
		Match: func(ev bus.Event) bool {
			return ev.Kind() == bus.CommissionReportKind || ev.RequestId() == id
		},
		Fold: func(acc []model.Fill, ev bus.Event) []model.Fill {
			switch e := ev.(type) {
			case bus.ExecDetails:
				acc = append(acc, model.Fill{Contract: e.Contract, Execution: e.Execution})
			case bus.CommissionReport:
				for i := range acc {
					if acc[i].Execution.ExecId == e.Report.ExecId {
						acc[i].CommissionReport = e.Report
					}
				}
			}
			return acc
		},
	}
}

// Scanner collects rows keyed by rank and returns them ordered by rank.
func Scanner(id reqid.Id) Spec[map[int]model.ScanData] {
	return Spec[map[int]model.ScanData]{
		Id:       id,
		Kinds:    []bus.Kind{bus.ScannerDataKind},
		Terminal: bus.ScannerDataEndKind,
		Init:     func() map[int]model.ScanData { return make(map[int]model.ScanData) },
		Fold: func(acc map[int]model.ScanData, ev bus.Event) map[int]model.ScanData {
			if e, ok := ev.(bus.ScannerData); ok {
				acc[e.Data.Rank] = e.Data
			}
			return acc
		},
	}
}

func Ranked(rows map[int]model.ScanData) []model.ScanData {
	out := make([]model.ScanData, 0, len(rows))
	for _, r := range rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

// OptionChains unions strikes and expirations per exchange and trading class.
func OptionChains(id reqid.Id) Spec[[]model.OptionChain] {
	return Spec[[]model.OptionChain]{
		Id:       id,
		Kinds:    []bus.Kind{bus.SecDefOptParamsKind},
		Terminal: bus.SecDefOptParamsEndKind,
		Fold: func(acc []model.OptionChain, ev bus.Event) []model.OptionChain {
			if e, ok := ev.(bus.SecDefOptParams); ok {
				acc = model.MergeChains(acc, e.Chain)
			}
			return acc
		},
	}
}

// AccountSnapshot is the result of an account download.
type AccountSnapshot struct {
	Values    []model.AccountValue
	Portfolio []model.PortfolioItem
}

// AccountValues is keyed by account name. Values outside filter are skipped.
// An empty account name accepts every account.
func AccountValues(account string, filter model.CurrencyFilter) Spec[AccountSnapshot] {
	return Spec[AccountSnapshot]{
		Id:       reqid.None,
		Key:      "account:" + account,
		Kinds:    []bus.Kind{bus.AccountValueKind, bus.PortfolioValueKind},
		Terminal: bus.AccountDownloadEndKind,
		Match: func(ev bus.Event) bool {
			switch e := ev.(type) {
			case bus.AccountValue:
				return matchAccount(account, e.Value.Account) && filter.Allows(e.Value.Currency)
			case bus.PortfolioValue:
				return matchAccount(account, e.Item.Account)
			case bus.AccountDownloadEnd:
				return matchAccount(account, e.Account)
			}
			return false
		},
		Fold: func(acc AccountSnapshot, ev bus.Event) AccountSnapshot {
			switch e := ev.(type) {
			case bus.AccountValue:
				acc.Values = append(acc.Values, e.Value)
			case bus.PortfolioValue:
				acc.Portfolio = append(acc.Portfolio, e.Item)
			}
			return acc
		},
	}
}

func matchAccount(want, got string) bool {
	return want == "" || want == got
}
