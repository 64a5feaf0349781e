package middleware

import (
	"context"

	"github.com/peter-kozarec/ibridge/pkg/bus"
	"go.uber.org/zap"
)

type MonitorFlags uint16

//goland:noinspection GoUnusedConst
const (
	MonitorNone MonitorFlags = 1 << iota
	MonitorAll
	MonitorTicks
	MonitorBars
	MonitorContracts
	MonitorOrders
	MonitorAccount
	MonitorScanner
	MonitorOptions
	MonitorErrors
	MonitorConnection
)

func flagsOf(kind bus.Kind) MonitorFlags {
	switch kind {
	case bus.TickPriceKind, bus.TickSizeKind, bus.TickStringKind, bus.TickGenericKind,
		bus.TickOptionComputationKind, bus.TickSnapshotEndKind, bus.TickByTickLastKind,
		bus.TickByTickBidAskKind, bus.TickByTickMidKind, bus.HistoricalTicksKind, bus.HistoricalTicksEndKind:
		return MonitorTicks
	case bus.HistoricalDataKind, bus.HistoricalDataEndKind, bus.HistoricalDataUpdateKind, bus.RealTimeBarKind:
		return MonitorBars
	case bus.ContractDetailsKind, bus.ContractDetailsEndKind:
		return MonitorContracts
	case bus.OpenOrderKind, bus.OrderStatusKind, bus.ExecDetailsKind, bus.ExecDetailsEndKind, bus.CommissionReportKind:
		return MonitorOrders
	case bus.PositionKind, bus.PositionEndKind, bus.AccountValueKind, bus.PortfolioValueKind, bus.AccountDownloadEndKind:
		return MonitorAccount
	case bus.ScannerDataKind, bus.ScannerDataEndKind:
		return MonitorScanner
	case bus.SecDefOptParamsKind, bus.SecDefOptParamsEndKind:
		return MonitorOptions
	case bus.ErrorKind:
		return MonitorErrors
	case bus.NextValidIdKind, bus.ManagedAccountsKind, bus.ConnectionClosedKind:
		return MonitorConnection
	}
	return MonitorNone
}

// Monitor logs the events of the selected groups before handing them on.
type Monitor struct {
	logger *zap.Logger
	flags  MonitorFlags
}

func NewMonitor(logger *zap.Logger, flags MonitorFlags) *Monitor {
	return &Monitor{
		logger: logger,
		flags:  flags,
	}
}

func (m *Monitor) Enabled(kind bus.Kind) bool {
	return m.flags&MonitorAll != 0 || m.flags&flagsOf(kind) != 0
}

func (m *Monitor) Wrap(handler bus.Handler) bus.Handler {
	return func(ctx context.Context, ev bus.Event) {
		if m.Enabled(ev.Kind()) {
			m.logger.Info("event",
				zap.Stringer("kind", ev.Kind()),
				zap.Int64("req_id", ev.RequestId().Int64()),
				zap.Any("payload", ev))
		}
		handler(ctx, ev)
	}
}
