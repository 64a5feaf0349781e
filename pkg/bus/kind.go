package bus

import "strconv"

// Kind names an inbound callback.
type Kind uint8

const (
	TickPriceKind Kind = iota
	TickSizeKind
	TickStringKind
	TickGenericKind
	TickOptionComputationKind
	TickSnapshotEndKind
	HistoricalDataKind
	HistoricalDataEndKind
	HistoricalDataUpdateKind
	RealTimeBarKind
	TickByTickLastKind
	TickByTickBidAskKind
	TickByTickMidKind
	HistoricalTicksKind
	HistoricalTicksEndKind
	ContractDetailsKind
	ContractDetailsEndKind
	PositionKind
	PositionEndKind
	OpenOrderKind
	OrderStatusKind
	ExecDetailsKind
	ExecDetailsEndKind
	CommissionReportKind
	AccountValueKind
	PortfolioValueKind
	AccountDownloadEndKind
	ScannerDataKind
	ScannerDataEndKind
	SecDefOptParamsKind
	SecDefOptParamsEndKind
	ErrorKind
	NextValidIdKind
	ManagedAccountsKind
	ConnectionClosedKind

	kindCount
)

var kindNames = [...]string{
	TickPriceKind:             "tickPrice",
	TickSizeKind:              "tickSize",
	TickStringKind:            "tickString",
	TickGenericKind:           "tickGeneric",
	TickOptionComputationKind: "tickOptionComputation",
	TickSnapshotEndKind:       "tickSnapshotEnd",
	HistoricalDataKind:        "historicalData",
	HistoricalDataEndKind:     "historicalDataEnd",
	HistoricalDataUpdateKind:  "historicalDataUpdate",
	RealTimeBarKind:           "realtimeBar",
	TickByTickLastKind:        "tickByTickAllLast",
	TickByTickBidAskKind:      "tickByTickBidAsk",
	TickByTickMidKind:         "tickByTickMidPoint",
	HistoricalTicksKind:       "historicalTicks",
	HistoricalTicksEndKind:    "historicalTicksEnd",
	ContractDetailsKind:       "contractDetails",
	ContractDetailsEndKind:    "contractDetailsEnd",
	PositionKind:              "position",
	PositionEndKind:           "positionEnd",
	OpenOrderKind:             "openOrder",
	OrderStatusKind:           "orderStatus",
	ExecDetailsKind:           "execDetails",
	ExecDetailsEndKind:        "execDetailsEnd",
	CommissionReportKind:      "commissionReport",
	AccountValueKind:          "updateAccountValue",
	PortfolioValueKind:        "updatePortfolio",
	AccountDownloadEndKind:    "accountDownloadEnd",
	ScannerDataKind:           "scannerData",
	ScannerDataEndKind:        "scannerDataEnd",
	SecDefOptParamsKind:       "securityDefinitionOptionParameter",
	SecDefOptParamsEndKind:    "securityDefinitionOptionParameterEnd",
	ErrorKind:                 "error",
	NextValidIdKind:           "nextValidId",
	ManagedAccountsKind:       "managedAccounts",
	ConnectionClosedKind:      "connectionClosed",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind resolves a callback name as returned by Kind.String.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}
