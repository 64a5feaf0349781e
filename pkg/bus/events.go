package bus

import (
	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/reqid"
	"github.com/peter-kozarec/ibridge/pkg/utility/fixed"
)

// Event is one decoded inbound callback.
type Event interface {
	Kind() Kind
	// RequestId is reqid.None for callbacks the gateway does not scope to a request.
	RequestId() reqid.Id
}

type unscoped struct{}

func (unscoped) RequestId() reqid.Id { return reqid.None }

type TickPrice struct {
	ReqId  reqid.Id
	Field  model.TickType
	Price  float64
	Attrib model.TickAttrib
}

type TickSize struct {
	ReqId reqid.Id
	Field model.TickType
	Size  fixed.Point
}

type TickString struct {
	ReqId reqid.Id
	Field model.TickType
	Value string
}

type TickGeneric struct {
	ReqId reqid.Id
	Field model.TickType
	Value float64
}

type TickOptionComputation struct {
	ReqId       reqid.Id
	Field       model.TickType
	Computation model.OptionComputation
}

type TickSnapshotEnd struct {
	ReqId reqid.Id
}

type HistoricalData struct {
	ReqId reqid.Id
	Bar   model.Bar
}

type HistoricalDataEnd struct {
	ReqId reqid.Id
	Start string
	End   string
}

type HistoricalDataUpdate struct {
	ReqId reqid.Id
	Bar   model.Bar
}

type RealTimeBar struct {
	ReqId reqid.Id
	Bar   model.Bar
}

type TickByTickLast struct {
	ReqId reqid.Id
	Tick  model.TradeTick
}

type TickByTickBidAsk struct {
	ReqId reqid.Id
	Tick  model.QuoteTick
}

type TickByTickMid struct {
	ReqId reqid.Id
	Tick  model.MidTick
}

type HistoricalTicks struct {
	ReqId reqid.Id
	Ticks []model.HistoricalTick
	Done  bool
}

type HistoricalTicksEnd struct {
	ReqId reqid.Id
}

type ContractDetails struct {
	ReqId   reqid.Id
	Details model.ContractDetails
}

type ContractDetailsEnd struct {
	ReqId reqid.Id
}

type Position struct {
	unscoped
	Position model.Position
}

type PositionEnd struct{ unscoped }

// OpenOrder and OrderStatus are scoped by order id, which shares the request id space.
type OpenOrder struct {
	ReqId    reqid.Id
	Contract model.Contract
	Order    model.Order
	State    model.OrderState
}

type OrderStatus struct {
	ReqId  reqid.Id
	Status model.OrderStatusReport
}

type ExecDetails struct {
	ReqId     reqid.Id
	Contract  model.Contract
	Execution model.Execution
}

type ExecDetailsEnd struct {
	ReqId reqid.Id
}

type CommissionReport struct {
	unscoped
	Report model.CommissionReport
}

type AccountValue struct {
	unscoped
	Value model.AccountValue
}

type PortfolioValue struct {
	unscoped
	Item model.PortfolioItem
}

type AccountDownloadEnd struct {
	unscoped
	Account string
}

type ScannerData struct {
	ReqId reqid.Id
	Data  model.ScanData
}

type ScannerDataEnd struct {
	ReqId reqid.Id
}

type SecDefOptParams struct {
	ReqId reqid.Id
	Chain model.OptionChain
}

type SecDefOptParamsEnd struct {
	ReqId reqid.Id
}

// Error carries ReqId reqid.None for connection-wide errors.
type Error struct {
	ReqId   reqid.Id
	Code    int
	Message string
}

func (e Error) Err() *model.GatewayError {
	return &model.GatewayError{RequestId: e.ReqId.Int64(), Code: e.Code, Message: e.Message}
}

type NextValidId struct {
	unscoped
	OrderId reqid.Id
}

type ManagedAccounts struct {
	unscoped
	Accounts []string
}

type ConnectionClosed struct {
	unscoped
	Reason error
}

func (TickPrice) Kind() Kind             { return TickPriceKind }
func (TickSize) Kind() Kind              { return TickSizeKind }
func (TickString) Kind() Kind            { return TickStringKind }
func (TickGeneric) Kind() Kind           { return TickGenericKind }
func (TickOptionComputation) Kind() Kind { return TickOptionComputationKind }
func (TickSnapshotEnd) Kind() Kind       { return TickSnapshotEndKind }
func (HistoricalData) Kind() Kind        { return HistoricalDataKind }
func (HistoricalDataEnd) Kind() Kind     { return HistoricalDataEndKind }
func (HistoricalDataUpdate) Kind() Kind  { return HistoricalDataUpdateKind }
func (RealTimeBar) Kind() Kind           { return RealTimeBarKind }
func (TickByTickLast) Kind() Kind        { return TickByTickLastKind }
func (TickByTickBidAsk) Kind() Kind      { return TickByTickBidAskKind }
func (TickByTickMid) Kind() Kind         { return TickByTickMidKind }
func (HistoricalTicks) Kind() Kind       { return HistoricalTicksKind }
func (HistoricalTicksEnd) Kind() Kind    { return HistoricalTicksEndKind }
func (ContractDetails) Kind() Kind       { return ContractDetailsKind }
func (ContractDetailsEnd) Kind() Kind    { return ContractDetailsEndKind }
func (Position) Kind() Kind              { return PositionKind }
func (PositionEnd) Kind() Kind           { return PositionEndKind }
func (OpenOrder) Kind() Kind             { return OpenOrderKind }
func (OrderStatus) Kind() Kind           { return OrderStatusKind }
func (ExecDetails) Kind() Kind           { return ExecDetailsKind }
func (ExecDetailsEnd) Kind() Kind        { return ExecDetailsEndKind }
func (CommissionReport) Kind() Kind      { return CommissionReportKind }
func (AccountValue) Kind() Kind          { return AccountValueKind }
func (PortfolioValue) Kind() Kind        { return PortfolioValueKind }
func (AccountDownloadEnd) Kind() Kind    { return AccountDownloadEndKind }
func (ScannerData) Kind() Kind           { return ScannerDataKind }
func (ScannerDataEnd) Kind() Kind        { return ScannerDataEndKind }
func (SecDefOptParams) Kind() Kind       { return SecDefOptParamsKind }
func (SecDefOptParamsEnd) Kind() Kind    { return SecDefOptParamsEndKind }
func (Error) Kind() Kind                 { return ErrorKind }
func (NextValidId) Kind() Kind           { return NextValidIdKind }
func (ManagedAccounts) Kind() Kind       { return ManagedAccountsKind }
func (ConnectionClosed) Kind() Kind      { return ConnectionClosedKind }

func (e TickSnapshotEnd) RequestId() reqid.Id       { return e.ReqId }
func (e HistoricalTicksEnd) RequestId() reqid.Id    { return e.ReqId }
func (e ContractDetailsEnd) RequestId() reqid.Id    { return e.ReqId }
func (e ExecDetailsEnd) RequestId() reqid.Id        { return e.ReqId }
func (e ScannerDataEnd) RequestId() reqid.Id        { return e.ReqId }
func (e SecDefOptParamsEnd) RequestId() reqid.Id    { return e.ReqId }
func (e TickPrice) RequestId() reqid.Id             { return e.ReqId }
func (e TickSize) RequestId() reqid.Id              { return e.ReqId }
func (e TickString) RequestId() reqid.Id            { return e.ReqId }
func (e TickGeneric) RequestId() reqid.Id           { return e.ReqId }
func (e TickOptionComputation) RequestId() reqid.Id { return e.ReqId }
func (e HistoricalData) RequestId() reqid.Id        { return e.ReqId }
func (e HistoricalDataEnd) RequestId() reqid.Id     { return e.ReqId }
func (e HistoricalDataUpdate) RequestId() reqid.Id  { return e.ReqId }
func (e RealTimeBar) RequestId() reqid.Id           { return e.ReqId }
func (e TickByTickLast) RequestId() reqid.Id        { return e.ReqId }
func (e TickByTickBidAsk) RequestId() reqid.Id      { return e.ReqId }
func (e TickByTickMid) RequestId() reqid.Id         { return e.ReqId }
func (e HistoricalTicks) RequestId() reqid.Id       { return e.ReqId }
func (e ContractDetails) RequestId() reqid.Id       { return e.ReqId }
func (e OpenOrder) RequestId() reqid.Id             { return e.ReqId }
func (e OrderStatus) RequestId() reqid.Id           { return e.ReqId }
func (e ExecDetails) RequestId() reqid.Id           { return e.ReqId }
func (e ScannerData) RequestId() reqid.Id           { return e.ReqId }
func (e SecDefOptParams) RequestId() reqid.Id       { return e.ReqId }
func (e Error) RequestId() reqid.Id                 { return e.ReqId }
