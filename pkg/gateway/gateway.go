package gateway

import (
	"context"
	"errors"
	"net"
	"strconv"

	"github.com/peter-kozarec/ibridge/pkg/bus"
	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/reqid"
)

var ErrNotConnected = errors.New("gateway not connected")

// Config is passed through to the gateway unmodified.
type Config struct {
	Host     string
	Port     int
	ClientId int64
}

func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Sink receives decoded callbacks in arrival order.
type Sink interface {
	Post(ctx context.Context, ev bus.Event) error
}

// Client issues outbound requests. Answers arrive later through the Sink given to Connect.
type Client interface {
	Connect(ctx context.Context, cfg Config, sink Sink) error
	Disconnect() error
	IsConnected() bool

	ReqMktData(id reqid.Id, contract model.Contract, genericTicks string, snapshot bool) error
	CancelMktData(id reqid.Id) error
	ReqTickByTickData(id reqid.Id, contract model.Contract, tickType string, numberOfTicks int, ignoreSize bool) error
	CancelTickByTickData(id reqid.Id) error
	ReqHistoricalData(id reqid.Id, contract model.Contract, req model.HistoricalDataRequest, keepUpToDate bool) error
	CancelHistoricalData(id reqid.Id) error
	ReqHistoricalTicks(id reqid.Id, contract model.Contract, req model.HistoricalTicksRequest) error
	ReqRealTimeBars(id reqid.Id, contract model.Contract, barSize int, whatToShow string, useRTH bool) error
	CancelRealTimeBars(id reqid.Id) error
	ReqContractDetails(id reqid.Id, contract model.Contract) error
	ReqSecDefOptParams(id reqid.Id, underlyingSymbol, futFopExchange, underlyingSecType string, underlyingConId int64) error
	ReqScannerSubscription(id reqid.Id, sub model.ScannerSubscription) error
	CancelScannerSubscription(id reqid.Id) error
	PlaceOrder(id reqid.Id, contract model.Contract, order model.Order) error
	CancelOrder(id reqid.Id) error
	ReqPositions() error
	CancelPositions() error
	ReqAccountUpdates(subscribe bool, account string) error
	ReqExecutions(id reqid.Id, filter model.ExecutionFilter) error
}

// Outbound operation names, shared by the bridge wire format and the test gateway.
const (
	OpStartApi                  = "startApi"
	OpReqMktData                = "reqMktData"
	OpCancelMktData             = "cancelMktData"
	OpReqTickByTickData         = "reqTickByTickData"
	OpCancelTickByTickData      = "cancelTickByTickData"
	OpReqHistoricalData         = "reqHistoricalData"
	OpCancelHistoricalData      = "cancelHistoricalData"
	OpReqHistoricalTicks        = "reqHistoricalTicks"
	OpReqRealTimeBars           = "reqRealTimeBars"
	OpCancelRealTimeBars        = "cancelRealTimeBars"
	OpReqContractDetails        = "reqContractDetails"
	OpReqSecDefOptParams        = "reqSecDefOptParams"
	OpReqScannerSubscription    = "reqScannerSubscription"
	OpCancelScannerSubscription = "cancelScannerSubscription"
	OpPlaceOrder                = "placeOrder"
	OpCancelOrder               = "cancelOrder"
	OpReqPositions              = "reqPositions"
	OpCancelPositions           = "cancelPositions"
	OpReqAccountUpdates         = "reqAccountUpdates"
	OpReqExecutions             = "reqExecutions"
)
