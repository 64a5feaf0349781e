// Package gatewaytest provides an in-memory gateway that records outbound
// requests and lets tests script the callbacks.
package gatewaytest

import (
	"context"
	"sync"

	"github.com/peter-kozarec/ibridge/pkg/bus"
	"github.com/peter-kozarec/ibridge/pkg/gateway"
	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/reqid"
)

type Call struct {
	Op   string
	Id   reqid.Id
	Args []any
}

// Responder returns the callbacks a request triggers.
type Responder func(call Call) []bus.Event

// OpDisconnect scripts Disconnect failures through Fail.
const OpDisconnect = "disconnect"

// Gateway announces NextValidId on Connect unless it is reqid.None.
type Gateway struct {
	NextValidId reqid.Id
	Accounts    []string

	mu         sync.Mutex
	sink       gateway.Sink
	cfg        gateway.Config
	connected  bool
	calls      []Call
	responders map[string]Responder
	failures   map[string]error
}

var _ gateway.Client = (*Gateway)(nil)

func New() *Gateway {
	return &Gateway{
		NextValidId: 1,
		Accounts:    []string{"DU123456"},
		responders:  make(map[string]Responder),
		failures:    make(map[string]error),
	}
}

// Respond scripts the callbacks emitted after each call of op.
func (g *Gateway) Respond(op string, fn Responder) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responders[op] = fn
}

// Fail makes every call of op return err. A nil err clears it.
func (g *Gateway) Fail(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.failures, op)
		return
	}
	g.failures[op] = err
}

// Emit delivers callbacks to the connected sink.
func (g *Gateway) Emit(events ...bus.Event) error {
	g.mu.Lock()
	sink := g.sink
	g.mu.Unlock()
	if sink == nil {
		return gateway.ErrNotConnected
	}
	for _, ev := range events {
		if err := sink.Post(context.Background(), ev); err != nil {
			return err
		}
	}
	return nil
}

// Drop simulates a connection loss reported by the gateway.
func (g *Gateway) Drop(reason error) error {
	g.mu.Lock()
	g.connected = false
	g.mu.Unlock()
	return g.Emit(bus.ConnectionClosed{Reason: reason})
}

func (g *Gateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Call, len(g.calls))
	copy(out, g.calls)
	return out
}

// Count returns how many times op was called.
func (g *Gateway) Count(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Last returns the most recent call of op.
func (g *Gateway) Last(op string) (Call, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.calls) - 1; i >= 0; i-- {
		if g.calls[i].Op == op {
			return g.calls[i], true
		}
	}
	return Call{}, false
}

func (g *Gateway) Config() gateway.Config {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg
}

func (g *Gateway) record(op string, id reqid.Id, args ...any) error {
	g.mu.Lock()
	if err, ok := g.failures[op]; ok {
		g.mu.Unlock()
		return err
	}
	if !g.connected {
		g.mu.Unlock()
		return gateway.ErrNotConnected
	}
	call := Call{Op: op, Id: id, Args: args}
	g.calls = append(g.calls, call)
	responder := g.responders[op]
	g.mu.Unlock()

	if responder != nil {
		return g.Emit(responder(call)...)
	}
	return nil
}

func (g *Gateway) Connect(_ context.Context, cfg gateway.Config, sink gateway.Sink) error {
	g.mu.Lock()
	if err, ok := g.failures[gateway.OpStartApi]; ok {
		g.mu.Unlock()
		return err
	}
	g.cfg = cfg
	g.sink = sink
	g.connected = true
	next, accounts := g.NextValidId, g.Accounts
	g.mu.Unlock()

	if next == reqid.None {
		return g.Emit(bus.ManagedAccounts{Accounts: accounts})
	}
	return g.Emit(
		bus.NextValidId{OrderId: next},
		bus.ManagedAccounts{Accounts: accounts},
	)
}

func (g *Gateway) Disconnect() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = false
	g.sink = nil
	return g.failures[OpDisconnect]
}

func (g *Gateway) IsConnected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

func (g *Gateway) ReqMktData(id reqid.Id, contract model.Contract, genericTicks string, snapshot bool) error {
	return g.record(gateway.OpReqMktData, id, contract, genericTicks, snapshot)
}

func (g *Gateway) CancelMktData(id reqid.Id) error {
	return g.record(gateway.OpCancelMktData, id)
}

func (g *Gateway) ReqTickByTickData(id reqid.Id, contract model.Contract, tickType string, numberOfTicks int, ignoreSize bool) error {
	return g.record(gateway.OpReqTickByTickData, id, contract, tickType, numberOfTicks, ignoreSize)
}

func (g *Gateway) CancelTickByTickData(id reqid.Id) error {
	return g.record(gateway.OpCancelTickByTickData, id)
}

func (g *Gateway) ReqHistoricalData(id reqid.Id, contract model.Contract, req model.HistoricalDataRequest, keepUpToDate bool) error {
	return g.record(gateway.OpReqHistoricalData, id, contract, req, keepUpToDate)
}

func (g *Gateway) CancelHistoricalData(id reqid.Id) error {
	return g.record(gateway.OpCancelHistoricalData, id)
}

func (g *Gateway) ReqHistoricalTicks(id reqid.Id, contract model.Contract, req model.HistoricalTicksRequest) error {
	return g.record(gateway.OpReqHistoricalTicks, id, contract, req)
}

func (g *Gateway) ReqRealTimeBars(id reqid.Id, contract model.Contract, barSize int, whatToShow string, useRTH bool) error {
	return g.record(gateway.OpReqRealTimeBars, id, contract, barSize, whatToShow, useRTH)
}

func (g *Gateway) CancelRealTimeBars(id reqid.Id) error {
	return g.record(gateway.OpCancelRealTimeBars, id)
}

func (g *Gateway) ReqContractDetails(id reqid.Id, contract model.Contract) error {
	return g.record(gateway.OpReqContractDetails, id, contract)
}

func (g *Gateway) ReqSecDefOptParams(id reqid.Id, underlyingSymbol, futFopExchange, underlyingSecType string, underlyingConId int64) error {
	return g.record(gateway.OpReqSecDefOptParams, id, underlyingSymbol, futFopExchange, underlyingSecType, underlyingConId)
}

func (g *Gateway) ReqScannerSubscription(id reqid.Id, sub model.ScannerSubscription) error {
	return g.record(gateway.OpReqScannerSubscription, id, sub)
}

func (g *Gateway) CancelScannerSubscription(id reqid.Id) error {
	return g.record(gateway.OpCancelScannerSubscription, id)
}

func (g *Gateway) PlaceOrder(id reqid.Id, contract model.Contract, order model.Order) error {
	return g.record(gateway.OpPlaceOrder, id, contract, order)
}

func (g *Gateway) CancelOrder(id reqid.Id) error {
	return g.record(gateway.OpCancelOrder, id)
}

func (g *Gateway) ReqPositions() error {
	return g.record(gateway.OpReqPositions, reqid.None)
}

func (g *Gateway) CancelPositions() error {
	return g.record(gateway.OpCancelPositions, reqid.None)
}

func (g *Gateway) ReqAccountUpdates(subscribe bool, account string) error {
	return g.record(gateway.OpReqAccountUpdates, reqid.None, subscribe, account)
}

func (g *Gateway) ReqExecutions(id reqid.Id, filter model.ExecutionFilter) error {
	return g.record(gateway.OpReqExecutions, id, filter)
}
