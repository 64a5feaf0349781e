package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peter-kozarec/ibridge/pkg/bus"
	"github.com/peter-kozarec/ibridge/pkg/gateway"
	"github.com/peter-kozarec/ibridge/pkg/gateway/gatewaytest"
	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/registry"
	"github.com/peter-kozarec/ibridge/pkg/reqid"
	"github.com/peter-kozarec/ibridge/pkg/stream"
	"github.com/peter-kozarec/ibridge/pkg/utility/fixed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const waitFor = 2 * time.Second

var aapl = model.NewStock("AAPL", "SMART", "USD")

func connect(t *testing.T, gw *gatewaytest.Gateway) *Client {
	t.Helper()
	cfg := NewConfig()
	cfg.Timeout = waitFor
	cfg.Account = "DU123456"
	c := New(gw, cfg, WithLogger(zap.NewNop()))
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Disconnect() })
	return c
}

func registered(t *testing.T, c *Client) int {
	t.Helper()
	s, err := c.current()
	require.NoError(t, err)
	return s.registry.Len()
}

func closed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-time.After(waitFor):
		return false
	}
}

func TestClient_Connect(t *testing.T) {
	gw := gatewaytest.New()
	gw.NextValidId = 100
	c := connect(t, gw)

	assert.True(t, c.IsConnected())
	assert.Equal(t, int64(1), gw.Config().ClientId)

	id, err := c.NextId()
	require.NoError(t, err)
	assert.Equal(t, reqid.Id(100), id)

	assert.Eventually(t, func() bool { return len(c.ManagedAccounts()) == 1 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []string{"DU123456"}, c.ManagedAccounts())

	session, err := c.SessionId()
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, session)

	assert.ErrorIs(t, c.Connect(context.Background()), ErrAlreadyConnected)
}

func TestClient_ConnectFailure(t *testing.T) {
	gw := gatewaytest.New()
	gw.Fail(gateway.OpStartApi, errors.New("refused"))
	c := New(gw, NewConfig())

	assert.Error(t, c.Connect(context.Background()))
	assert.False(t, c.IsConnected())

	_, err := c.ReqContractDetails(context.Background(), aapl)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClient_ConnectTimeoutLogsDisconnectFailure(t *testing.T) {
	gw := gatewaytest.New()
	gw.NextValidId = reqid.None
	gw.Fail(gatewaytest.OpDisconnect, errors.New("socket already closed"))

	core, logs := observer.New(zapcore.WarnLevel)
	cfg := NewConfig()
	cfg.Timeout = 50 * time.Millisecond
	c := New(gw, cfg, WithLogger(zap.New(core)))

	assert.ErrorIs(t, c.Connect(context.Background()), context.DeadlineExceeded)
	assert.False(t, c.IsConnected())

	entries := logs.FilterMessage("gateway disconnect failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "socket already closed", entries[0].ContextMap()["error"])
}

func TestClient_ReqHistoricalData(t *testing.T) {
	gw := gatewaytest.New()
	gw.Respond(gateway.OpReqHistoricalData, func(call gatewaytest.Call) []bus.Event {
		return []bus.Event{
			bus.HistoricalData{ReqId: call.Id, Bar: model.Bar{Date: "20240102", Close: 10}},
			bus.HistoricalData{ReqId: call.Id, Bar: model.Bar{Date: "20240103", Close: 11}},
			bus.HistoricalDataEnd{ReqId: call.Id},
		}
	})
	c := connect(t, gw)

	bars, err := c.ReqHistoricalData(context.Background(), aapl, model.HistoricalDataRequest{Duration: "2 D", BarSize: "1 day"})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "20240103", bars[1].Date)

	assert.Eventually(t, func() bool { return registered(t, c) == 0 }, waitFor, 5*time.Millisecond)
	assert.Zero(t, gw.Count(gateway.OpCancelHistoricalData))
}

func TestClient_OneShotGatewayError(t *testing.T) {
	gw := gatewaytest.New()
	gw.Respond(gateway.OpReqHistoricalData, func(call gatewaytest.Call) []bus.Event {
		return []bus.Event{bus.Error{ReqId: call.Id, Code: 162, Message: "no data"}}
	})
	c := connect(t, gw)

	_, err := c.ReqHistoricalData(context.Background(), aapl, model.HistoricalDataRequest{})
	var gwErr *model.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, 162, gwErr.Code)
}

func TestClient_OneShotContextCanceled(t *testing.T) {
	gw := gatewaytest.New()
	c := connect(t, gw)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.ReqHistoricalData(ctx, aapl, model.HistoricalDataRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, gw.Count(gateway.OpCancelHistoricalData))
	assert.Zero(t, registered(t, c))
}

func TestClient_OneShotIssueFailure(t *testing.T) {
	gw := gatewaytest.New()
	boom := errors.New("boom")
	gw.Fail(gateway.OpReqContractDetails, boom)
	c := connect(t, gw)

	_, err := c.ReqContractDetails(context.Background(), aapl)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, registered(t, c))
}

func TestClient_QualifyContract(t *testing.T) {
	tests := []struct {
		name    string
		details []model.ContractDetails
		code    int
		wantErr error
		want    int64
	}{
		{name: "single", details: []model.ContractDetails{{Contract: model.Contract{ConId: 265598, Symbol: "AAPL"}}}, want: 265598},
		{name: "none", wantErr: ErrContractNotFound},
		{name: "no security definition", code: model.CodeNoSecurityDefinition, wantErr: ErrContractNotFound},
		{name: "ambiguous", details: []model.ContractDetails{{}, {}}, wantErr: ErrAmbiguousContract},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := gatewaytest.New()
			gw.Respond(gateway.OpReqContractDetails, func(call gatewaytest.Call) []bus.Event {
				if tt.code != 0 {
					return []bus.Event{bus.Error{ReqId: call.Id, Code: tt.code, Message: "not found"}}
				}
				var events []bus.Event
				for _, d := range tt.details {
					events = append(events, bus.ContractDetails{ReqId: call.Id, Details: d})
				}
				return append(events, bus.ContractDetailsEnd{ReqId: call.Id})
			})
			c := connect(t, gw)

			contract, err := c.QualifyContract(context.Background(), aapl)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, contract.ConId)
		})
	}
}

func TestClient_Snapshot(t *testing.T) {
	gw := gatewaytest.New()
	gw.Respond(gateway.OpReqMktData, func(call gatewaytest.Call) []bus.Event {
		return []bus.Event{
			bus.TickPrice{ReqId: call.Id, Field: model.TickBid, Price: 99.5},
			bus.TickPrice{ReqId: call.Id, Field: model.TickAsk, Price: 100.5},
			bus.TickSnapshotEnd{ReqId: call.Id},
		}
	})
	c := connect(t, gw)

	ticker, err := c.Snapshot(context.Background(), aapl)
	require.NoError(t, err)
	assert.Equal(t, 99.5, ticker.Bid())
	assert.Equal(t, 100.5, ticker.Ask())

	call, ok := gw.Last(gateway.OpReqMktData)
	require.True(t, ok)
	assert.Equal(t, true, call.Args[2])
}

func TestClient_ReqPositions(t *testing.T) {
	gw := gatewaytest.New()
	gw.Respond(gateway.OpReqPositions, func(gatewaytest.Call) []bus.Event {
		return []bus.Event{
			bus.Position{Position: model.Position{Account: "DU123456", Contract: aapl, Size: fixed.FromInt64(10, 0)}},
			bus.PositionEnd{},
		}
	})
	c := connect(t, gw)

	positions, err := c.ReqPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.True(t, positions[0].Size.Eq(fixed.FromInt64(10, 0)))
	assert.Equal(t, 1, gw.Count(gateway.OpCancelPositions))
}

func TestClient_ReqPositionsUnscopedError(t *testing.T) {
	gw := gatewaytest.New()
	gw.Respond(gateway.OpReqPositions, func(gatewaytest.Call) []bus.Event {
		return []bus.Event{bus.Error{ReqId: reqid.None, Code: 321, Message: "error validating request"}}
	})
	c := connect(t, gw)

	_, err := c.ReqPositions(context.Background())
	var gwErr *model.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, 321, gwErr.Code)
}

func TestClient_ReqAccountValues(t *testing.T) {
	gw := gatewaytest.New()
	gw.Respond(gateway.OpReqAccountUpdates, func(call gatewaytest.Call) []bus.Event {
		if subscribe, _ := call.Args[0].(bool); !subscribe {
			return nil
		}
		return []bus.Event{
			bus.AccountValue{Value: model.AccountValue{Account: "DU123456", Key: "NetLiquidation", Value: "1000", Currency: "USD"}},
			bus.AccountValue{Value: model.AccountValue{Account: "DU123456", Key: "NetLiquidation", Value: "900", Currency: "EUR"}},
			bus.AccountDownloadEnd{Account: "DU123456"},
		}
	})
	c := connect(t, gw)

	snapshot, err := c.ReqAccountValues(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, snapshot.Values, 1)
	assert.Equal(t, "USD", snapshot.Values[0].Currency)
	assert.Equal(t, 2, gw.Count(gateway.OpReqAccountUpdates))
}

func TestClient_AccountKeyConflict(t *testing.T) {
	gw := gatewaytest.New()
	c := connect(t, gw)

	acct, err := c.SubscribeAccount("")
	require.NoError(t, err)
	assert.Equal(t, "DU123456", acct.Name())

	_, err = c.ReqAccountValues(context.Background(), "DU123456")
	assert.ErrorIs(t, err, registry.ErrDuplicateKey)

	acct.Cancel()
	last, ok := gw.Last(gateway.OpReqAccountUpdates)
	require.True(t, ok)
	assert.Equal(t, false, last.Args[0])
}

func TestClient_MarketDataStream(t *testing.T) {
	gw := gatewaytest.New()
	c := connect(t, gw)

	ticker, err := c.ReqMktData(aapl, "")
	require.NoError(t, err)

	require.NoError(t, gw.Emit(
		bus.TickPrice{ReqId: ticker.Id(), Field: model.TickBid, Price: 100},
		bus.TickPrice{ReqId: ticker.Id() + 1, Field: model.TickBid, Price: 1},
		bus.TickPrice{ReqId: ticker.Id(), Field: model.TickBid, Price: 100.5},
	))
	assert.Eventually(t, func() bool { return len(ticker.History(model.FieldBid)) == 2 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []float64{100, 100.5}, ticker.History(model.FieldBid))

	ticker.Cancel()
	ticker.Cancel()
	assert.Equal(t, 1, gw.Count(gateway.OpCancelMktData))
	assert.Equal(t, stream.Canceled, ticker.State())
	assert.Zero(t, registered(t, c))
}

func TestClient_StreamIssueFailure(t *testing.T) {
	gw := gatewaytest.New()
	gw.Fail(gateway.OpReqRealTimeBars, errors.New("pacing violation"))
	c := connect(t, gw)

	_, err := c.ReqRealTimeBars(aapl, 5, "TRADES", true)
	assert.Error(t, err)
	assert.Zero(t, registered(t, c))
}

func TestClient_DisconnectTearsDown(t *testing.T) {
	gw := gatewaytest.New()
	c := connect(t, gw)

	ticker, err := c.ReqMktData(aapl, "")
	require.NoError(t, err)

	result := make(chan error, 1)
	go func() {
		_, err := c.ReqHistoricalData(context.Background(), aapl, model.HistoricalDataRequest{})
		result <- err
	}()
	assert.Eventually(t, func() bool { return gw.Count(gateway.OpReqHistoricalData) == 1 }, waitFor, 5*time.Millisecond)

	require.NoError(t, c.Disconnect())

	select {
	case err := <-result:
		assert.ErrorIs(t, err, registry.ErrConnectionClosed)
	case <-time.After(waitFor):
		t.Fatal("pending request was not failed")
	}
	assert.True(t, closed(ticker.Done()))
	assert.False(t, c.IsConnected())
	assert.Zero(t, gw.Count(gateway.OpCancelMktData))

	_, err = c.NextId()
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClient_GatewayDrop(t *testing.T) {
	gw := gatewaytest.New()
	c := connect(t, gw)

	bars, err := c.ReqRealTimeBars(aapl, 5, "TRADES", true)
	require.NoError(t, err)

	require.NoError(t, gw.Drop(errors.New("socket reset")))

	assert.True(t, closed(bars.Done()))
	assert.ErrorIs(t, bars.Err(), registry.ErrConnectionClosed)
	assert.Eventually(t, func() bool { return !c.IsConnected() }, waitFor, 5*time.Millisecond)

	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.IsConnected())
}

func TestClient_PlaceOrder(t *testing.T) {
	gw := gatewaytest.New()
	gw.NextValidId = 50
	placed := false
	gw.Respond(gateway.OpPlaceOrder, func(call gatewaytest.Call) []bus.Event {
		if placed {
			return nil
		}
		placed = true
		return []bus.Event{bus.OrderStatus{ReqId: call.Id, Status: model.OrderStatusReport{OrderId: call.Id.Int64(), Status: model.Submitted}}}
	})
	c := connect(t, gw)

	order := model.NewLimitOrder("BUY", fixed.FromInt64(100, 0), 150)
	trade, err := c.PlaceOrder(aapl, order)
	require.NoError(t, err)

	assert.Equal(t, int64(50), trade.Order().OrderId)
	assert.Equal(t, "DU123456", trade.Order().Account)
	_, err = uuid.Parse(trade.Order().OrderRef)
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	status, err := trade.Acceptance().Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Submitted, status)

	modified := trade.Order()
	modified.LmtPrice = 151
	again, err := c.PlaceOrder(aapl, modified)
	require.NoError(t, err)
	assert.Same(t, trade, again)
	assert.Equal(t, 151.0, trade.Order().LmtPrice)
	assert.Equal(t, 2, gw.Count(gateway.OpPlaceOrder))

	require.NoError(t, c.CancelOrder(trade))
	assert.Equal(t, model.PendingCancel, trade.Status())
	call, ok := gw.Last(gateway.OpCancelOrder)
	require.True(t, ok)
	assert.Equal(t, reqid.Id(50), call.Id)
}

func TestClient_OrderRejected(t *testing.T) {
	gw := gatewaytest.New()
	gw.Respond(gateway.OpPlaceOrder, func(call gatewaytest.Call) []bus.Event {
		return []bus.Event{bus.Error{ReqId: call.Id, Code: model.CodeOrderRejected, Message: "rejected"}}
	})
	c := connect(t, gw)

	trade, err := c.PlaceOrder(aapl, model.NewMarketOrder("SELL", fixed.FromInt64(1, 0)))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	_, err = trade.Acceptance().Value(ctx)
	var gwErr *model.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, model.CodeOrderRejected, gwErr.Code)
	assert.Eventually(t, func() bool { return trade.Status() == model.Inactive }, waitFor, 5*time.Millisecond)
}

func TestClient_FilledTradeReleased(t *testing.T) {
	gw := gatewaytest.New()
	gw.NextValidId = 70
	gw.Respond(gateway.OpPlaceOrder, func(call gatewaytest.Call) []bus.Event {
		return []bus.Event{
			bus.ExecDetails{ReqId: reqid.None, Execution: model.Execution{ExecId: "x70", OrderId: call.Id.Int64(), Shares: fixed.FromInt64(5, 0)}},
			bus.OrderStatus{ReqId: call.Id, Status: model.OrderStatusReport{OrderId: call.Id.Int64(), Status: model.Filled, Filled: fixed.FromInt64(5, 0)}},
			bus.CommissionReport{Report: model.CommissionReport{ExecId: "x70", Commission: 0.5}},
		}
	})
	c := connect(t, gw)

	trade, err := c.PlaceOrder(aapl, model.NewMarketOrder("BUY", fixed.FromInt64(5, 0)))
	require.NoError(t, err)

	assert.True(t, closed(trade.Done()))
	assert.Equal(t, 0, registered(t, c))
	assert.Equal(t, model.Filled, trade.Status())
	require.Len(t, trade.Fills(), 1)
	assert.Equal(t, 0.5, trade.Fills()[0].CommissionReport.Commission)
}

func TestClient_ErrorsChannel(t *testing.T) {
	gw := gatewaytest.New()
	c := connect(t, gw)

	require.NoError(t, gw.Emit(bus.Error{ReqId: reqid.None, Code: 2104, Message: "market data farm connection is OK"}))

	select {
	case gwErr := <-c.Errors():
		assert.Equal(t, 2104, gwErr.Code)
		assert.True(t, gwErr.IsWarning())
	case <-time.After(waitFor):
		t.Fatal("warning not forwarded")
	}
}
