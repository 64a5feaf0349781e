package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peter-kozarec/ibridge/pkg/bus"
	"github.com/peter-kozarec/ibridge/pkg/future"
	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/utility/fixed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBars_KeepUpToDate(t *testing.T) {
	b := NewHistoricalBars(zap.NewNop(), 2)

	var deltas []BarUpdate
	b.OnUpdate(func(u BarUpdate) { deltas = append(deltas, u) })

	ctx := context.Background()
	b.Handle(ctx, bus.HistoricalData{ReqId: 2, Bar: model.Bar{Date: "09:30", Close: 1}})
	b.Handle(ctx, bus.HistoricalData{ReqId: 2, Bar: model.Bar{Date: "09:31", Close: 2}})
	b.Handle(ctx, bus.HistoricalDataEnd{ReqId: 2})
	b.Handle(ctx, bus.HistoricalDataUpdate{ReqId: 2, Bar: model.Bar{Date: "09:31", Close: 3}})
	b.Handle(ctx, bus.HistoricalDataUpdate{ReqId: 2, Bar: model.Bar{Date: "09:32", Close: 4}})

	select {
	case <-b.Loaded():
	default:
		t.Fatal("bars not loaded")
	}

	bars := b.Bars()
	require.Len(t, bars, 3)
	assert.Equal(t, 3.0, bars[1].Close)
	require.Len(t, deltas, 4)
	assert.True(t, deltas[2].Replaced)
	assert.Equal(t, 1, deltas[2].Index)
	assert.False(t, deltas[3].Replaced)

	last, ok := b.Last()
	require.True(t, ok)
	assert.Equal(t, "09:32", last.Date)
}

func TestBars_RealTime(t *testing.T) {
	b := NewRealTimeBars(zap.NewNop(), 5)
	assert.Equal(t, []bus.Kind{bus.RealTimeBarKind}, b.Kinds())

	b.Handle(context.Background(), bus.RealTimeBar{ReqId: 5, Bar: model.Bar{Date: "1"}})
	b.Handle(context.Background(), bus.RealTimeBar{ReqId: 6, Bar: model.Bar{Date: "x"}})
	b.Handle(context.Background(), bus.RealTimeBar{ReqId: 5, Bar: model.Bar{Date: "2"}})

	assert.Equal(t, 2, b.Len())
}

func TestScanner_Rounds(t *testing.T) {
	s := NewScanner(zap.NewNop(), 8)

	rounds := 0
	s.OnUpdate(func(ScanRound) { rounds++ })

	ctx := context.Background()
	s.Handle(ctx, bus.ScannerData{ReqId: 8, Data: model.ScanData{Rank: 1, Distance: "b"}})
	s.Handle(ctx, bus.ScannerData{ReqId: 8, Data: model.ScanData{Rank: 0, Distance: "a"}})
	assert.Empty(t, s.Current().Rows, "rows are visible only after the round ends")

	s.Handle(ctx, bus.ScannerDataEnd{ReqId: 8})
	cur := s.Current()
	require.Len(t, cur.Rows, 2)
	assert.Equal(t, "a", cur.Rows[0].Distance)

	s.Handle(ctx, bus.ScannerData{ReqId: 8, Data: model.ScanData{Rank: 0, Distance: "z"}})
	s.Handle(ctx, bus.ScannerDataEnd{ReqId: 8})

	cur = s.Current()
	assert.Equal(t, 2, cur.Round)
	require.Len(t, cur.Rows, 1)
	assert.Equal(t, "z", cur.Rows[0].Distance)
	assert.Equal(t, 2, rounds)
}

func TestOptionChain_Union(t *testing.T) {
	c := NewOptionChain(zap.NewNop(), 3)

	ctx := context.Background()
	c.Handle(ctx, bus.SecDefOptParams{ReqId: 3, Chain: model.OptionChain{Exchange: "SMART", TradingClass: "SPY", Strikes: []float64{410, 400}, Expirations: []string{"20260220"}}})
	c.Handle(ctx, bus.SecDefOptParams{ReqId: 3, Chain: model.OptionChain{Exchange: "CBOE", TradingClass: "SPY", Strikes: []float64{405}, Expirations: []string{"20260116"}}})
	c.Handle(ctx, bus.SecDefOptParamsEnd{ReqId: 3})

	select {
	case <-c.Complete():
	default:
		t.Fatal("chain not complete")
	}

	assert.Len(t, c.Chains(), 2)
	assert.Equal(t, []float64{400, 405, 410}, c.Strikes())
	assert.Equal(t, []string{"20260116", "20260220"}, c.Expirations())
}

func newTestTrade(id int64) *Trade {
	order := model.NewLimitOrder("BUY", fixed.FromInt64(100, 0), 150)
	order.OrderId = id
	return NewTrade(zap.NewNop(), model.NewStock("AAPL", "SMART", "USD"), order)
}

func TestTrade_Accepted(t *testing.T) {
	tr := newTestTrade(11)
	ctx := context.Background()

	tr.Handle(ctx, bus.OrderStatus{ReqId: 11, Status: model.OrderStatusReport{OrderId: 11, Status: model.PreSubmitted}})
	tr.Handle(ctx, bus.ExecDetails{ReqId: -1, Execution: model.Execution{ExecId: "e1", OrderId: 11, Shares: fixed.FromInt64(60, 0)}})
	tr.Handle(ctx, bus.ExecDetails{ReqId: -1, Execution: model.Execution{ExecId: "e1", OrderId: 11, Shares: fixed.FromInt64(60, 0)}})
	tr.Handle(ctx, bus.ExecDetails{ReqId: -1, Execution: model.Execution{ExecId: "e2", OrderId: 11, Shares: fixed.FromInt64(40, 0)}})
	tr.Handle(ctx, bus.CommissionReport{Report: model.CommissionReport{ExecId: "e2", Commission: 1}})
	tr.Handle(ctx, bus.OrderStatus{ReqId: 11, Status: model.OrderStatusReport{OrderId: 11, Status: model.Filled}})

	r := tr.Acceptance().Result()
	require.Equal(t, future.Fulfilled, r.Status)
	assert.Equal(t, model.PreSubmitted, r.Value)

	assert.True(t, tr.IsDone())
	assert.True(t, tr.Filled().Eq(fixed.FromInt64(100, 0)))
	fills := tr.Fills()
	require.Len(t, fills, 2)
	assert.Equal(t, 1.0, fills[1].CommissionReport.Commission)

	var statuses []model.OrderStatus
	for _, e := range tr.Log() {
		statuses = append(statuses, e.Status)
	}
	assert.Equal(t, []model.OrderStatus{model.PendingSubmit, model.PreSubmitted, model.Filled}, statuses)

	assert.False(t, tr.Finished(), "e1 still waits for its commission report")
	tr.Handle(ctx, bus.CommissionReport{Report: model.CommissionReport{ExecId: "e1", Commission: 1.5}})
	assert.True(t, tr.Finished())
}

func TestTrade_FinishedWaitsForReportedFills(t *testing.T) {
	tr := newTestTrade(16)
	ctx := context.Background()

	tr.Handle(ctx, bus.OrderStatus{ReqId: 16, Status: model.OrderStatusReport{OrderId: 16, Status: model.Filled, Filled: fixed.FromInt64(100, 0)}})
	assert.True(t, tr.IsDone())
	assert.False(t, tr.Finished())

	tr.Handle(ctx, bus.ExecDetails{ReqId: -1, Execution: model.Execution{ExecId: "e1", OrderId: 16, Shares: fixed.FromInt64(100, 0)}})
	assert.False(t, tr.Finished())
	tr.Handle(ctx, bus.CommissionReport{Report: model.CommissionReport{ExecId: "e1", Commission: 1}})
	assert.True(t, tr.Finished())
}

func TestTrade_CanceledByGateway(t *testing.T) {
	tr := newTestTrade(12)

	tr.Handle(context.Background(), bus.OrderStatus{ReqId: 12, Status: model.OrderStatusReport{OrderId: 12, Status: model.Cancelled}})
	assert.True(t, tr.HandleError(&model.GatewayError{RequestId: 12, Code: model.CodeOrderCanceled, Message: "Order Canceled"}))

	r := tr.Acceptance().Result()
	assert.Equal(t, future.Canceled, r.Status)
	assert.NoError(t, r.Err)
	assert.Equal(t, model.Cancelled, tr.Status())
	assert.Len(t, tr.Log(), 2)
}

func TestTrade_Rejected(t *testing.T) {
	tr := newTestTrade(13)

	assert.False(t, tr.HandleError(&model.GatewayError{RequestId: 14, Code: 201}))
	assert.True(t, tr.HandleError(&model.GatewayError{RequestId: 13, Code: model.CodeOrderRejected, Message: "Order rejected"}))

	r := tr.Acceptance().Result()
	require.Equal(t, future.Failed, r.Status)
	var ge *model.GatewayError
	require.True(t, errors.As(r.Err, &ge))
	assert.Equal(t, model.CodeOrderRejected, ge.Code)
	assert.Equal(t, model.Inactive, tr.Status())
	assert.True(t, tr.IsDone())
}

func TestTrade_InactiveWithoutError(t *testing.T) {
	tr := newTestTrade(21)

	tr.Handle(context.Background(), bus.OrderStatus{ReqId: 21, Status: model.OrderStatusReport{OrderId: 21, Status: model.Inactive, WhyHeld: "margin"}})

	assert.True(t, tr.IsDone())
	r := tr.Acceptance().Result()
	require.Equal(t, future.Failed, r.Status)
	assert.ErrorIs(t, r.Err, ErrOrderInactive)
	assert.ErrorContains(t, r.Err, "margin")
	assert.True(t, tr.Finished())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := tr.Acceptance().Value(ctx)
	assert.ErrorIs(t, err, ErrOrderInactive)
}

func TestTrade_ModifyAndTerminate(t *testing.T) {
	tr := newTestTrade(15)

	modified := tr.Order()
	modified.LmtPrice = 151
	tr.Modify(modified)
	assert.Equal(t, 151.0, tr.Order().LmtPrice)

	tr.MarkPendingCancel()
	assert.Equal(t, model.PendingCancel, tr.Status())

	closed := errors.New("connection closed")
	tr.Terminate(closed)
	assert.ErrorIs(t, tr.Acceptance().Result().Err, closed)
	assert.Equal(t, Canceled, tr.State())
}

func TestAccount_FilterAndPortfolio(t *testing.T) {
	a := NewAccount(zap.NewNop(), "DU1", model.CurrencyFilter{"USD"})
	ctx := context.Background()

	a.Handle(ctx, bus.AccountValue{Value: model.AccountValue{Account: "DU1", Key: "NetLiquidation", Value: "100", Currency: "USD"}})
	a.Handle(ctx, bus.AccountValue{Value: model.AccountValue{Account: "DU1", Key: "NetLiquidation", Value: "90", Currency: "EUR"}})
	a.Handle(ctx, bus.AccountValue{Value: model.AccountValue{Account: "DU2", Key: "NetLiquidation", Value: "1", Currency: "USD"}})
	a.Handle(ctx, bus.AccountValue{Value: model.AccountValue{Account: "DU1", Key: "NetLiquidation", Value: "101", Currency: "USD"}})
	a.Handle(ctx, bus.PortfolioValue{Item: model.PortfolioItem{Account: "DU1", Contract: model.Contract{ConId: 1}, Position: fixed.FromInt64(10, 0)}})
	a.Handle(ctx, bus.PortfolioValue{Item: model.PortfolioItem{Account: "DU1", Contract: model.Contract{ConId: 2}, Position: fixed.FromInt64(5, 0)}})
	a.Handle(ctx, bus.PortfolioValue{Item: model.PortfolioItem{Account: "DU1", Contract: model.Contract{ConId: 2}, Position: fixed.Zero}})
	a.Handle(ctx, bus.AccountDownloadEnd{Account: "DU1"})

	v, ok := a.Value("NetLiquidation", "USD")
	require.True(t, ok)
	assert.Equal(t, "101", v.Value)
	_, ok = a.Value("NetLiquidation", "EUR")
	assert.False(t, ok)
	assert.Len(t, a.Values(), 1)

	portfolio := a.Portfolio()
	require.Len(t, portfolio, 1)
	assert.Equal(t, int64(1), portfolio[0].Contract.ConId)

	select {
	case <-a.Downloaded():
	default:
		t.Fatal("account not downloaded")
	}
}
