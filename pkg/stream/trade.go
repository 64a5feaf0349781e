package stream

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/peter-kozarec/ibridge/pkg/bus"
	"github.com/peter-kozarec/ibridge/pkg/future"
	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/reqid"
	"github.com/peter-kozarec/ibridge/pkg/utility/fixed"
	"go.uber.org/zap"
)

// ErrOrderInactive fails the acceptance of an order the gateway made inactive
// without reporting an error for it.
var ErrOrderInactive = errors.New("order inactive")

type TradeLogEntry struct {
	Time      time.Time
	Status    model.OrderStatus
	Message   string
	ErrorCode int
}

// TradeUpdate carries the log entry of a status change, or a fill.
type TradeUpdate struct {
	Status model.OrderStatus
	Entry  *TradeLogEntry
	Fill   *model.Fill
}

// Trade tracks one order from placement to completion. Acceptance resolves
// once: accepted, canceled by the gateway, or failed. It is always settled by
// the time the order is done.
type Trade struct {
	*Stream[TradeUpdate]

	now        func() time.Time
	acceptance *future.Promise[model.OrderStatus]

	mu       sync.RWMutex
	contract model.Contract
	order    model.Order
	state    model.OrderState
	status   model.OrderStatusReport
	fills    []model.Fill
	log      []TradeLogEntry
}

func NewTrade(logger *zap.Logger, contract model.Contract, order model.Order) *Trade {
	t := &Trade{
		Stream:     newStream[TradeUpdate](logger, reqid.Id(order.OrderId)),
		now:        time.Now,
		acceptance: future.New[model.OrderStatus](),
		contract:   contract,
		order:      order,
		status: model.OrderStatusReport{
			OrderId:   order.OrderId,
			Status:    model.PendingSubmit,
			Filled:    fixed.Zero,
			Remaining: order.TotalQuantity,
		},
	}
	t.log = append(t.log, TradeLogEntry{Time: t.now(), Status: model.PendingSubmit})
	return t
}

func (t *Trade) Kinds() []bus.Kind {
	return []bus.Kind{bus.OpenOrderKind, bus.OrderStatusKind, bus.ExecDetailsKind, bus.CommissionReportKind}
}

// Acceptance settles with the status that accepted the order.
func (t *Trade) Acceptance() *future.Promise[model.OrderStatus] {
	return t.acceptance
}

func (t *Trade) Handle(_ context.Context, ev bus.Event) {
	if !t.Active() {
		return
	}

	switch e := ev.(type) {
	case bus.OpenOrder:
		if e.RequestId() != t.Id() {
			return
		}
		t.mu.Lock()
		t.order.PermId = e.Order.PermId
		t.order.ClientId = e.Order.ClientId
		t.state = e.State
		t.mu.Unlock()
		if e.State.Status != "" {
			t.setStatus(e.State.Status, "", 0)
		}
	case bus.OrderStatus:
		if e.RequestId() != t.Id() {
			return
		}
		t.mu.Lock()
		prev := t.status.Status
		t.status = e.Status
		t.order.PermId = e.Status.PermId
		t.mu.Unlock()
		if prev != e.Status.Status {
			t.setStatus(e.Status.Status, e.Status.WhyHeld, 0)
		}
	case bus.ExecDetails:
		if e.Execution.OrderId != t.Id().Int64() {
			return
		}
		if fill, ok := t.addFill(e); ok {
			t.publish(TradeUpdate{Status: t.Status(), Fill: &fill})
		}
	case bus.CommissionReport:
		if fill, ok := t.addCommission(e.Report); ok {
			t.publish(TradeUpdate{Status: t.Status(), Fill: &fill})
		}
	}
}

func (t *Trade) setStatus(status model.OrderStatus, message string, code int) {
	entry := TradeLogEntry{Time: t.now(), Status: status, Message: message, ErrorCode: code}

	t.mu.Lock()
	t.status.Status = status
	t.log = append(t.log, entry)
	t.mu.Unlock()

	switch {
	case status.IsAccepted():
		t.acceptance.Fulfill(status)
	case status.IsCanceled():
		t.acceptance.Cancel()
	case status.IsDone():
		if message == "" {
			t.acceptance.Fail(fmt.Errorf("%w: %s", ErrOrderInactive, status))
		} else {
			t.acceptance.Fail(fmt.Errorf("%w: %s: %s", ErrOrderInactive, status, message))
		}
	}
	t.publish(TradeUpdate{Status: status, Entry: &entry})
}

// Finished reports a done order whose executions all arrived with their
// commission reports. Nothing more is expected for it after that.
func (t *Trade) Finished() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.status.Status.IsDone() {
		return false
	}
	filled := fixed.Zero
	for _, f := range t.fills {
		if f.CommissionReport.ExecId == "" {
			return false
		}
		filled = filled.Add(f.Execution.Shares)
	}
	return t.status.Filled.IsUnset() || filled.Cmp(t.status.Filled) >= 0
}

func (t *Trade) addFill(e bus.ExecDetails) (model.Fill, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, f := range t.fills {
		if f.Execution.ExecId == e.Execution.ExecId {
			return model.Fill{}, false
		}
	}
	fill := model.Fill{Contract: e.Contract, Execution: e.Execution, Time: t.now()}
	t.fills = append(t.fills, fill)
	return fill, true
}

func (t *Trade) addCommission(report model.CommissionReport) (model.Fill, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.fills {
		if t.fills[i].Execution.ExecId == report.ExecId {
			t.fills[i].CommissionReport = report
			return t.fills[i], true
		}
	}
	return model.Fill{}, false
}

// HandleError applies gateway errors reported for the order id.
func (t *Trade) HandleError(err *model.GatewayError) bool {
	if reqid.Id(err.RequestId) != t.Id() {
		return false
	}

	t.Stream.HandleError(err)

	switch err.Code {
	case model.CodeOrderCanceled:
		if !t.Status().IsCanceled() {
			t.setStatus(model.Cancelled, err.Message, err.Code)
		}
		t.acceptance.Cancel()
	case model.CodeNoSecurityDefinition, model.CodeOrderRejected:
		t.acceptance.Fail(err)
		t.setStatus(model.Inactive, err.Message, err.Code)
	default:
		t.acceptance.Fail(err)
		t.mu.Lock()
		status := t.status.Status
		entry := TradeLogEntry{Time: t.now(), Status: status, Message: err.Message, ErrorCode: err.Code}
		t.log = append(t.log, entry)
		t.mu.Unlock()
		t.publish(TradeUpdate{Status: status, Entry: &entry})
	}
	return true
}

// Terminate ends tracking. A pending acceptance is canceled on nil, failed otherwise.
func (t *Trade) Terminate(err error) {
	t.Stream.Terminate(err)
	if err == nil {
		t.acceptance.Cancel()
		return
	}
	t.acceptance.Fail(err)
}

// Modify records a replacement order placed under the same id.
func (t *Trade) Modify(order model.Order) {
	t.mu.Lock()
	t.order = order
	entry := TradeLogEntry{Time: t.now(), Status: t.status.Status, Message: "Modify"}
	t.log = append(t.log, entry)
	t.mu.Unlock()
	t.publish(TradeUpdate{Status: entry.Status, Entry: &entry})
}

// MarkPendingCancel records a cancel request until the gateway confirms it.
func (t *Trade) MarkPendingCancel() {
	t.mu.RLock()
	done := t.status.Status.IsDone()
	t.mu.RUnlock()
	if !done {
		t.setStatus(model.PendingCancel, "", 0)
	}
}

func (t *Trade) Contract() model.Contract {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.contract
}

func (t *Trade) Order() model.Order {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.order
}

func (t *Trade) OrderState() model.OrderState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *Trade) Status() model.OrderStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status.Status
}

func (t *Trade) StatusReport() model.OrderStatusReport {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *Trade) IsDone() bool {
	return t.Status().IsDone()
}

func (t *Trade) Fills() []model.Fill {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.fills)
}

// Filled sums the shares of every execution.
func (t *Trade) Filled() fixed.Point {
	t.mu.RLock()
	defer t.mu.RUnlock()
	total := fixed.Zero
	for _, f := range t.fills {
		total = total.Add(f.Execution.Shares)
	}
	return total
}

func (t *Trade) Log() []TradeLogEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.log)
}
