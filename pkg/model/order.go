package model

import (
	"time"

	"github.com/peter-kozarec/ibridge/pkg/utility/fixed"
	"go.uber.org/zap"
)

type OrderStatus string

const (
	PendingSubmit OrderStatus = "PendingSubmit"
	PendingCancel OrderStatus = "PendingCancel"
	PreSubmitted  OrderStatus = "PreSubmitted"
	Submitted     OrderStatus = "Submitted"
	ApiPending    OrderStatus = "ApiPending"
	ApiCancelled  OrderStatus = "ApiCancelled"
	Cancelled     OrderStatus = "Cancelled"
	Filled        OrderStatus = "Filled"
	Inactive      OrderStatus = "Inactive"
)

// IsAccepted reports whether the gateway took the order in.
func (s OrderStatus) IsAccepted() bool {
	switch s {
	case PreSubmitted, Submitted, Filled:
		return true
	}
	return false
}

func (s OrderStatus) IsCanceled() bool {
	return s == Cancelled || s == ApiCancelled
}

func (s OrderStatus) IsDone() bool {
	switch s {
	case Filled, Cancelled, ApiCancelled, Inactive:
		return true
	}
	return false
}

type Order struct {
	OrderId       int64
	ClientId      int64
	PermId        int64
	ParentId      int64
	Action        string
	TotalQuantity fixed.Point
	OrderType     string
	LmtPrice      float64
	AuxPrice      float64
	Tif           string
	Account       string
	OrderRef      string
	OutsideRth    bool
	Transmit      bool
}

func NewMarketOrder(action string, quantity fixed.Point) Order {
	return Order{Action: action, TotalQuantity: quantity, OrderType: "MKT", Transmit: true}
}

func NewLimitOrder(action string, quantity fixed.Point, limitPrice float64) Order {
	return Order{Action: action, TotalQuantity: quantity, OrderType: "LMT", LmtPrice: limitPrice, Transmit: true}
}

func (o Order) Fields() []zap.Field {
	return []zap.Field{
		zap.Int64("order_id", o.OrderId),
		zap.Int64("client_id", o.ClientId),
		zap.String("action", o.Action),
		zap.String("quantity", o.TotalQuantity.String()),
		zap.String("order_type", o.OrderType),
		zap.Float64("lmt_price", o.LmtPrice),
		zap.String("order_ref", o.OrderRef),
	}
}

// OrderState is the open order state attached to an openOrder callback.
type OrderState struct {
	Status             OrderStatus
	Commission         float64
	CommissionCurrency string
	WarningText        string
}

// OrderStatusReport is the payload of an orderStatus callback.
type OrderStatusReport struct {
	OrderId       int64
	Status        OrderStatus
	Filled        fixed.Point
	Remaining     fixed.Point
	AvgFillPrice  float64
	PermId        int64
	ParentId      int64
	LastFillPrice float64
	ClientId      int64
	WhyHeld       string
	MktCapPrice   float64
}

type Execution struct {
	ExecId   string
	OrderId  int64
	ClientId int64
	PermId   int64
	Time     string
	Account  string
	Exchange string
	Side     string
	Shares   fixed.Point
	Price    float64
	CumQty   fixed.Point
	AvgPrice float64
	OrderRef string
}

type CommissionReport struct {
	ExecId              string
	Commission          float64
	Currency            string
	RealizedPNL         float64
	Yield               float64
	YieldRedemptionDate int64
}

// Fill is an execution joined with its commission report, if one arrived.
type Fill struct {
	Contract         Contract
	Execution        Execution
	CommissionReport CommissionReport
	Time             time.Time
}

type ExecutionFilter struct {
	ClientId int64
	Account  string
	Time     string
	Symbol   string
	SecType  string
	Exchange string
	Side     string
}
