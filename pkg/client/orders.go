package client

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/registry"
	"github.com/peter-kozarec/ibridge/pkg/reqid"
	"github.com/peter-kozarec/ibridge/pkg/stream"
	"go.uber.org/zap"
)

// PlaceOrder submits order and returns the trade tracking it. An order id that
// is already tracked modifies the existing trade. Tracking ends once the order
// is done and every execution has its commission report. Canceling the trade
// stops tracking only; use CancelOrder to cancel at the gateway.
func (c *Client) PlaceOrder(contract model.Contract, order model.Order) (*stream.Trade, error) {
	s, err := c.current()
	if err != nil {
		return nil, err
	}

	if order.OrderId == 0 {
		order.OrderId = s.ids.Next().Int64()
	}
	order.ClientId = c.cfg.ClientId
	if order.OrderRef == "" {
		order.OrderRef = uuid.NewString()
	}
	if order.Account == "" {
		order.Account = c.cfg.Account
	}

	id := reqid.Id(order.OrderId)
	key := registry.IdKey(id)

	if entry, ok := s.registry.Lookup(key); ok {
		trade, ok := entry.(*stream.Trade)
		if !ok {
			return nil, fmt.Errorf("%w: order id %s is used by another request", registry.ErrDuplicateKey, id)
		}
		if err := c.gateway.PlaceOrder(id, contract, order); err != nil {
			return nil, fmt.Errorf("unable to modify order: %w", err)
		}
		trade.Modify(order)
		c.logger.Info("order modified", order.Fields()...)
		return trade, nil
	}

	trade := stream.NewTrade(c.logger, contract, order)
	err = c.subscribe(s, key, trade, nil,
		func() error { return c.gateway.PlaceOrder(id, contract, order) })
	if err != nil {
		return nil, fmt.Errorf("unable to place order: %w", err)
	}
	c.logger.Info("order placed", append(order.Fields(), zap.String("symbol", contract.Symbol))...)
	return trade, nil
}

// CancelOrder asks the gateway to cancel the trade's order. The trade reports
// the outcome through its status updates.
func (c *Client) CancelOrder(trade *stream.Trade) error {
	if _, err := c.current(); err != nil {
		return err
	}
	if trade.IsDone() {
		return nil
	}
	if err := c.gateway.CancelOrder(trade.Id()); err != nil {
		return fmt.Errorf("unable to cancel order: %w", err)
	}
	trade.MarkPendingCancel()
	return nil
}
