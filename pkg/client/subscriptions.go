package client

import (
	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/registry"
	"github.com/peter-kozarec/ibridge/pkg/stream"
)

type subscription interface {
	registry.Entry
	Bind(release func())
}

// subscribe registers a stream so that canceling it releases the subscription, then issues the request.
func (c *Client) subscribe(s *session, key registry.Key, sub subscription, cancel registry.CancelFunc, issue func() error) error {
	sub.Bind(func() { s.registry.Release(key) })

	if err := s.registry.Register(key, sub, cancel); err != nil {
		return err
	}
	if err := issue(); err != nil {
		s.registry.Drop(key, err)
		return err
	}
	return nil
}

func (c *Client) ReqMktData(contract model.Contract, genericTicks string) (*stream.Ticker, error) {
	s, err := c.current()
	if err != nil {
		return nil, err
	}
	id := s.ids.Next()
	ticker := stream.NewTicker(c.logger, id, contract)
	err = c.subscribe(s, registry.IdKey(id), ticker,
		func() error { return c.gateway.CancelMktData(id) },
		func() error { return c.gateway.ReqMktData(id, contract, genericTicks, false) })
	if err != nil {
		return nil, err
	}
	return ticker, nil
}

// ReqTickByTickData streams tick-by-tick data. tickType is one of Last, AllLast, BidAsk or MidPoint.
func (c *Client) ReqTickByTickData(contract model.Contract, tickType string, numberOfTicks int, ignoreSize bool) (*stream.Ticker, error) {
	s, err := c.current()
	if err != nil {
		return nil, err
	}
	id := s.ids.Next()
	ticker := stream.NewTicker(c.logger, id, contract)
	err = c.subscribe(s, registry.IdKey(id), ticker,
		func() error { return c.gateway.CancelTickByTickData(id) },
		func() error { return c.gateway.ReqTickByTickData(id, contract, tickType, numberOfTicks, ignoreSize) })
	if err != nil {
		return nil, err
	}
	return ticker, nil
}

func (c *Client) ReqRealTimeBars(contract model.Contract, barSize int, whatToShow string, useRTH bool) (*stream.Bars, error) {
	s, err := c.current()
	if err != nil {
		return nil, err
	}
	id := s.ids.Next()
	bars := stream.NewRealTimeBars(c.logger, id)
	err = c.subscribe(s, registry.IdKey(id), bars,
		func() error { return c.gateway.CancelRealTimeBars(id) },
		func() error { return c.gateway.ReqRealTimeBars(id, contract, barSize, whatToShow, useRTH) })
	if err != nil {
		return nil, err
	}
	return bars, nil
}

// ReqHistoricalDataUpToDate loads history and keeps the last bar updated. Loaded is closed once the history arrived.
func (c *Client) ReqHistoricalDataUpToDate(contract model.Contract, req model.HistoricalDataRequest) (*stream.Bars, error) {
	s, err := c.current()
	if err != nil {
		return nil, err
	}
	id := s.ids.Next()
	bars := stream.NewHistoricalBars(c.logger, id)
	err = c.subscribe(s, registry.IdKey(id), bars,
		func() error { return c.gateway.CancelHistoricalData(id) },
		func() error { return c.gateway.ReqHistoricalData(id, contract, req, true) })
	if err != nil {
		return nil, err
	}
	return bars, nil
}

func (c *Client) ReqScannerSubscription(sub model.ScannerSubscription) (*stream.Scanner, error) {
	s, err := c.current()
	if err != nil {
		return nil, err
	}
	id := s.ids.Next()
	scanner := stream.NewScanner(c.logger, id)
	err = c.subscribe(s, registry.IdKey(id), scanner,
		func() error { return c.gateway.CancelScannerSubscription(id) },
		func() error { return c.gateway.ReqScannerSubscription(id, sub) })
	if err != nil {
		return nil, err
	}
	return scanner, nil
}

// ReqOptionChain streams option chain parameters as they arrive. The gateway has no cancel for it.
func (c *Client) ReqOptionChain(underlyingSymbol, futFopExchange, underlyingSecType string, underlyingConId int64) (*stream.OptionChain, error) {
	s, err := c.current()
	if err != nil {
		return nil, err
	}
	id := s.ids.Next()
	chain := stream.NewOptionChain(c.logger, id)
	err = c.subscribe(s, registry.IdKey(id), chain, nil,
		func() error {
			return c.gateway.ReqSecDefOptParams(id, underlyingSymbol, futFopExchange, underlyingSecType, underlyingConId)
		})
	if err != nil {
		return nil, err
	}
	return chain, nil
}

// SubscribeAccount keeps account values and portfolio of account current.
// It shares the gateway subscription with ReqAccountValues, so the two cannot run at once.
func (c *Client) SubscribeAccount(account string) (*stream.Account, error) {
	s, err := c.current()
	if err != nil {
		return nil, err
	}
	if account == "" {
		account = c.cfg.Account
	}
	acct := stream.NewAccount(c.logger, account, c.cfg.AccountCurrencies)
	err = c.subscribe(s, registry.AltKey(accountKey(account)), acct,
		func() error { return c.gateway.ReqAccountUpdates(false, account) },
		func() error { return c.gateway.ReqAccountUpdates(true, account) })
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func accountKey(account string) string {
	return "account:" + account
}
