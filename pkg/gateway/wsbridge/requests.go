package wsbridge

import (
	"github.com/peter-kozarec/ibridge/pkg/gateway"
	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/reqid"
)

func (c *Client) ReqMktData(id reqid.Id, contract model.Contract, genericTicks string, snapshot bool) error {
	return c.send(gateway.OpReqMktData, id, map[string]any{
		"contract":     contractValue(contract),
		"genericTicks": genericTicks,
		"snapshot":     snapshot,
	})
}

func (c *Client) CancelMktData(id reqid.Id) error {
	return c.send(gateway.OpCancelMktData, id, nil)
}

func (c *Client) ReqTickByTickData(id reqid.Id, contract model.Contract, tickType string, numberOfTicks int, ignoreSize bool) error {
	return c.send(gateway.OpReqTickByTickData, id, map[string]any{
		"contract":      contractValue(contract),
		"tickType":      tickType,
		"numberOfTicks": numberOfTicks,
		"ignoreSize":    ignoreSize,
	})
}

func (c *Client) CancelTickByTickData(id reqid.Id) error {
	return c.send(gateway.OpCancelTickByTickData, id, nil)
}

func (c *Client) ReqHistoricalData(id reqid.Id, contract model.Contract, req model.HistoricalDataRequest, keepUpToDate bool) error {
	return c.send(gateway.OpReqHistoricalData, id, map[string]any{
		"contract":       contractValue(contract),
		"endDateTime":    req.EndDateTime,
		"durationStr":    req.Duration,
		"barSizeSetting": req.BarSize,
		"whatToShow":     req.WhatToShow,
		"useRTH":         req.UseRTH,
		"formatDate":     req.FormatDate,
		"keepUpToDate":   keepUpToDate,
	})
}

func (c *Client) CancelHistoricalData(id reqid.Id) error {
	return c.send(gateway.OpCancelHistoricalData, id, nil)
}

func (c *Client) ReqHistoricalTicks(id reqid.Id, contract model.Contract, req model.HistoricalTicksRequest) error {
	return c.send(gateway.OpReqHistoricalTicks, id, map[string]any{
		"contract":      contractValue(contract),
		"startDateTime": req.StartDateTime,
		"endDateTime":   req.EndDateTime,
		"numberOfTicks": req.NumberOfTicks,
		"whatToShow":    req.WhatToShow,
		"useRth":        req.UseRTH,
		"ignoreSize":    req.IgnoreSize,
	})
}

func (c *Client) ReqRealTimeBars(id reqid.Id, contract model.Contract, barSize int, whatToShow string, useRTH bool) error {
	return c.send(gateway.OpReqRealTimeBars, id, map[string]any{
		"contract":   contractValue(contract),
		"barSize":    barSize,
		"whatToShow": whatToShow,
		"useRTH":     useRTH,
	})
}

func (c *Client) CancelRealTimeBars(id reqid.Id) error {
	return c.send(gateway.OpCancelRealTimeBars, id, nil)
}

func (c *Client) ReqContractDetails(id reqid.Id, contract model.Contract) error {
	return c.send(gateway.OpReqContractDetails, id, map[string]any{
		"contract": contractValue(contract),
	})
}

func (c *Client) ReqSecDefOptParams(id reqid.Id, underlyingSymbol, futFopExchange, underlyingSecType string, underlyingConId int64) error {
	return c.send(gateway.OpReqSecDefOptParams, id, map[string]any{
		"underlyingSymbol":  underlyingSymbol,
		"futFopExchange":    futFopExchange,
		"underlyingSecType": underlyingSecType,
		"underlyingConId":   underlyingConId,
	})
}

func (c *Client) ReqScannerSubscription(id reqid.Id, sub model.ScannerSubscription) error {
	return c.send(gateway.OpReqScannerSubscription, id, map[string]any{
		"numberOfRows":    sub.NumberOfRows,
		"instrument":      sub.Instrument,
		"locationCode":    sub.LocationCode,
		"scanCode":        sub.ScanCode,
		"abovePrice":      sub.AbovePrice,
		"belowPrice":      sub.BelowPrice,
		"aboveVolume":     sub.AboveVolume,
		"marketCapAbove":  sub.MarketCapAbove,
		"marketCapBelow":  sub.MarketCapBelow,
		"stockTypeFilter": sub.StockTypeFilter,
	})
}

func (c *Client) CancelScannerSubscription(id reqid.Id) error {
	return c.send(gateway.OpCancelScannerSubscription, id, nil)
}

func (c *Client) PlaceOrder(id reqid.Id, contract model.Contract, order model.Order) error {
	return c.send(gateway.OpPlaceOrder, id, map[string]any{
		"contract": contractValue(contract),
		"order":    orderValue(order),
	})
}

func (c *Client) CancelOrder(id reqid.Id) error {
	return c.send(gateway.OpCancelOrder, id, nil)
}

func (c *Client) ReqPositions() error {
	return c.send(gateway.OpReqPositions, reqid.None, nil)
}

func (c *Client) CancelPositions() error {
	return c.send(gateway.OpCancelPositions, reqid.None, nil)
}

func (c *Client) ReqAccountUpdates(subscribe bool, account string) error {
	return c.send(gateway.OpReqAccountUpdates, reqid.None, map[string]any{
		"subscribe": subscribe,
		"acctCode":  account,
	})
}

func (c *Client) ReqExecutions(id reqid.Id, filter model.ExecutionFilter) error {
	return c.send(gateway.OpReqExecutions, id, map[string]any{
		"clientId": filter.ClientId,
		"acctCode": filter.Account,
		"time":     filter.Time,
		"symbol":   filter.Symbol,
		"secType":  filter.SecType,
		"exchange": filter.Exchange,
		"side":     filter.Side,
	})
}
