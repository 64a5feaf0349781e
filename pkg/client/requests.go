package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/peter-kozarec/ibridge/pkg/bus"
	"github.com/peter-kozarec/ibridge/pkg/correlator"
	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/registry"
	"github.com/peter-kozarec/ibridge/pkg/stream"
	"go.uber.org/zap"
)

var (
	ErrContractNotFound  = errors.New("contract not found")
	ErrAmbiguousContract = errors.New("ambiguous contract")
)

// await registers a one-shot correlator, issues its request and blocks for the result.
// When ctx ends first the request is released, which issues cancel when given.
func await[T any](ctx context.Context, c *Client, s *session, corr *correlator.Correlator[T], cancel registry.CancelFunc, issue func() error) (T, error) {
	var zero T

	key := registry.IdKey(corr.Id())
	if corr.Key() != "" {
		key = registry.AltKey(corr.Key())
	}

	if _, ok := ctx.Deadline(); !ok {
		var done context.CancelFunc
		ctx, done = context.WithTimeout(ctx, c.cfg.Timeout)
		defer done()
	}

	if err := s.registry.Register(key, corr, cancel); err != nil {
		return zero, err
	}
	if err := issue(); err != nil {
		s.registry.Drop(key, err)
		return zero, fmt.Errorf("unable to issue request %s: %w", key, err)
	}

	res, err := corr.Promise().Await(ctx)
	if err != nil {
		if s.registry.Release(key) {
			c.logger.Debug("request abandoned", zap.Stringer("key", key), zap.Error(err))
		}
		return zero, err
	}
	return res.Unwrap()
}

func (c *Client) ReqHistoricalData(ctx context.Context, contract model.Contract, req model.HistoricalDataRequest) ([]model.Bar, error) {
	s, err := c.current()
	if err != nil {
		return nil, err
	}
	id := s.ids.Next()
	return await(ctx, c, s, correlator.New(correlator.Bars(id)),
		func() error { return c.gateway.CancelHistoricalData(id) },
		func() error { return c.gateway.ReqHistoricalData(id, contract, req, false) })
}

func (c *Client) ReqHistoricalTicks(ctx context.Context, contract model.Contract, req model.HistoricalTicksRequest) ([]model.HistoricalTick, error) {
	s, err := c.current()
	if err != nil {
		return nil, err
	}
	id := s.ids.Next()
	return await(ctx, c, s, correlator.New(correlator.HistoricalTicks(id)), nil,
		func() error { return c.gateway.ReqHistoricalTicks(id, contract, req) })
}

func (c *Client) ReqContractDetails(ctx context.Context, contract model.Contract) ([]model.ContractDetails, error) {
	s, err := c.current()
	if err != nil {
		return nil, err
	}
	id := s.ids.Next()
	return await(ctx, c, s, correlator.New(correlator.ContractDetails(id)), nil,
		func() error { return c.gateway.ReqContractDetails(id, contract) })
}

// QualifyContract resolves contract to the single contract the gateway knows for it.
func (c *Client) QualifyContract(ctx context.Context, contract model.Contract) (model.Contract, error) {
	details, err := c.ReqContractDetails(ctx, contract)
	if err != nil {
		var gwErr *model.GatewayError
		if errors.As(err, &gwErr) && gwErr.Code == model.CodeNoSecurityDefinition {
			return model.Contract{}, fmt.Errorf("%w: %s", ErrContractNotFound, contract.Symbol)
		}
		return model.Contract{}, err
	}

	switch len(details) {
	case 0:
		return model.Contract{}, fmt.Errorf("%w: %s", ErrContractNotFound, contract.Symbol)
	case 1:
		return details[0].Contract, nil
	default:
		return model.Contract{}, fmt.Errorf("%w: %s matches %d contracts", ErrAmbiguousContract, contract.Symbol, len(details))
	}
}

func (c *Client) ReqSecDefOptParams(ctx context.Context, underlyingSymbol, futFopExchange, underlyingSecType string, underlyingConId int64) ([]model.OptionChain, error) {
	s, err := c.current()
	if err != nil {
		return nil, err
	}
	id := s.ids.Next()
	return await(ctx, c, s, correlator.New(correlator.OptionChains(id)), nil,
		func() error {
			return c.gateway.ReqSecDefOptParams(id, underlyingSymbol, futFopExchange, underlyingSecType, underlyingConId)
		})
}

// ReqScannerData returns one scan ordered by rank and ends the scanner subscription.
func (c *Client) ReqScannerData(ctx context.Context, sub model.ScannerSubscription) ([]model.ScanData, error) {
	s, err := c.current()
	if err != nil {
		return nil, err
	}
	id := s.ids.Next()
	rows, err := await(ctx, c, s, correlator.New(correlator.Scanner(id)),
		func() error { return c.gateway.CancelScannerSubscription(id) },
		func() error { return c.gateway.ReqScannerSubscription(id, sub) })
	if err != nil {
		return nil, err
	}
	if err := c.gateway.CancelScannerSubscription(id); err != nil {
		c.logger.Warn("unable to cancel scanner subscription", zap.Stringer("req_id", id), zap.Error(err))
	}
	return correlator.Ranked(rows), nil
}

func (c *Client) ReqPositions(ctx context.Context) ([]model.Position, error) {
	s, err := c.current()
	if err != nil {
		return nil, err
	}
	positions, err := await(ctx, c, s, correlator.New(correlator.Positions()),
		c.gateway.CancelPositions,
		c.gateway.ReqPositions)
	if err != nil {
		return nil, err
	}
	if err := c.gateway.CancelPositions(); err != nil {
		c.logger.Warn("unable to cancel positions", zap.Error(err))
	}
	return positions, nil
}

// ReqAccountValues downloads one account snapshot. An empty account uses the configured one.
func (c *Client) ReqAccountValues(ctx context.Context, account string) (correlator.AccountSnapshot, error) {
	s, err := c.current()
	if err != nil {
		return correlator.AccountSnapshot{}, err
	}
	if account == "" {
		account = c.cfg.Account
	}
	unsubscribe := func() error { return c.gateway.ReqAccountUpdates(false, account) }

	snapshot, err := await(ctx, c, s, correlator.New(correlator.AccountValues(account, c.cfg.AccountCurrencies)),
		unsubscribe,
		func() error { return c.gateway.ReqAccountUpdates(true, account) })
	if err != nil {
		return correlator.AccountSnapshot{}, err
	}
	if err := unsubscribe(); err != nil {
		c.logger.Warn("unable to end account updates", zap.String("account", account), zap.Error(err))
	}
	return snapshot, nil
}

// ReqExecutions returns the executions matching filter. Commission reports that
// arrive after the end marker are missing from the result; trades returned by
// PlaceOrder keep collecting them until every fill has one.
func (c *Client) ReqExecutions(ctx context.Context, filter model.ExecutionFilter) ([]model.Fill, error) {
	s, err := c.current()
	if err != nil {
		return nil, err
	}
	id := s.ids.Next()
	return await(ctx, c, s, correlator.New(correlator.Executions(id)), nil,
		func() error { return c.gateway.ReqExecutions(id, filter) })
}

// Snapshot requests a one-off market data snapshot and returns it once the gateway marks it complete.
func (c *Client) Snapshot(ctx context.Context, contract model.Contract) (*stream.Ticker, error) {
	s, err := c.current()
	if err != nil {
		return nil, err
	}
	id := s.ids.Next()
	ticker := stream.NewTicker(c.logger, id, contract)

	corr := correlator.New(correlator.Spec[*stream.Ticker]{
		Id:       id,
		Kinds:    []bus.Kind{bus.TickPriceKind, bus.TickSizeKind, bus.TickStringKind, bus.TickGenericKind, bus.TickOptionComputationKind},
		Terminal: bus.TickSnapshotEndKind,
		Init:     func() *stream.Ticker { return ticker },
		Fold: func(t *stream.Ticker, ev bus.Event) *stream.Ticker {
			t.Apply(ev)
			return t
		},
	})
	return await(ctx, c, s, corr,
		func() error { return c.gateway.CancelMktData(id) },
		func() error { return c.gateway.ReqMktData(id, contract, "", true) })
}
