// Package client correlates asynchronous gateway callbacks into call/response
// results and live subscriptions.
package client

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/peter-kozarec/ibridge/pkg/bus"
	"github.com/peter-kozarec/ibridge/pkg/gateway"
	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/registry"
	"github.com/peter-kozarec/ibridge/pkg/reqid"
	"go.uber.org/zap"
)

var (
	ErrNotConnected     = errors.New("client not connected")
	ErrAlreadyConnected = errors.New("client already connected")
)

// session holds everything that lives exactly as long as one connection.
type session struct {
	id       uuid.UUID
	bus      *bus.Bus
	registry *registry.Registry
	ids      *reqid.Allocator

	stop context.CancelFunc
	exec <-chan error

	ready     chan struct{}
	readyOnce sync.Once

	mu       sync.Mutex
	accounts []string
}

type Client struct {
	logger     *zap.Logger
	gateway    gateway.Client
	cfg        Config
	middleware []bus.Middleware

	errs chan *model.GatewayError

	mu      sync.Mutex
	session *session
}

type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMiddleware wraps the event dispatch of every session, outermost first.
func WithMiddleware(mw ...bus.Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, mw...)
	}
}

func New(gw gateway.Client, cfg Config, opts ...Option) *Client {
	c := &Client{
		logger:  zap.NewNop(),
		gateway: gw,
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.Timeout <= 0 {
		c.cfg.Timeout = DefaultTimeout
	}
	if c.cfg.EventCapacity <= 0 {
		c.cfg.EventCapacity = DefaultEventCapacity
	}
	c.errs = make(chan *model.GatewayError, max(c.cfg.ErrorBuffer, 0))
	return c
}

func (c *Client) Config() Config {
	return c.cfg
}

// Errors yields gateway errors and warnings no request consumed. Errors are dropped while the channel is full.
func (c *Client) Errors() <-chan *model.GatewayError {
	return c.errs
}

func (c *Client) IsConnected() bool {
	_, err := c.current()
	return err == nil
}

// SessionId identifies the current connection.
func (c *Client) SessionId() (uuid.UUID, error) {
	s, err := c.current()
	if err != nil {
		return uuid.Nil, err
	}
	return s.id, nil
}

// NextId hands out the next request id, which doubles as an order id.
func (c *Client) NextId() (reqid.Id, error) {
	s, err := c.current()
	if err != nil {
		return reqid.None, err
	}
	return s.ids.Next(), nil
}

func (c *Client) ManagedAccounts() []string {
	s, err := c.current()
	if err != nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.accounts)
}

// Statistics reports the delivery counters of the current session.
func (c *Client) Statistics() (bus.Statistics, error) {
	s, err := c.current()
	if err != nil {
		return bus.Statistics{}, err
	}
	return s.bus.Statistics(), nil
}

func (c *Client) current() (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, ErrNotConnected
	}
	return c.session, nil
}

// Connect starts a fresh session and waits for the gateway to announce the next valid id.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.session != nil {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	s, err := c.newSession()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.session = s
	c.mu.Unlock()

	c.logger.Info("connecting",
		zap.Stringer("session", s.id),
		zap.String("address", c.cfg.gateway().Address()),
		zap.Int64("client_id", c.cfg.ClientId))

	if err := c.gateway.Connect(ctx, c.cfg.gateway(), s.bus); err != nil {
		c.closeSession(s, err)
		return fmt.Errorf("unable to connect: %w", err)
	}

	timer := time.NewTimer(c.cfg.Timeout)
	defer timer.Stop()

	select {
	case <-s.ready:
		c.logger.Info("connected", zap.Stringer("session", s.id), zap.Stringer("next_id", s.ids.Peek()))
		return nil
	case <-s.exec:
		err = registry.ErrConnectionClosed
	case <-ctx.Done():
		err = ctx.Err()
	case <-timer.C:
		err = context.DeadlineExceeded
	}

	c.closeSession(s, err)
	if dErr := c.gateway.Disconnect(); dErr != nil {
		c.logger.Warn("gateway disconnect failed", zap.Stringer("session", s.id), zap.Error(dErr))
	}
	return fmt.Errorf("gateway did not become ready: %w", err)
}

func (c *Client) newSession() (*session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("unable to create session id: %w", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	b := bus.New(c.logger, c.cfg.EventCapacity, bus.WithMiddleware(c.middleware...))

	s := &session{
		id:    id,
		bus:   b,
		ids:   reqid.NewAllocator(1),
		stop:  stop,
		ready: make(chan struct{}),
	}
	s.registry = registry.New(c.logger, b, registry.WithErrorSink(c.forwardError))

	bus.On(b, func(_ context.Context, ev bus.NextValidId) {
		s.ids.Advance(ev.OrderId)
		s.readyOnce.Do(func() { close(s.ready) })
	})
	bus.On(b, func(_ context.Context, ev bus.ManagedAccounts) {
		s.mu.Lock()
		s.accounts = slices.Clone(ev.Accounts)
		s.mu.Unlock()
	})
	bus.On(b, func(_ context.Context, ev bus.ConnectionClosed) {
		reason := ev.Reason
		if reason == nil {
			reason = registry.ErrConnectionClosed
		} else {
			reason = fmt.Errorf("%w: %w", registry.ErrConnectionClosed, reason)
		}
		c.logger.Warn("gateway closed the connection", zap.Stringer("session", s.id), zap.Error(ev.Reason))
		c.closeSession(s, reason)
	})

	s.exec = b.Exec(ctx)
	return s, nil
}

// Disconnect tears the session down: pending requests fail, streams are canceled.
func (c *Client) Disconnect() error {
	s, err := c.current()
	if err != nil {
		return nil
	}
	c.closeSession(s, registry.ErrConnectionClosed)
	return c.gateway.Disconnect()
}

func (c *Client) closeSession(s *session, reason error) {
	c.mu.Lock()
	if c.session != s {
		c.mu.Unlock()
		return
	}
	c.session = nil
	c.mu.Unlock()

	released := s.registry.ReleaseAll(reason)
	s.bus.Clear()
	s.stop()

	c.logger.Info("session closed",
		zap.Stringer("session", s.id),
		zap.Int("released", released),
		zap.Error(reason))
}

func (c *Client) forwardError(gwErr *model.GatewayError) {
	select {
	case c.errs <- gwErr:
	default:
		c.logger.Debug("error channel full, dropping", gwErr.Fields()...)
	}
}
