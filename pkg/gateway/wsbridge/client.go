// Package wsbridge speaks to a gateway bridge over a websocket. Every message
// is a protobuf Struct: requests carry an "op" field, callbacks a "kind" field
// named after the callback they stand for.
package wsbridge

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/peter-kozarec/ibridge/pkg/gateway"
	"github.com/peter-kozarec/ibridge/pkg/reqid"
	"go.uber.org/zap"
)

const (
	DefaultPath      = "/api"
	DefaultKeepAlive = 30 * time.Second
)

type Client struct {
	logger    *zap.Logger
	dialer    *websocket.Dialer
	path      string
	keepAlive time.Duration

	mu   sync.RWMutex
	conn *connection
}

type Option func(*Client)

func WithPath(path string) Option {
	return func(c *Client) {
		c.path = path
	}
}

func WithKeepAlive(interval time.Duration) Option {
	return func(c *Client) {
		c.keepAlive = interval
	}
}

func WithDialer(dialer *websocket.Dialer) Option {
	return func(c *Client) {
		c.dialer = dialer
	}
}

func New(logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		logger:    logger,
		dialer:    websocket.DefaultDialer,
		path:      DefaultPath,
		keepAlive: DefaultKeepAlive,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ gateway.Client = (*Client)(nil)

func (c *Client) Connect(ctx context.Context, cfg gateway.Config, sink gateway.Sink) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && c.conn.alive() {
		return nil
	}

	u := url.URL{Scheme: "ws", Host: cfg.Address(), Path: c.path}
	ws, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("unable to dial %s: %w", u.String(), err)
	}

	conn := newConnection(ws, c.logger, sink)
	conn.start(c.keepAlive)
	c.conn = conn

	c.logger.Info("connected", zap.String("url", u.String()), zap.Int64("client_id", cfg.ClientId))

	data, err := Encode(map[string]any{"op": gateway.OpStartApi, "clientId": cfg.ClientId})
	if err != nil {
		return err
	}
	if err := conn.enqueue(data); err != nil {
		return fmt.Errorf("unable to start api: %w", err)
	}
	return nil
}

func (c *Client) Disconnect() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	conn.stop()
	c.logger.Info("disconnected")
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && c.conn.alive()
}

func (c *Client) send(op string, id reqid.Id, args map[string]any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.alive() {
		return gateway.ErrNotConnected
	}

	if args == nil {
		args = make(map[string]any, 2)
	}
	args["op"] = op
	if id != reqid.None {
		args["reqId"] = id.Int64()
	}

	data, err := Encode(args)
	if err != nil {
		return fmt.Errorf("unable to encode %s: %w", op, err)
	}
	return conn.enqueue(data)
}
