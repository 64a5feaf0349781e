package wsbridge

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/peter-kozarec/ibridge/pkg/bus"
	"github.com/peter-kozarec/ibridge/pkg/gateway"
	"go.uber.org/zap"
)

const (
	writeQueueSize = 100
	writeTimeout   = 5 * time.Second
	closeTimeout   = time.Second
)

type connection struct {
	conn   *websocket.Conn
	logger *zap.Logger
	sink   gateway.Sink

	ctx       context.Context
	ctxCancel context.CancelFunc

	writeChan chan []byte
	wg        sync.WaitGroup
}

func newConnection(conn *websocket.Conn, logger *zap.Logger, sink gateway.Sink) *connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &connection{
		conn:      conn,
		logger:    logger,
		sink:      sink,
		ctx:       ctx,
		ctxCancel: cancel,
		writeChan: make(chan []byte, writeQueueSize),
	}
}

func (c *connection) start(keepAlive time.Duration) {
	c.wg.Add(2)
	go c.read()
	go c.write(keepAlive)
}

func (c *connection) alive() bool {
	return c.ctx.Err() == nil
}

// stop closes the socket without announcing ConnectionClosed.
func (c *connection) stop() {
	c.ctxCancel()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeTimeout))
	_ = c.conn.Close()
	c.wg.Wait()
}

func (c *connection) enqueue(data []byte) error {
	select {
	case <-c.ctx.Done():
		return gateway.ErrNotConnected
	default:
	}
	select {
	case c.writeChan <- data:
		return nil
	case <-c.ctx.Done():
		return gateway.ErrNotConnected
	}
}

func (c *connection) read() {
	defer c.wg.Done()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if !c.alive() {
				return
			}
			c.logger.Warn("cannot read data", zap.Error(err))
			c.ctxCancel()
			_ = c.conn.Close()
			c.post(bus.ConnectionClosed{Reason: err})
			return
		}

		ev, err := Decode(message)
		if err != nil {
			c.logger.Warn("decode failed",
				zap.String("raw", hex.EncodeToString(message)),
				zap.Error(err))
			continue
		}

		c.logger.Debug("read",
			zap.Stringer("kind", ev.Kind()),
			zap.Int64("req_id", ev.RequestId().Int64()))

		c.post(ev)
	}
}

func (c *connection) post(ev bus.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := c.sink.Post(ctx, ev); err != nil {
		c.logger.Warn("unable to post event",
			zap.Stringer("kind", ev.Kind()),
			zap.Error(err))
	}
}

func (c *connection) write(keepAlive time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				c.logger.Warn("failed to send keepalive", zap.Error(err))
			}
		case data := <-c.writeChan:
			c.logger.Debug("write", zap.String("payload", hex.EncodeToString(data)))

			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				c.logger.Warn("failed to write to connection", zap.Error(err))
			}
		}
	}
}
