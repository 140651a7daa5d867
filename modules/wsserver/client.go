package wsserver

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"

	"github.com/example/chatnest/modules/chat"
)

// Push errors.
var (
	ErrChannelClosed = errors.New("channel closed")
	ErrQueueFull     = errors.New("send queue full")
)

const writeWait = 10 * time.Second

// Conn is the part of a WebSocket connection the client writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one WebSocket connection. Outbound events are queued and
// written by WritePump, so Push never blocks the caller.
type Client struct {
	id           string
	conn         Conn
	send         chan []byte
	done         chan struct{}
	stopped      chan struct{}
	closed       atomic.Bool
	closeOnce    sync.Once
	pingInterval time.Duration
	logger       types.Logger
}

var _ chat.Channel = (*Client)(nil)

// NewClient creates a client with a send queue of queueSize events.
func NewClient(id string, conn Conn, queueSize int, pingInterval time.Duration, logger types.Logger) *Client {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Client{
		id:           id,
		conn:         conn,
		send:         make(chan []byte, queueSize),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
		pingInterval: pingInterval,
		logger:       logger,
	}
}

// ID returns the connection ID.
func (c *Client) ID() string {
	return c.id
}

// Alive reports whether the client has not been closed.
func (c *Client) Alive() bool {
	return !c.closed.Load()
}

// Push encodes evt and queues it for writing.
func (c *Client) Push(evt chat.Event) error {
	if c.closed.Load() {
		return ErrChannelClosed
	}

	data, err := evt.JSON()
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", evt.Type, err)
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrChannelClosed
	default:
		return ErrQueueFull
	}
}

// Close stops the writer and closes the connection. Safe to call repeatedly.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until WritePump has returned. It must only be called once
// WritePump has been started.
func (c *Client) Wait() {
	<-c.stopped
}

// WritePump writes queued events and periodic pings until the client is
// closed or a write fails. No write is started after Close.
func (c *Client) WritePump() {
	defer close(c.stopped)

	var tick <-chan time.Time
	if c.pingInterval > 0 {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer c.Close()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if c.closed.Load() {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("WebSocket write failed", "connectionID", c.id, "error", err)
				return
			}
		case <-tick:
			if c.closed.Load() {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("WebSocket ping failed", "connectionID", c.id, "error", err)
				return
			}
		}
	}
}
