package client

import (
	"sync"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/mo-shahab/peer-pong/signal"
)

// Client is a peer registered with the broker.
type Client struct {
	Conn      *websocket.Conn
	SendQueue chan signal.Frame
	ID        string
	Limiter   *rate.Limiter

	closeOnce sync.Once
	done      chan struct{}
}

func New(conn *websocket.Conn, id string, queueSize int, limiter *rate.Limiter) *Client {
	return &Client{
		Conn:      conn,
		SendQueue: make(chan signal.Frame, queueSize),
		ID:        id,
		Limiter:   limiter,
		done:      make(chan struct{}),
	}
}

// Enqueue queues a frame for the write loop without blocking. It reports
// false when the frame was dropped.
func (c *Client) Enqueue(frame signal.Frame) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.SendQueue <- frame:
		return true
	default:
		return false
	}
}

// WriteLoop drains the send queue onto the websocket until the client is
// closed or a write fails.
func (c *Client) WriteLoop(onError func(error)) {
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.SendQueue:
			if err := c.Conn.WriteJSON(frame); err != nil {
				onError(err)
				return
			}
		}
	}
}

// Allow reports whether a relayed data frame fits the client's rate.
func (c *Client) Allow() bool {
	if c.Limiter == nil {
		return true
	}
	return c.Limiter.Allow()
}

func (c *Client) Done() <-chan struct{} { return c.done }

// Close stops the write loop and closes the socket. Safe to call twice.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.Conn.Close()
	})
}
