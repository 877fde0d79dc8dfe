// Package transport connects a peer to the broker over a websocket and
// presents the connection as a peer.Transport.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mo-shahab/peer-pong/peer"
	"github.com/mo-shahab/peer-pong/signal"
)

// BrokerError is an error frame sent by the broker.
type BrokerError struct {
	Code    string
	Message string
}

func (e *BrokerError) Error() string {
	if e.Message == "" {
		return "broker: " + e.Code
	}
	return fmt.Sprintf("broker: %s: %s", e.Code, e.Message)
}

var errNotConnected = errors.New("transport: not connected to broker")

// WebSocket is a peer.Transport backed by one websocket to the broker.
type WebSocket struct {
	brokerURL   string
	dialer      *websocket.Dialer
	dialTimeout time.Duration
	queueSize   int
	logger      *zap.SugaredLogger

	mu        sync.Mutex
	conn      *websocket.Conn
	sendQueue chan signal.Frame
	closed    bool

	events    chan peer.Event
	done      chan struct{}
	closeOnce sync.Once
}

type Option func(*WebSocket)

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(w *WebSocket) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithSendQueue(n int) Option {
	return func(w *WebSocket) {
		if n > 0 {
			w.queueSize = n
		}
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(w *WebSocket) {
		if d > 0 {
			w.dialTimeout = d
		}
	}
}

func New(brokerURL string, opts ...Option) *WebSocket {
	w := &WebSocket{
		brokerURL:   brokerURL,
		dialer:      websocket.DefaultDialer,
		dialTimeout: 5 * time.Second,
		queueSize:   100,
		logger:      zap.NewNop().Sugar(),
		events:      make(chan peer.Event, 64),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *WebSocket) Events() <-chan peer.Event { return w.events }

// Listen registers id with the broker and waits for its ready frame.
// Closing the transport while Listen waits abandons the registration.
func (w *WebSocket) Listen(ctx context.Context, id string) error {
	u, err := url.Parse(w.brokerURL)
	if err != nil {
		return fmt.Errorf("parsing broker url: %w", err)
	}
	q := u.Query()
	q.Set("id", id)
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, w.dialTimeout)
	defer cancel()
	go func() {
		select {
		case <-w.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	conn, _, err := w.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if w.isClosed() {
			return peer.ErrClosed
		}
		return fmt.Errorf("dialing broker: %w", err)
	}

	// unblocks the ready read on timeout, cancel or Close
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	var first signal.Frame
	if err := conn.ReadJSON(&first); err != nil {
		conn.Close()
		if w.isClosed() {
			return peer.ErrClosed
		}
		return fmt.Errorf("waiting for broker: %w", err)
	}
	if !stop() {
		// the conn was closed under us right after ready arrived
		if w.isClosed() {
			return peer.ErrClosed
		}
		return fmt.Errorf("waiting for broker: %w", ctx.Err())
	}

	switch first.Type {
	case signal.FrameReady:
	case signal.FrameError:
		conn.Close()
		return &BrokerError{Code: first.Code, Message: first.Message}
	default:
		conn.Close()
		return fmt.Errorf("unexpected %q frame from broker", first.Type)
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		conn.Close()
		return peer.ErrClosed
	}
	w.conn = conn
	w.sendQueue = make(chan signal.Frame, w.queueSize)
	queue := w.sendQueue
	w.mu.Unlock()

	go w.writeLoop(conn, queue)
	go w.readLoop(conn)
	return nil
}

func (w *WebSocket) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *WebSocket) Dial(ctx context.Context, remoteID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.enqueue(signal.Connect(remoteID), true)
}

func (w *WebSocket) Accept(remoteID string) error {
	return w.enqueue(signal.Accept(remoteID), true)
}

func (w *WebSocket) Reject(remoteID string) error {
	return w.enqueue(signal.Reject(remoteID), true)
}

// Send queues a data frame. A full queue drops the frame.
func (w *WebSocket) Send(payload []byte) error {
	return w.enqueue(signal.Data(payload), false)
}

func (w *WebSocket) enqueue(frame signal.Frame, control bool) error {
	w.mu.Lock()
	queue := w.sendQueue
	w.mu.Unlock()
	if queue == nil {
		return errNotConnected
	}

	if control {
		select {
		case queue <- frame:
			return nil
		case <-w.done:
			return peer.ErrClosed
		}
	}

	select {
	case queue <- frame:
	case <-w.done:
		return peer.ErrClosed
	default:
		w.logger.Debugf("dropping %s frame, send queue full", frame.Type)
	}
	return nil
}

// Close tells the broker we are leaving and drops the connection.
func (w *WebSocket) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		conn := w.conn
		w.mu.Unlock()
		close(w.done)

		if conn == nil {
			return
		}

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = conn.Close()
	})
	return err
}

func (w *WebSocket) writeLoop(conn *websocket.Conn, queue chan signal.Frame) {
	for {
		select {
		case <-w.done:
			return
		case frame := <-queue:
			if err := conn.WriteJSON(frame); err != nil {
				w.logger.Warnf("write to broker failed: %v", err)
				conn.Close()
				return
			}
		}
	}
}

func (w *WebSocket) readLoop(conn *websocket.Conn) {
	for {
		var frame signal.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			select {
			case <-w.done:
			default:
				w.logger.Warnf("broker connection lost: %v", err)
				w.emit(peer.Event{Kind: peer.EventClosed})
			}
			return
		}

		ev, ok := toEvent(frame)
		if !ok {
			w.logger.Debugf("ignoring %q frame from broker", frame.Type)
			continue
		}
		ev.At = time.Now()
		w.emit(ev)
	}
}

func toEvent(frame signal.Frame) (peer.Event, bool) {
	switch frame.Type {
	case signal.FrameConnection:
		return peer.Event{Kind: peer.EventIncoming, RemoteID: frame.From}, true
	case signal.FrameOpen:
		return peer.Event{
			Kind:         peer.EventOpen,
			RemoteID:     frame.Remote,
			Role:         frame.Role,
			ConnectionID: frame.ConnectionID,
		}, true
	case signal.FrameData:
		return peer.Event{Kind: peer.EventData, Payload: frame.Payload}, true
	case signal.FrameClose:
		return peer.Event{Kind: peer.EventClosed}, true
	case signal.FrameError:
		return peer.Event{Kind: peer.EventError, Err: &BrokerError{Code: frame.Code, Message: frame.Message}}, true
	}
	return peer.Event{}, false
}

func (w *WebSocket) emit(ev peer.Event) {
	select {
	case w.events <- ev:
	case <-w.done:
	}
}
