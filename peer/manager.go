package peer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mo-shahab/peer-pong/authority"
)

// Session describes the current connection. IsHost never changes while
// the session is open.
type Session struct {
	LocalID      string
	RemoteID     string
	ConnectionID string
	Role         authority.Role
	IsHost       bool
	Open         bool
}

// Manager owns the connection lifecycle and exposes one send surface and
// one ordered event stream to the game.
type Manager struct {
	id        string
	transport Transport
	logger    *zap.SugaredLogger

	mu        sync.Mutex
	session   Session
	listening bool
	closed    bool

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

type Option func(*Manager)

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithInboxSize sets how many events may wait for the game loop.
func WithInboxSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.events = make(chan Event, n)
		}
	}
}

func NewManager(identity Identity, transport Transport, opts ...Option) *Manager {
	m := &Manager{
		id:        NormalizeID(identity.ID()),
		transport: transport,
		logger:    zap.NewNop().Sugar(),
		events:    make(chan Event, 256),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) ID() string { return m.id }

// Events is the inbox drained by the game loop once per frame.
func (m *Manager) Events() <-chan Event { return m.events }

// Session returns a copy of the current session.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Listen makes the peer receptive to inbound connections.
func (m *Manager) Listen(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.listening {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	if err := m.transport.Listen(ctx, m.id); err != nil {
		return &ConnectionError{Op: "listen", Err: err}
	}

	m.mu.Lock()
	m.listening = true
	m.mu.Unlock()

	m.logger.Infof("listening as %s", m.id)
	go m.pump()
	return nil
}

// ValidateTarget checks a connect target without touching the network.
func (m *Manager) ValidateTarget(target string) (string, error) {
	target = NormalizeID(target)
	switch {
	case target == "":
		return "", fmt.Errorf("%w: empty id", ErrInvalidTarget)
	case len(target) != IDLength:
		return "", fmt.Errorf("%w: %q is not a %d-character id", ErrInvalidTarget, target, IDLength)
	case target == m.id:
		return "", fmt.Errorf("%w: cannot connect to yourself", ErrInvalidTarget)
	}
	return target, nil
}

// Connect dials remoteID. The peer that dials becomes host once the
// connection opens.
func (m *Manager) Connect(ctx context.Context, remoteID string) error {
	target, err := m.ValidateTarget(remoteID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	closed, listening, open := m.closed, m.listening, m.session.Open
	m.mu.Unlock()
	switch {
	case closed:
		return ErrClosed
	case !listening:
		return &ConnectionError{Op: "connect", Err: ErrNotListening}
	case open:
		return &ConnectionError{Op: "connect", Err: fmt.Errorf("already connected to %s", m.Session().RemoteID)}
	}

	m.logger.Infof("connecting to %s", target)
	if err := m.transport.Dial(ctx, target); err != nil {
		return &ConnectionError{Op: "connect", Err: err}
	}
	return nil
}

// Send transmits payload to the remote peer. It does nothing unless a
// session is open.
func (m *Manager) Send(payload []byte) error {
	m.mu.Lock()
	open := m.session.Open && !m.closed
	m.mu.Unlock()
	if !open {
		return nil
	}
	return m.transport.Send(payload)
}

// Close tears the peer down. Further sends are no-ops. Safe to call twice.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.session.Open = false
		m.mu.Unlock()

		close(m.done)
		err = m.transport.Close()
		m.logger.Infof("peer %s destroyed", m.id)
	})
	return err
}

func (m *Manager) pump() {
	src := m.transport.Events()
	for {
		select {
		case <-m.done:
			return
		case ev, ok := <-src:
			if !ok {
				m.handle(Event{Kind: EventClosed, At: time.Now()})
				return
			}
			if ev.At.IsZero() {
				ev.At = time.Now()
			}
			m.handle(ev)
		}
	}
}

func (m *Manager) handle(ev Event) {
	switch ev.Kind {
	case EventIncoming:
		m.mu.Lock()
		busy := m.session.Open
		m.mu.Unlock()

		if busy {
			m.logger.Infof("rejecting connection from %s, already in a session", ev.RemoteID)
			if err := m.transport.Reject(ev.RemoteID); err != nil {
				m.logger.Warnf("rejecting %s: %v", ev.RemoteID, err)
			}
			return
		}
		m.logger.Infof("incoming connection from %s", ev.RemoteID)
		if err := m.transport.Accept(ev.RemoteID); err != nil {
			m.emit(Event{Kind: EventError, Err: &ConnectionError{Op: "accept", Err: err}})
			return
		}

	case EventOpen:
		m.mu.Lock()
		if m.session.Open {
			m.mu.Unlock()
			m.logger.Warnf("ignoring open from %s, session with %s already open", ev.RemoteID, m.session.RemoteID)
			return
		}
		m.session = Session{
			LocalID:      m.id,
			RemoteID:     ev.RemoteID,
			ConnectionID: ev.ConnectionID,
			Role:         ev.Role,
			IsHost:       authority.DecideHost(ev.Role),
			Open:         true,
		}
		s := m.session
		m.mu.Unlock()
		m.logger.Infow("session open", "remote", s.RemoteID, "role", s.Role, "host", s.IsHost, "connection", s.ConnectionID)

	case EventClosed:
		m.mu.Lock()
		wasOpen := m.session.Open
		m.session.Open = false
		m.mu.Unlock()
		if wasOpen {
			m.logger.Infof("session closed")
		}

	case EventError:
		if ev.Err == nil {
			ev.Err = ErrConnection
		}
		ev.Err = &ConnectionError{Op: "transport", Err: ev.Err}
		m.logger.Warnf("connection error: %v", ev.Err)

	case EventData:
		select {
		case m.events <- ev:
		default:
			m.logger.Warnf("inbox full, dropping %d byte message", len(ev.Payload))
		}
		return
	}

	m.emit(ev)
}

// emit delivers control events without dropping them.
func (m *Manager) emit(ev Event) {
	select {
	case m.events <- ev:
	case <-m.done:
	}
}
