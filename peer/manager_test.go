package peer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mo-shahab/peer-pong/authority"
)

type fakeTransport struct {
	mu       sync.Mutex
	events   chan Event
	listenID string
	dialed   []string
	accepted []string
	rejected []string
	sent     [][]byte
	closes   int
	dialErr  error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan Event, 16)}
}

func (f *fakeTransport) Listen(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listenID = id
	return nil
}

func (f *fakeTransport) Dial(_ context.Context, remoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dialErr != nil {
		return f.dialErr
	}
	f.dialed = append(f.dialed, remoteID)
	return nil
}

func (f *fakeTransport) Accept(remoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accepted = append(f.accepted, remoteID)
	return nil
}

func (f *fakeTransport) Reject(remoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected = append(f.rejected, remoteID)
	return nil
}

func (f *fakeTransport) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeTransport) Events() <-chan Event { return f.events }

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func nextEvent(t *testing.T, m *Manager) Event {
	t.Helper()
	select {
	case ev := <-m.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for manager event")
	}
	return Event{}
}

func listening(t *testing.T, id string) (*Manager, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	m := NewManager(StaticIdentity(id), ft)
	require.NoError(t, m.Listen(context.Background()))
	t.Cleanup(func() { _ = m.Close() })
	return m, ft
}

func TestConnectRejectsInvalidTargets(t *testing.T) {
	m, ft := listening(t, "ABC")

	for _, target := range []string{"", "AB", "ABCD", "abc", " abc "} {
		err := m.Connect(context.Background(), target)
		require.ErrorIs(t, err, ErrInvalidTarget, target)
	}
	require.Empty(t, ft.dialed)
}

func TestConnectNormalizesTarget(t *testing.T) {
	m, ft := listening(t, "ABC")
	require.NoError(t, m.Connect(context.Background(), "xyz"))
	require.Equal(t, []string{"XYZ"}, ft.dialed)
}

func TestConnectBeforeListenIsConnectionError(t *testing.T) {
	m := NewManager(StaticIdentity("ABC"), newFakeTransport())
	err := m.Connect(context.Background(), "XYZ")
	require.ErrorIs(t, err, ErrConnection)
	require.ErrorIs(t, err, ErrNotListening)
}

func TestConnectWrapsTransportFailure(t *testing.T) {
	m, ft := listening(t, "ABC")
	ft.dialErr = errors.New("broker unreachable")

	err := m.Connect(context.Background(), "XYZ")
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, "connect", connErr.Op)
}

func TestInitiatorBecomesHost(t *testing.T) {
	m, ft := listening(t, "ABC")
	require.NoError(t, m.Connect(context.Background(), "XYZ"))

	ft.events <- Event{Kind: EventOpen, RemoteID: "XYZ", Role: authority.Initiator, ConnectionID: "c1"}
	ev := nextEvent(t, m)
	require.Equal(t, EventOpen, ev.Kind)

	s := m.Session()
	require.True(t, s.Open)
	require.True(t, s.IsHost)
	require.Equal(t, "XYZ", s.RemoteID)
}

func TestAcceptorIsGuestAndAutoAccepts(t *testing.T) {
	m, ft := listening(t, "XYZ")

	ft.events <- Event{Kind: EventIncoming, RemoteID: "ABC"}
	require.Equal(t, EventIncoming, nextEvent(t, m).Kind)
	ft.mu.Lock()
	require.Equal(t, []string{"ABC"}, ft.accepted)
	ft.mu.Unlock()

	ft.events <- Event{Kind: EventOpen, RemoteID: "ABC", Role: authority.Acceptor}
	nextEvent(t, m)
	require.False(t, m.Session().IsHost)
	require.True(t, m.Session().Open)
}

func TestHostFlagImmutableWhileOpen(t *testing.T) {
	m, ft := listening(t, "XYZ")
	ft.events <- Event{Kind: EventOpen, RemoteID: "ABC", Role: authority.Acceptor}
	nextEvent(t, m)

	ft.events <- Event{Kind: EventOpen, RemoteID: "QQQ", Role: authority.Initiator}
	ft.events <- Event{Kind: EventIncoming, RemoteID: "QQQ"}
	// the rejected incoming still surfaces nothing; use a data event as a barrier
	ft.events <- Event{Kind: EventData, Payload: []byte("x")}
	require.Equal(t, EventData, nextEvent(t, m).Kind)

	s := m.Session()
	require.False(t, s.IsHost)
	require.Equal(t, "ABC", s.RemoteID)
	ft.mu.Lock()
	require.Equal(t, []string{"QQQ"}, ft.rejected)
	ft.mu.Unlock()
}

func TestSendIsNoopUntilOpen(t *testing.T) {
	m, ft := listening(t, "ABC")
	require.NoError(t, m.Send([]byte("early")))
	require.Equal(t, 0, ft.sentCount())

	ft.events <- Event{Kind: EventOpen, RemoteID: "XYZ", Role: authority.Initiator}
	nextEvent(t, m)
	require.NoError(t, m.Send([]byte("hello")))
	require.Equal(t, 1, ft.sentCount())

	ft.events <- Event{Kind: EventClosed}
	require.Equal(t, EventClosed, nextEvent(t, m).Kind)
	require.NoError(t, m.Send([]byte("late")))
	require.Equal(t, 1, ft.sentCount())
}

func TestDataEventsKeepArrivalOrder(t *testing.T) {
	m, ft := listening(t, "ABC")
	for _, p := range []string{"1", "2", "3"} {
		ft.events <- Event{Kind: EventData, Payload: []byte(p)}
	}
	for _, want := range []string{"1", "2", "3"} {
		require.Equal(t, want, string(nextEvent(t, m).Payload))
	}
}

func TestErrorEventIsConnectionError(t *testing.T) {
	m, ft := listening(t, "ABC")
	ft.events <- Event{Kind: EventError, Err: errors.New("peer-unavailable")}
	ev := nextEvent(t, m)
	require.Equal(t, EventError, ev.Kind)
	require.ErrorIs(t, ev.Err, ErrConnection)
}

func TestCloseTwice(t *testing.T) {
	m, ft := listening(t, "ABC")
	ft.events <- Event{Kind: EventOpen, RemoteID: "XYZ", Role: authority.Initiator}
	nextEvent(t, m)

	require.NoError(t, m.Close())
	require.NotPanics(t, func() { _ = m.Close() })
	require.NoError(t, m.Send([]byte("after")))
	require.Equal(t, 0, ft.sentCount())

	ft.mu.Lock()
	require.Equal(t, 1, ft.closes)
	ft.mu.Unlock()
	require.ErrorIs(t, m.Listen(context.Background()), ErrClosed)
}

func TestEventsCarryArrivalTime(t *testing.T) {
	m, ft := listening(t, "ABC")
	stamped := time.UnixMilli(42)

	before := time.Now()
	ft.events <- Event{Kind: EventData, Payload: []byte("a")}
	ft.events <- Event{Kind: EventData, Payload: []byte("b"), At: stamped}

	ev := nextEvent(t, m)
	require.False(t, ev.At.Before(before))
	require.Equal(t, stamped, nextEvent(t, m).At)
}
