package wsserver

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/mo-shahab/peer-pong/authority"
	"github.com/mo-shahab/peer-pong/peer"
	"github.com/mo-shahab/peer-pong/signal"
	"github.com/mo-shahab/peer-pong/transport"
)

func startBroker(t *testing.T, opts Options) (*WebSocketHandler, string) {
	t.Helper()
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	wsh := NewWebSocketHandler(opts)
	srv := httptest.NewServer(wsh.Router())
	t.Cleanup(srv.Close)
	return wsh, "ws" + strings.TrimPrefix(srv.URL, "http") + "/peerjs"
}

func waitFor(t *testing.T, m *peer.Manager, kind peer.EventKind) peer.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-m.Events():
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func newPeer(t *testing.T, url, id string) *peer.Manager {
	t.Helper()
	m := peer.NewManager(peer.StaticIdentity(id), transport.New(url))
	require.NoError(t, m.Listen(context.Background()))
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestDialerHostsAndDataIsRelayed(t *testing.T) {
	wsh, url := startBroker(t, Options{})
	host := newPeer(t, url, "ABC")
	guest := newPeer(t, url, "XYZ")

	require.NoError(t, host.Connect(context.Background(), "xyz"))
	waitFor(t, guest, peer.EventIncoming)
	waitFor(t, guest, peer.EventOpen)
	waitFor(t, host, peer.EventOpen)

	require.True(t, host.Session().IsHost)
	require.False(t, guest.Session().IsHost)
	require.Equal(t, host.Session().ConnectionID, guest.Session().ConnectionID)
	require.Equal(t, authority.Acceptor, guest.Session().Role)

	for _, p := range []string{"one", "two", "three"} {
		require.NoError(t, host.Send([]byte(p)))
	}
	for _, want := range []string{"one", "two", "three"} {
		require.Equal(t, want, string(waitFor(t, guest, peer.EventData).Payload))
	}

	require.NoError(t, guest.Send([]byte("back")))
	require.Equal(t, "back", string(waitFor(t, host, peer.EventData).Payload))

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(wsh.metrics.relayed) == 4
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, 1, wsh.RoomManager.Count())
}

func TestCloseNotifiesPartner(t *testing.T) {
	wsh, url := startBroker(t, Options{})
	host := newPeer(t, url, "ABC")
	guest := newPeer(t, url, "XYZ")

	require.NoError(t, host.Connect(context.Background(), "XYZ"))
	waitFor(t, host, peer.EventOpen)

	require.NoError(t, guest.Close())
	require.NoError(t, guest.Close())
	waitFor(t, host, peer.EventClosed)
	require.False(t, host.Session().Open)
	require.Eventually(t, func() bool { return wsh.RoomManager.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestConnectToUnknownPeer(t *testing.T) {
	_, url := startBroker(t, Options{})
	host := newPeer(t, url, "ABC")

	require.NoError(t, host.Connect(context.Background(), "QQQ"))
	ev := waitFor(t, host, peer.EventError)
	require.ErrorIs(t, ev.Err, peer.ErrConnection)
	require.Contains(t, ev.Err.Error(), signal.CodePeerUnavailable)
	require.False(t, host.Session().Open)
}

func TestDuplicateIDRefused(t *testing.T) {
	_, url := startBroker(t, Options{})
	newPeer(t, url, "ABC")

	m := peer.NewManager(peer.StaticIdentity("ABC"), transport.New(url))
	err := m.Listen(context.Background())
	require.ErrorIs(t, err, peer.ErrConnection)
	require.Contains(t, err.Error(), signal.CodeIDTaken)
}

func TestOfferTimeoutReachesDialer(t *testing.T) {
	_, url := startBroker(t, Options{OfferTimeout: 50 * time.Millisecond})
	host := newPeer(t, url, "ABC")

	// a raw socket that never answers the offer
	conn, _, err := websocket.DefaultDialer.Dial(url+"?id=XYZ", nil)
	require.NoError(t, err)
	defer conn.Close()
	var ready signal.Frame
	require.NoError(t, conn.ReadJSON(&ready))
	require.Equal(t, signal.FrameReady, ready.Type)

	require.NoError(t, host.Connect(context.Background(), "XYZ"))

	var offer signal.Frame
	require.NoError(t, conn.ReadJSON(&offer))
	require.Equal(t, signal.FrameConnection, offer.Type)
	require.Equal(t, "ABC", offer.From)

	ev := waitFor(t, host, peer.EventError)
	require.Contains(t, ev.Err.Error(), signal.CodeOfferTimeout)
}

func TestDataBeforePairingIsDropped(t *testing.T) {
	wsh, url := startBroker(t, Options{})
	conn, _, err := websocket.DefaultDialer.Dial(url+"?id=ABC", nil)
	require.NoError(t, err)
	defer conn.Close()
	var ready signal.Frame
	require.NoError(t, conn.ReadJSON(&ready))

	require.NoError(t, conn.WriteJSON(signal.Data([]byte("lost"))))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(wsh.metrics.dropped.WithLabelValues("not_paired")) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestInvalidIDRefused(t *testing.T) {
	_, url := startBroker(t, Options{})
	conn, _, err := websocket.DefaultDialer.Dial(url+"?id=TOOLONG", nil)
	require.NoError(t, err)
	defer conn.Close()

	var frame signal.Frame
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, signal.FrameError, frame.Type)
	require.Equal(t, signal.CodeInvalidID, frame.Code)
}
