package wsserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mo-shahab/peer-pong/client"
	"github.com/mo-shahab/peer-pong/peer"
	"github.com/mo-shahab/peer-pong/room"
	"github.com/mo-shahab/peer-pong/signal"
)

// Options tune the broker.
type Options struct {
	OfferTimeout time.Duration
	RatePerSec   float64
	RateBurst    int
	SendQueue    int
	Registry     *prometheus.Registry
	Logger       *zap.SugaredLogger
}

// WebSocketHandler is the broker: it registers peers by id, forwards
// connect offers, pairs peers into rooms and relays their data frames.
type WebSocketHandler struct {
	Upgrader    websocket.Upgrader
	Connections map[string]*client.Client
	RoomManager *room.RoomManager
	Mu          sync.Mutex

	opts    Options
	logger  *zap.SugaredLogger
	metrics *metrics
}

func NewWebSocketHandler(opts Options) *WebSocketHandler {
	if opts.OfferTimeout <= 0 {
		opts.OfferTimeout = 10 * time.Second
	}
	if opts.SendQueue <= 0 {
		opts.SendQueue = 100
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	var reg prometheus.Registerer
	if opts.Registry != nil {
		reg = opts.Registry
	}

	wsh := &WebSocketHandler{
		Upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		Connections: make(map[string]*client.Client),
		opts:        opts,
		logger:      opts.Logger,
		metrics:     newMetrics(reg),
	}
	wsh.RoomManager = room.NewRoomManager(opts.OfferTimeout, wsh.offerExpired)
	return wsh
}

// Router mounts the broker endpoints.
func (wsh *WebSocketHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/peerjs", wsh)
	if wsh.opts.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(wsh.opts.Registry, promhttp.HandlerOpts{}))
	}
	return r
}

// ServeHTTP upgrades one peer and serves it until it leaves.
func (wsh *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := peer.NormalizeID(r.URL.Query().Get("id"))

	conn, err := wsh.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		wsh.logger.Warnf("upgrading connection: %v", err)
		return
	}
	wsh.metrics.connections.Inc()

	if len(id) != peer.IDLength {
		_ = conn.WriteJSON(signal.Error(signal.CodeInvalidID, "ids are 3 characters"))
		conn.Close()
		return
	}

	var limiter *rate.Limiter
	if wsh.opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(wsh.opts.RatePerSec), max(wsh.opts.RateBurst, 1))
	}
	c := client.New(conn, id, wsh.opts.SendQueue, limiter)

	if !wsh.register(c) {
		_ = conn.WriteJSON(signal.Error(signal.CodeIDTaken, id+" is already connected"))
		conn.Close()
		return
	}
	defer wsh.disconnectPlayer(c)

	go c.WriteLoop(func(err error) {
		wsh.logger.Warnf("write to %s failed: %v", c.ID, err)
		c.Close()
	})
	wsh.send(c, signal.Ready(id))

	for {
		var frame signal.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				wsh.logger.Debugf("reading from %s: %v", id, err)
			}
			return
		}
		wsh.handleFrame(c, frame)
	}
}

func (wsh *WebSocketHandler) register(c *client.Client) bool {
	wsh.Mu.Lock()
	defer wsh.Mu.Unlock()

	if _, taken := wsh.Connections[c.ID]; taken {
		return false
	}
	wsh.Connections[c.ID] = c
	wsh.metrics.peers.Set(float64(len(wsh.Connections)))
	wsh.logger.Infof("peer %s registered, %d connected", c.ID, len(wsh.Connections))
	return true
}

func (wsh *WebSocketHandler) lookup(id string) (*client.Client, bool) {
	wsh.Mu.Lock()
	defer wsh.Mu.Unlock()
	c, ok := wsh.Connections[id]
	return c, ok
}

// disconnectPlayer unregisters a peer and tells its partner the session
// is over.
func (wsh *WebSocketHandler) disconnectPlayer(c *client.Client) {
	wsh.Mu.Lock()
	if current, ok := wsh.Connections[c.ID]; ok && current == c {
		delete(wsh.Connections, c.ID)
	}
	wsh.metrics.peers.Set(float64(len(wsh.Connections)))
	wsh.Mu.Unlock()

	wsh.closeRoom(c.ID)
	c.Close()
	wsh.logger.Infof("peer %s disconnected", c.ID)
}

func (wsh *WebSocketHandler) closeRoom(id string) {
	rm, ok := wsh.RoomManager.RemovePeer(id)
	wsh.metrics.rooms.Set(float64(wsh.RoomManager.Count()))
	if !ok {
		return
	}
	if partner, ok := wsh.lookup(rm.Partner(id)); ok {
		wsh.send(partner, signal.Close())
	}
	wsh.logger.Infof("room %s closed by %s", rm.ID, id)
}

func (wsh *WebSocketHandler) handleFrame(c *client.Client, frame signal.Frame) {
	switch frame.Type {
	case signal.FrameConnect:
		wsh.handleConnect(c, peer.NormalizeID(frame.Target))
	case signal.FrameAccept:
		wsh.handleAccept(c, peer.NormalizeID(frame.From))
	case signal.FrameReject:
		wsh.handleReject(c, peer.NormalizeID(frame.From))
	case signal.FrameData:
		wsh.relay(c, frame.Payload)
	case signal.FrameClose:
		wsh.closeRoom(c.ID)
	default:
		wsh.logger.Debugf("unknown frame %q from %s", frame.Type, c.ID)
		wsh.send(c, signal.Error(signal.CodeBadFrame, string(frame.Type)))
	}
}

func (wsh *WebSocketHandler) handleConnect(c *client.Client, target string) {
	if target == "" || target == c.ID || len(target) != peer.IDLength {
		wsh.metrics.offers.WithLabelValues("invalid").Inc()
		wsh.send(c, signal.Error(signal.CodeInvalidTarget, target))
		return
	}
	dst, ok := wsh.lookup(target)
	if !ok {
		wsh.metrics.offers.WithLabelValues("unavailable").Inc()
		wsh.send(c, signal.Error(signal.CodePeerUnavailable, target+" is not connected"))
		return
	}

	rm, err := wsh.RoomManager.Propose(c.ID, target)
	if err != nil {
		wsh.metrics.offers.WithLabelValues("busy").Inc()
		wsh.send(c, signal.Error(signal.CodeRejected, err.Error()))
		return
	}
	if rm != nil {
		wsh.metrics.offers.WithLabelValues("mutual").Inc()
		wsh.open(rm)
		return
	}

	wsh.metrics.offers.WithLabelValues("offered").Inc()
	wsh.logger.Infof("%s offers a connection to %s", c.ID, target)
	wsh.send(dst, signal.Connection(c.ID))
}

func (wsh *WebSocketHandler) handleAccept(c *client.Client, from string) {
	rm, err := wsh.RoomManager.Accept(c.ID, from)
	if err != nil {
		wsh.send(c, signal.Error(signal.CodePeerUnavailable, err.Error()))
		return
	}
	wsh.metrics.offers.WithLabelValues("accepted").Inc()
	wsh.open(rm)
}

func (wsh *WebSocketHandler) handleReject(c *client.Client, from string) {
	if err := wsh.RoomManager.Reject(c.ID, from); err != nil {
		return
	}
	wsh.metrics.offers.WithLabelValues("rejected").Inc()
	if dialer, ok := wsh.lookup(from); ok {
		wsh.send(dialer, signal.Error(signal.CodeRejected, c.ID+" is busy"))
	}
}

// open acknowledges a paired room to both sides.
func (wsh *WebSocketHandler) open(rm *room.Room) {
	wsh.metrics.rooms.Set(float64(wsh.RoomManager.Count()))

	initiator, ok1 := wsh.lookup(rm.Initiator)
	acceptor, ok2 := wsh.lookup(rm.Acceptor)
	if !ok1 || !ok2 {
		wsh.RoomManager.RemovePeer(rm.Initiator)
		wsh.metrics.rooms.Set(float64(wsh.RoomManager.Count()))
		return
	}

	wsh.logger.Infof("room %s open: %s hosts %s", rm.ID, rm.Initiator, rm.Acceptor)
	wsh.send(acceptor, signal.Open(rm.Initiator, rm.Role(rm.Acceptor), rm.ID))
	wsh.send(initiator, signal.Open(rm.Acceptor, rm.Role(rm.Initiator), rm.ID))
}

func (wsh *WebSocketHandler) relay(c *client.Client, payload []byte) {
	rm, ok := wsh.RoomManager.RoomOf(c.ID)
	if !ok {
		wsh.metrics.dropped.WithLabelValues("not_paired").Inc()
		return
	}
	if !c.Allow() {
		wsh.metrics.dropped.WithLabelValues("rate_limited").Inc()
		return
	}
	partner, ok := wsh.lookup(rm.Partner(c.ID))
	if !ok {
		wsh.metrics.dropped.WithLabelValues("partner_gone").Inc()
		return
	}
	if !partner.Enqueue(signal.Data(payload)) {
		wsh.metrics.dropped.WithLabelValues("queue_full").Inc()
		wsh.logger.Debugf("dropping frame, send queue full for %s", partner.ID)
		return
	}
	wsh.metrics.relayed.Inc()
}

func (wsh *WebSocketHandler) offerExpired(from, to string) {
	wsh.metrics.offers.WithLabelValues("expired").Inc()
	wsh.logger.Infof("offer from %s to %s timed out", from, to)
	if dialer, ok := wsh.lookup(from); ok {
		wsh.send(dialer, signal.Error(signal.CodeOfferTimeout, to+" did not answer"))
	}
}

func (wsh *WebSocketHandler) send(c *client.Client, frame signal.Frame) {
	if !c.Enqueue(frame) {
		wsh.metrics.dropped.WithLabelValues("queue_full").Inc()
		wsh.logger.Warnf("dropping %s frame, send queue full for %s", frame.Type, c.ID)
	}
}
