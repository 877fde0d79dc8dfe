// Package loop drives the game one frame at a time: it applies network
// messages, menu commands and key input to the simulation, renders, and
// transmits this peer's share of the state.
package loop

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/mo-shahab/peer-pong/game"
	"github.com/mo-shahab/peer-pong/history"
	"github.com/mo-shahab/peer-pong/peer"
	"github.com/mo-shahab/peer-pong/protocol"
)

// Renderer draws a frame. It never feeds anything back into the game.
type Renderer interface {
	Render(snap game.Snapshot)
}

// Peer is the session surface the driver needs. *peer.Manager implements it.
type Peer interface {
	ID() string
	Listen(ctx context.Context) error
	ValidateTarget(target string) (string, error)
	Connect(ctx context.Context, remoteID string) error
	Send(payload []byte) error
	Session() peer.Session
	Events() <-chan peer.Event
	Close() error
}

// PeerFactory creates a fresh peer for each online attempt. A closed peer
// is never reused.
type PeerFactory func() (Peer, error)

type Options struct {
	Renderer Renderer
	Input    <-chan game.InputEvent
	Commands <-chan game.Command
	NewPeer  PeerFactory
	Codec    protocol.Codec
	Rand     *rand.Rand
	Logger   *zap.SugaredLogger
}

// Driver owns the game state. Everything it touches runs on the goroutine
// calling Step or Run.
type Driver struct {
	cfg     game.Config
	state   *game.GameState
	history *history.Buffer

	renderer Renderer
	input    <-chan game.InputEvent
	commands <-chan game.Command
	newPeer  PeerFactory
	codec    protocol.Codec
	logger   *zap.SugaredLogger

	ctx        context.Context
	peer       Peer
	peerCancel context.CancelFunc
	listenDone chan error
	listening  bool
	// connect target entered before the peer finished registering
	pendingTarget string
}

func New(cfg game.Config, opts Options) *Driver {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Codec == nil {
		opts.Codec = protocol.JSONCodec{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Driver{
		cfg:      cfg,
		state:    game.NewGameState(cfg, opts.Rand, opts.Logger.Named("game")),
		history:  history.New(cfg.HistorySize),
		renderer: opts.Renderer,
		input:    opts.Input,
		commands: opts.Commands,
		newPeer:  opts.NewPeer,
		codec:    opts.Codec,
		logger:   opts.Logger,
		ctx:      context.Background(),
	}
}

// State exposes the simulation for inspection.
func (d *Driver) State() *game.GameState { return d.state }

// Run steps the game on every frame until ctx is done or the player quits.
func (d *Driver) Run(ctx context.Context) error {
	d.ctx = ctx
	defer d.teardown()

	ticker := time.NewTicker(d.cfg.FrameInterval())
	defer ticker.Stop()

	d.logger.Infof("game loop running at %d fps", d.cfg.FrameRate)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if !d.Step(now) {
				d.logger.Info("quit")
				return nil
			}
		}
	}
}

// Step runs one frame at now. It returns false once the player quit.
func (d *Driver) Step(now time.Time) bool {
	d.drainNetwork(now)
	if !d.drainCommands() {
		d.teardown()
		return false
	}
	d.drainInput()

	if d.state.Tick() {
		d.history.Record(d.state.Ball.X, d.state.Ball.Y, now)
	}

	rx, ry, ok := d.history.Interpolate(now)
	if !ok || d.state.Phase != game.PhasePlaying {
		rx, ry = d.state.Ball.X, d.state.Ball.Y
	}
	d.render(rx, ry)
	d.transmit()
	return true
}

func (d *Driver) render(rx, ry float64) {
	if d.renderer == nil {
		return
	}
	snap := d.state.Snapshot(rx, ry)
	if d.peer != nil {
		s := d.peer.Session()
		snap.LocalID = d.peer.ID()
		snap.RemoteID = s.RemoteID
		snap.IsHost = s.Open && s.IsHost
	}
	d.renderer.Render(snap)
}

func (d *Driver) drainNetwork(now time.Time) {
	if d.listenDone != nil {
		select {
		case err := <-d.listenDone:
			d.listenDone = nil
			d.onListen(err)
		default:
		}
	}

	for d.peer != nil {
		select {
		case ev := <-d.peer.Events():
			d.onPeerEvent(ev, now)
		default:
			return
		}
	}
}

func (d *Driver) onListen(err error) {
	if err != nil {
		d.logger.Warnf("could not register with the broker: %v", err)
		d.closePeer()
		d.state.Status = "could not reach the network, enter an id to retry"
		return
	}
	d.listening = true
	d.state.Status = "your id is " + d.peer.ID()
	if target := d.pendingTarget; target != "" {
		d.pendingTarget = ""
		d.connect(target)
	}
}

func (d *Driver) onPeerEvent(ev peer.Event, now time.Time) {
	switch ev.Kind {
	case peer.EventIncoming:
		d.state.Status = "connection from " + ev.RemoteID

	case peer.EventOpen:
		s := d.peer.Session()
		d.history.Reset()
		d.state.BeginOnlineMatch(s.IsHost)
		d.logger.Infof("playing %s as %s", s.RemoteID, hostLabel(s.IsHost))

	case peer.EventData:
		msg, err := d.codec.Decode(ev.Payload)
		if err != nil {
			d.logger.Warnf("dropping message: %v", err)
			return
		}
		if d.state.ApplyRemote(msg) {
			// several updates can arrive within one frame
			at := ev.At
			if at.IsZero() {
				at = now
			}
			d.history.Record(msg.X, msg.Y, at)
		}

	case peer.EventClosed:
		d.logger.Info("peer closed the connection")
		d.teardown()
		d.state.ReturnToTitle()
		d.state.Status = "connection closed"

	case peer.EventError:
		d.logger.Warnf("session error: %v", ev.Err)
		d.teardown()
		d.state.ReturnToTitle()
		d.state.Status = errorStatus(ev.Err)
	}
}

func (d *Driver) drainCommands() bool {
	for {
		select {
		case cmd := <-d.commands:
			if !d.onCommand(cmd) {
				return false
			}
		default:
			return true
		}
	}
}

func (d *Driver) onCommand(cmd game.Command) bool {
	d.logger.Debugf("command %s", cmd.Kind)

	switch cmd.Kind {
	case game.CmdStartSinglePlayer:
		d.teardown()
		d.history.Reset()
		d.state.StartLocal(game.ModeSinglePlayer)

	case game.CmdStartLocalMultiplayer:
		d.teardown()
		d.history.Reset()
		d.state.StartLocal(game.ModeLocalMultiplayer)

	case game.CmdStartOnline:
		d.teardown()
		d.history.Reset()
		d.state.StartOnline()
		d.startPeer()

	case game.CmdConnect:
		if d.state.Phase != game.PhaseConnecting {
			d.logger.Debugf("ignoring connect in %s", d.state.Phase)
			return true
		}
		d.connect(cmd.ID)

	case game.CmdPlayAgain:
		if d.state.PlayAgain() {
			d.history.Reset()
		}

	case game.CmdReturnToMenu:
		d.teardown()
		d.history.Reset()
		d.state.ReturnToTitle()
		d.state.Status = ""

	case game.CmdQuit:
		return false
	}
	return true
}

func (d *Driver) drainInput() {
	for {
		select {
		case ev := <-d.input:
			d.state.HandleInput(ev)
		default:
			return
		}
	}
}

func (d *Driver) startPeer() {
	if d.newPeer == nil {
		d.state.Status = "online play is not configured"
		return
	}
	p, err := d.newPeer()
	if err != nil {
		d.logger.Warnf("creating peer: %v", err)
		d.state.Status = errorStatus(err)
		return
	}

	ctx, cancel := context.WithCancel(d.ctx)
	done := make(chan error, 1)
	d.peer, d.peerCancel, d.listenDone = p, cancel, done
	d.state.Status = "registering " + p.ID()

	go func() { done <- p.Listen(ctx) }()
}

func (d *Driver) connect(target string) {
	if d.peer == nil {
		// the previous attempt failed, try again with a new peer
		d.startPeer()
		if d.peer == nil {
			return
		}
	}

	target, err := d.peer.ValidateTarget(target)
	if err != nil {
		d.state.Status = errorStatus(err)
		return
	}
	if !d.listening {
		d.pendingTarget = target
		return
	}

	if err := d.peer.Connect(d.ctx, target); err != nil {
		d.logger.Warnf("connecting to %s: %v", target, err)
		d.state.Status = errorStatus(err)
		return
	}
	d.state.Status = "connecting to " + target
}

func (d *Driver) transmit() {
	changed := d.state.TakeScoreChanged()
	if d.peer == nil || d.state.Mode != game.ModeOnline {
		return
	}
	s := d.peer.Session()
	if !s.Open {
		return
	}

	d.send(protocol.PaddleMove(d.state.LocalPaddle().Y))
	if !s.IsHost {
		return
	}
	d.send(protocol.BallUpdate(d.state.Ball.X, d.state.Ball.Y))
	if changed {
		d.send(protocol.ScoreUpdate(d.state.Scores.Player1, d.state.Scores.Player2))
	}
}

func (d *Driver) send(msg protocol.Message) {
	payload, err := d.codec.Encode(msg)
	if err != nil {
		d.logger.Errorf("encoding %s: %v", msg.Type, err)
		return
	}
	if err := d.peer.Send(payload); err != nil {
		d.logger.Debugf("sending %s: %v", msg.Type, err)
	}
}

// teardown destroys the current peer, if any. Calling it again is a no-op.
func (d *Driver) teardown() {
	d.closePeer()
	d.pendingTarget = ""
}

func (d *Driver) closePeer() {
	if d.peer == nil {
		return
	}
	d.peerCancel()
	if err := d.peer.Close(); err != nil {
		d.logger.Debugf("closing peer: %v", err)
	}
	d.peer, d.peerCancel, d.listenDone = nil, nil, nil
	d.listening = false
}

func hostLabel(isHost bool) string {
	if isHost {
		return "host"
	}
	return "guest"
}

func errorStatus(err error) string {
	switch {
	case errors.Is(err, peer.ErrInvalidTarget):
		return err.Error()
	case err != nil:
		return "connection failed: " + err.Error()
	}
	return "connection failed"
}
