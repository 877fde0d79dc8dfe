// Package game holds the local simulation: paddles, ball, scores, the
// countdown and the phase state machine.
package game

import (
	"math/rand"

	"go.uber.org/zap"

	"github.com/mo-shahab/peer-pong/ball"
	"github.com/mo-shahab/peer-pong/canvas"
	"github.com/mo-shahab/peer-pong/paddle"
	"github.com/mo-shahab/peer-pong/protocol"
	"github.com/mo-shahab/peer-pong/scores"
)

// GameState is the authoritative local state. It is owned by a single
// goroutine, the game loop.
type GameState struct {
	Phase  Phase
	Mode   Mode
	Left   paddle.Paddle
	Right  paddle.Paddle
	Ball   ball.Ball
	Scores scores.Scores

	// Authoritative peers run ball physics. Every local mode and the online
	// host are authoritative; the online guest is not.
	Authoritative bool
	// Side controlled by this process in online mode.
	LocalSide scores.Player

	Status string

	cfg          Config
	court        canvas.Canvas
	countdown    int
	particles    []Particle
	held         [4]bool
	scoreChanged bool
	rng          *rand.Rand
	logger       *zap.SugaredLogger
}

func NewGameState(cfg Config, rng *rand.Rand, logger *zap.SugaredLogger) *GameState {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	gs := &GameState{
		Phase:  PhaseTitle,
		cfg:    cfg,
		court:  cfg.Court(),
		rng:    rng,
		logger: logger,
	}
	gs.Reset()
	return gs
}

func (gs *GameState) Config() Config       { return gs.cfg }
func (gs *GameState) Court() canvas.Canvas { return gs.court }

// Reset puts paddles and ball back in place and zeroes the scores.
func (gs *GameState) Reset() {
	gs.Left = paddle.New(gs.cfg.PaddleOffset, gs.cfg.PaddleWidth, gs.cfg.PaddleHeight, gs.court)
	gs.Right = paddle.New(
		gs.court.Width-gs.cfg.PaddleWidth-gs.cfg.PaddleOffset,
		gs.cfg.PaddleWidth, gs.cfg.PaddleHeight, gs.court,
	)
	gs.Ball = ball.New(gs.cfg.BallRadius, gs.cfg.BallSpeed, gs.court)
	gs.Scores.Reset()
	gs.particles = nil
	gs.countdown = 0
	gs.scoreChanged = false
	gs.held = [4]bool{}
}

func (gs *GameState) setPhase(p Phase) {
	if gs.Phase != p {
		gs.logger.Debugf("phase %s -> %s", gs.Phase, p)
	}
	gs.Phase = p
}

// StartLocal begins a same-keyboard match.
func (gs *GameState) StartLocal(mode Mode) {
	gs.Mode = mode
	gs.Authoritative = true
	gs.LocalSide = 0
	gs.Status = ""
	gs.play()
	gs.logger.Infof("starting %s game", mode)
}

// StartOnline waits for a peer session.
func (gs *GameState) StartOnline() {
	gs.Mode = ModeOnline
	gs.Status = ""
	gs.Reset()
	gs.setPhase(PhaseConnecting)
}

// BeginOnlineMatch starts play once the session opened. The host plays
// the left paddle and owns the ball.
func (gs *GameState) BeginOnlineMatch(isHost bool) {
	gs.Mode = ModeOnline
	gs.Authoritative = isHost
	gs.LocalSide = scores.Player2
	if isHost {
		gs.LocalSide = scores.Player1
	}
	gs.Status = ""
	gs.play()
	gs.logger.Infof("online match started, host=%v", isHost)
}

// PlayAgain restarts a finished match.
func (gs *GameState) PlayAgain() bool {
	if gs.Phase != PhaseGameOver {
		return false
	}
	gs.play()
	return true
}

// ReturnToTitle abandons whatever was going on.
func (gs *GameState) ReturnToTitle() {
	gs.Mode = ModeNone
	gs.Authoritative = false
	gs.LocalSide = 0
	gs.Reset()
	gs.setPhase(PhaseTitle)
}

func (gs *GameState) play() {
	gs.Reset()
	gs.setPhase(PhasePlaying)
	gs.countdown = gs.cfg.countdownTicks()
}

// Countdown is the value shown while counting down, zero when not.
func (gs *GameState) Countdown() int {
	if gs.countdown <= 0 {
		return 0
	}
	return (gs.countdown + gs.cfg.FrameRate - 1) / gs.cfg.FrameRate
}

// LocalPaddle is the paddle this process steers online.
func (gs *GameState) LocalPaddle() *paddle.Paddle {
	if gs.LocalSide == scores.Player2 {
		return &gs.Right
	}
	return &gs.Left
}

// RemotePaddle is the opponent's paddle online.
func (gs *GameState) RemotePaddle() *paddle.Paddle {
	if gs.LocalSide == scores.Player2 {
		return &gs.Left
	}
	return &gs.Right
}

// HandleInput turns key events into paddle velocity. Releasing a key
// falls back to another key still held for the same paddle. Events
// outside of play are ignored.
func (gs *GameState) HandleInput(ev InputEvent) {
	if gs.Phase != PhasePlaying {
		return
	}
	gs.held[ev.Action] = ev.Pressed

	p, keys := gs.inputTarget(ev.Action)
	if ev.Pressed {
		p.Steer(direction(ev.Action), gs.cfg.PaddleSpeed)
		return
	}
	for _, a := range keys {
		if gs.held[a] {
			p.Steer(direction(a), gs.cfg.PaddleSpeed)
			return
		}
	}
	p.Steer(paddle.Stop, gs.cfg.PaddleSpeed)
}

// inputTarget is the paddle an action steers and every action steering it.
func (gs *GameState) inputTarget(a Action) (*paddle.Paddle, []Action) {
	switch {
	case gs.Mode == ModeOnline:
		return gs.LocalPaddle(), []Action{P1Up, P1Down, P2Up, P2Down}
	case a == P1Up || a == P1Down:
		return &gs.Left, []Action{P1Up, P1Down}
	}
	return &gs.Right, []Action{P2Up, P2Down}
}

func direction(a Action) paddle.Direction {
	if a == P1Up || a == P2Up {
		return paddle.Up
	}
	return paddle.Down
}

// Tick advances the simulation by one frame. It reports whether the ball
// moved under local physics.
func (gs *GameState) Tick() bool {
	switch gs.Phase {
	case PhasePlaying:
		if gs.countdown > 0 {
			gs.countdown--
			return false
		}
		gs.Left.Integrate(gs.court)
		gs.Right.Integrate(gs.court)
		if !gs.Authoritative {
			return false
		}
		gs.updateBall()
		return true

	case PhaseGameOver:
		gs.particles = advance(gs.particles)
	}
	return false
}

func (gs *GameState) updateBall() {
	gs.Ball.Integrate()
	gs.Ball.BounceWalls(gs.court)
	gs.Ball.BouncePaddles(gs.Left, gs.Right)

	scorer, out := gs.Ball.OutOfBounds(gs.court)
	if !out {
		return
	}
	gs.Scores.Increment(scorer)
	gs.scoreChanged = true
	gs.logger.Infof("%s scored, %d-%d", scorer, gs.Scores.Player1, gs.Scores.Player2)
	gs.Ball.Recenter(gs.court, gs.cfg.BallSpeed, gs.rng)
	gs.checkGameOver()
}

func (gs *GameState) checkGameOver() {
	if gs.Phase != PhasePlaying {
		return
	}
	winner, ok := gs.Scores.Winner(gs.cfg.WinningScore)
	if !ok {
		return
	}
	gs.setPhase(PhaseGameOver)
	gs.particles = burst(gs.cfg.ParticleCount, gs.court.CenterX(), gs.court.CenterY(), gs.rng)
	gs.logger.Infof("game over, %s wins %d-%d", winner, gs.Scores.Player1, gs.Scores.Player2)
}

// TakeScoreChanged reports and clears a pending score change to transmit.
func (gs *GameState) TakeScoreChanged() bool {
	changed := gs.scoreChanged
	gs.scoreChanged = false
	return changed
}

// ApplyRemote applies one decoded message from the opponent. It reports
// whether the message carried a ball sample to record.
func (gs *GameState) ApplyRemote(msg protocol.Message) bool {
	if gs.Mode != ModeOnline || (gs.Phase != PhasePlaying && gs.Phase != PhaseGameOver) {
		return false
	}

	switch msg.Type {
	case protocol.MsgTypePaddleMove:
		gs.RemotePaddle().SetY(msg.Position, gs.court)

	case protocol.MsgTypeBallUpdate:
		if gs.Authoritative {
			gs.logger.Debugf("host ignoring ball update")
			return false
		}
		gs.Ball.X = msg.X
		gs.Ball.Y = msg.Y
		return true

	case protocol.MsgTypeScoreUpdate:
		if msg.Player1Score < gs.Scores.Player1 || msg.Player2Score < gs.Scores.Player2 {
			gs.logger.Debugf("ignoring stale score %d-%d", msg.Player1Score, msg.Player2Score)
			return false
		}
		gs.Scores.Overwrite(msg.Player1Score, msg.Player2Score)
		gs.checkGameOver()
	}
	return false
}

// Particles returns a copy of the burst.
func (gs *GameState) Particles() []Particle {
	out := make([]Particle, len(gs.particles))
	copy(out, gs.particles)
	return out
}
