package game

import (
	"github.com/mo-shahab/peer-pong/ball"
	"github.com/mo-shahab/peer-pong/canvas"
	"github.com/mo-shahab/peer-pong/paddle"
	"github.com/mo-shahab/peer-pong/scores"
)

// Snapshot is a read-only copy of everything the renderer draws.
type Snapshot struct {
	Court     canvas.Canvas
	Phase     Phase
	Mode      Mode
	Left      paddle.Paddle
	Right     paddle.Paddle
	Ball      ball.Ball
	RenderX   float64
	RenderY   float64
	Scores    scores.Scores
	Countdown int
	Particles []Particle
	Status    string

	LocalID  string
	RemoteID string
	IsHost   bool
}

// Snapshot copies the state with the ball drawn at (renderX, renderY).
func (gs *GameState) Snapshot(renderX, renderY float64) Snapshot {
	return Snapshot{
		Court:     gs.court,
		Phase:     gs.Phase,
		Mode:      gs.Mode,
		Left:      gs.Left,
		Right:     gs.Right,
		Ball:      gs.Ball,
		RenderX:   renderX,
		RenderY:   renderY,
		Scores:    gs.Scores,
		Countdown: gs.Countdown(),
		Particles: gs.Particles(),
		Status:    gs.Status,
	}
}
