package ball

import (
	"math"
	"math/rand"

	"github.com/mo-shahab/peer-pong/canvas"
	"github.com/mo-shahab/peer-pong/paddle"
	"github.com/mo-shahab/peer-pong/scores"
)

// Integrate advances the ball by one tick of velocity.
func (b *Ball) Integrate() {
	b.X += b.Dx
	b.Y += b.Dy
}

// BounceWalls reflects the vertical velocity on top or bottom contact.
func (b *Ball) BounceWalls(court canvas.Canvas) bool {
	if b.Y-b.Radius < 0 {
		b.Dy = math.Abs(b.Dy)
		return true
	}
	if b.Y+b.Radius > court.Height {
		b.Dy = -math.Abs(b.Dy)
		return true
	}
	return false
}

// BouncePaddles reflects the horizontal velocity when the ball's leading
// edge is inside a paddle's horizontal span and its centre is inside the
// paddle's vertical span. There is no angle or spin.
func (b *Ball) BouncePaddles(left, right paddle.Paddle) bool {
	leading := b.X - b.Radius
	if b.Dx < 0 && leading <= left.Right() && leading >= left.Left() && left.Contains(b.Y) {
		b.Dx = math.Abs(b.Dx)
		return true
	}

	leading = b.X + b.Radius
	if b.Dx > 0 && leading >= right.Left() && leading <= right.Right() && right.Contains(b.Y) {
		b.Dx = -math.Abs(b.Dx)
		return true
	}
	return false
}

// OutOfBounds reports which player scores when the ball left the court
// through the left or right edge.
func (b Ball) OutOfBounds(court canvas.Canvas) (scores.Player, bool) {
	if b.X-b.Radius < 0 {
		return scores.Player2, true
	}
	if b.X+b.Radius > court.Width {
		return scores.Player1, true
	}
	return 0, false
}

// Recenter puts the ball back in the middle with the sign of each velocity
// component picked independently at random.
func (b *Ball) Recenter(court canvas.Canvas, speed float64, rng *rand.Rand) {
	b.X = court.CenterX()
	b.Y = court.CenterY()
	b.Dx = randomSign(rng) * speed
	b.Dy = randomSign(rng) * speed
}

func randomSign(rng *rand.Rand) float64 {
	if rng.Float64() > 0.5 {
		return 1
	}
	return -1
}
