package paddle

import "github.com/mo-shahab/peer-pong/canvas"

// Direction of a key press on a paddle.
type Direction int

const (
	Stop Direction = iota
	Up
	Down
)

// Steer sets the vertical velocity for a direction at the given speed.
func (p *Paddle) Steer(direction Direction, speed float64) {
	switch direction {
	case Up:
		p.Dy = -speed
	case Down:
		p.Dy = speed
	default:
		p.Dy = 0
	}
}

// Integrate moves the paddle by its velocity and keeps it inside the court.
func (p *Paddle) Integrate(court canvas.Canvas) {
	p.SetY(p.Y+p.Dy, court)
}

// SetY assigns a position, clamped to [0, court height - paddle height].
func (p *Paddle) SetY(y float64, court canvas.Canvas) {
	p.Y = Clamp(y, p.Height, court)
}

// Clamp bounds a paddle position to the court.
func Clamp(y, height float64, court canvas.Canvas) float64 {
	maxY := court.Height - height
	if y > maxY {
		y = maxY
	}
	if y < 0 {
		y = 0
	}
	return y
}

// Contains reports whether a vertical coordinate lies strictly within the
// paddle's vertical span.
func (p Paddle) Contains(y float64) bool {
	return y > p.Top() && y < p.Bottom()
}
