package paddle

import "github.com/mo-shahab/peer-pong/canvas"

// Paddle is one player's bat. X is fixed for the side it plays on, only Y
// and the vertical velocity change during a match.
type Paddle struct {
	X, Y   float64
	Width  float64
	Height float64
	Dy     float64
}

// New places a paddle vertically centred on the court.
func New(x, width, height float64, court canvas.Canvas) Paddle {
	return Paddle{
		X:      x,
		Y:      court.Height/2 - height/2,
		Width:  width,
		Height: height,
	}
}

// Top and Bottom of the paddle's vertical span.
func (p Paddle) Top() float64    { return p.Y }
func (p Paddle) Bottom() float64 { return p.Y + p.Height }

// Left and Right of the paddle's horizontal span.
func (p Paddle) Left() float64  { return p.X }
func (p Paddle) Right() float64 { return p.X + p.Width }
