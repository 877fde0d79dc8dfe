package ball

import "github.com/mo-shahab/peer-pong/canvas"

type Ball struct {
	X, Y   float64
	Dx, Dy float64
	Radius float64
}

// New returns a ball at the centre of the court moving down and right.
func New(radius, speed float64, court canvas.Canvas) Ball {
	return Ball{
		X:      court.CenterX(),
		Y:      court.CenterY(),
		Dx:     speed,
		Dy:     speed,
		Radius: radius,
	}
}
