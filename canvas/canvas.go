package canvas

// Canvas is the playing court. The origin is the top left corner.
type Canvas struct {
	Width  float64
	Height float64
}

func (c Canvas) CenterX() float64 { return c.Width / 2 }
func (c Canvas) CenterY() float64 { return c.Height / 2 }
