package game

import "math/rand"

const (
	particleGravity = 0.1
	particleShrink  = 0.02
)

// Particle is one piece of the game over burst.
type Particle struct {
	X, Y   float64
	Vx, Vy float64
	Radius float64
	Hue    int
}

func burst(n int, x, y float64, rng *rand.Rand) []Particle {
	out := make([]Particle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Particle{
			X:      x,
			Y:      y,
			Radius: rng.Float64()*3 + 1,
			Hue:    rng.Intn(360),
			Vx:     (rng.Float64() - 0.5) * 5,
			Vy:     (rng.Float64() - 0.5) * 5,
		})
	}
	return out
}

// advance moves every particle one tick and drops the ones that shrank away.
func advance(ps []Particle) []Particle {
	kept := ps[:0]
	for _, p := range ps {
		p.X += p.Vx
		p.Y += p.Vy
		p.Vy += particleGravity
		p.Radius -= particleShrink
		if p.Radius > 0 {
			kept = append(kept, p)
		}
	}
	return kept
}
