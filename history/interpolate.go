package history

import "time"

// Interpolate returns the render position at now from the two newest
// samples: prev + (last - prev) * t with t = (now - prev) / (last - prev).
//
// With a single sample its position is returned unchanged. When both
// samples share a timestamp t is taken as 1. A t above 1 is kept so the
// ball keeps moving while the next update is in flight.
func (b *Buffer) Interpolate(now time.Time) (x, y float64, ok bool) {
	switch len(b.samples) {
	case 0:
		return 0, 0, false
	case 1:
		s := b.samples[0]
		return s.X, s.Y, true
	}

	prev := b.samples[len(b.samples)-2]
	last := b.samples[len(b.samples)-1]

	t := Factor(prev.At, last.At, now)
	x = prev.X + (last.X-prev.X)*t
	y = prev.Y + (last.Y-prev.Y)*t
	return x, y, true
}

// Factor is the interpolation parameter for now between prev and last.
func Factor(prev, last, now time.Time) float64 {
	total := last.Sub(prev)
	if total <= 0 {
		return 1
	}
	return float64(now.Sub(prev)) / float64(total)
}
