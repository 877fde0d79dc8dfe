// Package history buffers recent ball samples and smooths the rendered ball
// position between them.
package history

import "time"

// DefaultCapacity is the number of samples kept when none is given.
const DefaultCapacity = 10

// Sample is a ball position and the time it became known locally.
type Sample struct {
	X, Y float64
	At   time.Time
}

// Buffer is a bounded FIFO of samples. The oldest sample is evicted once
// the buffer is full. It is not safe for concurrent use.
type Buffer struct {
	samples  []Sample
	capacity int
}

func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		samples:  make([]Sample, 0, capacity),
		capacity: capacity,
	}
}

// Record appends a sample, evicting the oldest when at capacity.
func (b *Buffer) Record(x, y float64, at time.Time) {
	if len(b.samples) == b.capacity {
		copy(b.samples, b.samples[1:])
		b.samples = b.samples[:len(b.samples)-1]
	}
	b.samples = append(b.samples, Sample{X: x, Y: y, At: at})
}

func (b *Buffer) Len() int      { return len(b.samples) }
func (b *Buffer) Capacity() int { return b.capacity }

// Samples returns a copy, oldest first.
func (b *Buffer) Samples() []Sample {
	out := make([]Sample, len(b.samples))
	copy(out, b.samples)
	return out
}

// Last returns the newest sample.
func (b *Buffer) Last() (Sample, bool) {
	if len(b.samples) == 0 {
		return Sample{}, false
	}
	return b.samples[len(b.samples)-1], true
}

func (b *Buffer) Reset() {
	b.samples = b.samples[:0]
}
