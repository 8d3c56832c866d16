package game

import "math"

// maxBlastSamples stops the radius curve for profiles whose tail never ends
// (EndFactor <= 0).
const maxBlastSamples = 1000

// Ring is one frame of an explosion animation.
type Ring struct {
	Color  Color `json:"color"`
	Radius int   `json:"radius"`
}

// Blast is the outcome of an explosion: the damage radius and its rings.
type Blast struct {
	MaxRadius int
	Rings     []Ring
}

// Explode samples the blast radius curve
//
//	r(t) = R * e * ln(1+t) / (1+t)^1.5
//
// at t = 0, 1, 2... while t < e-1 or the last sample is above the tail
// EndFactor*R. Rings are returned in sample order, which is also playback
// order; ring i of n is colored (255, 255 - i*255/n, 0).
func Explode(p BlastProfile) Blast {
	tail := p.EndFactor * float64(p.Radius)
	var radii []int
	radius := 0.0
	for t := 0.0; (t < math.E-1 || radius > tail) && len(radii) < maxBlastSamples; t++ {
		radius = float64(p.Radius) * math.E * math.Log1p(t) / math.Pow(1+t, 1.5)
		radii = append(radii, int(radius))
	}

	blast := Blast{Rings: make([]Ring, len(radii))}
	step := 255.0 / float64(len(radii))
	for i, r := range radii {
		blast.Rings[i] = Ring{
			Color:  Color{255, uint8(int(255 - float64(i)*step)), 0},
			Radius: r,
		}
		blast.MaxRadius = max(blast.MaxRadius, r)
	}
	return blast
}

// DeathBlast returns the destruction animation of a tank. Its rings play
// from the last sample back to the first.
func DeathBlast() Blast {
	b := Explode(DeathProfile)
	for i, j := 0, len(b.Rings)-1; i < j; i, j = i+1, j-1 {
		b.Rings[i], b.Rings[j] = b.Rings[j], b.Rings[i]
	}
	return b
}

// Cursor walks an immutable sequence one element per tick. The sequence
// itself is never modified, so it can be replayed or inspected afterwards.
type Cursor[T any] struct {
	items []T
	pos   int
}

// NewCursor starts a cursor before the first element.
func NewCursor[T any](items []T) *Cursor[T] {
	return &Cursor[T]{items: items}
}

// Next returns the next element and advances.
func (c *Cursor[T]) Next() (T, bool) {
	var zero T
	if c.pos >= len(c.items) {
		return zero, false
	}
	v := c.items[c.pos]
	c.pos++
	return v, true
}

// Done reports whether every element has been returned.
func (c *Cursor[T]) Done() bool {
	return c.pos >= len(c.items)
}

// Remaining returns how many elements are left.
func (c *Cursor[T]) Remaining() int {
	return len(c.items) - c.pos
}

// Items returns the underlying sequence.
func (c *Cursor[T]) Items() []T {
	return c.items
}

// Reset rewinds to the start.
func (c *Cursor[T]) Reset() {
	c.pos = 0
}
