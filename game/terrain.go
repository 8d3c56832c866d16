package game

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// Terrain kinds
const (
	TerrainSnow   = "Snow"
	TerrainHill   = "Hill"
	TerrainDesert = "Desert"
	TerrainMoon   = "Moon"
	TerrainRandom = "Random"
)

// ErrUnknownTerrain is returned when generating a terrain kind that has no generator.
var ErrUnknownTerrain = errors.New("unknown terrain kind")

// TerrainStats parameterises a generated heightmap:
//
//	h(x) = Baseline*H - int(a*sin((1+x)/c) + b*cos((1+x)/d))
//
// with a, b drawn from [AmpLo*H, AmpHi*H] and c, d from [W/PeriodLo, W/PeriodHi].
type TerrainStats struct {
	Baseline float64
	AmpLo    float64
	AmpHi    float64
	PeriodLo float64
	PeriodHi float64
	Color    Color // Ground fill for clients
}

var TerrainData = map[string]TerrainStats{
	TerrainSnow:   {Baseline: 0.5, AmpLo: 0.10, AmpHi: 0.15, PeriodLo: 50, PeriodHi: 10, Color: Color{255, 250, 250}},
	TerrainHill:   {Baseline: 0.7, AmpLo: 0.05, AmpHi: 0.08, PeriodLo: 20, PeriodHi: 10, Color: Color{0, 153, 0}},
	TerrainDesert: {Baseline: 0.9, AmpLo: 0.01, AmpHi: 0.01, PeriodLo: 5, PeriodHi: 1, Color: Color{236, 191, 13}},
	TerrainMoon:   {Baseline: 0.8, AmpLo: 0.01, AmpHi: 0.01, PeriodLo: 5, PeriodHi: 1, Color: Color{205, 205, 205}},
}

// TerrainKinds lists the generated kinds in menu order.
var TerrainKinds = []string{TerrainSnow, TerrainHill, TerrainDesert, TerrainMoon}

// Terrain is the destructible ground: one surface height per pixel column.
// Heights are screen y of the surface, so a crater increases them.
type Terrain struct {
	Kind    string
	heights []int
	version int
}

// NewTerrain wraps a copy of heights.
func NewTerrain(kind string, heights []int) *Terrain {
	return &Terrain{
		Kind:    kind,
		heights: append([]int(nil), heights...),
	}
}

// GenerateTerrain builds a heightmap of the given kind for a width x height
// playfield. TerrainRandom picks one of TerrainKinds.
func GenerateTerrain(kind string, width, height int, rng *rand.Rand) (*Terrain, error) {
	if kind == TerrainRandom {
		kind = TerrainKinds[rng.IntN(len(TerrainKinds))]
	}
	stats, ok := TerrainData[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTerrain, kind)
	}

	h := float64(height)
	w := float64(width)
	a := randInt(rng, stats.AmpLo*h, stats.AmpHi*h)
	b := randInt(rng, stats.AmpLo*h, stats.AmpHi*h)
	c := randInt(rng, w/stats.PeriodLo, w/stats.PeriodHi)
	d := randInt(rng, w/stats.PeriodLo, w/stats.PeriodHi)
	if c == 0 {
		c = 1
	}
	if d == 0 {
		d = 1
	}

	heights := make([]int, width)
	for x := range heights {
		wave := float64(a)*math.Sin(float64(1+x)/float64(c)) + float64(b)*math.Cos(float64(1+x)/float64(d))
		y := int(stats.Baseline*h - float64(int(wave)))
		heights[x] = max(y, 0)
	}
	return &Terrain{Kind: kind, heights: heights}, nil
}

// randInt returns an integer in [int(lo), int(hi)].
func randInt(rng *rand.Rand, lo, hi float64) int {
	l, u := int(lo), int(hi)
	if u <= l {
		return l
	}
	return l + rng.IntN(u-l+1)
}

// Width returns the number of columns.
func (t *Terrain) Width() int {
	return len(t.heights)
}

// Height returns the surface height at column x; ok is false outside the playfield.
func (t *Terrain) Height(x int) (int, bool) {
	if x < 0 || x >= len(t.heights) {
		return 0, false
	}
	return t.heights[x], true
}

// Heights returns a copy of the heightmap.
func (t *Terrain) Heights() []int {
	return append([]int(nil), t.heights...)
}

// Version increases every time ApplyBlast changes a column.
func (t *Terrain) Version() int {
	return t.version
}

// Clone returns an independent copy.
func (t *Terrain) Clone() *Terrain {
	return &Terrain{Kind: t.Kind, heights: t.Heights(), version: t.version}
}

// SlopeAngle returns the ground angle at column x from its two neighbours,
// or 0 at the playfield edges.
func (t *Terrain) SlopeAngle(x int) float64 {
	if x <= 0 || x >= len(t.heights)-1 {
		return 0
	}
	return math.Atan2(float64(t.heights[x+1]-t.heights[x-1]), 1)
}

// ApplyBlast carves a circular crater of the given radius around center.
// A column is lowered to the bottom of the circle when its surface point is
// inside the blast and only if that lowers the ground; heights never decrease.
// Returns the columns that changed.
func (t *Terrain) ApplyBlast(center Point, radius int) []int {
	if radius <= 0 {
		return nil
	}
	var changed []int
	r := float64(radius)
	for x := center.X - radius; x <= center.X+radius; x++ {
		if x < 0 || x >= len(t.heights) {
			continue
		}
		if Distance(float64(center.X), float64(center.Y), float64(x), float64(t.heights[x])) > r {
			continue
		}
		dx := center.X - x
		depth := int(float64(center.Y) + math.Sqrt(float64(radius*radius-dx*dx)))
		if depth > t.heights[x] {
			t.heights[x] = depth
			changed = append(changed, x)
		}
	}
	if len(changed) > 0 {
		t.version++
	}
	return changed
}
