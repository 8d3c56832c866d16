package game

import (
	"errors"
	"math/rand/v2"
	"testing"

	"pgregory.net/rapid"
)

func flatTerrain(width, height int) *Terrain {
	heights := make([]int, width)
	for i := range heights {
		heights[i] = height
	}
	return NewTerrain("Flat", heights)
}

func TestGenerateTerrain(t *testing.T) {
	for _, kind := range TerrainKinds {
		t.Run(kind, func(t *testing.T) {
			rng := rand.New(rand.NewPCG(1, 2))
			tr, err := GenerateTerrain(kind, ScreenWidth, ScreenHeight, rng)
			if err != nil {
				t.Fatalf("GenerateTerrain(%s) returned error: %v", kind, err)
			}
			if tr.Width() != ScreenWidth {
				t.Errorf("width = %d, expected %d", tr.Width(), ScreenWidth)
			}
			if tr.Kind != kind {
				t.Errorf("kind = %q, expected %q", tr.Kind, kind)
			}

			stats := TerrainData[kind]
			base := stats.Baseline * ScreenHeight
			amp := 2 * stats.AmpHi * ScreenHeight
			for x, h := range tr.Heights() {
				if h < 0 {
					t.Fatalf("column %d has negative height %d", x, h)
				}
				if float64(h) < base-amp-1 || float64(h) > base+amp+1 {
					t.Fatalf("column %d height %d is outside %.0f +/- %.0f", x, h, base, amp)
				}
			}
		})
	}
}

func TestGenerateTerrainDeterministic(t *testing.T) {
	a, _ := GenerateTerrain(TerrainRandom, 300, 200, rand.New(rand.NewPCG(7, 7)))
	b, _ := GenerateTerrain(TerrainRandom, 300, 200, rand.New(rand.NewPCG(7, 7)))
	if a.Kind != b.Kind {
		t.Fatalf("same seed produced kinds %q and %q", a.Kind, b.Kind)
	}
	ha, hb := a.Heights(), b.Heights()
	for x := range ha {
		if ha[x] != hb[x] {
			t.Fatalf("same seed differs at column %d: %d vs %d", x, ha[x], hb[x])
		}
	}
}

func TestGenerateTerrainUnknownKind(t *testing.T) {
	_, err := GenerateTerrain("Lava", 100, 100, rand.New(rand.NewPCG(1, 1)))
	if !errors.Is(err, ErrUnknownTerrain) {
		t.Errorf("expected ErrUnknownTerrain, got %v", err)
	}
}

func TestTerrainHeightBounds(t *testing.T) {
	tr := flatTerrain(10, 50)
	tests := []struct {
		x  int
		ok bool
	}{
		{-1, false},
		{0, true},
		{9, true},
		{10, false},
	}
	for _, tt := range tests {
		if _, ok := tr.Height(tt.x); ok != tt.ok {
			t.Errorf("Height(%d) ok = %v, expected %v", tt.x, ok, tt.ok)
		}
	}
}

func TestSlopeAngle(t *testing.T) {
	tr := NewTerrain("Ramp", []int{10, 11, 12, 13})
	if got := tr.SlopeAngle(0); got != 0 {
		t.Errorf("SlopeAngle at the left edge = %f, expected 0", got)
	}
	if got := tr.SlopeAngle(3); got != 0 {
		t.Errorf("SlopeAngle at the right edge = %f, expected 0", got)
	}
	// atan2(2, 1)
	if got := tr.SlopeAngle(1); got < 1.107 || got > 1.108 {
		t.Errorf("SlopeAngle(1) = %f, expected ~1.1071", got)
	}
}

func TestApplyBlastCrater(t *testing.T) {
	tr := flatTerrain(100, 50)
	changed := tr.ApplyBlast(Point{X: 50, Y: 50}, 10)

	if len(changed) == 0 {
		t.Fatal("blast on the surface changed nothing")
	}
	if tr.Version() != 1 {
		t.Errorf("version = %d, expected 1", tr.Version())
	}
	// Deepest at the epicenter
	if h, _ := tr.Height(50); h != 60 {
		t.Errorf("epicenter height = %d, expected 60", h)
	}
	// Columns beyond the radius are untouched
	for _, x := range []int{39, 61} {
		if h, _ := tr.Height(x); h != 50 {
			t.Errorf("column %d height = %d, expected 50", x, h)
		}
	}
}

func TestApplyBlastInAirLeavesGround(t *testing.T) {
	tr := flatTerrain(100, 50)
	changed := tr.ApplyBlast(Point{X: 50, Y: 10}, 10)
	if len(changed) != 0 {
		t.Errorf("blast far above the ground changed columns %v", changed)
	}
	if tr.Version() != 0 {
		t.Errorf("version = %d, expected 0", tr.Version())
	}
}

func TestApplyBlastAtEdge(t *testing.T) {
	tr := flatTerrain(20, 50)
	tr.ApplyBlast(Point{X: 0, Y: 50}, 10)
	tr.ApplyBlast(Point{X: 19, Y: 50}, 10)
	if tr.Width() != 20 {
		t.Errorf("width changed to %d", tr.Width())
	}
}

func TestApplyBlastNeverLowersGround(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		heights := rapid.SliceOfN(rapid.IntRange(0, 500), 1, 300).Draw(t, "heights")
		tr := NewTerrain("Prop", heights)
		before := tr.Heights()

		cx := rapid.IntRange(-50, len(heights)+50).Draw(t, "cx")
		cy := rapid.IntRange(-50, 600).Draw(t, "cy")
		r := rapid.IntRange(0, 200).Draw(t, "radius")
		tr.ApplyBlast(Point{X: cx, Y: cy}, r)

		after := tr.Heights()
		if len(after) != len(before) {
			t.Fatalf("width changed from %d to %d", len(before), len(after))
		}
		for x := range after {
			if after[x] < before[x] {
				t.Fatalf("column %d rose from %d to %d", x, before[x], after[x])
			}
		}
	})
}
