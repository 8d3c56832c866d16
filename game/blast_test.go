package game

import "testing"

func TestExplodeProfiles(t *testing.T) {
	tests := []struct {
		name      string
		profile   BlastProfile
		rings     int
		maxRadius int
	}{
		{name: "Death", profile: DeathProfile, rings: 19, maxRadius: 26},
		{name: "Missile", profile: BlastProfile{Radius: 20, EndFactor: 0.2}, rings: 10, maxRadius: 13},
		{name: "Heavy Missile", profile: BlastProfile{Radius: 30, EndFactor: 0.2}, rings: 10, maxRadius: 19},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Explode(tt.profile)
			if len(b.Rings) != tt.rings {
				t.Errorf("Explode(%v) produced %d rings, expected %d", tt.profile, len(b.Rings), tt.rings)
			}
			if b.MaxRadius != tt.maxRadius {
				t.Errorf("Explode(%v) max radius = %d, expected %d", tt.profile, b.MaxRadius, tt.maxRadius)
			}
		})
	}
}

func TestExplodeRingShape(t *testing.T) {
	b := Explode(BlastProfile{Radius: 20, EndFactor: 0.2})

	if b.Rings[0].Radius != 0 {
		t.Errorf("first ring radius = %d, expected 0", b.Rings[0].Radius)
	}
	// Rises to the peak at t=1, then decays
	for i := 2; i < len(b.Rings); i++ {
		if b.Rings[i].Radius > b.Rings[i-1].Radius {
			t.Errorf("ring %d radius %d grew after the peak (previous %d)", i, b.Rings[i].Radius, b.Rings[i-1].Radius)
		}
	}

	colors := []struct {
		index int
		green uint8
	}{
		{0, 255},
		{1, 229}, // 255 - 25.5 truncated
		{9, 25},  // 255 - 229.5 truncated
	}
	for _, c := range colors {
		got := b.Rings[c.index].Color
		if got != (Color{255, c.green, 0}) {
			t.Errorf("ring %d color = %v, expected (255, %d, 0)", c.index, got, c.green)
		}
	}
}

func TestExplodeStopsWithoutTail(t *testing.T) {
	b := Explode(BlastProfile{Radius: 20, EndFactor: 0})
	if len(b.Rings) != maxBlastSamples {
		t.Errorf("expected the curve to be capped at %d samples, got %d", maxBlastSamples, len(b.Rings))
	}

	b = Explode(BlastProfile{})
	if b.MaxRadius != 0 {
		t.Errorf("zero profile max radius = %d, expected 0", b.MaxRadius)
	}
}

func TestDeathBlastPlaysReversed(t *testing.T) {
	forward := Explode(DeathProfile)
	death := DeathBlast()

	if len(death.Rings) != len(forward.Rings) {
		t.Fatalf("death rings = %d, expected %d", len(death.Rings), len(forward.Rings))
	}
	n := len(forward.Rings)
	for i := range death.Rings {
		if death.Rings[i] != forward.Rings[n-1-i] {
			t.Errorf("death ring %d = %v, expected %v", i, death.Rings[i], forward.Rings[n-1-i])
		}
	}
	if death.Rings[n-1].Radius != 0 {
		t.Errorf("last death ring radius = %d, expected 0", death.Rings[n-1].Radius)
	}
}

func TestCursor(t *testing.T) {
	items := []int{1, 2, 3}
	c := NewCursor(items)

	for i, want := range items {
		if c.Remaining() != len(items)-i {
			t.Errorf("Remaining() = %d before item %d, expected %d", c.Remaining(), i, len(items)-i)
		}
		got, ok := c.Next()
		if !ok || got != want {
			t.Errorf("Next() = (%d, %v), expected (%d, true)", got, ok, want)
		}
	}
	if !c.Done() {
		t.Error("cursor should be done after every item")
	}
	if _, ok := c.Next(); ok {
		t.Error("Next() past the end should report false")
	}

	// The sequence is still intact for replay
	c.Reset()
	if got, _ := c.Next(); got != 1 {
		t.Errorf("after Reset Next() = %d, expected 1", got)
	}
	if len(c.Items()) != 3 || items[2] != 3 {
		t.Error("cursor must not modify the underlying items")
	}
}
