package game

import "math"

// DefaultReachSafety keeps bots from counting on shots at the very edge of
// their range, where terrain in the way usually cuts the arc short.
const DefaultReachSafety = 0.85

// Reach returns the horizontal distance a shell covers before it falls back
// to its launch height over flat ground.
// Formula: (VelocityScale * speed)^2 * |sin(2*angle)| / G
func Reach(b Ballistics, speed, angle float64) float64 {
	v := b.VelocityScale * speed
	return v * v * math.Abs(math.Sin(2*angle)) / b.G()
}

// MaxReach is Reach at the best angle (PI/4).
func MaxReach(b Ballistics, speed float64) float64 {
	return Reach(b, speed, math.Pi/4)
}

// EffectiveReach returns MaxReach scaled down by a safety margin.
func EffectiveReach(b Ballistics, speed, safetyMargin float64) float64 {
	return MaxReach(b, speed) * safetyMargin
}

// WeaponReach returns the farthest flat-ground reach of any shell of w fired
// at speed. Targeted weapons reach every column.
func WeaponReach(b Ballistics, w WeaponStats, speed float64) float64 {
	switch w.Kind {
	case KindTargeted:
		return math.Inf(1)
	case KindSpread:
		f := 1.0
		for _, s := range w.SpreadFactors {
			f = math.Max(f, s)
		}
		return MaxReach(b, f*speed)
	default:
		return MaxReach(b, speed)
	}
}
