package server

import (
	"math"

	"github.com/lab1702/battletanks-web/game"
)

// selectTarget returns the nearest active enemy by horizontal distance.
func selectTarget(m *game.Match, tk *game.Tank) *game.Tank {
	var best *game.Tank
	bestDist := math.Inf(1)
	for _, other := range m.Tanks {
		if other == tk || !other.Active() {
			continue
		}
		if d := math.Abs(float64(other.X - tk.X)); d < bestDist {
			best, bestDist = other, d
		}
	}
	return best
}

// chooseWeapon picks the most damaging weapon with ammo that can reach dist
// without catching the shooter in its own blast. The default weapon is the
// fallback.
func chooseWeapon(tk *game.Tank, armory *game.Armory, b game.Ballistics, dist float64) string {
	best, bestDamage := game.DefaultWeapon, -1
	for _, name := range armory.Weapons() {
		if tk.Ammo[name] == 0 {
			continue
		}
		w, _ := armory.Weapon(name)
		if float64(game.Explode(w.Blast()).MaxRadius+game.TankWidth) >= dist {
			continue
		}
		if game.WeaponReach(b, w, tk.Health) < dist {
			continue
		}
		if w.Damage > bestDamage {
			best, bestDamage = name, w.Damage
		}
	}
	return best
}

// aimAt searches turret angle and power for the shot whose nearest landing
// is closest to targetX. Only the half of the arc facing the target is tried.
func aimAt(m *game.Match, tk *game.Tank, w game.WeaponStats, targetX int) (angle, power, miss float64) {
	s := searchAim(m, tk, w, targetX)
	return s.angle, s.power, s.miss
}

// aimSearch keeps the best shot found so far.
type aimSearch struct {
	m       *game.Match
	probe   game.Tank
	w       game.WeaponStats
	targetX int
	dist    float64

	angle, power, miss float64
	solves             int
}

// searchAim runs a coarse grid over the facing half arc, then a fine grid
// around the best coarse shot.
func searchAim(m *game.Match, tk *game.Tank, w game.WeaponStats, targetX int) *aimSearch {
	s := &aimSearch{
		m:       m,
		probe:   *tk,
		w:       w,
		targetX: targetX,
		dist:    math.Abs(float64(targetX - tk.X)),
		angle:   math.Pi / 2,
		power:   tk.Power,
		miss:    MissPenalty,
	}

	lo, hi := AimAngleStep, math.Pi/2
	if targetX > tk.X {
		lo, hi = math.Pi/2, math.Pi-AimAngleStep
	}
	s.grid(lo, hi, AimAngleStep, AimMinPower, tk.Health, AimPowerStep)

	a, p := s.angle, s.power
	s.grid(
		math.Max(lo, a-AimAngleStep), math.Min(hi, a+AimAngleStep), AimRefineAngleStep,
		math.Max(AimMinPower, p-AimPowerStep), math.Min(tk.Health, p+AimPowerStep), AimRefinePowerStep,
	)
	return s
}

func (s *aimSearch) grid(aLo, aHi, aStep, pLo, pHi, pStep float64) {
	b := s.m.Ballistics
	for a := aLo; a <= aHi+1e-9; a += aStep {
		s.probe.Angle = a
		x, y := s.probe.Launch()
		for p := pLo; p <= pHi+1e-9; p += pStep {
			if game.WeaponReach(b, s.w, p) < s.dist/2 {
				continue
			}
			s.solves++
			paths := b.Solve(game.Shot{Weapon: s.w, X: x, Y: y, Speed: p, Angle: a}, s.m.Terrain)
			if d := landingError(paths, s.m.Terrain, s.targetX); d < s.miss {
				s.angle, s.power, s.miss = a, p, d
			}
		}
	}
}

// landingError is the distance from targetX to the nearest shell that hits
// the ground.
func landingError(paths []game.Path, t *game.Terrain, targetX int) float64 {
	best := MissPenalty
	for _, p := range paths {
		end, ok := p.Last()
		if !ok {
			continue
		}
		if ground, in := t.Height(end.X); !in || end.Y < ground {
			continue
		}
		best = math.Min(best, math.Abs(float64(end.X-targetX)))
	}
	return best
}
