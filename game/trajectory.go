package game

import "math"

// Solver defaults
const (
	VelocityScale  = 2.0
	GravityScale   = 3.0
	TimeResolution = 4.0
	Gravity        = 9.8

	// MaxFlightSteps bounds a single trajectory. Any shot that lands on the
	// playfield finishes far sooner.
	MaxFlightSteps = 20000
)

// Ballistics holds the trajectory solver tunables.
type Ballistics struct {
	VelocityScale  float64
	GravityScale   float64
	TimeResolution float64
	FPS            int
	MaxSteps       int
}

// DefaultBallistics returns the standard solver settings.
func DefaultBallistics() Ballistics {
	return Ballistics{
		VelocityScale:  VelocityScale,
		GravityScale:   GravityScale,
		TimeResolution: TimeResolution,
		FPS:            FPS,
		MaxSteps:       MaxFlightSteps,
	}
}

// G returns the scaled gravitational acceleration.
func (b Ballistics) G() float64 {
	return Gravity * b.GravityScale
}

// TimeUnit returns the simulated time that passes per path point.
func (b Ballistics) TimeUnit() float64 {
	fps := b.FPS
	if fps <= 0 {
		fps = FPS
	}
	return b.TimeResolution / float64(fps)
}

func (b Ballistics) maxSteps() int {
	if b.MaxSteps <= 0 {
		return MaxFlightSteps
	}
	return b.MaxSteps
}

// Trajectory integrates a single shell from start until it reaches the ground
// or leaves the playfield horizontally. It returns the path (start included)
// and the speed at the last step.
//
// Turret angles are mirrored before use (PI - angle): the turret is drawn
// with its barrel at X - L*cos(angle), so angle 0 points toward decreasing X
// and the velocity must agree with the barrel.
//
// Path points are truncated to integers, not rounded; the integration itself
// continues in floating point.
func (b Ballistics) Trajectory(startX, startY, speed, angle float64, t *Terrain) (Path, float64) {
	a := math.Pi - angle
	vx := b.VelocityScale * speed * math.Cos(a)
	vy := -b.VelocityScale * speed * math.Sin(a)
	dt := b.TimeUnit()
	g := b.G()

	x := float64(int(startX))
	y := float64(int(startY))
	path := Path{{X: int(x), Y: int(y)}}

	for step := 0; step < b.maxSteps(); step++ {
		ground, ok := t.Height(int(x))
		if !ok || int(y) >= ground {
			break
		}
		x += vx * dt
		if col := int(x); col < 0 || col >= t.Width() {
			// Left the playfield: keep what was flown so far
			break
		}
		y += vy*dt + 0.5*g*dt*dt
		vy += g * dt
		path = append(path, Point{X: int(x), Y: int(y)})
	}

	return path, math.Sqrt(vx*vx + vy*vy)
}

// Shot describes one trigger pull.
type Shot struct {
	Weapon WeaponStats
	X, Y   float64 // Launch point (turret tip)
	Speed  float64
	Angle  float64
	Target int // Column for targeted weapons
}

// Solve computes every path a shot produces according to its weapon kind.
func (b Ballistics) Solve(s Shot, t *Terrain) []Path {
	switch s.Weapon.Kind {
	case KindSpread:
		return b.spread(s, t)
	case KindBounce:
		return b.bounce(s, t)
	case KindTargeted:
		return []Path{b.drop(s.Weapon, s.Target, t)}
	default:
		path, _ := b.Trajectory(s.X, s.Y, s.Speed, s.Angle, t)
		return []Path{path}
	}
}

// spread fires one independent shell per velocity factor.
func (b Ballistics) spread(s Shot, t *Terrain) []Path {
	factors := s.Weapon.SpreadFactors
	if len(factors) == 0 {
		factors = []float64{1}
	}
	paths := make([]Path, 0, len(factors))
	for _, f := range factors {
		path, _ := b.Trajectory(s.X, s.Y, f*s.Speed, s.Angle, t)
		paths = append(paths, path)
	}
	return paths
}

// bounce fires the initial shell, then launches Bounces low-energy shells
// from one pixel above the landing column along the ground slope. Each bounce
// path is prefixed with the initial path so playback is continuous.
func (b Ballistics) bounce(s Shot, t *Terrain) []Path {
	initial, exit := b.Trajectory(s.X, s.Y, s.Speed, s.Angle, t)
	paths := []Path{initial}

	end, _ := initial.Last()
	ground, ok := t.Height(end.X)
	if !ok {
		return paths
	}

	divisor := s.Weapon.BounceDivisor
	if divisor == 0 {
		divisor = 1
	}
	slope := t.SlopeAngle(end.X)
	for i := 0; i < s.Weapon.Bounces; i++ {
		hop, _ := b.Trajectory(float64(end.X), float64(ground-1), exit/divisor, slope+float64(i)*s.Weapon.BounceStep, t)
		chained := make(Path, 0, len(initial)+len(hop))
		chained = append(chained, initial...)
		chained = append(chained, hop...)
		paths = append(paths, chained)
	}
	return paths
}

// drop is a vertical strike from the top of the screen onto column x.
func (b Ballistics) drop(w WeaponStats, x int, t *Terrain) Path {
	x = min(max(x, 0), t.Width()-1)
	strike := b
	if w.DropResolution > 0 {
		strike.TimeResolution = w.DropResolution
	}
	path, _ := strike.Trajectory(float64(x), 0, w.DropSpeed, math.Pi/2, t)
	return path
}
