package game

import (
	"math"
	"time"
)

// Playfield and timing
const (
	ScreenWidth  = 700
	ScreenHeight = 500

	FPS            = 30
	UpdateInterval = time.Second / FPS
)

// Tank geometry (pixels)
const (
	TankScale    = 3
	TankHeight   = 7
	TankWidth    = TankScale * TankHeight
	HatchRadius  = 5 * TankWidth / 16
	TurretLength = 5.0 * TankWidth / 8
	TurretStep   = math.Pi / 20
)

// Tank defaults and scoring
const (
	MaxHealth      = 100
	DefaultFuel    = 300
	DefaultSpeed   = 3
	DefaultWeapon  = WeaponMissile
	Unlimited      = -1 // Ammo count for weapons that never run out
	RechargeAmount = 50

	MinArmor  = 0.1
	ArmorStep = 0.1

	KillBonus       = 300 // Added to the shooter for destroying another tank
	SelfKillPenalty = 100 // Removed from the shooter for destroying itself
)

// Weapon names
const (
	WeaponMissile      = "Missile"
	WeaponHeavyMissile = "Heavy Missile"
	WeaponVolcano      = "Volcano Bomb"
	WeaponShower       = "Shower"
	WeaponHotShower    = "Hot Shower"
	WeaponNukeShower   = "Nuke Shower"
	WeaponKiloton      = "Kiloton Bomb"
	WeaponMegaton      = "Megaton Bomb"
	WeaponGigaton      = "Gigaton Bomb"
	WeaponAirStrike    = "Precision Air Strike"
)

// Upgrade names
const (
	UpgradeArmor    = "Upgrade Armor"
	UpgradeSpeed    = "Upgrade Speed"
	UpgradeFuel     = "Add Fuel Capacity"
	UpgradeRecharge = "Health Recharge"
)

// WeaponKind selects how a weapon's flight paths are produced.
type WeaponKind int

const (
	KindSingle   WeaponKind = iota // One ballistic path
	KindSpread                     // One path per velocity factor
	KindBounce                     // Initial path plus bounces from the landing point
	KindTargeted                   // Vertical drop on a chosen column
)

func (k WeaponKind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindSpread:
		return "spread"
	case KindBounce:
		return "bounce"
	case KindTargeted:
		return "targeted"
	default:
		return "unknown"
	}
}

// BlastProfile is the part of a weapon that shapes its explosion.
type BlastProfile struct {
	Radius    int     // Peak of the radius curve before truncation
	EndFactor float64 // Tail fraction of Radius at which the curve is finished
}

// DeathProfile is used for a tank's own destruction animation.
var DeathProfile = BlastProfile{Radius: 40, EndFactor: 0.1}

// WeaponStats holds the stats of a weapon type
type WeaponStats struct {
	Name            string
	Kind            WeaponKind
	ShellRadius     int
	ExplosionRadius int
	Damage          int
	EndFactor       float64
	Cost            int // Store price in total score
	Gain            int // Ammo added per purchase
	StartAmmo       int

	// Spread
	SpreadFactors []float64
	// Bounce
	Bounces       int
	BounceDivisor float64 // Exit speed is divided by this for each bounce
	BounceStep    float64 // Angle added per bounce (radians)
	// Targeted
	DropSpeed      float64
	DropResolution float64 // Replaces Ballistics.TimeResolution for the drop
}

// Blast returns the weapon's explosion profile.
func (w WeaponStats) Blast() BlastProfile {
	return BlastProfile{Radius: w.ExplosionRadius, EndFactor: w.EndFactor}
}

// UpgradeStats holds store price and effect size of an upgrade
type UpgradeStats struct {
	Name string
	Cost int
	Gain int
}

var showerFactors = []float64{0.8, 0.9, 1, 1.1, 1.2}

func defaultWeapons() []WeaponStats {
	return []WeaponStats{
		{Name: WeaponMissile, Kind: KindSingle, ShellRadius: 2, ExplosionRadius: 20, Damage: 20, EndFactor: 0.2, StartAmmo: Unlimited},
		{Name: WeaponHeavyMissile, Kind: KindSingle, ShellRadius: 3, ExplosionRadius: 30, Damage: 30, EndFactor: 0.2, StartAmmo: Unlimited},
		{
			Name: WeaponVolcano, Kind: KindBounce, ShellRadius: 2, ExplosionRadius: 20, Damage: 40, EndFactor: 0.2,
			Cost: 150, Gain: 5, StartAmmo: 5,
			Bounces: 3, BounceDivisor: 5, BounceStep: math.Pi / 4,
		},
		{Name: WeaponShower, Kind: KindSpread, ShellRadius: 3, ExplosionRadius: 30, Damage: 30, EndFactor: 0.2, Cost: 250, Gain: 2, StartAmmo: 2, SpreadFactors: showerFactors},
		{Name: WeaponHotShower, Kind: KindSpread, ShellRadius: 5, ExplosionRadius: 40, Damage: 40, EndFactor: 0.2, Cost: 600, Gain: 1, StartAmmo: 2, SpreadFactors: showerFactors},
		{Name: WeaponNukeShower, Kind: KindSpread, ShellRadius: 7, ExplosionRadius: 80, Damage: 60, EndFactor: 0.2, Cost: 1000, Gain: 1, StartAmmo: 1, SpreadFactors: showerFactors},
		{Name: WeaponKiloton, Kind: KindSingle, ShellRadius: 5, ExplosionRadius: 100, Damage: 50, EndFactor: 0.12, Cost: 300, Gain: 2, StartAmmo: 2},
		{Name: WeaponMegaton, Kind: KindSingle, ShellRadius: 7, ExplosionRadius: 200, Damage: 100, EndFactor: 0.1, Cost: 600, Gain: 1, StartAmmo: 1},
		{Name: WeaponGigaton, Kind: KindSingle, ShellRadius: 10, ExplosionRadius: 300, Damage: 200, EndFactor: 0.1, Cost: 1000, Gain: 1, StartAmmo: 1},
		{
			Name: WeaponAirStrike, Kind: KindTargeted, ShellRadius: 5, ExplosionRadius: 50, Damage: 500, EndFactor: 0.2,
			Cost: 1000, Gain: 1, StartAmmo: Unlimited,
			DropSpeed: -50, DropResolution: 6,
		},
	}
}

func defaultUpgrades() []UpgradeStats {
	return []UpgradeStats{
		{Name: UpgradeArmor, Cost: 250, Gain: 1},
		{Name: UpgradeSpeed, Cost: 150, Gain: 2},
		{Name: UpgradeFuel, Cost: 50, Gain: 100},
		{Name: UpgradeRecharge, Cost: 350, Gain: 1},
	}
}

// Armory is the read-only weapon and upgrade registry shared by a match.
// Build it once with DefaultArmory and pass it around by pointer.
type Armory struct {
	weapons      map[string]WeaponStats
	order        []string
	upgrades     map[string]UpgradeStats
	upgradeOrder []string
}

// NewArmory builds a registry from explicit tables. Order is preserved for
// weapon cycling and store listings.
func NewArmory(weapons []WeaponStats, upgrades []UpgradeStats) *Armory {
	a := &Armory{
		weapons:  make(map[string]WeaponStats, len(weapons)),
		upgrades: make(map[string]UpgradeStats, len(upgrades)),
	}
	for _, w := range weapons {
		a.weapons[w.Name] = w
		a.order = append(a.order, w.Name)
	}
	for _, u := range upgrades {
		a.upgrades[u.Name] = u
		a.upgradeOrder = append(a.upgradeOrder, u.Name)
	}
	return a
}

// DefaultArmory returns the standard weapon and upgrade tables.
func DefaultArmory() *Armory {
	return NewArmory(defaultWeapons(), defaultUpgrades())
}

// Weapon looks up a weapon by name.
func (a *Armory) Weapon(name string) (WeaponStats, bool) {
	w, ok := a.weapons[name]
	return w, ok
}

// Weapons returns weapon names in registry order.
func (a *Armory) Weapons() []string {
	return append([]string(nil), a.order...)
}

// Upgrade looks up an upgrade by name.
func (a *Armory) Upgrade(name string) (UpgradeStats, bool) {
	u, ok := a.upgrades[name]
	return u, ok
}

// Upgrades returns upgrade names in registry order.
func (a *Armory) Upgrades() []string {
	return append([]string(nil), a.upgradeOrder...)
}

// StartingAmmo returns a fresh inventory with every weapon's starting count.
func (a *Armory) StartingAmmo() map[string]int {
	ammo := make(map[string]int, len(a.order))
	for _, name := range a.order {
		ammo[name] = a.weapons[name].StartAmmo
	}
	return ammo
}

// Point is an integer pixel position. Y grows downward.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Path is the sequence of positions a shell occupies, one per frame.
type Path []Point

// Last returns the final position of the path.
func (p Path) Last() (Point, bool) {
	if len(p) == 0 {
		return Point{}, false
	}
	return p[len(p)-1], true
}

// Color is an RGB triple.
type Color [3]uint8

// Player colors offered at setup
var (
	ColorRed    = Color{255, 0, 0}
	ColorGreen  = Color{50, 180, 0}
	ColorYellow = Color{255, 255, 0}
	ColorBlue   = Color{0, 0, 255}
	ColorBlack  = Color{0, 0, 0}

	PlayerColors = []Color{ColorRed, ColorGreen, ColorYellow, ColorBlue, ColorBlack}

	// SkyColor is the flat placeholder background for clients without assets
	SkyColor = Color{135, 206, 250}
)

// Distance calculates distance between two points
func Distance(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}

// ClampAngle keeps a turret angle between 0 and PI
func ClampAngle(angle float64) float64 {
	if angle > math.Pi {
		return math.Pi
	}
	if angle < 0 {
		return 0
	}
	return angle
}
