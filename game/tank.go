package game

import (
	"errors"
	"fmt"
	"math"
)

// Errors returned by tank and match operations
var (
	ErrNotYourTurn       = errors.New("not your turn")
	ErrWrongPhase        = errors.New("not allowed in this phase")
	ErrUnknownWeapon     = errors.New("unknown weapon")
	ErrUnknownUpgrade    = errors.New("unknown upgrade")
	ErrInsufficientScore = errors.New("insufficient score")
	ErrNoAmmo            = errors.New("out of ammo")
	ErrUnlimitedAmmo     = errors.New("weapon already has unlimited ammo")
	ErrTankInactive      = errors.New("tank is not active")
	ErrUnknownTank       = errors.New("unknown tank")
	ErrMatchFull         = errors.New("match is full")
	ErrNotEnoughTanks    = errors.New("at least two tanks are needed")
	ErrNoRecharge        = errors.New("no recharges left")
)

// TankState tracks a tank through destruction.
type TankState int

const (
	TankActive    TankState = iota // Can act and take damage
	TankExploding                  // Playing its death animation
	TankDestroyed                  // Out for the rest of the round
)

func (s TankState) String() string {
	switch s {
	case TankActive:
		return "active"
	case TankExploding:
		return "exploding"
	case TankDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Controls are the held inputs of the tank whose turn it is. They are applied
// once per tick by Move.
type Controls struct {
	Left   bool `json:"left"`
	Right  bool `json:"right"`
	Rotate int  `json:"rotate"` // -1, 0, +1
	Power  int  `json:"power"`  // -1, 0, +1
}

// Tank is one player's vehicle and inventory.
type Tank struct {
	ID         int            `json:"id"`
	Name       string         `json:"name"`
	Color      Color          `json:"color"`
	IsBot      bool           `json:"isBot"`
	X          int            `json:"x"` // Center column
	Y          int            `json:"y"` // Center row
	Speed      int            `json:"speed"`
	Health     float64        `json:"health"`
	Fuel       int            `json:"fuel"`
	MaxFuel    int            `json:"maxFuel"`
	Power      float64        `json:"power"`
	Angle      float64        `json:"angle"`
	Armor      float64        `json:"armor"` // Damage multiplier, lower is better
	Weapon     string         `json:"weapon"`
	Ammo       map[string]int `json:"ammo"`
	Upgrades   map[string]int `json:"upgrades"`
	TotalScore int            `json:"totalScore"`
	RoundScore int            `json:"roundScore"`
	State      TankState      `json:"state"`
	Controls   Controls       `json:"-"`

	armory    *Armory
	death     *Cursor[Ring]
	deathRing Ring
	left      bool // Departed mid-round, dropped when the round ends
}

// NewTank creates a tank with full health and the armory's starting inventory.
func NewTank(id int, name string, color Color, x int, armory *Armory) *Tank {
	return &Tank{
		ID:      id,
		Name:    name,
		Color:   color,
		X:       x,
		Speed:   DefaultSpeed,
		Health:  MaxHealth,
		Fuel:    DefaultFuel,
		MaxFuel: DefaultFuel,
		Power:   MaxHealth / 2,
		Armor:   1,
		Weapon:  DefaultWeapon,
		Ammo:    armory.StartingAmmo(),
		Upgrades: map[string]int{
			UpgradeArmor:    0,
			UpgradeSpeed:    0,
			UpgradeFuel:     0,
			UpgradeRecharge: 1,
		},
		armory: armory,
	}
}

// Active reports whether the tank can act and take damage.
func (tk *Tank) Active() bool { return tk.State == TankActive }

func (tk *Tank) Left() int { return tk.X - TankWidth/2 }

func (tk *Tank) Right() int { return tk.Left() + TankWidth }

func (tk *Tank) Top() int { return tk.Y - TankHeight/2 }

func (tk *Tank) Center() Point { return Point{X: tk.X, Y: tk.Y} }

// Settle rests an active tank on the surface under its center column.
func (tk *Tank) Settle(t *Terrain) {
	if !tk.Active() {
		return
	}
	if ground, ok := t.Height(tk.X); ok {
		tk.Y = ground + TankHeight/2
	}
}

// Move applies one tick of held controls: driving (costs fuel), turret
// rotation and power adjustment. A tank driven fully off one side of the
// screen reappears on the other.
func (tk *Tank) Move(t *Terrain) {
	if !tk.Active() {
		return
	}
	if tk.Fuel > 0 {
		switch {
		case tk.Controls.Right:
			tk.Fuel--
			tk.X += tk.Speed
		case tk.Controls.Left:
			tk.Fuel--
			tk.X -= tk.Speed
		}
	}

	width := t.Width()
	switch {
	case tk.Left() > width:
		tk.X = TankWidth/2 - TankWidth // right edge at 0
	case tk.Right() < 0:
		tk.X = width + TankWidth/2 // left edge at width
	}
	tk.Settle(t)

	tk.Angle = ClampAngle(tk.Angle + float64(tk.Controls.Rotate)*TurretStep)
	tk.AdjustPower(tk.Controls.Power)
}

// AdjustPower steps the shot power by one unit; it stays within [0, health].
func (tk *Tank) AdjustPower(dir int) {
	switch {
	case dir > 0:
		tk.Power = math.Min(tk.Health, tk.Power+1)
	case dir < 0:
		tk.Power = math.Max(tk.Power-1, 0)
	}
}

// Aim sets turret angle and power directly, clamping both.
func (tk *Tank) Aim(angle, power float64) {
	tk.Angle = ClampAngle(angle)
	tk.Power = math.Min(math.Max(power, 0), tk.Health)
}

// Launch returns the turret tip, where shells start.
func (tk *Tank) Launch() (float64, float64) {
	x := float64(tk.X) - TurretLength*math.Cos(tk.Angle)
	y := float64(tk.Top()) - float64(HatchRadius)/2 - TurretLength*math.Sin(tk.Angle)
	return x, y
}

// CurrentWeapon returns the stats of the selected weapon.
func (tk *Tank) CurrentWeapon() WeaponStats {
	w, _ := tk.armory.Weapon(tk.Weapon)
	return w
}

// owned lists weapons in the inventory, in armory order.
func (tk *Tank) owned() []string {
	var names []string
	for _, name := range tk.armory.Weapons() {
		if _, ok := tk.Ammo[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// SwitchWeapon cycles through the inventory, wrapping at either end.
func (tk *Tank) SwitchWeapon(dir int) {
	names := tk.owned()
	if len(names) == 0 || dir == 0 {
		return
	}
	cur := 0
	for i, name := range names {
		if name == tk.Weapon {
			cur = i
			break
		}
	}
	n := len(names)
	tk.Weapon = names[((cur+dir)%n+n)%n]
}

// SelectWeapon picks a weapon from the inventory by name.
func (tk *Tank) SelectWeapon(name string) error {
	if _, ok := tk.armory.Weapon(name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownWeapon, name)
	}
	if _, ok := tk.Ammo[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNoAmmo, name)
	}
	tk.Weapon = name
	return nil
}

// HasAmmo reports whether the selected weapon can fire.
func (tk *Tank) HasAmmo() bool {
	return tk.Ammo[tk.Weapon] != 0
}

// ConsumeAmmo spends one round of the selected weapon. Unlimited weapons are
// never decremented.
func (tk *Tank) ConsumeAmmo() bool {
	n := tk.Ammo[tk.Weapon]
	switch {
	case n == 0:
		return false
	case n > 0:
		tk.Ammo[tk.Weapon] = n - 1
	}
	return true
}

// Fire spends ammo and solves the flight paths of the selected weapon.
// target is only used by targeted weapons.
func (tk *Tank) Fire(b Ballistics, t *Terrain, target int) ([]Path, error) {
	if !tk.Active() {
		return nil, ErrTankInactive
	}
	if !tk.ConsumeAmmo() {
		return nil, fmt.Errorf("%w: %s", ErrNoAmmo, tk.Weapon)
	}
	tk.Controls.Left, tk.Controls.Right = false, false
	x, y := tk.Launch()
	return b.Solve(Shot{
		Weapon: tk.CurrentWeapon(),
		X:      x,
		Y:      y,
		Speed:  tk.Power,
		Angle:  tk.Angle,
		Target: target,
	}, t), nil
}

// InBlast reports whether a blast of radius r at epicenter reaches the tank:
// its center or either side edge at center height lies within r.
func (tk *Tank) InBlast(epicenter Point, r float64) bool {
	ex, ey := float64(epicenter.X), float64(epicenter.Y)
	y := float64(tk.Y)
	return Distance(ex, ey, float64(tk.X), y) <= r ||
		Distance(ex, ey, float64(tk.Left()), y) <= r ||
		Distance(ex, ey, float64(tk.Right()), y) <= r
}

// ApplyDamage scales damage by armor and removes it from health. A tank that
// reaches zero starts exploding. Returns the health actually removed.
func (tk *Tank) ApplyDamage(damage float64) float64 {
	if !tk.Active() || damage <= 0 {
		return 0
	}
	before := tk.Health
	tk.Health = math.Max(tk.Health-damage*tk.Armor, 0)
	if tk.Health <= 0 {
		tk.State = TankExploding
		tk.death = NewCursor(DeathBlast().Rings)
	}
	tk.Power = math.Min(tk.Power, tk.Health)
	return before - tk.Health
}

// AddScore credits the shooter for hitting victim with a weapon of the given
// raw damage. Hurting yourself costs the same amount instead.
func (tk *Tank) AddScore(victim *Tank, damage int) {
	points := damage
	if victim != tk {
		if !victim.Active() {
			points += KillBonus
		}
	} else {
		points = -damage
		if !victim.Active() {
			points -= SelfKillPenalty
		}
	}
	tk.TotalScore += points
	tk.RoundScore += points
}

// Tick advances the death animation by one ring. The tank is destroyed on the
// tick that plays the last ring.
func (tk *Tank) Tick() {
	if tk.State != TankExploding {
		return
	}
	if tk.death == nil {
		tk.death = NewCursor(DeathBlast().Rings)
	}
	if ring, ok := tk.death.Next(); ok {
		tk.deathRing = ring
	}
	if tk.death.Done() {
		tk.State = TankDestroyed
	}
}

// DeathRing returns the ring shown this tick while exploding.
func (tk *Tank) DeathRing() (Ring, bool) {
	if tk.State != TankExploding || tk.death == nil || tk.death.Remaining() == len(tk.death.Items()) {
		return Ring{}, false
	}
	return tk.deathRing, true
}

// Forfeit takes the tank out of the current round without an animation.
func (tk *Tank) Forfeit() {
	tk.State = TankDestroyed
	tk.Health = 0
	tk.Power = 0
	tk.Controls = Controls{}
	tk.death = nil
}

// AddWeapon buys Gain rounds of a weapon with total score.
func (tk *Tank) AddWeapon(name string) error {
	w, ok := tk.armory.Weapon(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownWeapon, name)
	}
	if tk.Ammo[name] == Unlimited {
		return fmt.Errorf("%w: %s", ErrUnlimitedAmmo, name)
	}
	if tk.TotalScore < w.Cost {
		return fmt.Errorf("%w: %s costs %d, have %d", ErrInsufficientScore, name, w.Cost, tk.TotalScore)
	}
	tk.Ammo[name] += w.Gain
	tk.TotalScore -= w.Cost
	return nil
}

// Upgrade buys an upgrade with total score and applies its effect.
func (tk *Tank) Upgrade(name string) error {
	u, ok := tk.armory.Upgrade(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownUpgrade, name)
	}
	if tk.TotalScore < u.Cost {
		return fmt.Errorf("%w: %s costs %d, have %d", ErrInsufficientScore, name, u.Cost, tk.TotalScore)
	}
	tk.TotalScore -= u.Cost

	switch name {
	case UpgradeArmor:
		tk.Armor = math.Max(tk.Armor-ArmorStep, MinArmor)
	case UpgradeSpeed:
		tk.Speed += u.Gain
	case UpgradeFuel:
		tk.MaxFuel += u.Gain
	case UpgradeRecharge:
		// Recharges are counted in charges rather than levels
		tk.Upgrades[name] += u.Gain
		return nil
	}
	tk.Upgrades[name]++
	return nil
}

// Recharge spends one recharge to restore health, up to MaxHealth.
func (tk *Tank) Recharge() error {
	if !tk.Active() {
		return ErrTankInactive
	}
	if tk.Upgrades[UpgradeRecharge] <= 0 {
		return ErrNoRecharge
	}
	tk.Upgrades[UpgradeRecharge]--
	tk.Health = math.Min(tk.Health+RechargeAmount, MaxHealth)
	return nil
}

// ResetForRound restores a tank for a new round. Scores other than the round
// score, upgrades and inventory carry over.
func (tk *Tank) ResetForRound(t *Terrain) {
	tk.RoundScore = 0
	tk.Fuel = tk.MaxFuel
	tk.Health = MaxHealth
	tk.Power = MaxHealth / 2
	tk.State = TankActive
	tk.Controls = Controls{}
	tk.death = nil
	tk.deathRing = Ring{}
	tk.Settle(t)
}

// Clone returns a deep copy bound to the same armory.
func (tk *Tank) Clone() *Tank {
	c := *tk
	c.Ammo = make(map[string]int, len(tk.Ammo))
	for k, v := range tk.Ammo {
		c.Ammo[k] = v
	}
	c.Upgrades = make(map[string]int, len(tk.Upgrades))
	for k, v := range tk.Upgrades {
		c.Upgrades[k] = v
	}
	if tk.death != nil {
		c.death = &Cursor[Ring]{items: tk.death.items, pos: tk.death.pos}
	}
	return &c
}

// bind attaches the armory after loading.
func (tk *Tank) bind(a *Armory) {
	tk.armory = a
	if tk.State == TankExploding && tk.death == nil {
		tk.death = NewCursor(DeathBlast().Rings)
	}
}
