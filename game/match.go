package game

import (
	"fmt"
	"math/rand/v2"
)

// Phase is the turn controller state.
type Phase int

const (
	PhaseLobby        Phase = iota // Waiting for players
	PhaseAiming                    // Current tank drives, aims and fires
	PhaseTargeting                 // Current tank picks a column for a targeted strike
	PhaseFlight                    // Shells, blasts and death animations play out
	PhaseIntermission              // Round over, store open
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseAiming:
		return "aiming"
	case PhaseTargeting:
		return "targeting"
	case PhaseFlight:
		return "flight"
	case PhaseIntermission:
		return "intermission"
	default:
		return "unknown"
	}
}

// CommandKind identifies a player action.
type CommandKind int

const (
	CmdMove          CommandKind = iota // Dir: -1 left, +1 right, 0 stop
	CmdRotate                           // Dir: turret direction, 0 stop
	CmdPower                            // Dir: power direction, 0 stop
	CmdAim                              // Angle and Power set directly
	CmdSwitchWeapon                     // Dir: cycle direction
	CmdSelectWeapon                     // Name
	CmdFire                             // Fire the selected weapon
	CmdTarget                           // X: strike column while targeting
	CmdCancel                           // Leave targeting without firing
	CmdRecharge                         // Spend a health recharge
	CmdBuyWeapon                        // Name
	CmdUpgrade                          // Name
	CmdStart                            // Start the match or skip the intermission
	CmdLeave                            // Leave the match
)

// Command is one player action addressed to a tank.
type Command struct {
	Kind  CommandKind
	Tank  int // Tank ID
	Dir   int
	Name  string
	X     int
	Angle float64
	Power float64
}

// EventKind labels something that happened during a tick.
type EventKind string

const (
	EventJoin       EventKind = "join"
	EventLeave      EventKind = "leave"
	EventRoundStart EventKind = "round_start"
	EventTurn       EventKind = "turn"
	EventTargeting  EventKind = "targeting"
	EventShot       EventKind = "shot"
	EventDetonation EventKind = "detonation"
	EventKill       EventKind = "kill"
	EventRoundEnd   EventKind = "round_end"
	EventPurchase   EventKind = "purchase"
)

// Event is reported to the outer layers for logging and broadcast.
type Event struct {
	Kind   EventKind `json:"kind"`
	Tank   int       `json:"tank"` // Tank ID the event is about, -1 if none
	Round  int       `json:"round"`
	Text   string    `json:"text"`
	Impact *Impact   `json:"impact,omitempty"`
}

// Flight is a shell in the air.
type Flight struct {
	Shooter int    `json:"shooter"` // Tank ID
	Weapon  string `json:"weapon"`
	Radius  int    `json:"radius"` // Shell radius
	Pos     Point  `json:"pos"`

	shooter int // Index into Match.Tanks
	path    *Cursor[Point]
}

// Explosion is a blast animation in progress.
type Explosion struct {
	At   Point `json:"at"`
	Ring Ring  `json:"ring"`

	rings *Cursor[Ring]
}

// MatchConfig holds the parameters of a new match.
type MatchConfig struct {
	Width             int
	Height            int
	MaxTanks          int
	IntermissionTicks int
	Terrain           string // First round terrain kind, TerrainRandom for any
	Seed              uint64
	Ballistics        Ballistics
	Armory            *Armory
}

// DefaultMatchConfig returns a match on the standard playfield.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		Width:             ScreenWidth,
		Height:            ScreenHeight,
		MaxTanks:          len(PlayerColors),
		IntermissionTicks: 10 * FPS,
		Terrain:           TerrainRandom,
		Ballistics:        DefaultBallistics(),
	}
}

// Match is the turn controller. It owns the terrain and the tank roster and
// is driven from a single goroutine through Apply and Tick.
type Match struct {
	Armory     *Armory
	Ballistics Ballistics
	Terrain    *Terrain
	Tanks      []*Tank // Turn order
	Turn       int     // Index into Tanks
	Round      int
	Phase      Phase
	Frame      int64

	cfg          MatchConfig
	rng          *rand.Rand
	nextID       int
	flights      []*Flight
	explosions   []*Explosion
	intermission int
	events       []Event
}

// NewMatch creates a match in the lobby with freshly generated terrain.
func NewMatch(cfg MatchConfig) (*Match, error) {
	if cfg.Armory == nil {
		cfg.Armory = DefaultArmory()
	}
	if cfg.Ballistics == (Ballistics{}) {
		cfg.Ballistics = DefaultBallistics()
	}
	if cfg.Terrain == "" {
		cfg.Terrain = TerrainRandom
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	terrain, err := GenerateTerrain(cfg.Terrain, cfg.Width, cfg.Height, rng)
	if err != nil {
		return nil, fmt.Errorf("new match: %w", err)
	}
	return &Match{
		Armory:     cfg.Armory,
		Ballistics: cfg.Ballistics,
		Terrain:    terrain,
		Phase:      PhaseLobby,
		cfg:        cfg,
		rng:        rng,
	}, nil
}

// Config returns the parameters the match was created with.
func (m *Match) Config() MatchConfig {
	return m.cfg
}

// Flights returns the shells currently in the air.
func (m *Match) Flights() []*Flight {
	return m.flights
}

// Explosions returns the blast animations currently playing.
func (m *Match) Explosions() []*Explosion {
	return m.explosions
}

// IntermissionLeft returns the ticks remaining before the next round starts.
func (m *Match) IntermissionLeft() int {
	if m.Phase != PhaseIntermission {
		return 0
	}
	return m.intermission
}

// Current returns the tank whose turn it is.
func (m *Match) Current() *Tank {
	if m.Turn < 0 || m.Turn >= len(m.Tanks) {
		return nil
	}
	return m.Tanks[m.Turn]
}

// Tank looks a tank up by ID.
func (m *Match) Tank(id int) (*Tank, bool) {
	if i := m.index(id); i >= 0 {
		return m.Tanks[i], true
	}
	return nil, false
}

func (m *Match) index(id int) int {
	for i, tk := range m.Tanks {
		if tk.ID == id {
			return i
		}
	}
	return -1
}

// DrainEvents returns and clears the events gathered since the last call.
func (m *Match) DrainEvents() []Event {
	ev := m.events
	m.events = nil
	return ev
}

func (m *Match) emit(kind EventKind, tank int, format string, args ...any) {
	m.events = append(m.events, Event{
		Kind:  kind,
		Tank:  tank,
		Round: m.Round,
		Text:  fmt.Sprintf(format, args...),
	})
}

// AddTank joins a new tank. Tanks can only join between rounds; the roster is
// spread evenly across the playfield.
func (m *Match) AddTank(name string, color Color, bot bool) (*Tank, error) {
	if m.Phase != PhaseLobby && m.Phase != PhaseIntermission {
		return nil, ErrWrongPhase
	}
	if m.cfg.MaxTanks > 0 && len(m.Tanks) >= m.cfg.MaxTanks {
		return nil, ErrMatchFull
	}
	tk := NewTank(m.nextID, name, color, 0, m.Armory)
	tk.IsBot = bot
	m.nextID++
	m.Tanks = append(m.Tanks, tk)
	m.layout()
	m.emit(EventJoin, tk.ID, "%s joined the battle", tk.Name)
	return tk, nil
}

// RemoveTank takes a tank out of the match. During a round the tank forfeits
// and stays on the roster until the round ends.
func (m *Match) RemoveTank(id int) error {
	i := m.index(id)
	if i < 0 {
		return ErrUnknownTank
	}
	tk := m.Tanks[i]
	m.emit(EventLeave, id, "%s left the battle", tk.Name)

	if m.Phase == PhaseLobby || m.Phase == PhaseIntermission {
		m.Tanks = append(m.Tanks[:i], m.Tanks[i+1:]...)
		if m.Turn >= len(m.Tanks) {
			m.Turn = 0
		}
		m.layout()
		return nil
	}

	tk.Forfeit()
	tk.left = true
	if m.Phase == PhaseAiming || m.Phase == PhaseTargeting {
		if i == m.Turn || m.Alive() <= 1 {
			m.endTurn()
		}
	}
	return nil
}

// dropDeparted removes the tanks that left during the round.
func (m *Match) dropDeparted() {
	kept := m.Tanks[:0]
	for _, tk := range m.Tanks {
		if !tk.left {
			kept = append(kept, tk)
		}
	}
	clear(m.Tanks[len(kept):])
	m.Tanks = kept
	m.Turn = 0
}

// layout places tank i at (i+1)*W/(n+1).
func (m *Match) layout() {
	n := len(m.Tanks)
	w := m.Terrain.Width()
	for i, tk := range m.Tanks {
		tk.X = (i + 1) * w / (n + 1)
		tk.Settle(m.Terrain)
	}
}

// Start begins the first round.
func (m *Match) Start() error {
	if m.Phase != PhaseLobby {
		return ErrWrongPhase
	}
	if len(m.Tanks) < 2 {
		return ErrNotEnoughTanks
	}
	m.Round = 1
	m.Turn = 0
	m.Phase = PhaseAiming
	for _, tk := range m.Tanks {
		tk.Settle(m.Terrain)
	}
	m.emit(EventRoundStart, -1, "Round %d on %s", m.Round, m.Terrain.Kind)
	m.emit(EventTurn, m.Current().ID, "%s's turn", m.Current().Name)
	return nil
}

// Apply executes a player command. Turn-bound commands are only accepted
// from the current tank while aiming or targeting.
func (m *Match) Apply(cmd Command) error {
	tk, ok := m.Tank(cmd.Tank)
	if !ok {
		return ErrUnknownTank
	}

	switch cmd.Kind {
	case CmdStart:
		switch m.Phase {
		case PhaseLobby:
			return m.Start()
		case PhaseIntermission:
			return m.NextRound()
		}
		return ErrWrongPhase
	case CmdLeave:
		return m.RemoveTank(cmd.Tank)
	case CmdBuyWeapon, CmdUpgrade:
		return m.shop(tk, cmd)
	case CmdTarget, CmdCancel:
		if err := m.checkTurn(tk, PhaseTargeting); err != nil {
			return err
		}
		if cmd.Kind == CmdCancel {
			m.Phase = PhaseAiming
			return nil
		}
		return m.fire(tk, cmd.X)
	}

	if err := m.checkTurn(tk, PhaseAiming); err != nil {
		return err
	}

	switch cmd.Kind {
	case CmdMove:
		tk.Controls.Left = cmd.Dir < 0
		tk.Controls.Right = cmd.Dir > 0
	case CmdRotate:
		tk.Controls.Rotate = sign(cmd.Dir)
	case CmdPower:
		tk.Controls.Power = sign(cmd.Dir)
	case CmdAim:
		tk.Aim(cmd.Angle, cmd.Power)
	case CmdSwitchWeapon:
		tk.SwitchWeapon(sign(cmd.Dir))
	case CmdSelectWeapon:
		return tk.SelectWeapon(cmd.Name)
	case CmdRecharge:
		return tk.Recharge()
	case CmdFire:
		if !tk.HasAmmo() {
			return fmt.Errorf("%w: %s", ErrNoAmmo, tk.Weapon)
		}
		if tk.CurrentWeapon().Kind == KindTargeted {
			tk.Controls = Controls{}
			m.Phase = PhaseTargeting
			m.emit(EventTargeting, tk.ID, "%s is choosing a target", tk.Name)
			return nil
		}
		return m.fire(tk, 0)
	default:
		return fmt.Errorf("unknown command %d", cmd.Kind)
	}
	return nil
}

func (m *Match) checkTurn(tk *Tank, phase Phase) error {
	if m.Phase != phase {
		return ErrWrongPhase
	}
	if m.Current() != tk {
		return ErrNotYourTurn
	}
	if !tk.Active() {
		return ErrTankInactive
	}
	return nil
}

func (m *Match) shop(tk *Tank, cmd Command) error {
	if m.Phase != PhaseIntermission && m.Phase != PhaseLobby {
		return ErrWrongPhase
	}
	var err error
	if cmd.Kind == CmdBuyWeapon {
		err = tk.AddWeapon(cmd.Name)
	} else {
		err = tk.Upgrade(cmd.Name)
	}
	if err != nil {
		return err
	}
	m.emit(EventPurchase, tk.ID, "%s bought %s", tk.Name, cmd.Name)
	return nil
}

// fire launches every path of the current weapon.
func (m *Match) fire(tk *Tank, target int) error {
	paths, err := tk.Fire(m.Ballistics, m.Terrain, target)
	if err != nil {
		return err
	}
	w := tk.CurrentWeapon()
	m.flights = m.flights[:0]
	for _, p := range paths {
		if len(p) == 0 {
			continue
		}
		m.flights = append(m.flights, &Flight{
			Shooter: tk.ID,
			Weapon:  w.Name,
			Radius:  w.ShellRadius,
			Pos:     p[0],
			shooter: m.Turn,
			path:    NewCursor([]Point(p)),
		})
	}
	m.Phase = PhaseFlight
	m.emit(EventShot, tk.ID, "%s fired %s", tk.Name, w.Name)
	return nil
}

// Tick advances the match by one frame.
func (m *Match) Tick() {
	m.Frame++

	switch m.Phase {
	case PhaseAiming:
		if tk := m.Current(); tk != nil {
			tk.Move(m.Terrain)
		}
	case PhaseIntermission:
		m.intermission--
		if m.intermission <= 0 {
			if err := m.NextRound(); err != nil {
				// Only fails if the roster shrank below two
				m.intermission = m.cfg.IntermissionTicks
			}
		}
	}

	m.advanceFlights()
	m.advanceExplosions()
	for _, tk := range m.Tanks {
		tk.Tick()
	}

	if m.Phase == PhaseFlight && m.settled() {
		m.endTurn()
	}
}

// advanceFlights moves every shell one step; a shell that reaches the end of
// its path detonates there.
func (m *Match) advanceFlights() {
	kept := m.flights[:0]
	for _, f := range m.flights {
		if p, ok := f.path.Next(); ok {
			f.Pos = p
		}
		if f.path.Done() {
			m.detonate(f)
			continue
		}
		kept = append(kept, f)
	}
	m.flights = kept
}

func (m *Match) detonate(f *Flight) {
	w, _ := m.Armory.Weapon(f.Weapon)
	blast := Explode(w.Blast())
	impact := Resolve(m.Tanks, f.shooter, m.Terrain, f.Pos, blast.MaxRadius)
	m.explosions = append(m.explosions, &Explosion{At: f.Pos, rings: NewCursor(blast.Rings)})

	m.events = append(m.events, Event{
		Kind:   EventDetonation,
		Tank:   f.Shooter,
		Round:  m.Round,
		Text:   fmt.Sprintf("%s hit at (%d, %d)", f.Weapon, f.Pos.X, f.Pos.Y),
		Impact: &impact,
	})

	shooter, _ := m.Tank(f.Shooter)
	for _, h := range impact.Hits {
		if !h.Destroyed {
			continue
		}
		victim, _ := m.Tank(h.Tank)
		if victim == shooter {
			m.emit(EventKill, h.Tank, "%s destroyed itself with %s", victim.Name, f.Weapon)
		} else {
			m.emit(EventKill, h.Tank, "%s was destroyed by %s's %s", victim.Name, shooter.Name, f.Weapon)
		}
	}
}

// advanceExplosions shows the next ring of each blast and drops finished ones.
func (m *Match) advanceExplosions() {
	kept := m.explosions[:0]
	for _, e := range m.explosions {
		ring, ok := e.rings.Next()
		if !ok {
			continue
		}
		e.Ring = ring
		kept = append(kept, e)
	}
	m.explosions = kept
}

// settled reports whether nothing is left to animate.
func (m *Match) settled() bool {
	if len(m.flights) > 0 || len(m.explosions) > 0 {
		return false
	}
	for _, tk := range m.Tanks {
		if tk.State == TankExploding {
			return false
		}
	}
	return true
}

// Alive counts active tanks.
func (m *Match) Alive() int {
	n := 0
	for _, tk := range m.Tanks {
		if tk.Active() {
			n++
		}
	}
	return n
}

// endTurn passes the turn to the next active tank, or ends the round when at
// most one is left.
func (m *Match) endTurn() {
	if cur := m.Current(); cur != nil {
		cur.Controls = Controls{}
	}
	m.flights = m.flights[:0]
	if m.Alive() <= 1 {
		m.endRound()
		return
	}
	n := len(m.Tanks)
	for i := 1; i <= n; i++ {
		idx := (m.Turn + i) % n
		if m.Tanks[idx].Active() {
			m.Turn = idx
			m.Phase = PhaseAiming
			m.emit(EventTurn, m.Tanks[idx].ID, "%s's turn", m.Tanks[idx].Name)
			return
		}
	}
	m.endRound()
}

func (m *Match) endRound() {
	m.Phase = PhaseIntermission
	m.intermission = m.cfg.IntermissionTicks
	defer m.dropDeparted()
	for _, tk := range m.Tanks {
		if tk.Active() {
			m.emit(EventRoundEnd, tk.ID, "%s wins round %d", tk.Name, m.Round)
			return
		}
	}
	m.emit(EventRoundEnd, -1, "Round %d ends with no survivors", m.Round)
}

// NextRound generates new terrain, resets every tank and shuffles the turn
// order.
func (m *Match) NextRound() error {
	if m.Phase != PhaseIntermission {
		return ErrWrongPhase
	}
	if len(m.Tanks) < 2 {
		return ErrNotEnoughTanks
	}
	terrain, err := GenerateTerrain(TerrainRandom, m.cfg.Width, m.cfg.Height, m.rng)
	if err != nil {
		return fmt.Errorf("next round: %w", err)
	}
	m.Terrain = terrain
	for _, tk := range m.Tanks {
		tk.ResetForRound(m.Terrain)
	}
	m.rng.Shuffle(len(m.Tanks), func(i, j int) {
		m.Tanks[i], m.Tanks[j] = m.Tanks[j], m.Tanks[i]
	})
	m.flights = m.flights[:0]
	m.explosions = m.explosions[:0]
	m.Round++
	m.Turn = 0
	m.Phase = PhaseAiming
	m.emit(EventRoundStart, -1, "Round %d on %s", m.Round, m.Terrain.Kind)
	m.emit(EventTurn, m.Current().ID, "%s's turn", m.Current().Name)
	return nil
}

// Snapshot captures the persistent state of the match. Shells in flight are
// not part of it, so snapshots are only taken outside PhaseFlight.
func (m *Match) Snapshot() (*Snapshot, error) {
	if m.Phase == PhaseFlight || m.Phase == PhaseTargeting {
		return nil, ErrWrongPhase
	}
	s := &Snapshot{Terrain: m.Terrain.Clone(), Round: m.Round, Turn: m.Turn}
	for _, tk := range m.Tanks {
		s.Tanks = append(s.Tanks, tk.Clone())
	}
	return s, nil
}

// Restore replaces the match state with a snapshot. The match is left
// untouched if the snapshot does not fit.
func (m *Match) Restore(s *Snapshot) error {
	if m.Phase == PhaseFlight || m.Phase == PhaseTargeting {
		return ErrWrongPhase
	}
	if s.Terrain == nil || s.Terrain.Width() == 0 {
		return fmt.Errorf("restore: empty terrain")
	}
	if m.cfg.MaxTanks > 0 && len(s.Tanks) > m.cfg.MaxTanks {
		return ErrMatchFull
	}

	m.Terrain = s.Terrain.Clone()
	m.Tanks = m.Tanks[:0]
	m.nextID = 0
	for _, tk := range s.Tanks {
		c := tk.Clone()
		c.bind(m.Armory)
		c.left = false
		c.ID = m.nextID
		m.nextID++
		m.Tanks = append(m.Tanks, c)
	}
	m.Round = s.Round
	m.Turn = s.Turn
	m.flights = m.flights[:0]
	m.explosions = m.explosions[:0]

	switch {
	case m.Round == 0 || len(m.Tanks) < 2:
		m.Phase = PhaseLobby
		m.Turn = 0
	case m.Alive() <= 1:
		m.endRound()
	case m.Turn < 0 || m.Turn >= len(m.Tanks) || !m.Current().Active():
		m.Turn = len(m.Tanks) - 1
		m.endTurn()
	default:
		m.Phase = PhaseAiming
		m.emit(EventTurn, m.Current().ID, "%s's turn", m.Current().Name)
	}
	return nil
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
