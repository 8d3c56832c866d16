package game

import (
	"errors"
	"math"
	"testing"
)

func newTestMatch(t *testing.T, names ...string) *Match {
	t.Helper()
	cfg := DefaultMatchConfig()
	cfg.IntermissionTicks = 3
	cfg.Seed = 42
	m, err := NewMatch(cfg)
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	m.Terrain = flatTerrain(ScreenWidth, 400)
	for i, name := range names {
		if _, err := m.AddTank(name, PlayerColors[i%len(PlayerColors)], false); err != nil {
			t.Fatalf("AddTank(%s): %v", name, err)
		}
	}
	return m
}

// runUntil ticks the match until cond holds, up to limit ticks.
func runUntil(m *Match, limit int, cond func() bool) bool {
	for i := 0; i < limit; i++ {
		if cond() {
			return true
		}
		m.Tick()
	}
	return cond()
}

func hasEvent(events []Event, kind EventKind) bool {
	for _, e := range events {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

func TestMatchLobby(t *testing.T) {
	m := newTestMatch(t, "Alpha")

	if err := m.Apply(Command{Kind: CmdStart, Tank: 0}); !errors.Is(err, ErrNotEnoughTanks) {
		t.Errorf("start with one tank = %v, expected ErrNotEnoughTanks", err)
	}
	if _, err := m.AddTank("Bravo", ColorBlue, false); err != nil {
		t.Fatalf("AddTank: %v", err)
	}

	// Spread evenly: (i+1)*W/(n+1)
	if m.Tanks[0].X != ScreenWidth/3 || m.Tanks[1].X != 2*ScreenWidth/3 {
		t.Errorf("tanks placed at %d and %d", m.Tanks[0].X, m.Tanks[1].X)
	}

	if err := m.Apply(Command{Kind: CmdStart, Tank: 1}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if m.Phase != PhaseAiming || m.Round != 1 || m.Turn != 0 {
		t.Errorf("after start phase=%s round=%d turn=%d", m.Phase, m.Round, m.Turn)
	}
	if !hasEvent(m.DrainEvents(), EventRoundStart) {
		t.Error("no round start event")
	}
	if _, err := m.AddTank("Late", ColorBlack, false); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("joining mid-round = %v, expected ErrWrongPhase", err)
	}
}

func TestMatchFull(t *testing.T) {
	m := newTestMatch(t, "A", "B", "C", "D", "E")
	if _, err := m.AddTank("F", ColorRed, false); !errors.Is(err, ErrMatchFull) {
		t.Errorf("sixth tank = %v, expected ErrMatchFull", err)
	}
}

func TestMatchTurnChecks(t *testing.T) {
	m := newTestMatch(t, "Alpha", "Bravo")
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		cmd  Command
		want error
	}{
		{name: "Other tank fires", cmd: Command{Kind: CmdFire, Tank: 1}, want: ErrNotYourTurn},
		{name: "Unknown tank", cmd: Command{Kind: CmdFire, Tank: 9}, want: ErrUnknownTank},
		{name: "Target while aiming", cmd: Command{Kind: CmdTarget, Tank: 0, X: 10}, want: ErrWrongPhase},
		{name: "Shopping mid-round", cmd: Command{Kind: CmdBuyWeapon, Tank: 0, Name: WeaponShower}, want: ErrWrongPhase},
		{name: "Unknown weapon", cmd: Command{Kind: CmdSelectWeapon, Tank: 0, Name: "Slingshot"}, want: ErrUnknownWeapon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.Apply(tt.cmd); !errors.Is(err, tt.want) {
				t.Errorf("Apply(%+v) = %v, expected %v", tt.cmd, err, tt.want)
			}
		})
	}
}

func TestMatchControlsApplyOnTick(t *testing.T) {
	m := newTestMatch(t, "Alpha", "Bravo")
	m.Start()
	tk := m.Current()
	x := tk.X

	m.Apply(Command{Kind: CmdMove, Tank: tk.ID, Dir: 1})
	m.Tick()
	m.Tick()
	if tk.X != x+2*DefaultSpeed || tk.Fuel != DefaultFuel-2 {
		t.Errorf("after two ticks X=%d fuel=%d", tk.X, tk.Fuel)
	}

	m.Apply(Command{Kind: CmdMove, Tank: tk.ID, Dir: 0})
	m.Tick()
	if tk.X != x+2*DefaultSpeed {
		t.Errorf("tank kept moving after stop, X=%d", tk.X)
	}

	// Other tanks never move out of turn
	other := m.Tanks[1]
	other.Controls.Right = true
	ox := other.X
	m.Tick()
	if other.X != ox {
		t.Errorf("waiting tank moved from %d to %d", ox, other.X)
	}
}

func TestMatchSelfHitPassesTurn(t *testing.T) {
	m := newTestMatch(t, "Alpha", "Bravo")
	m.Start()
	a := m.Current()

	if err := m.Apply(Command{Kind: CmdAim, Tank: a.ID, Angle: math.Pi / 2, Power: 50}); err != nil {
		t.Fatal(err)
	}
	if err := m.Apply(Command{Kind: CmdFire, Tank: a.ID}); err != nil {
		t.Fatalf("fire: %v", err)
	}
	if m.Phase != PhaseFlight || len(m.Flights()) != 1 {
		t.Fatalf("phase=%s flights=%d after firing", m.Phase, len(m.Flights()))
	}
	if err := m.Apply(Command{Kind: CmdFire, Tank: a.ID}); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("second shot in flight = %v, expected ErrWrongPhase", err)
	}

	var events []Event
	ok := runUntil(m, 1000, func() bool {
		events = append(events, m.DrainEvents()...)
		return m.Phase == PhaseAiming
	})
	if !ok {
		t.Fatalf("turn never ended, phase %s", m.Phase)
	}

	if a.Health != 80 || a.TotalScore != -20 || a.RoundScore != -20 {
		t.Errorf("shooter health %.0f score %d/%d, expected 80 and -20", a.Health, a.TotalScore, a.RoundScore)
	}
	if m.Current() == a {
		t.Error("turn did not pass")
	}
	for _, kind := range []EventKind{EventShot, EventDetonation, EventTurn} {
		if !hasEvent(events, kind) {
			t.Errorf("missing %s event", kind)
		}
	}
	if m.Terrain.Version() == 0 {
		t.Error("detonation on the ground left no crater")
	}
}

func TestMatchAirStrikeEndsRound(t *testing.T) {
	m := newTestMatch(t, "Alpha", "Bravo")
	m.Start()
	a, b := m.Tanks[0], m.Tanks[1]

	if err := m.Apply(Command{Kind: CmdSelectWeapon, Tank: a.ID, Name: WeaponAirStrike}); err != nil {
		t.Fatal(err)
	}
	if err := m.Apply(Command{Kind: CmdFire, Tank: a.ID}); err != nil {
		t.Fatal(err)
	}
	if m.Phase != PhaseTargeting {
		t.Fatalf("phase = %s, expected targeting", m.Phase)
	}

	// Targeting suspends everything but the strike itself
	if err := m.Apply(Command{Kind: CmdMove, Tank: a.ID, Dir: 1}); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("move while targeting = %v, expected ErrWrongPhase", err)
	}
	if err := m.Apply(Command{Kind: CmdCancel, Tank: a.ID}); err != nil || m.Phase != PhaseAiming {
		t.Fatalf("cancel = %v, phase %s", err, m.Phase)
	}
	if m.Terrain.Version() != 0 || b.Health != MaxHealth {
		t.Fatal("cancelled strike changed the battlefield")
	}

	m.Apply(Command{Kind: CmdFire, Tank: a.ID})
	if err := m.Apply(Command{Kind: CmdTarget, Tank: a.ID, X: b.X}); err != nil {
		t.Fatalf("target: %v", err)
	}

	var events []Event
	ok := runUntil(m, 1000, func() bool {
		events = append(events, m.DrainEvents()...)
		return m.Phase == PhaseIntermission
	})
	if !ok {
		t.Fatalf("round never ended, phase %s", m.Phase)
	}

	if b.State != TankDestroyed {
		t.Errorf("target state = %s, expected destroyed", b.State)
	}
	if want := 500 + KillBonus; a.TotalScore != want {
		t.Errorf("shooter total = %d, expected %d", a.TotalScore, want)
	}
	for _, kind := range []EventKind{EventKill, EventRoundEnd} {
		if !hasEvent(events, kind) {
			t.Errorf("missing %s event", kind)
		}
	}
}

func TestMatchIntermissionAndNextRound(t *testing.T) {
	m := newTestMatch(t, "Alpha", "Bravo")
	m.Start()
	a, b := m.Tanks[0], m.Tanks[1]
	a.TotalScore = 500
	b.ApplyDamage(MaxHealth)
	runUntil(m, 100, func() bool { return b.State == TankDestroyed })
	m.endTurn()
	if m.Phase != PhaseIntermission {
		t.Fatalf("phase = %s, expected intermission", m.Phase)
	}

	if err := m.Apply(Command{Kind: CmdBuyWeapon, Tank: a.ID, Name: WeaponVolcano}); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if err := m.Apply(Command{Kind: CmdUpgrade, Tank: a.ID, Name: UpgradeFuel}); err != nil {
		t.Fatalf("upgrade: %v", err)
	}

	ok := runUntil(m, 10, func() bool { return m.Phase == PhaseAiming })
	if !ok {
		t.Fatalf("next round never started, phase %s", m.Phase)
	}
	if m.Round != 2 {
		t.Errorf("round = %d, expected 2", m.Round)
	}
	for _, tk := range m.Tanks {
		if !tk.Active() || tk.Health != MaxHealth || tk.RoundScore != 0 {
			t.Errorf("tank %s not reset: %s health %.0f", tk.Name, tk.State, tk.Health)
		}
	}
	if a.TotalScore != 500-150-50 || a.Fuel != DefaultFuel+100 {
		t.Errorf("carried over score %d fuel %d", a.TotalScore, a.Fuel)
	}
}

func TestMatchLeaveDuringTurn(t *testing.T) {
	m := newTestMatch(t, "Alpha", "Bravo", "Charlie")
	m.Start()
	first := m.Current()

	if err := m.Apply(Command{Kind: CmdLeave, Tank: first.ID}); err != nil {
		t.Fatal(err)
	}
	if m.Current() == first || m.Phase != PhaseAiming {
		t.Errorf("turn stayed with the departed tank, phase %s", m.Phase)
	}
	if len(m.Tanks) != 3 || first.State != TankDestroyed {
		t.Errorf("departed tank should stay on the roster as destroyed")
	}

	m.Apply(Command{Kind: CmdLeave, Tank: m.Current().ID})
	if m.Phase != PhaseIntermission {
		t.Errorf("phase = %s with one tank left, expected intermission", m.Phase)
	}
}

func TestMatchDepartedTanksSitOutNextRound(t *testing.T) {
	m := newTestMatch(t, "Alpha", "Bravo", "Charlie", "Delta")
	m.Start()
	alpha, charlie, delta := m.Tanks[0], m.Tanks[2], m.Tanks[3]

	if err := m.Apply(Command{Kind: CmdLeave, Tank: charlie.ID}); err != nil {
		t.Fatal(err)
	}
	if len(m.Tanks) != 4 || m.Current() != alpha {
		t.Fatalf("leaving out of turn changed the round: roster %d, current %s", len(m.Tanks), m.Current().Name)
	}

	delta.ApplyDamage(MaxHealth)
	runUntil(m, 100, func() bool { return delta.State == TankDestroyed })
	m.Apply(Command{Kind: CmdLeave, Tank: alpha.ID})
	if m.Phase != PhaseIntermission {
		t.Fatalf("phase = %s, expected intermission", m.Phase)
	}
	if len(m.Tanks) != 2 {
		t.Errorf("roster = %d after the round, expected the 2 remaining tanks", len(m.Tanks))
	}

	if err := m.NextRound(); err != nil {
		t.Fatalf("NextRound: %v", err)
	}
	for _, tk := range m.Tanks {
		if tk == alpha || tk == charlie {
			t.Errorf("departed tank %s is back", tk.Name)
		}
	}
	if m.Alive() != 2 || !m.Current().Active() {
		t.Errorf("alive = %d, current %s", m.Alive(), m.Current().Name)
	}
}

func TestMatchLeaveEndsRoundAtOneTank(t *testing.T) {
	m := newTestMatch(t, "Alpha", "Bravo", "Charlie")
	m.Start()
	alpha := m.Current()

	m.Apply(Command{Kind: CmdLeave, Tank: m.Tanks[1].ID})
	if m.Phase != PhaseAiming {
		t.Fatalf("phase = %s with two tanks left", m.Phase)
	}
	m.DrainEvents()

	m.Apply(Command{Kind: CmdLeave, Tank: m.Tanks[2].ID})
	if m.Phase != PhaseIntermission {
		t.Fatalf("phase = %s with only %s left, expected intermission", m.Phase, alpha.Name)
	}
	winner := -2
	for _, e := range m.DrainEvents() {
		if e.Kind == EventRoundEnd {
			winner = e.Tank
		}
	}
	if winner != alpha.ID {
		t.Errorf("round winner = %d, expected %d", winner, alpha.ID)
	}
}

func TestMatchRestoreKeepsLoadedTanks(t *testing.T) {
	m := newTestMatch(t, "Alpha", "Bravo", "Charlie")
	m.Start()
	m.Apply(Command{Kind: CmdLeave, Tank: m.Tanks[2].ID})
	snap, err := m.Snapshot()
	if err != nil {
		t.Fatal(err)
	}

	other := newTestMatch(t)
	if err := other.Restore(snap); err != nil {
		t.Fatal(err)
	}
	other.Tanks[1].ApplyDamage(MaxHealth)
	runUntil(other, 100, func() bool { return other.Tanks[1].State == TankDestroyed })
	other.endTurn()
	if other.Phase != PhaseIntermission || len(other.Tanks) != 3 {
		t.Errorf("phase %s roster %d: loaded tanks must not count as departed", other.Phase, len(other.Tanks))
	}
}

func TestMatchSnapshotRestore(t *testing.T) {
	m := newTestMatch(t, "Alpha", "Bravo")
	m.Start()
	m.Tanks[0].TotalScore = 321
	m.Tanks[1].Health = 42

	snap, err := m.Snapshot()
	if err != nil {
		t.Fatal(err)
	}

	m.Tanks[0].TotalScore = 0
	m.Terrain.ApplyBlast(Point{X: 100, Y: 400}, 30)

	if err := m.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if m.Tanks[0].TotalScore != 321 || m.Tanks[1].Health != 42 {
		t.Errorf("restored score %d health %.0f", m.Tanks[0].TotalScore, m.Tanks[1].Health)
	}
	if h, _ := m.Terrain.Height(100); h != 400 {
		t.Errorf("restored terrain height %d, expected 400", h)
	}
	if m.Phase != PhaseAiming {
		t.Errorf("phase = %s after restore", m.Phase)
	}

	m.Apply(Command{Kind: CmdFire, Tank: m.Current().ID})
	if _, err := m.Snapshot(); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("snapshot in flight = %v, expected ErrWrongPhase", err)
	}
	if err := m.Restore(snap); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("restore in flight = %v, expected ErrWrongPhase", err)
	}
}
