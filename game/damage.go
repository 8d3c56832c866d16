package game

// Hit is the damage one tank took from a detonation.
type Hit struct {
	Tank      int     `json:"tank"`   // Tank ID
	Damage    float64 `json:"damage"` // Health actually removed
	Destroyed bool    `json:"destroyed"`
}

// Impact summarizes a resolved detonation.
type Impact struct {
	Shooter int    `json:"shooter"` // Tank ID
	Weapon  string `json:"weapon"`
	At      Point  `json:"at"`
	Radius  int    `json:"radius"`
	Craters []int  `json:"-"`
	Hits    []Hit  `json:"hits"`
}

// Resolve applies a detonation at the given point: the terrain is carved,
// every active tank inside the blast takes the shooter's weapon damage scaled
// by its own armor, and the shooter is scored for each hit. Tanks that are
// already exploding or destroyed are skipped.
func Resolve(tanks []*Tank, shooter int, terrain *Terrain, at Point, radius int) Impact {
	impact := Impact{At: at, Radius: radius, Shooter: -1}
	impact.Craters = terrain.ApplyBlast(at, radius)

	if shooter >= 0 && shooter < len(tanks) {
		s := tanks[shooter]
		w := s.CurrentWeapon()
		impact.Shooter = s.ID
		impact.Weapon = w.Name

		for _, tk := range tanks {
			if !tk.Active() || !tk.InBlast(at, float64(radius)) {
				continue
			}
			dealt := tk.ApplyDamage(float64(w.Damage))
			s.AddScore(tk, w.Damage)
			impact.Hits = append(impact.Hits, Hit{
				Tank:      tk.ID,
				Damage:    dealt,
				Destroyed: !tk.Active(),
			})
		}
	}

	// The ground may have moved under anyone
	for _, tk := range tanks {
		tk.Settle(terrain)
	}
	return impact
}
