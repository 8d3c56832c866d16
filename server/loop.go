package server

import (
	"context"

	"github.com/lab1702/battletanks-web/game"
)

// Welcome is sent once to every new connection.
type Welcome struct {
	ID       string              `json:"id"`
	Codec    string              `json:"codec"`
	Width    int                 `json:"width"`
	Height   int                 `json:"height"`
	FPS      int                 `json:"fps"`
	Weapons  []game.WeaponStats  `json:"weapons"`
	Upgrades []game.UpgradeStats `json:"upgrades"`
	Colors   []game.Color        `json:"colors"`
}

// TerrainFrame carries the full heightmap. It is resent whenever a blast
// changes the ground or a new round starts.
type TerrainFrame struct {
	Kind    string `json:"kind"`
	Version int    `json:"version"`
	Heights []int  `json:"heights"`
}

// TankRing is the death animation frame of an exploding tank.
type TankRing struct {
	Tank int        `json:"tank"`
	At   game.Point `json:"at"`
	Ring game.Ring  `json:"ring"`
}

// Update is the per-tick state broadcast.
type Update struct {
	Frame        int64            `json:"frame"`
	Phase        string           `json:"phase"`
	Round        int              `json:"round"`
	Turn         int              `json:"turn"` // Tank ID, -1 outside a round
	Intermission int              `json:"intermission,omitempty"`
	Tanks        []*game.Tank     `json:"tanks"`
	Flights      []game.Flight    `json:"flights"`
	Explosions   []game.Explosion `json:"explosions"`
	Deaths       []TankRing       `json:"deaths,omitempty"`
}

func (s *Server) welcome(c *Client) Welcome {
	armory := s.match.Armory
	w := Welcome{
		ID:     c.ID,
		Codec:  c.codec.Name(),
		Width:  s.match.Terrain.Width(),
		Height: s.match.Config().Height,
		FPS:    game.FPS,
		Colors: game.PlayerColors,
	}
	for _, name := range armory.Weapons() {
		stats, _ := armory.Weapon(name)
		w.Weapons = append(w.Weapons, stats)
	}
	for _, name := range armory.Upgrades() {
		stats, _ := armory.Upgrade(name)
		w.Upgrades = append(w.Upgrades, stats)
	}
	return w
}

func terrainFrame(t *game.Terrain) TerrainFrame {
	return TerrainFrame{Kind: t.Kind, Version: t.Version(), Heights: t.Heights()}
}

// step runs one frame: queued commands, bots, the match tick and broadcasts.
func (s *Server) step(ctx context.Context) {
	s.drainRequests(ctx)
	s.updateBots()
	s.match.Tick()

	for _, ev := range s.match.DrainEvents() {
		s.logEvent(ev)
		s.broadcast(MsgTypeEvent, ev)
	}

	s.sendTerrain()
	s.sendGameState()
	s.publish()
}

// drainRequests runs the commands that arrived since the last tick. Commands
// queued by clients that already disconnected are dropped.
func (s *Server) drainRequests(ctx context.Context) {
	for {
		select {
		case r := <-s.requests:
			if _, ok := s.clients[r.client.ID]; !ok {
				continue
			}
			s.runRequest(ctx, r)
		default:
			return
		}
	}
}

func (s *Server) runRequest(ctx context.Context, r request) {
	defer func() {
		if p := recover(); p != nil {
			r.client.logger.Error("PANIC in request", "panic", p)
		}
	}()

	if err := r.run(ctx); err != nil {
		r.client.logger.Debug("Command rejected", "err", err)
		r.client.sendError(err)
	}
}

func (s *Server) logEvent(ev game.Event) {
	switch ev.Kind {
	case game.EventKill, game.EventRoundEnd, game.EventRoundStart, game.EventJoin, game.EventLeave:
		s.logger.Info(ev.Text, "event", ev.Kind, "round", ev.Round)
	case game.EventDetonation:
		if ev.Impact != nil && len(ev.Impact.Hits) > 0 {
			s.logger.Debug(ev.Text, "event", ev.Kind, "hits", len(ev.Impact.Hits))
		}
	default:
		s.logger.Debug(ev.Text, "event", ev.Kind)
	}
}

// sendTerrain broadcasts the heightmap when it was replaced or carved.
func (s *Server) sendTerrain() {
	t := s.match.Terrain
	if t == s.terrain && t.Version() == s.terrainVersion {
		return
	}
	s.terrain = t
	s.terrainVersion = t.Version()
	s.broadcast(MsgTypeTerrain, terrainFrame(t))
}

// sendGameState broadcasts the per-tick update. Tanks are cloned so the
// frame never shares maps with the live match.
func (s *Server) sendGameState() {
	if len(s.clients) == 0 {
		return
	}
	m := s.match
	update := Update{
		Frame:        m.Frame,
		Phase:        m.Phase.String(),
		Round:        m.Round,
		Turn:         -1,
		Intermission: m.IntermissionLeft(),
		Tanks:        make([]*game.Tank, 0, len(m.Tanks)),
		Flights:      make([]game.Flight, 0, len(m.Flights())),
		Explosions:   make([]game.Explosion, 0, len(m.Explosions())),
	}
	if cur := m.Current(); cur != nil && m.Phase != game.PhaseLobby && m.Phase != game.PhaseIntermission {
		update.Turn = cur.ID
	}
	for _, tk := range m.Tanks {
		update.Tanks = append(update.Tanks, tk.Clone())
		if ring, ok := tk.DeathRing(); ok {
			update.Deaths = append(update.Deaths, TankRing{Tank: tk.ID, At: tk.Center(), Ring: ring})
		}
	}
	for _, f := range m.Flights() {
		update.Flights = append(update.Flights, *f)
	}
	for _, e := range m.Explosions() {
		update.Explosions = append(update.Explosions, *e)
	}

	s.broadcast(MsgTypeUpdate, update)
}
