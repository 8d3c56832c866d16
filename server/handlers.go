package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/lab1702/battletanks-web/game"
	"github.com/lab1702/battletanks-web/store"
)

var (
	errNotJoined     = errors.New("join the match first")
	errAlreadyJoined = errors.New("already driving a tank")
	errInvalidData   = errors.New("invalid message data")
	errTooManyBots   = errors.New("no more bots allowed")
)

// ChatMessage is a player message relayed to everyone.
type ChatMessage struct {
	From string `json:"from"`
	Text string `json:"text"`
}

// handleMessage processes a message from the client. It runs on the reader
// goroutine and only decodes and validates; the work itself is queued for
// the game loop.
func (c *Client) handleMessage(msg ClientMessage) {
	// Recover from any panic to prevent disconnection
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("PANIC in handleMessage", "type", msg.Type, "panic", r)
		}
	}()

	if kind, ok := commandKinds[msg.Type]; ok {
		c.handleCommand(kind, msg.Data)
		return
	}

	switch msg.Type {
	case MsgTypeJoin:
		c.handleJoin(msg.Data)
	case MsgTypeAddBot:
		c.handleAddBot()
	case MsgTypeSave:
		c.handleSave(msg.Data)
	case MsgTypeLoad:
		c.handleLoad(msg.Data)
	case MsgTypeSaves:
		c.handleListSaves()
	case MsgTypeDelete:
		c.handleDelete(msg.Data)
	case MsgTypeMessage:
		c.handleChatMessage(msg.Data)
	default:
		c.logger.Debug("Unknown message type", "type", msg.Type)
	}
}

// decode reads optional message data; an absent payload leaves v untouched.
func (c *Client) decode(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := c.codec.Decode(data, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidData, err)
	}
	return nil
}

// reject reports an error through the game loop, which owns the send queue.
func (c *Client) reject(err error) {
	c.enqueue(func(context.Context) error { return err })
}

// handleCommand forwards a turn or store command to the match.
func (c *Client) handleCommand(kind game.CommandKind, data []byte) {
	var d CommandData
	if err := c.decode(data, &d); err != nil {
		c.reject(err)
		return
	}
	cmd := game.Command{
		Kind:  kind,
		Dir:   validateDir(d.Dir),
		Name:  d.Name,
		X:     d.X,
		Angle: validateAngle(d.Angle),
		Power: validatePower(d.Power),
	}

	c.enqueue(func(context.Context) error {
		if c.tankID < 0 {
			return errNotJoined
		}
		cmd.Tank = c.tankID
		if err := c.server.match.Apply(cmd); err != nil {
			return err
		}
		if kind == game.CmdLeave {
			c.logger.Info("Player left the match", "name", c.Name)
			c.tankID = -1
			if c.server.humans() == 0 {
				c.server.reset()
			}
		}
		return nil
	})
}

// handleJoin gives the client a tank.
func (c *Client) handleJoin(data []byte) {
	var d JoinData
	if err := c.decode(data, &d); err != nil {
		c.reject(err)
		return
	}
	name := sanitizeName(d.Name)

	c.enqueue(func(context.Context) error {
		s := c.server
		if c.tankID >= 0 {
			return errAlreadyJoined
		}
		if name == "" {
			name = fmt.Sprintf("Player%d", s.rng.IntN(1000))
		}
		tk, err := s.match.AddTank(name, s.freeColor(), false)
		if err != nil {
			return err
		}
		c.Name = name
		c.tankID = tk.ID
		s.idle = false
		c.logger.Info("Player joined", "name", name, "tank", tk.ID)
		c.sendMessage(MsgTypeJoined, tk.ID)
		return nil
	})
}

// freeColor returns the first player color no tank is using.
func (s *Server) freeColor() game.Color {
	used := make(map[game.Color]bool, len(s.match.Tanks))
	for _, tk := range s.match.Tanks {
		used[tk.Color] = true
	}
	for _, col := range game.PlayerColors {
		if !used[col] {
			return col
		}
	}
	return game.PlayerColors[len(s.match.Tanks)%len(game.PlayerColors)]
}

func (c *Client) handleAddBot() {
	c.enqueue(func(context.Context) error {
		if c.tankID < 0 {
			return errNotJoined
		}
		return c.server.addBot()
	})
}

// handleSave snapshots the match on the game loop and writes it in the
// background.
func (c *Client) handleSave(data []byte) {
	var d SaveData
	if err := c.decode(data, &d); err != nil {
		c.reject(err)
		return
	}
	name := d.Name
	if name == "" {
		name = "match-" + uuid.NewString()[:8]
	}
	if err := store.ValidateName(name); err != nil {
		c.reject(err)
		return
	}

	c.enqueue(func(ctx context.Context) error {
		if c.tankID < 0 {
			return errNotJoined
		}
		snap, err := c.server.match.Snapshot()
		if err != nil {
			return err
		}
		go c.server.persist(ctx, c, name, snap)
		return nil
	})
}

func (s *Server) persist(ctx context.Context, c *Client, name string, snap *game.Snapshot) {
	sctx, cancel := context.WithTimeout(ctx, s.cfg.SaveTimeout)
	defer cancel()

	err := s.store.Save(sctx, name, snap)
	if err != nil {
		c.logger.Error("Failed to save match", "name", name, "err", err)
	} else {
		c.logger.Info("Match saved", "name", name, "round", snap.Round, "tanks", len(snap.Tanks))
	}

	s.post(ctx, request{client: c, run: func(context.Context) error {
		if err != nil {
			return err
		}
		c.sendMessage(MsgTypeSaved, SaveData{Name: name})
		return nil
	}})
}

// handleLoad reads a saved match in the background and restores it on the
// game loop.
func (c *Client) handleLoad(data []byte) {
	var d SaveData
	if err := c.decode(data, &d); err != nil {
		c.reject(err)
		return
	}
	if err := store.ValidateName(d.Name); err != nil {
		c.reject(err)
		return
	}

	c.enqueue(func(ctx context.Context) error {
		if c.tankID < 0 {
			return errNotJoined
		}
		go c.server.fetch(ctx, c, d.Name)
		return nil
	})
}

func (s *Server) fetch(ctx context.Context, c *Client, name string) {
	lctx, cancel := context.WithTimeout(ctx, s.cfg.SaveTimeout)
	defer cancel()

	snap, err := s.store.Load(lctx, name)
	if err != nil {
		c.logger.Warn("Failed to load match", "name", name, "err", err)
	}

	s.post(ctx, request{client: c, run: func(context.Context) error {
		if err != nil {
			return err
		}
		if err := s.restore(snap); err != nil {
			return err
		}
		s.logger.Info("Match loaded", "name", name, "round", snap.Round, "tanks", len(snap.Tanks))
		s.broadcast(MsgTypeMessage, ChatMessage{From: "server", Text: fmt.Sprintf("%s loaded %s", c.Name, name)})
		return nil
	}})
}

// restore replaces the match with a snapshot and hands each connected player
// back the tank with their name. Tanks nobody claims are driven by bots.
func (s *Server) restore(snap *game.Snapshot) error {
	if err := s.match.Restore(snap); err != nil {
		return err
	}

	claimed := make(map[int]bool, len(s.match.Tanks))
	for _, c := range s.clients {
		c.tankID = -1
		for _, tk := range s.match.Tanks {
			if !tk.IsBot && !claimed[tk.ID] && tk.Name == c.Name {
				claimed[tk.ID] = true
				c.tankID = tk.ID
				c.sendMessage(MsgTypeJoined, tk.ID)
				break
			}
		}
	}
	for _, tk := range s.match.Tanks {
		if !claimed[tk.ID] {
			tk.IsBot = true
		}
	}

	s.bot = nil
	clear(s.shopped)
	s.idle = false
	return nil
}

func (c *Client) handleListSaves() {
	c.enqueue(func(ctx context.Context) error {
		go c.server.listSaves(ctx, c)
		return nil
	})
}

func (s *Server) listSaves(ctx context.Context, c *Client) {
	lctx, cancel := context.WithTimeout(ctx, s.cfg.SaveTimeout)
	defer cancel()

	saves, err := s.store.List(lctx)
	s.post(ctx, request{client: c, run: func(context.Context) error {
		if err != nil {
			return err
		}
		if saves == nil {
			saves = []store.SaveInfo{}
		}
		c.sendMessage(MsgTypeSaves, saves)
		return nil
	}})
}

func (c *Client) handleDelete(data []byte) {
	var d SaveData
	if err := c.decode(data, &d); err != nil {
		c.reject(err)
		return
	}
	if err := store.ValidateName(d.Name); err != nil {
		c.reject(err)
		return
	}

	c.enqueue(func(ctx context.Context) error {
		if c.tankID < 0 {
			return errNotJoined
		}
		go c.server.remove(ctx, c, d.Name)
		return nil
	})
}

func (s *Server) remove(ctx context.Context, c *Client, name string) {
	dctx, cancel := context.WithTimeout(ctx, s.cfg.SaveTimeout)
	defer cancel()

	err := s.store.Delete(dctx, name)
	if err == nil {
		c.logger.Info("Saved match deleted", "name", name)
		// Refresh the client's list
		s.listSaves(ctx, c)
		return
	}
	s.post(ctx, request{client: c, run: func(context.Context) error { return err }})
}

// handleChatMessage relays a sanitized chat line.
func (c *Client) handleChatMessage(data []byte) {
	var d MessageData
	if err := c.decode(data, &d); err != nil {
		c.reject(err)
		return
	}
	text := sanitizeText(d.Text)
	if text == "" {
		return
	}

	c.enqueue(func(context.Context) error {
		from := c.Name
		if from == "" {
			from = "spectator"
		}
		c.server.broadcast(MsgTypeMessage, ChatMessage{From: from, Text: text})
		return nil
	})
}
