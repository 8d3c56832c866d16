package server

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lab1702/battletanks-web/game"
	"github.com/lab1702/battletanks-web/store"
)

// Test helpers to drive the server without sockets or a ticker

// newTestServer creates a server whose loop is stepped by hand.
func newTestServer(t *testing.T, st store.Storage) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = 7
	cfg.BotDelay = 0
	cfg.IntermissionTicks = 3
	s, err := NewServer(cfg, st, log.New(io.Discard))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

// newTestClient registers a client without a connection. Frames pile up in
// its send channel.
func newTestClient(s *Server) *Client {
	c := s.newClient(nil, jsonCodec{})
	c.send = make(chan []byte, 4096)
	s.addClient(c)
	return c
}

// flatTerrain replaces the match terrain with flat ground at y=400.
func flatTerrain(s *Server) {
	heights := make([]int, game.ScreenWidth)
	for i := range heights {
		heights[i] = 400
	}
	s.match.Terrain = game.NewTerrain(game.TerrainMoon, heights)
}

type testFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// frames empties a client's send queue.
func frames(t *testing.T, c *Client) []testFrame {
	t.Helper()
	var out []testFrame
	for {
		select {
		case data := <-c.send:
			var f testFrame
			if err := json.Unmarshal(data, &f); err != nil {
				t.Fatalf("bad frame %q: %v", data, err)
			}
			out = append(out, f)
		default:
			return out
		}
	}
}

// find returns the data of the first frame of the given type.
func find(fs []testFrame, kind string) (json.RawMessage, bool) {
	for _, f := range fs {
		if f.Type == kind {
			return f.Data, true
		}
	}
	return nil, false
}

// send feeds a JSON message through the client's handler.
func send(c *Client, kind, data string) {
	msg := ClientMessage{Type: kind}
	if data != "" {
		msg.Data = []byte(data)
	}
	c.handleMessage(msg)
}

// awaitRequest runs the next request posted by background store work.
func awaitRequest(t *testing.T, s *Server) {
	t.Helper()
	select {
	case r := <-s.requests:
		s.runRequest(context.Background(), r)
	case <-time.After(2 * time.Second):
		t.Fatal("no request posted")
	}
}
