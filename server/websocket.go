package server

import (
	"context"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lab1702/battletanks-web/game"
	"github.com/lab1702/battletanks-web/store"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second

	maxMessageSize = 64 * 1024
)

// Message types
const (
	MsgTypeJoin     = "join"
	MsgTypeAddBot   = "addbot"
	MsgTypeStart    = "start"
	MsgTypeMove     = "move"
	MsgTypeRotate   = "rotate"
	MsgTypePower    = "power"
	MsgTypeAim      = "aim"
	MsgTypeSwitch   = "switch"
	MsgTypeSelect   = "select"
	MsgTypeFire     = "fire"
	MsgTypeTarget   = "target"
	MsgTypeCancel   = "cancel"
	MsgTypeRecharge = "recharge"
	MsgTypeBuy      = "buy"
	MsgTypeUpgrade  = "upgrade"
	MsgTypeLeave    = "leave"
	MsgTypeSave     = "save"
	MsgTypeLoad     = "load"
	MsgTypeSaves    = "saves"
	MsgTypeDelete   = "delete"
	MsgTypeMessage  = "message"

	MsgTypeWelcome = "welcome"
	MsgTypeJoined  = "joined"
	MsgTypeUpdate  = "update"
	MsgTypeTerrain = "terrain"
	MsgTypeEvent   = "event"
	MsgTypeSaved   = "saved"
	MsgTypeError   = "error"
)

// isValidOrigin checks if the origin is allowed to connect
func (s *Server) isValidOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Non-browser client
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		s.logger.Warn("Invalid origin URL", "origin", origin)
		return false
	}

	if r.Host == originURL.Host {
		return true
	}

	// Allow localhost connections for development
	if strings.HasPrefix(originURL.Host, "localhost:") ||
		strings.HasPrefix(originURL.Host, "127.0.0.1:") ||
		originURL.Host == "localhost" ||
		originURL.Host == "127.0.0.1" {
		return true
	}

	s.logger.Warn("Rejected WebSocket connection", "origin", origin)
	return false
}

// ClientMessage represents a message from client to server. Data is still
// encoded in the client's codec.
type ClientMessage struct {
	Type string
	Data []byte
}

// ServerMessage represents a message from server to client
type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Client represents a connected player. Name and tankID belong to the game
// loop goroutine.
type Client struct {
	ID     string
	Name   string
	tankID int
	conn   *websocket.Conn
	codec  codec
	send   chan []byte
	server *Server
	logger *log.Logger
}

// request is work queued for the game loop on behalf of a client.
type request struct {
	client *Client
	run    func(ctx context.Context) error
}

// Server owns the match and the connected clients. The match is only touched
// from the Run goroutine; everything else reaches it through the request
// queue.
type Server struct {
	cfg      Config
	logger   *log.Logger
	store    store.Storage
	upgrader websocket.Upgrader

	register   chan *Client
	unregister chan *Client
	requests   chan request
	done       chan struct{}

	// Owned by the Run goroutine
	clients        map[string]*Client
	match          *game.Match
	rng            *rand.Rand
	bot            *botPlan
	shopped        map[int]int // Bot tank ID -> round it last shopped in
	terrain        *game.Terrain
	terrainVersion int
	idle           bool // No humans connected and the match is reset

	mu    sync.RWMutex // Guards board
	board Scoreboard
}

// NewServer creates a new game server with an empty lobby.
func NewServer(cfg Config, st store.Storage, logger *log.Logger) (*Server, error) {
	match, err := game.NewMatch(cfg.MatchConfig())
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:        cfg,
		logger:     logger.With("component", "server"),
		store:      st,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		requests:   make(chan request, cfg.CommandQueue),
		done:       make(chan struct{}),
		clients:    make(map[string]*Client),
		match:      match,
		rng:        rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1)),
		shopped:    make(map[int]int),
		idle:       true,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin:       s.isValidOrigin,
		EnableCompression: true,
	}
	s.publish()
	return s, nil
}

// Run drives the match until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for _, c := range s.clients {
				delete(s.clients, c.ID)
				close(c.send)
			}
			s.logger.Info("Game loop stopped", "frame", s.match.Frame)
			return nil

		case c := <-s.register:
			s.addClient(c)

		case c := <-s.unregister:
			s.removeClient(c)

		case <-ticker.C:
			s.step(ctx)
		}
	}
}

func (s *Server) addClient(c *Client) {
	s.clients[c.ID] = c
	c.logger.Info("Client connected", "codec", c.codec.Name())
	c.sendMessage(MsgTypeWelcome, s.welcome(c))
	c.sendMessage(MsgTypeTerrain, terrainFrame(s.match.Terrain))
}

func (s *Server) removeClient(c *Client) {
	if _, ok := s.clients[c.ID]; !ok {
		return
	}
	delete(s.clients, c.ID)
	close(c.send)

	if c.tankID >= 0 {
		if err := s.match.RemoveTank(c.tankID); err != nil {
			c.logger.Warn("Failed to remove tank", "tank", c.tankID, "err", err)
		}
		c.tankID = -1
	}
	c.logger.Info("Client disconnected")

	if s.humans() == 0 {
		s.reset()
	}
}

// humans counts clients that drive a tank.
func (s *Server) humans() int {
	n := 0
	for _, c := range s.clients {
		if c.tankID >= 0 {
			n++
		}
	}
	return n
}

// reset clears the bots and returns to a fresh lobby once the last player
// has left.
func (s *Server) reset() {
	if s.idle {
		return
	}
	bots := 0
	for _, tk := range s.match.Tanks {
		if tk.IsBot {
			bots++
		}
	}
	match, err := game.NewMatch(s.cfg.MatchConfig())
	if err != nil {
		s.logger.Error("Failed to reset match", "err", err)
		return
	}
	match.Frame = s.match.Frame
	s.match = match
	s.bot = nil
	clear(s.shopped)
	s.idle = true
	s.logger.Info("Match reset to lobby (no players connected)", "bots", bots)
}

// HandleWebSocket handles WebSocket connections
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade error", "err", err)
		return
	}

	client := s.newClient(conn, codecFor(r.URL.Query().Get("codec")))

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (s *Server) newClient(conn *websocket.Conn, cd codec) *Client {
	id := uuid.NewString()
	return &Client{
		ID:     id,
		tankID: -1,
		conn:   conn,
		codec:  cd,
		send:   make(chan []byte, s.cfg.SendBuffer),
		server: s,
		logger: s.logger.With("client", id[:8]),
	}
}

// readPump handles incoming messages from the client
func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket error", "err", err)
			}
			break
		}

		msg, err := c.codec.DecodeMessage(data)
		if err != nil {
			c.logger.Debug("Malformed message", "err", err)
			continue
		}
		c.handleMessage(msg)
	}
}

// writePump sends messages to the client
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(c.codec.FrameType(), frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendMessage encodes and queues a message. Only called from the game loop.
func (c *Client) sendMessage(kind string, data any) {
	frame, err := c.codec.Encode(ServerMessage{Type: kind, Data: data})
	if err != nil {
		c.logger.Error("Failed to encode message", "type", kind, "err", err)
		return
	}
	c.queue(frame)
}

func (c *Client) sendError(err error) {
	c.sendMessage(MsgTypeError, errorText(err))
}

func (c *Client) queue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		c.logger.Warn("Client send buffer full, dropping frame")
	}
}

// broadcast encodes msg once per codec in use and queues it for every client.
func (s *Server) broadcast(kind string, data any) {
	msg := ServerMessage{Type: kind, Data: data}
	frames := make(map[string][]byte, 2)
	for _, c := range s.clients {
		frame, ok := frames[c.codec.Name()]
		if !ok {
			var err error
			frame, err = c.codec.Encode(msg)
			if err != nil {
				s.logger.Error("Failed to encode broadcast", "type", kind, "err", err)
				return
			}
			frames[c.codec.Name()] = frame
		}
		c.queue(frame)
	}
}

// enqueue hands work to the game loop. It never blocks the reader.
func (c *Client) enqueue(run func(ctx context.Context) error) {
	select {
	case c.server.requests <- request{client: c, run: run}:
	default:
		c.logger.Warn("Command queue full, dropping request")
	}
}

// post delivers the result of background work back to the game loop.
func (s *Server) post(ctx context.Context, r request) {
	select {
	case s.requests <- r:
	case <-ctx.Done():
	case <-s.done:
	}
}
