package server

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/lab1702/battletanks-web/store"
)

// ScoreEntry is one tank's line on the scoreboard.
type ScoreEntry struct {
	Name       string `json:"name"`
	Bot        bool   `json:"bot"`
	State      string `json:"state"`
	RoundScore int    `json:"roundScore"`
	TotalScore int    `json:"totalScore"`
}

// Scoreboard is the match summary published after every tick.
type Scoreboard struct {
	Phase   string       `json:"phase"`
	Round   int          `json:"round"`
	Clients int          `json:"clients"`
	Tanks   []ScoreEntry `json:"tanks"`
}

// publish copies the scoreboard out of the game loop for HTTP handlers.
func (s *Server) publish() {
	m := s.match
	board := Scoreboard{
		Phase:   m.Phase.String(),
		Round:   m.Round,
		Clients: len(s.clients),
		Tanks:   make([]ScoreEntry, 0, len(m.Tanks)),
	}
	for _, tk := range m.Tanks {
		board.Tanks = append(board.Tanks, ScoreEntry{
			Name:       tk.Name,
			Bot:        tk.IsBot,
			State:      tk.State.String(),
			RoundScore: tk.RoundScore,
			TotalScore: tk.TotalScore,
		})
	}
	sort.SliceStable(board.Tanks, func(i, j int) bool {
		a, b := board.Tanks[i], board.Tanks[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		return a.RoundScore > b.RoundScore
	})

	s.mu.Lock()
	s.board = board
	s.mu.Unlock()
}

// Scores returns the last published scoreboard.
func (s *Server) Scores() Scoreboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board
}

// HandleScores returns the current ranking
func (s *Server) HandleScores(w http.ResponseWriter, r *http.Request) {
	// Enable CORS for cross-origin requests
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(s.Scores())
}

// HandleSaves lists saved matches
func (s *Server) HandleSaves(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")

	saves, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("Failed to list saves", "err", err)
		http.Error(w, "failed to list saves", http.StatusInternalServerError)
		return
	}
	if saves == nil {
		saves = []store.SaveInfo{}
	}
	json.NewEncoder(w).Encode(saves)
}
