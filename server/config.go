package server

import (
	"time"

	"github.com/lab1702/battletanks-web/game"
)

// Config holds the server and match tunables.
type Config struct {
	UpdateInterval    time.Duration // Tick period
	MaxTanks          int
	IntermissionTicks int
	Terrain           string // First round terrain kind
	Seed              uint64

	CommandQueue int // Buffered commands waiting for the next tick
	SendBuffer   int // Outgoing frames buffered per client

	BotDelay int // Ticks a bot waits before acting on its turn
	MaxBots  int

	SaveTimeout time.Duration
}

// DefaultConfig returns the standard game settings.
func DefaultConfig() Config {
	return Config{
		UpdateInterval:    game.UpdateInterval,
		MaxTanks:          len(game.PlayerColors),
		IntermissionTicks: 10 * game.FPS,
		Terrain:           game.TerrainRandom,
		CommandQueue:      256,
		SendBuffer:        256,
		BotDelay:          game.FPS / 2,
		MaxBots:           len(game.PlayerColors) - 1,
		SaveTimeout:       5 * time.Second,
	}
}

// MatchConfig converts the settings into a fresh match configuration.
func (c Config) MatchConfig() game.MatchConfig {
	mc := game.DefaultMatchConfig()
	mc.MaxTanks = c.MaxTanks
	mc.IntermissionTicks = c.IntermissionTicks
	mc.Terrain = c.Terrain
	mc.Seed = c.Seed
	return mc
}
