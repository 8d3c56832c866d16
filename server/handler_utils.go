package server

import (
	"errors"
	"html"
	"math"
	"strings"

	"github.com/lab1702/battletanks-web/game"
	"github.com/lab1702/battletanks-web/store"
)

// Handler data structures

// JoinData represents a join request
type JoinData struct {
	Name string `json:"name"`
}

// CommandData carries the arguments of every match command. Fields a command
// does not use are ignored.
type CommandData struct {
	Dir   int     `json:"dir"`   // -1, 0 or +1
	Name  string  `json:"name"`  // Weapon or upgrade name
	X     int     `json:"x"`     // Strike column
	Angle float64 `json:"angle"` // Turret angle in radians
	Power float64 `json:"power"`
}

// SaveData names a saved match. An empty name on save picks a fresh one.
type SaveData struct {
	Name string `json:"name"`
}

// MessageData represents a chat message
type MessageData struct {
	Text string `json:"text"`
}

// commandKinds maps message types onto match commands.
var commandKinds = map[string]game.CommandKind{
	MsgTypeStart:    game.CmdStart,
	MsgTypeMove:     game.CmdMove,
	MsgTypeRotate:   game.CmdRotate,
	MsgTypePower:    game.CmdPower,
	MsgTypeAim:      game.CmdAim,
	MsgTypeSwitch:   game.CmdSwitchWeapon,
	MsgTypeSelect:   game.CmdSelectWeapon,
	MsgTypeFire:     game.CmdFire,
	MsgTypeTarget:   game.CmdTarget,
	MsgTypeCancel:   game.CmdCancel,
	MsgTypeRecharge: game.CmdRecharge,
	MsgTypeBuy:      game.CmdBuyWeapon,
	MsgTypeUpgrade:  game.CmdUpgrade,
	MsgTypeLeave:    game.CmdLeave,
}

// Utility functions

// sanitizeText escapes HTML special characters to prevent XSS
func sanitizeText(text string) string {
	// Limit message length using runes to avoid splitting multi-byte characters
	const maxMessageLength = 200
	runes := []rune(text)
	if len(runes) > maxMessageLength {
		text = string(runes[:maxMessageLength])
	}
	return html.EscapeString(text)
}

// sanitizeName keeps letters, digits and single spaces.
func sanitizeName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == ' ' {
			return r
		}
		return -1
	}, name)
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	const maxNameLength = 16
	if len(cleaned) > maxNameLength {
		cleaned = strings.TrimSpace(cleaned[:maxNameLength])
	}
	return cleaned
}

// validateAngle maps a client angle into the turret range [0, pi].
func validateAngle(angle float64) float64 {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return math.Pi / 2
	}
	return game.ClampAngle(angle)
}

// validatePower rejects non-finite power values.
func validatePower(power float64) float64 {
	if math.IsNaN(power) || math.IsInf(power, 0) {
		return 0
	}
	return power
}

// validateDir folds any integer into -1, 0 or +1.
func validateDir(dir int) int {
	switch {
	case dir > 0:
		return 1
	case dir < 0:
		return -1
	}
	return 0
}

// errorText turns an error into the message shown to a player.
func errorText(err error) string {
	var le *game.LoadError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "No saved match with that name"
	case errors.Is(err, store.ErrInvalidName):
		return "Save names may only use letters, digits, '-' and '_'"
	case errors.As(err, &le):
		return "Saved match is corrupt: " + le.Error()
	case errors.Is(err, game.ErrNotYourTurn):
		return "It is not your turn"
	case errors.Is(err, game.ErrWrongPhase):
		return "Not now"
	case errors.Is(err, game.ErrMatchFull):
		return "The match is full"
	case errors.Is(err, game.ErrInsufficientScore):
		return "Not enough points"
	}
	return err.Error()
}
