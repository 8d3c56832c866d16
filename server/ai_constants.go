package server

import "math"

// AI Constants for Bot Behavior
// These control how bots aim, pick weapons and spend points between rounds.

const (
	// Aim search grid. A coarse pass covers the half of the turret arc
	// facing the target; a fine pass covers one coarse cell around the best
	// shot, with power in whole units like a player's controls.
	AimAngleStep       = math.Pi / 45
	AimPowerStep       = 4.0
	AimRefineAngleStep = math.Pi / 360
	AimRefinePowerStep = 1.0
	AimMinPower        = 5.0

	// Shells that leave the playfield or never land score this miss distance.
	MissPenalty = 10000.0

	// Targeted strikes land up to this many columns off the target.
	StrikeJitter = 30

	// Recharge before firing when health is below this.
	BotRechargeHealth = 50.0
)
