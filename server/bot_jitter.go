package server

import (
	"math"
	"math/rand/v2"
)

// maxJitterDeg is the maximum random angle deviation in degrees for bot shots
const maxJitterDeg = 3.0

// randomJitterRad returns a random angle in radians within ±maxJitterDeg
// This keeps bots from landing every shot on the solver's best column
func randomJitterRad(rng *rand.Rand) float64 {
	deg := (rng.Float64()*2 - 1) * maxJitterDeg
	return deg * math.Pi / 180
}
