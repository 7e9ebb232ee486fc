// Package fsrs implements the FSRS-4.5 forgetting curve used to predict
// whether a card will be recalled after a given delay.
package fsrs

import "math"

// FSRS-4.5 curve constants. Factor is chosen so that R(S, S) = 0.9.
const (
	Decay  = -0.5
	Factor = 19.0 / 81.0
)

// Retrievability computes R(t, S) = (1 + FACTOR * t / S) ^ DECAY.
//
// elapsedDays must be >= 0 and stability (in days) > 0. The result lies in
// (0, 1]: 1.0 at t = 0 and 0.9 when t equals the stability.
func Retrievability(elapsedDays, stability float64) float64 {
	return math.Pow(1+Factor*elapsedDays/stability, Decay)
}
