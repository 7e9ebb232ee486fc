package detector

import "math"

// baselSum is sum(1/n^2) over n >= 1. Dividing alpha by baselSum * n^2 keeps
// the total false-positive budget across all trial counts at alpha.
const baselSum = math.Pi * math.Pi / 6

// ThresholdFunc maps the base threshold and the number of trials to the
// probability below which a card counts as a leech.
type ThresholdFunc func(alpha float64, trials int) float64

// StaticThreshold returns alpha unchanged.
func StaticThreshold(alpha float64, _ int) float64 {
	return alpha
}

// CorrectedThreshold returns alpha / ((pi^2/6) * n^2). It shrinks as the
// trial count grows so that long histories are not flagged merely because
// an unlikely run shows up somewhere in them.
func CorrectedThreshold(alpha float64, trials int) float64 {
	n := float64(trials)
	return alpha / (baselSum * n * n)
}
