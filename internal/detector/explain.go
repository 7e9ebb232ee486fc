package detector

import "github.com/blackwell-systems/leechkit/internal/revlog"

// Step is the state of the test after the first N trials.
type Step struct {
	N               int // prefix length, 1-based
	Trial           Trial
	Successes       int     // successes among the first N trials
	TailProbability float64 // P(X <= Successes) over the first N trials
	Threshold       float64
	Crossed         bool // TailProbability < Threshold
}

// Explanation is the full working behind a verdict.
type Explanation struct {
	Result *Result
	Steps  []Step
}

// prefixSteps evaluates the test on every prefix of the trials. Each prefix
// re-runs the PMF, so this is O(n^3).
func prefixSteps(trials Trials, alpha float64, threshold ThresholdFunc) ([]Step, error) {
	steps := make([]Step, 0, len(trials))
	successes := 0

	for i, trial := range trials {
		if trial.Succeeded {
			successes++
		}

		p, err := tailProbability(trials[:i+1])
		if err != nil {
			return nil, err
		}
		t := threshold(alpha, i+1)

		steps = append(steps, Step{
			N:               i + 1,
			Trial:           trial,
			Successes:       successes,
			TailProbability: p,
			Threshold:       t,
			Crossed:         p < t,
		})
	}

	return steps, nil
}

// Explain classifies the card like Detect and also returns the
// test evaluated on every prefix of its trials, whichever mode is selected.
func Explain(reviews []revlog.Review, cfg Config) (*Explanation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	trials := cfg.BuildTrials(reviews)
	if len(trials) == 0 {
		return &Explanation{Result: &Result{Extra: map[string]any{}}}, nil
	}
	if err := trials.validate(); err != nil {
		return nil, err
	}

	steps, err := prefixSteps(trials, cfg.LeechThreshold, cfg.Threshold())
	if err != nil {
		return nil, err
	}

	result := wholeResult(steps)
	if cfg.IncrementalCheck {
		result = incrementalResult(steps)
	}
	return &Explanation{Result: result, Steps: steps}, nil
}
