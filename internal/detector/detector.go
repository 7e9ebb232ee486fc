// Package detector flags leech cards: cards whose recall record is
// statistically worse than their predicted recall probabilities allow.
//
// A card's reviews are grouped into study days, each day-to-day transition
// becomes a Bernoulli trial with the FSRS-predicted recall probability, and
// the observed number of successes is compared against the exact
// Poisson-binomial distribution of those trials.
//
// Every function here is a pure function of its inputs and is safe to call
// from multiple goroutines.
package detector

import (
	"github.com/blackwell-systems/leechkit/internal/pbd"
	"github.com/blackwell-systems/leechkit/internal/revlog"
)

// Metadata keys used in Result.Extra.
const (
	ExtraProbability    = "p"
	ExtraThreshold      = "t"
	ExtraCrossoverCount = "crossover_count"
)

// Result is the verdict for one card.
type Result struct {
	IsLeech bool
	// Probability is P(successes <= observed) under the model. Nil when the
	// card had no trials. In incremental mode it is the value for the full
	// history.
	Probability *float64
	// Threshold is the acceptance threshold Probability was compared to.
	Threshold *float64
	// Extra holds mode-specific metadata (see the Extra* keys). Empty when
	// the card had no trials.
	Extra map[string]any
	// Trials is the number of trials the verdict is based on.
	Trials int
}

// CrossoverCount returns the number of times the card entered or left the
// leech state in incremental mode, and false in any other mode. Counting
// starts from the not-crossed state before the first trial, so a card that
// crosses on its first prefix counts one change: [T, F] gives 2, not 1.
func (r *Result) CrossoverCount() (int, bool) {
	v, ok := r.Extra[ExtraCrossoverCount].(int)
	return v, ok
}

// Detect classifies a card from its review history, which must be sorted
// oldest to newest.
//
// Invalid configuration fails with ErrInvalidConfig before the reviews are
// read. A trial scored with a missing or non-positive stability fails with
// ErrInvalidStability, which wraps pbd.ErrInvalidProbability, as does any
// trial probability outside [0, 1]. A card with too little history is not an error: it is reported as not a leech with empty
// metadata.
func Detect(reviews []revlog.Review, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	trials := cfg.BuildTrials(reviews)
	if len(trials) == 0 {
		return &Result{Extra: map[string]any{}}, nil
	}
	if err := trials.validate(); err != nil {
		return nil, err
	}

	if cfg.IncrementalCheck {
		return classifyIncremental(trials, cfg.LeechThreshold, cfg.Threshold())
	}
	return classifyWhole(trials, cfg.LeechThreshold, cfg.Threshold())
}

// BuildTrials filters, groups and converts reviews into trials using the
// configuration's exclusion, rollover and window settings. It does not
// validate the configuration.
func (c Config) BuildTrials(reviews []revlog.Review) Trials {
	kept := revlog.Filter(reviews, c.exclude())
	buckets := revlog.GroupByDay(kept, c.RolloverHour, c.Location)
	return BuildTrials(buckets, c.SkipReviews, c.MaxReviews)
}

// tailProbability returns P(X <= successes) over the trials.
func tailProbability(trials Trials) (float64, error) {
	dist, err := pbd.PMF(trials.Probabilities())
	if err != nil {
		return 0, err
	}
	return pbd.CDF(dist, trials.Successes()), nil
}

func classifyWhole(trials Trials, alpha float64, threshold ThresholdFunc) (*Result, error) {
	p, err := tailProbability(trials)
	if err != nil {
		return nil, err
	}
	t := threshold(alpha, len(trials))

	return &Result{
		IsLeech:     p < t,
		Probability: &p,
		Threshold:   &t,
		Extra: map[string]any{
			ExtraProbability: p,
			ExtraThreshold:   t,
		},
		Trials: len(trials),
	}, nil
}

func classifyIncremental(trials Trials, alpha float64, threshold ThresholdFunc) (*Result, error) {
	steps, err := prefixSteps(trials, alpha, threshold)
	if err != nil {
		return nil, err
	}
	return incrementalResult(steps), nil
}

// incrementalResult derives the incremental verdict from the prefix steps.
func incrementalResult(steps []Step) *Result {
	everCrossed := false
	crossovers := 0
	crossed := false
	for _, s := range steps {
		if s.Crossed != crossed {
			crossovers++
			crossed = s.Crossed
		}
		everCrossed = everCrossed || s.Crossed
	}

	last := steps[len(steps)-1]
	p, t := last.TailProbability, last.Threshold

	return &Result{
		IsLeech:     everCrossed,
		Probability: &p,
		Threshold:   &t,
		Extra: map[string]any{
			ExtraCrossoverCount: crossovers,
		},
		Trials: len(steps),
	}
}

// wholeResult derives the whole-history verdict from the prefix steps: the
// last prefix is the full history.
func wholeResult(steps []Step) *Result {
	last := steps[len(steps)-1]
	p, t := last.TailProbability, last.Threshold

	return &Result{
		IsLeech:     p < t,
		Probability: &p,
		Threshold:   &t,
		Extra: map[string]any{
			ExtraProbability: p,
			ExtraThreshold:   t,
		},
		Trials: len(steps),
	}
}
