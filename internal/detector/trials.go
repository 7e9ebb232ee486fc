package detector

import (
	"fmt"
	"math"

	"github.com/blackwell-systems/leechkit/internal/fsrs"
	"github.com/blackwell-systems/leechkit/internal/revlog"
)

// Trial is one Bernoulli event: the transition from one study day to the
// next.
type Trial struct {
	Probability float64 // predicted recall probability
	Succeeded   bool    // first review of the day was not Again

	// Diagnostics, not used by classification.
	Date        revlog.Date
	ElapsedDays float64
	Stability   float64
}

// Trials is an ordered sequence of trials. An empty Trials means there is
// not enough history to judge the card.
type Trials []Trial

// Probabilities returns the predicted success probability of every trial.
func (ts Trials) Probabilities() []float64 {
	probs := make([]float64, len(ts))
	for i, t := range ts {
		probs[i] = t.Probability
	}
	return probs
}

// Successes counts the trials that succeeded.
func (ts Trials) Successes() int {
	n := 0
	for _, t := range ts {
		if t.Succeeded {
			n++
		}
	}
	return n
}

// validate checks that every trial was scored with a usable stability.
func (ts Trials) validate() error {
	for i, t := range ts {
		if !(t.Stability > 0) || math.IsInf(t.Stability, 1) {
			return fmt.Errorf("%w: trial %d on %s has stability %g", ErrInvalidStability, i+1, t.Date, t.Stability)
		}
	}
	return nil
}

// BuildTrials turns consecutive day buckets into trials.
//
// The first skip buckets are warm-up. With maxReviews > 0 only the most
// recent maxReviews transitions are kept, but the warm-up is never
// shortened. Each trial compares the last review of the previous day with
// the first review of the current day. Returns nil when nothing is left.
// A skip below 1 is treated as 1 because the first day has no predecessor.
func BuildTrials(buckets []revlog.DayBucket, skip, maxReviews int) Trials {
	if skip < 1 {
		skip = 1
	}

	start := skip
	if maxReviews > 0 {
		start = max(skip, len(buckets)-maxReviews)
	}

	if len(buckets)-start <= 0 {
		return nil
	}

	trials := make(Trials, 0, len(buckets)-start)
	for i := start; i < len(buckets); i++ {
		prev := buckets[i-1].Last()
		curr := buckets[i].First()

		elapsed := float64(curr.Timestamp-prev.Timestamp) / revlog.SecondsPerDay

		trials = append(trials, Trial{
			Probability: fsrs.Retrievability(elapsed, prev.Stability),
			Succeeded:   curr.Ease != revlog.Again,
			Date:        buckets[i].Date,
			ElapsedDays: elapsed,
			Stability:   prev.Stability,
		})
	}

	return trials
}
