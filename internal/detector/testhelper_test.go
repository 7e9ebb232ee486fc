package detector

import "github.com/blackwell-systems/leechkit/internal/revlog"

// noon on 2025-01-01 UTC; far from any rollover boundary.
const baseTime int64 = 1735732800

// dailyReviews returns one review per day starting at baseTime. Each review
// has the given stability, so with a stability of one day every trial after
// the first has a predicted recall of exactly 0.9.
func dailyReviews(stability float64, eases ...revlog.Ease) []revlog.Review {
	reviews := make([]revlog.Review, len(eases))
	for i, e := range eases {
		reviews[i] = revlog.Review{
			Timestamp: baseTime + int64(i)*revlog.SecondsPerDay,
			Stability: stability,
			Ease:      e,
			Kind:      revlog.KindReview,
		}
	}
	return reviews
}

// repeatEase returns n copies of e.
func repeatEase(e revlog.Ease, n int) []revlog.Ease {
	eases := make([]revlog.Ease, n)
	for i := range eases {
		eases[i] = e
	}
	return eases
}

// history builds a warm-up of skip good reviews followed by the outcomes.
func history(skip int, outcomes ...revlog.Ease) []revlog.Review {
	eases := append(repeatEase(revlog.Good, skip), outcomes...)
	return dailyReviews(1, eases...)
}
