// Package pbd computes the exact Poisson-binomial distribution: the number of
// successes among independent Bernoulli trials whose success probabilities
// differ.
package pbd

import (
	"errors"
	"fmt"
)

// ErrInvalidProbability is returned when a trial probability is outside
// [0, 1] or is NaN.
var ErrInvalidProbability = errors.New("pbd: probability out of range")

// PMF returns P(X = k) for k = 0..len(probs), where X is the number of
// successes among trials with the given probabilities.
//
// Each trial is convolved in with dist'[k] = dist[k]*(1-p) + dist[k-1]*p.
// The update reads one buffer and writes the other, then swaps, so no value
// is overwritten before it has been used. O(n^2) time, O(n) space.
func PMF(probs []float64) ([]float64, error) {
	for i, p := range probs {
		if !(p >= 0 && p <= 1) {
			return nil, fmt.Errorf("%w: trial %d has p=%v", ErrInvalidProbability, i, p)
		}
	}

	n := len(probs)
	cur := make([]float64, n+1)
	next := make([]float64, n+1)
	cur[0] = 1

	for i, p := range probs {
		q := 1 - p
		// After i trials only cur[0..i] can be non-zero.
		next[0] = cur[0] * q
		for k := 1; k <= i+1; k++ {
			next[k] = cur[k]*q + cur[k-1]*p
		}
		cur, next = next, cur
	}

	return cur, nil
}

// CDF returns P(X <= k) for a distribution produced by PMF. k below zero
// yields 0 and k past the end yields the total mass.
func CDF(pmf []float64, k int) float64 {
	if k >= len(pmf) {
		k = len(pmf) - 1
	}
	var sum float64
	for i := 0; i <= k; i++ {
		sum += pmf[i]
	}
	return sum
}
