package pbd

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-9

func randomProbs(rng *rand.Rand, n int) []float64 {
	probs := make([]float64, n)
	for i := range probs {
		probs[i] = rng.Float64()
	}
	return probs
}

// bruteForce enumerates every outcome of the trials.
func bruteForce(probs []float64) []float64 {
	n := len(probs)
	dist := make([]float64, n+1)
	for mask := 0; mask < 1<<n; mask++ {
		prob := 1.0
		successes := 0
		for i, p := range probs {
			if mask&(1<<i) != 0 {
				prob *= p
				successes++
			} else {
				prob *= 1 - p
			}
		}
		dist[successes] += prob
	}
	return dist
}

func binomial(n, k int, p float64) float64 {
	lg := func(x int) float64 {
		v, _ := math.Lgamma(float64(x + 1))
		return v
	}
	coeff := math.Exp(lg(n) - lg(k) - lg(n-k))
	return coeff * math.Pow(p, float64(k)) * math.Pow(1-p, float64(n-k))
}

func TestPMF_Empty(t *testing.T) {
	dist, err := PMF(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0}, dist)
}

func TestPMF_SingleTrial(t *testing.T) {
	dist, err := PMF([]float64{0.3})
	require.NoError(t, err)
	require.Len(t, dist, 2)
	assert.InDelta(t, 0.7, dist[0], tolerance)
	assert.InDelta(t, 0.3, dist[1], tolerance)
}

func TestPMF_SumsToOne(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for n := 0; n <= 50; n++ {
		dist, err := PMF(randomProbs(rng, n))
		require.NoError(t, err)
		require.Len(t, dist, n+1)

		var sum float64
		for k, v := range dist {
			assert.GreaterOrEqual(t, v, 0.0, "n=%d k=%d", n, k)
			sum += v
		}
		assert.InDelta(t, 1.0, sum, tolerance, "n=%d", n)
	}
}

func TestPMF_PermutationInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for trial := 0; trial < 20; trial++ {
		probs := randomProbs(rng, 1+rng.Intn(30))
		want, err := PMF(probs)
		require.NoError(t, err)

		shuffled := append([]float64(nil), probs...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got, err := PMF(shuffled)
		require.NoError(t, err)
		assert.InDeltaSlice(t, want, got, tolerance)
	}
}

func TestPMF_MatchesBinomial(t *testing.T) {
	for _, p := range []float64{0, 0.1, 0.5, 0.9, 1} {
		for _, n := range []int{1, 5, 10, 25} {
			probs := make([]float64, n)
			for i := range probs {
				probs[i] = p
			}
			dist, err := PMF(probs)
			require.NoError(t, err)
			for k := 0; k <= n; k++ {
				assert.InDelta(t, binomial(n, k, p), dist[k], tolerance, "n=%d k=%d p=%v", n, k, p)
			}
		}
	}
}

func TestPMF_MatchesEnumeration(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for n := 1; n <= 12; n++ {
		probs := randomProbs(rng, n)
		dist, err := PMF(probs)
		require.NoError(t, err)
		assert.InDeltaSlice(t, bruteForce(probs), dist, tolerance, "n=%d", n)
	}

	dist, err := PMF([]float64{0.5, 0.5, 0.5, 0.5})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16}, dist, tolerance)
}

func TestPMF_DoesNotMutateInput(t *testing.T) {
	probs := []float64{0.2, 0.4, 0.6}
	_, err := PMF(probs)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 0.4, 0.6}, probs)
}

func TestPMF_InvalidProbability(t *testing.T) {
	tests := []struct {
		name  string
		probs []float64
	}{
		{name: "negative", probs: []float64{0.5, -0.01}},
		{name: "above one", probs: []float64{1.5}},
		{name: "NaN", probs: []float64{0.2, math.NaN(), 0.3}},
		{name: "infinity", probs: []float64{math.Inf(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, err := PMF(tt.probs)
			assert.ErrorIs(t, err, ErrInvalidProbability)
			assert.Nil(t, dist)
		})
	}
}

func TestCDF(t *testing.T) {
	dist := []float64{0.1, 0.2, 0.3, 0.4}

	assert.InDelta(t, 0.0, CDF(dist, -1), tolerance)
	assert.InDelta(t, 0.1, CDF(dist, 0), tolerance)
	assert.InDelta(t, 0.6, CDF(dist, 2), tolerance)
	assert.InDelta(t, 1.0, CDF(dist, 3), tolerance)
	assert.InDelta(t, 1.0, CDF(dist, 10), tolerance)
}
