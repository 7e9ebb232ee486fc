package revlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for k, name := range kindNames {
		got, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	got, err := ParseKind("  Manual ")
	require.NoError(t, err)
	assert.Equal(t, KindManual, got)

	_, err = ParseKind("cram")
	assert.Error(t, err)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "relearn", KindRelearn.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}

func TestEaseString(t *testing.T) {
	assert.Equal(t, "again", Again.String())
	assert.Equal(t, "easy", Easy.String())
	assert.Equal(t, "ease(0)", Ease(0).String())
}

func TestReviewFailed(t *testing.T) {
	assert.True(t, Review{Ease: Again}.Failed())
	assert.False(t, Review{Ease: Hard}.Failed())
}

func TestFilter(t *testing.T) {
	reviews := []Review{
		{Timestamp: 1, Ease: Good},
		{Timestamp: 2, Ease: Good, Excludable: true},
		{Timestamp: 3, Ease: Again},
		{Timestamp: 4, Ease: Easy, Excludable: true},
	}

	kept := Filter(reviews, Excludable)
	require.Len(t, kept, 2)
	assert.Equal(t, int64(1), kept[0].Timestamp)
	assert.Equal(t, int64(3), kept[1].Timestamp)

	assert.Equal(t, reviews, Filter(reviews, nil))

	onlyAgain := Filter(reviews, func(r Review) bool { return !r.Failed() })
	require.Len(t, onlyAgain, 1)
	assert.Equal(t, Again, onlyAgain[0].Ease)
}
