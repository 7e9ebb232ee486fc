// Package revlog models a card's review history and groups it into the
// effective study days used by leech detection.
package revlog

import (
	"fmt"
	"strings"
	"time"
)

// Time constants used when converting review timestamps.
const (
	SecondsPerDay  = 86_400
	SecondsPerHour = 3_600
)

// Ease is the answer button chosen for a review.
type Ease int

const (
	Again Ease = iota + 1
	Hard
	Good
	Easy
)

// String returns the button label.
func (e Ease) String() string {
	switch e {
	case Again:
		return "again"
	case Hard:
		return "hard"
	case Good:
		return "good"
	case Easy:
		return "easy"
	default:
		return fmt.Sprintf("ease(%d)", int(e))
	}
}

// Kind is the review type recorded by the host application.
type Kind int

const (
	KindLearn Kind = iota
	KindReview
	KindRelearn
	KindFiltered
	KindManual
)

var kindNames = map[Kind]string{
	KindLearn:    "learn",
	KindReview:   "review",
	KindRelearn:  "relearn",
	KindFiltered: "filtered",
	KindManual:   "manual",
}

// String returns the lower-case kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind converts a kind name ("learn", "review", ...) to a Kind.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown review kind %q (must be learn, review, relearn, filtered, or manual)", s)
}

// Review is a single study event. Reviews are owned by the collection and
// are only read here.
type Review struct {
	Timestamp  int64   // epoch seconds
	Stability  float64 // memory stability in days after this review
	Ease       Ease
	Kind       Kind
	Excludable bool // not meaningful for the memory model (e.g. manual reschedule)
}

// Time returns the review time in UTC.
func (r Review) Time() time.Time {
	return time.Unix(r.Timestamp, 0).UTC()
}

// Failed reports whether the review was answered with Again.
func (r Review) Failed() bool {
	return r.Ease == Again
}

// Excludable is the default exclusion predicate: it trusts the flag set by
// the collection.
func Excludable(r Review) bool {
	return r.Excludable
}

// Filter returns the reviews for which exclude returns false, preserving
// order. A nil exclude keeps everything.
func Filter(reviews []Review, exclude func(Review) bool) []Review {
	if exclude == nil {
		return reviews
	}
	kept := make([]Review, 0, len(reviews))
	for _, r := range reviews {
		if !exclude(r) {
			kept = append(kept, r)
		}
	}
	return kept
}
