package revlog

import (
	"fmt"
	"time"
)

// Date is a calendar date with no time-of-day component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// DayBucket holds the reviews that fall on the same effective day, in the
// order they happened. A bucket is never empty.
type DayBucket struct {
	Date    Date
	Reviews []Review
}

// First returns the earliest review of the day.
func (b DayBucket) First() Review {
	return b.Reviews[0]
}

// Last returns the latest review of the day.
func (b DayBucket) Last() Review {
	return b.Reviews[len(b.Reviews)-1]
}

// EffectiveDate returns the day a review counts towards, taking the
// "next day starts at" rollover hour into account. A nil loc means UTC.
func EffectiveDate(timestamp int64, rolloverHour int, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	offset := timestamp - int64(rolloverHour)*SecondsPerHour
	return DateOf(time.Unix(offset, 0).In(loc))
}

// GroupByDay splits reviews into effective-day buckets in a single pass.
// Reviews must already be sorted oldest to newest; this is not checked.
func GroupByDay(reviews []Review, rolloverHour int, loc *time.Location) []DayBucket {
	var buckets []DayBucket

	for _, r := range reviews {
		date := EffectiveDate(r.Timestamp, rolloverHour, loc)

		if n := len(buckets); n == 0 || buckets[n-1].Date != date {
			buckets = append(buckets, DayBucket{Date: date})
		}

		last := &buckets[len(buckets)-1]
		last.Reviews = append(last.Reviews, r)
	}

	return buckets
}
