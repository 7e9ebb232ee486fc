package detector

import (
	"fmt"
	"time"

	"github.com/blackwell-systems/leechkit/internal/revlog"
)

// Defaults for Config.
const (
	DefaultSkipReviews    = 3
	DefaultLeechThreshold = 0.05
)

// Config controls how a card's history is turned into trials and judged.
type Config struct {
	// SkipReviews is the number of leading day buckets used only as warm-up.
	// Must be at least 1: the first bucket has no predecessor.
	SkipReviews int
	// MaxReviews caps the trial window to the most recent transitions.
	// Zero means unbounded.
	MaxReviews int
	// LeechThreshold is the base acceptance probability (alpha).
	LeechThreshold float64
	// DynamicThreshold selects CorrectedThreshold instead of StaticThreshold.
	DynamicThreshold bool
	// IncrementalCheck flags a card that was a leech at any point in its
	// history rather than only over the whole history.
	IncrementalCheck bool

	// RolloverHour is the hour at which the study day starts (0-23).
	RolloverHour int
	// Location is the time reference for effective dates. Nil means UTC.
	Location *time.Location
	// Exclude drops reviews before grouping. Nil means revlog.Excludable.
	Exclude func(revlog.Review) bool
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() Config {
	return Config{
		SkipReviews:    DefaultSkipReviews,
		LeechThreshold: DefaultLeechThreshold,
	}
}

// Validate checks the configuration. All failures wrap ErrInvalidConfig.
func (c Config) Validate() error {
	if c.SkipReviews < 1 {
		return fmt.Errorf("%w: skip_reviews must be at least 1, got %d", ErrInvalidConfig, c.SkipReviews)
	}
	if !(c.LeechThreshold >= 0 && c.LeechThreshold <= 1) {
		return fmt.Errorf("%w: leech_threshold must be between 0 and 1, got %v", ErrInvalidConfig, c.LeechThreshold)
	}
	if c.MaxReviews < 0 {
		return fmt.Errorf("%w: max_reviews must not be negative, got %d", ErrInvalidConfig, c.MaxReviews)
	}
	if c.RolloverHour < 0 || c.RolloverHour > 23 {
		return fmt.Errorf("%w: rollover hour must be between 0 and 23, got %d", ErrInvalidConfig, c.RolloverHour)
	}
	return nil
}

// Threshold returns the threshold function selected by DynamicThreshold.
func (c Config) Threshold() ThresholdFunc {
	if c.DynamicThreshold {
		return CorrectedThreshold
	}
	return StaticThreshold
}

func (c Config) exclude() func(revlog.Review) bool {
	if c.Exclude != nil {
		return c.Exclude
	}
	return revlog.Excludable
}
