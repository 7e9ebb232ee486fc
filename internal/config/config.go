// Package config loads leechkit settings from defaults, a YAML file and
// LEECHKIT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	_ "time/tzdata" // zone names resolve on hosts without a zoneinfo database

	"github.com/blackwell-systems/leechkit/internal/detector"
	"github.com/blackwell-systems/leechkit/internal/revlog"
	"github.com/blackwell-systems/leechkit/internal/store"
)

// ErrInvalidConfig is returned by Validate and Load for unusable settings.
var ErrInvalidConfig = errors.New("config: invalid config")

// Report formats accepted by Format.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// DefaultTag is the tag added to leech notes when none is configured.
const DefaultTag = "maybe-leech"

// Dir returns the leechkit config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/leechkit if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "leechkit"), nil
}

// Detector holds the classification settings.
type Detector struct {
	SkipReviews      int     `koanf:"skip_reviews" yaml:"skip_reviews" json:"skip_reviews"`
	MaxReviews       int     `koanf:"max_reviews" yaml:"max_reviews" json:"max_reviews"`
	LeechThreshold   float64 `koanf:"leech_threshold" yaml:"leech_threshold" json:"leech_threshold"`
	DynamicThreshold bool    `koanf:"dynamic_threshold" yaml:"dynamic_threshold" json:"dynamic_threshold"`
	IncrementalCheck bool    `koanf:"incremental_check" yaml:"incremental_check" json:"incremental_check"`
}

// Config contains process configuration.
type Config struct {
	// Collection is the path to the SQLite collection file.
	Collection string `koanf:"collection" yaml:"collection" json:"collection"`

	// Deck and QueryTag select the cards to check. Empty means all cards.
	Deck     string `koanf:"deck" yaml:"deck" json:"deck"`
	QueryTag string `koanf:"query_tag" yaml:"query_tag" json:"query_tag"`

	// Tag is added to the note of every leech when Write is set.
	Tag string `koanf:"tag" yaml:"tag" json:"tag"`
	// Flag also sets the leech flag on the card when Write is set.
	Flag  bool `koanf:"flag" yaml:"flag" json:"flag"`
	Write bool `koanf:"write" yaml:"write" json:"write"`

	// Workers bounds the number of cards classified concurrently.
	Workers int `koanf:"workers" yaml:"workers" json:"workers"`

	// Timezone is the IANA zone used to compute review dates.
	Timezone string `koanf:"timezone" yaml:"timezone" json:"timezone"`

	// ExcludeKinds lists review kinds dropped before classification.
	ExcludeKinds []string `koanf:"exclude_kinds" yaml:"exclude_kinds" json:"exclude_kinds"`

	LogLevel    string `koanf:"log_level" yaml:"log_level" json:"log_level"`
	MetricsFile string `koanf:"metrics_file" yaml:"metrics_file" json:"metrics_file"`
	Format      string `koanf:"format" yaml:"format" json:"format"`

	// Debounce is how long watch mode waits for writes to settle.
	Debounce time.Duration `koanf:"debounce" yaml:"debounce" json:"debounce"`

	Detector Detector `koanf:"detector" yaml:"detector" json:"detector"`
}

var defaultExcludeKinds = []string{revlog.KindManual.String()}

// New returns a Config holding the built-in defaults.
func New() *Config {
	return &Config{
		Tag:          DefaultTag,
		Workers:      runtime.NumCPU(),
		Timezone:     "UTC",
		ExcludeKinds: append([]string(nil), defaultExcludeKinds...),
		LogLevel:     "info",
		Format:       FormatTable,
		Debounce:     2 * time.Second,
		Detector: Detector{
			SkipReviews:    detector.DefaultSkipReviews,
			LeechThreshold: detector.DefaultLeechThreshold,
		},
	}
}

// Validate checks the settings that the detector does not validate itself.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("%w: debounce must not be negative", ErrInvalidConfig)
	}
	switch c.Format {
	case FormatTable, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, c.Format)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.KindSet(); err != nil {
		return err
	}
	if c.Write && strings.TrimSpace(c.Tag) == "" {
		return fmt.Errorf("%w: tag must not be empty when writing", ErrInvalidConfig)
	}
	if strings.ContainsAny(c.Tag, " \t") {
		return fmt.Errorf("%w: tag %q must not contain spaces", ErrInvalidConfig, c.Tag)
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// KindSet resolves ExcludeKinds.
func (c *Config) KindSet() (store.KindSet, error) {
	set := make(store.KindSet, len(c.ExcludeKinds))
	for _, name := range c.ExcludeKinds {
		kind, err := revlog.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("%w: exclude_kinds: %v", ErrInvalidConfig, err)
		}
		set[kind] = true
	}
	return set, nil
}

// DetectorConfig builds the classifier settings. The rollover hour comes from
// the collection, not from the config file.
func (c *Config) DetectorConfig(rolloverHour int) (detector.Config, error) {
	loc, err := c.Location()
	if err != nil {
		return detector.Config{}, err
	}
	return detector.Config{
		SkipReviews:      c.Detector.SkipReviews,
		MaxReviews:       c.Detector.MaxReviews,
		LeechThreshold:   c.Detector.LeechThreshold,
		DynamicThreshold: c.Detector.DynamicThreshold,
		IncrementalCheck: c.Detector.IncrementalCheck,
		RolloverHour:     rolloverHour,
		Location:         loc,
	}, nil
}
