package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points XDG_CONFIG_HOME at an empty directory so a config file on
// the host never leaks into a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_DefaultsOnly(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, New(), cfg)
}

func TestLoad_File(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
collection: /data/collection.db
deck: Japanese
tag: leech-candidate
flag: true
workers: 3
timezone: Europe/Berlin
exclude_kinds: [filtered]
debounce: 500ms
detector:
  skip_reviews: 5
  max_reviews: 30
  leech_threshold: 0.01
  incremental_check: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/collection.db", cfg.Collection)
	assert.Equal(t, "Japanese", cfg.Deck)
	assert.Equal(t, "leech-candidate", cfg.Tag)
	assert.True(t, cfg.Flag)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, []string{"filtered"}, cfg.ExcludeKinds)
	assert.Equal(t, 500*time.Millisecond, cfg.Debounce)
	assert.Equal(t, 5, cfg.Detector.SkipReviews)
	assert.Equal(t, 30, cfg.Detector.MaxReviews)
	assert.Equal(t, 0.01, cfg.Detector.LeechThreshold)
	assert.True(t, cfg.Detector.IncrementalCheck)
	assert.False(t, cfg.Detector.DynamicThreshold)

	// Untouched keys keep their defaults
	assert.Equal(t, FormatTable, cfg.Format)
}

func TestLoad_EmptyExcludeList(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "exclude_kinds: []\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.ExcludeKinds)
}

func TestLoad_XDGFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "leechkit", "config.yaml"), "tag: from-xdg\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-xdg", cfg.Tag)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "tag: from-file\ndetector:\n  skip_reviews: 5\n")

	t.Setenv("LEECHKIT_TAG", "from-env")
	t.Setenv("LEECHKIT_DETECTOR_SKIP_REVIEWS", "7")
	t.Setenv("LEECHKIT_DETECTOR_DYNAMIC_THRESHOLD", "true")
	t.Setenv("LEECHKIT_EXCLUDE_KINDS", "manual,filtered")
	t.Setenv("LEECHKIT_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Tag)
	assert.Equal(t, 7, cfg.Detector.SkipReviews)
	assert.True(t, cfg.Detector.DynamicThreshold)
	assert.Equal(t, []string{"manual", "filtered"}, cfg.ExcludeKinds)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrLoadConfig)
}

func TestLoad_MalformedFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "detector: [unclosed\n")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrLoadConfig)
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"LEECHKIT_TAG":                   "tag",
		"LEECHKIT_QUERY_TAG":             "query_tag",
		"LEECHKIT_DETECTOR_SKIP_REVIEWS": "detector.skip_reviews",
		"LEECHKIT_METRICS_FILE":          "metrics_file",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}
