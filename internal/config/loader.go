package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LEECHKIT_"

// ErrLoadConfig wraps failures reading the config file or environment.
var ErrLoadConfig = errors.New("config: load failed")

// sections lists the nested config keys. Env vars under them map their first
// underscore to the key delimiter: LEECHKIT_DETECTOR_SKIP_REVIEWS becomes
// detector.skip_reviews.
var sections = []string{"detector"}

// envKey maps an environment variable name to a config key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range sections {
		if rest, ok := strings.CutPrefix(s, section+"_"); ok {
			return section + "." + rest
		}
	}
	return s
}

// Load builds a Config by layering defaults, an optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. YAML file at path, or Dir()/config.yaml when path is empty and it exists
//  3. env (prefix LEECHKIT_)
//
// Command-line flags are applied on top by the caller.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		if dir, err := Dir(); err == nil {
			path = filepath.Join(dir, "config.yaml")
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("%w: environment: %v", ErrLoadConfig, err)
	}

	cfg := New()
	// Decode slices into a fresh value so a shorter list from the file does
	// not keep trailing default entries.
	cfg.ExcludeKinds = nil
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if !k.Exists("exclude_kinds") {
		cfg.ExcludeKinds = append([]string(nil), defaultExcludeKinds...)
	}
	cfg.ExcludeKinds = splitList(cfg.ExcludeKinds)

	return cfg, nil
}

// splitList flattens comma separated entries, as given in env vars.
func splitList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
