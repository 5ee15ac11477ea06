// Package config handles binast.toml tool configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents a binast.toml file. Zero-valued fields take the
// defaults from Default.
type Config struct {
	Dictionary Dictionary `toml:"dictionary"`
	Optimizer  Optimizer  `toml:"optimizer"`
	Encoder    Encoder    `toml:"encoder"`

	// Dir is the directory containing the binast.toml file (set at load
	// time, empty for defaults).
	Dir string `toml:"-"`
}

// Dictionary configures training.
type Dictionary struct {
	MaxEntries      int    `toml:"max-entries"`
	MinCount        int    `toml:"min-count"`
	MaxSubtreeNodes int    `toml:"max-subtree-nodes"`
	MinStringLen    int    `toml:"min-string-len"`
	CachePath       string `toml:"cache-path"` // sqlite scan cache; empty disables
}

// Optimizer configures tree canonicalization.
type Optimizer struct {
	LazyThreshold int `toml:"lazy-threshold"` // nodes; 0 disables lazy marking
}

// Encoder configures blob output.
type Encoder struct {
	Compress *bool `toml:"compress"`
	Quality  int   `toml:"quality"` // brotli quality 0..11
}

// Default returns the configuration used when no binast.toml exists.
func Default() *Config {
	on := true
	return &Config{
		Dictionary: Dictionary{
			MaxEntries:      4096,
			MinCount:        2,
			MaxSubtreeNodes: 16,
			MinStringLen:    2,
		},
		Optimizer: Optimizer{
			LazyThreshold: 32,
		},
		Encoder: Encoder{
			Compress: &on,
			Quality:  6,
		},
	}
}

// CompressEnabled resolves the optional compress flag.
func (e Encoder) CompressEnabled() bool {
	return e.Compress == nil || *e.Compress
}

// CacheDisabled reports whether the scan cache is turned off.
func (d Dictionary) CacheDisabled() bool { return d.CachePath == "" }

// ResolvedCachePath returns the cache path anchored at the config file's
// directory, so a relative cache-path means the same database no matter
// where the tool runs from.
func (c *Config) ResolvedCachePath() string {
	p := c.Dictionary.CachePath
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// Load parses the binast.toml file at path. Missing fields keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if c.Dictionary.MaxSubtreeNodes < 0 {
		return nil, fmt.Errorf("%s: max-subtree-nodes must not be negative", path)
	}
	if q := c.Encoder.Quality; q < 0 || q > 11 {
		return nil, fmt.Errorf("%s: quality %d outside 0..11", path, q)
	}

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a binast.toml file, then
// loads and returns it. Returns nil if no config file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "binast.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}
