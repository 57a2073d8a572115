// Package config loads the optional YAML defaults file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the defaults file looked up in the working directory.
const DefaultPath = ".codesize.yaml"

// DefaultExcludes contains the default exclusion patterns. They skip
// version-control and dependency directories, so the default report does
// not count every regular file below the root.
//
//nolint:gochecknoglobals // Config constant
var DefaultExcludes = []string{`(^|/)\.git(/|$)`, `(^|/)node_modules(/|$)`}

// Config holds the defaults a scan starts from. Command-line flags that are
// set explicitly take precedence.
type Config struct {
	Metric     string   `yaml:"metric"`
	Human      bool     `yaml:"human"`
	Largest    *int     `yaml:"largest"`
	Extensions []string `yaml:"extensions"`
	Excludes   []string `yaml:"excludes"`
	MinSize    string   `yaml:"min_size"`
	Source     string   `yaml:"source"`
	Workers    int      `yaml:"workers"`
	Depth      int      `yaml:"depth"`
	Output     string   `yaml:"output"`
}

// applyDefaults fills zero/empty fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Metric == "" {
		c.Metric = "lines"
	}

	if c.Excludes == nil {
		c.Excludes = slices.Clone(DefaultExcludes)
	}

	if c.MinSize == "" {
		c.MinSize = "0B"
	}

	if c.Source == "" {
		c.Source = "fd"
	}

	if c.Output == "" {
		c.Output = "text"
	}
}

// Validate checks the enumerated fields.
func (c *Config) Validate() error {
	if !slices.Contains([]string{"lines", "bytes", "files"}, c.Metric) {
		return fmt.Errorf("invalid metric %q: must be one of lines, bytes, files", c.Metric)
	}

	if !slices.Contains([]string{"fd", "fast", "git"}, c.Source) {
		return fmt.Errorf("invalid source %q: must be one of fd, fast, git", c.Source)
	}

	if !slices.Contains([]string{"text", "json"}, c.Output) {
		return fmt.Errorf("invalid output %q: must be one of text, json", c.Output)
	}

	if c.Largest != nil && *c.Largest < 0 {
		return errors.New("largest cannot be negative")
	}

	if c.Workers < 0 {
		return errors.New("workers cannot be negative")
	}

	if c.Depth < 0 {
		return errors.New("depth cannot be negative")
	}

	return nil
}

// Default returns a Config with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()

	return &cfg
}

// Load reads and parses the YAML config file at path.
// If the file does not exist, Load returns a default Config so the tool
// runs without a defaults file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}

	return &cfg, nil
}
