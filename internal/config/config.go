// Package config loads typegrep settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the project config file looked up in the module root.
const FileName = ".typegrep.yaml"

// Config holds typegrep settings. Values are layered: defaults, then the
// YAML file, then the environment (including a .env file in the module
// root). Command-line flags are applied last by the caller.
type Config struct {
	Color       bool     `yaml:"color"`
	ShowErrors  bool     `yaml:"showErrors,omitempty"`
	Tests       bool     `yaml:"tests,omitempty"`
	CacheDir    string   `yaml:"cacheDir,omitempty"`
	NoCache     bool     `yaml:"noCache,omitempty"`
	BuildFlags  []string `yaml:"buildFlags,omitempty"`
	Env         []string `yaml:"env,omitempty"`
	Parallelism int      `yaml:"parallelism,omitempty"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{Color: true}
}

// Load reads settings for the module rooted at root. file overrides the
// default config path; an explicitly named file must exist, the default one
// may be absent.
func Load(root, file string) (*Config, error) {
	cfg := Default()

	path := file
	if path == "" {
		path = filepath.Join(root, FileName)
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case file == "" && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("config: %w", err)
	}

	// Variables already in the environment win over .env entries.
	if envFile := filepath.Join(root, ".env"); fileExists(envFile) {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv("TYPEGREP_CACHE_DIR")); v != "" {
		c.CacheDir = v
	}
	if v := strings.TrimSpace(os.Getenv("TYPEGREP_SHOW_ERRORS")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: TYPEGREP_SHOW_ERRORS: %w", err)
		}
		c.ShowErrors = b
	}
	if v := os.Getenv("TYPEGREP_BUILD_FLAGS"); strings.TrimSpace(v) != "" {
		c.BuildFlags = strings.Fields(v)
	}
	// https://no-color.org: any non-empty value disables color.
	if os.Getenv("NO_COLOR") != "" {
		c.Color = false
	}
	return nil
}

// ResolveCacheDir returns the cache directory, relative paths being taken
// from root.
func (c *Config) ResolveCacheDir(root string) string {
	dir := c.CacheDir
	if dir == "" {
		return filepath.Join(root, ".typegrep")
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
