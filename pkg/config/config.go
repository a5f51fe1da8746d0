// Package config merges the project configuration file, environment
// variables, and defaults into the settings the CLI hands to the engine.
// Precedence, lowest to highest: defaults, .pipefix.yml, PIPEFIX_* variables
// (a .env file in the root is loaded first when present).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pipefix/pipefix/pkg/types"
)

const (
	// ModeSuggest reports every issue and applies nothing.
	ModeSuggest = "suggest"
	// ModeAutofix applies the accepted patch plan and reports the rest.
	ModeAutofix = "autofix"

	// FileName is the project configuration file looked up in the root.
	FileName = ".pipefix.yml"
)

// Config is the merged tool configuration.
type Config struct {
	Mode        string        `yaml:"mode"`
	Categories  []string      `yaml:"categories"`
	Paths       []string      `yaml:"paths"`
	Excludes    []string      `yaml:"excludes"`
	MaxFileSize int64         `yaml:"max_file_size"`
	Workers     int           `yaml:"workers"`
	Timeout     time.Duration `yaml:"timeout"`
	Backup      bool          `yaml:"backup"`
	Redact      bool          `yaml:"redact"`
	History     string        `yaml:"history"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Mode:        ModeSuggest,
		MaxFileSize: 1 << 20,
		Timeout:     10 * time.Second,
		Backup:      true,
		Redact:      true,
	}
}

// Load builds the configuration for a repository root.
func Load(root string) (Config, error) {
	cfg := Default()

	path := filepath.Join(root, FileName)
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}

	// .env is optional; missing files are fine.
	_ = godotenv.Load(filepath.Join(root, ".env"))
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PIPEFIX_MODE"); v != "" {
		c.Mode = v
	}
	if v := os.Getenv("PIPEFIX_CATEGORIES"); v != "" {
		c.Categories = splitList(v)
	}
	if v := os.Getenv("PIPEFIX_EXCLUDES"); v != "" {
		c.Excludes = splitList(v)
	}
	if v := os.Getenv("PIPEFIX_MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxFileSize = n
		}
	}
	if v := os.Getenv("PIPEFIX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv("PIPEFIX_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
	}
	if v := os.Getenv("PIPEFIX_BACKUP"); v != "" {
		c.Backup = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("PIPEFIX_REDACT"); v != "" {
		c.Redact = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("PIPEFIX_HISTORY"); v != "" {
		c.History = v
	}
}

func (c *Config) validate() error {
	if c.Mode != ModeSuggest && c.Mode != ModeAutofix {
		return fmt.Errorf("invalid mode %q: want %q or %q", c.Mode, ModeSuggest, ModeAutofix)
	}
	for _, cat := range c.Categories {
		if types.Category(cat).Priority() > types.CategoryParallelization.Priority() {
			return fmt.Errorf("unknown analyzer category %q", cat)
		}
	}
	return nil
}

// EnabledCategories translates the category list into the set the engine
// accepts. An empty list enables everything.
func (c *Config) EnabledCategories() map[types.Category]bool {
	if len(c.Categories) == 0 {
		return nil
	}
	enabled := make(map[types.Category]bool, len(c.Categories))
	for _, cat := range c.Categories {
		enabled[types.Category(cat)] = true
	}
	return enabled
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
