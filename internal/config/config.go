// Package config loads inkwash settings from TOML with environment fallbacks.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pelletier/go-toml/v2"
)

// DefaultFileName is looked up in the working directory when no path is given
const DefaultFileName = "inkwash.toml"

type Backend struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type Editor struct {
	BrushDiameter int    `toml:"brush_diameter"`
	BrushColor    string `toml:"brush_color"`
}

type Batch struct {
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	MaxDurationSeconds  int    `toml:"max_duration_seconds"`
	TargetLanguage      string `toml:"target_language"`
}

type Server struct {
	Bind string `toml:"bind"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type JobLog struct {
	Path string `toml:"path"`
}

// Config is the full configuration file
type Config struct {
	Backend Backend `toml:"backend"`
	Editor  Editor  `toml:"editor"`
	Batch   Batch   `toml:"batch"`
	Server  Server  `toml:"server"`
	Logging Logging `toml:"logging"`
	JobLog  JobLog  `toml:"joblog"`
}

// Load reads the file at path over the defaults, applies environment fallbacks and validates.
// A missing file is not an error; the returned bool reports whether one was read.
func Load(path string) (*Config, bool, error) {
	cfg := Default()

	resolved, exists, err := resolvePath(path)
	if err != nil {
		return nil, false, err
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return &cfg, exists, nil
}

func resolvePath(path string) (string, bool, error) {
	if path == "" {
		abs, err := filepath.Abs(DefaultFileName)
		if err != nil {
			return "", false, err
		}
		path = abs
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return path, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %q is a directory", path)
	}
	return path, true, nil
}

// BackendTimeout returns the per-request transport timeout
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// PollInterval returns the batch poll interval
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Batch.PollIntervalSeconds) * time.Second
}

// MaxDuration returns the batch polling ceiling
func (c *Config) MaxDuration() time.Duration {
	return time.Duration(c.Batch.MaxDurationSeconds) * time.Second
}

// BrushColor returns the parsed brush color
func (c *Config) BrushColor() color.NRGBA {
	col, err := ParseColor(c.Editor.BrushColor)
	if err != nil {
		return color.NRGBA{R: 255, A: 255}
	}
	return col
}

// ParseColor parses #rgb or #rrggbb into an opaque color
func ParseColor(s string) (color.NRGBA, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("color %q must be #rgb or #rrggbb: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
