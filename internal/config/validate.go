package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateEditor(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBackend() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend.base_url must be set")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend.base_url %q must be an http(s) URL", c.Backend.BaseURL)
	}
	if c.Backend.TimeoutSeconds <= 0 {
		return errors.New("backend.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateEditor() error {
	if c.Editor.BrushDiameter < 5 || c.Editor.BrushDiameter > 100 {
		return fmt.Errorf("editor.brush_diameter must be between 5 and 100, got %d", c.Editor.BrushDiameter)
	}
	if _, err := ParseColor(c.Editor.BrushColor); err != nil {
		return fmt.Errorf("editor.brush_color: %w", err)
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.PollIntervalSeconds <= 0 {
		return errors.New("batch.poll_interval_seconds must be positive")
	}
	if c.Batch.MaxDurationSeconds < c.Batch.PollIntervalSeconds {
		return errors.New("batch.max_duration_seconds must be at least the poll interval")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}
	return nil
}
