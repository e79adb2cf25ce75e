package config

import (
	"os"
	"strings"
)

func (c *Config) normalize() {
	c.normalizeBackend()
	c.normalizeBatch()
	c.normalizeLogging()
	c.Editor.BrushColor = strings.ToLower(strings.TrimSpace(c.Editor.BrushColor))
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	c.JobLog.Path = strings.TrimSpace(c.JobLog.Path)
}

func (c *Config) normalizeBackend() {
	if value := strings.TrimSpace(os.Getenv("INKWASH_BACKEND_URL")); value != "" && c.Backend.BaseURL == Default().Backend.BaseURL {
		c.Backend.BaseURL = value
	}
	if value := strings.TrimSpace(os.Getenv("INKWASH_API_KEY")); value != "" && c.Backend.APIKey == "" {
		c.Backend.APIKey = value
	}
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
}

func (c *Config) normalizeBatch() {
	if value := strings.TrimSpace(os.Getenv("INKWASH_TARGET_LANGUAGE")); value != "" && c.Batch.TargetLanguage == Default().Batch.TargetLanguage {
		c.Batch.TargetLanguage = value
	}
	c.Batch.TargetLanguage = strings.TrimSpace(c.Batch.TargetLanguage)
	if c.Batch.TargetLanguage == "" {
		c.Batch.TargetLanguage = Default().Batch.TargetLanguage
	}
}

func (c *Config) normalizeLogging() {
	if value := strings.TrimSpace(os.Getenv("INKWASH_LOG_LEVEL")); value != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}
