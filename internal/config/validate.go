package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks a normalized config for consistency. Called after
// normalize(); assumes paths are already expanded.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateHTTP(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DBPath) == "" {
		return errors.New("paths.db_path is required")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.CookiesFromBrowser != "" {
		switch c.Fetch.CookiesFromBrowser {
		case "chrome", "firefox", "safari", "edge", "chromium", "opera", "brave":
		default:
			return fmt.Errorf("fetch.cookies_from_browser: unsupported browser %q", c.Fetch.CookiesFromBrowser)
		}
	}
	if c.Fetch.MaxRetries < 1 {
		return errors.New("fetch.max_retries must be at least 1")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.FetchWorkers < 1 {
		return errors.New("pipeline.fetch_workers must be at least 1")
	}
	if c.Pipeline.ProcessingWorkers < 1 {
		return errors.New("pipeline.processing_workers must be at least 1")
	}
	return nil
}

func (c *Config) validateHTTP() error {
	if strings.TrimSpace(c.HTTP.Bind) == "" {
		return errors.New("http.bind is required")
	}
	return nil
}
