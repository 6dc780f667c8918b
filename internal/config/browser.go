package config

import (
	"fmt"
	"time"
)

// BrowserConfig holds UI-automation channel configuration.
type BrowserConfig struct {
	// RemoteURL is the WebDriver remote end, e.g. a local chromedriver.
	RemoteURL string
	// LocateTimeout bounds each locator strategy attempt.
	LocateTimeout time.Duration
	// PageLoadDelay is the wait after navigation before the page is read.
	PageLoadDelay time.Duration
	// LoginRetries bounds the interactive sign-in loop.
	LoginRetries int
	// StrategyFile optionally overrides the built-in locator strategy
	// tables with a YAML file.
	StrategyFile string
}

// LoadBrowserConfigFromEnv loads browser configuration from environment variables.
func LoadBrowserConfigFromEnv() BrowserConfig {
	return BrowserConfig{
		RemoteURL:     GetEnv("WEBDRIVER_URL", "http://127.0.0.1:9515"),
		LocateTimeout: GetEnvDuration("BROWSER_LOCATE_TIMEOUT", 2*time.Second),
		PageLoadDelay: GetEnvDuration("BROWSER_PAGE_LOAD_DELAY", 3*time.Second),
		LoginRetries:  GetEnvInt("BROWSER_LOGIN_RETRIES", 3),
		StrategyFile:  GetEnv("BROWSER_STRATEGY_FILE", ""),
	}
}

// Validate validates browser configuration.
func (c BrowserConfig) Validate() error {
	if c.RemoteURL == "" {
		return fmt.Errorf("WEBDRIVER_URL is required")
	}
	if c.LocateTimeout <= 0 {
		return fmt.Errorf("BROWSER_LOCATE_TIMEOUT must be positive, got: %s", c.LocateTimeout)
	}
	if c.LoginRetries < 0 {
		return fmt.Errorf("BROWSER_LOGIN_RETRIES must not be negative, got: %d", c.LoginRetries)
	}
	return nil
}
