package config

import (
	"fmt"
	"strings"
	"time"
)

// GitLabConfig holds source-control API client configuration.
type GitLabConfig struct {
	// BaseURL is the GitLab instance root, e.g. https://gitlab.example.com.
	BaseURL string
	// Token is the personal access token sent as PRIVATE-TOKEN.
	Token string
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration
	// InsecureTLS skips certificate verification from the start of the run.
	// The client also flips to insecure mode on its own after a TLS failure.
	InsecureTLS bool
}

// LoadGitLabConfigFromEnv loads GitLab configuration from environment variables.
func LoadGitLabConfigFromEnv() GitLabConfig {
	return GitLabConfig{
		BaseURL:     strings.TrimRight(GetEnv("GITLAB_URL", "https://gitlab.com"), "/"),
		Token:       GetEnv("GITLAB_TOKEN", ""),
		Timeout:     GetEnvDuration("GITLAB_TIMEOUT", 30*time.Second),
		InsecureTLS: GetEnvBool("GITLAB_TLS_INSECURE", false),
	}
}

// Validate validates GitLab configuration.
func (c GitLabConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("GITLAB_URL is required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("GITLAB_URL must start with http:// or https://, got: %s", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("GITLAB_TIMEOUT must be positive, got: %s", c.Timeout)
	}
	return nil
}

// HasToken reports whether an API credential is configured at all.
func (c GitLabConfig) HasToken() bool {
	return c.Token != ""
}
