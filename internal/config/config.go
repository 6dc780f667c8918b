package config

import "fmt"

// Config is the root application configuration.
type Config struct {
	Logger   LoggerConfig
	GitLab   GitLabConfig
	Browser  BrowserConfig
	Analysis AnalysisConfig
	Pipeline PipelineConfig
}

// LoadFromEnv loads and validates the full configuration from environment
// variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Logger:   LoadLoggerConfigFromEnv(),
		GitLab:   LoadGitLabConfigFromEnv(),
		Browser:  LoadBrowserConfigFromEnv(),
		Analysis: LoadAnalysisConfigFromEnv(),
		Pipeline: LoadPipelineConfigFromEnv(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates every configuration section.
func (c *Config) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger config: %w", err)
	}
	if err := c.GitLab.Validate(); err != nil {
		return fmt.Errorf("gitlab config: %w", err)
	}
	if err := c.Browser.Validate(); err != nil {
		return fmt.Errorf("browser config: %w", err)
	}
	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis config: %w", err)
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}
	return nil
}
