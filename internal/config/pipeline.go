package config

import (
	"fmt"
	"time"
)

// PipelineConfig holds batch runner configuration.
type PipelineConfig struct {
	// TargetsFile is the YAML file listing merge requests to process.
	TargetsFile string
	// OutputDir is where per-MR documents and the run index are written.
	OutputDir string
	// Pacing is the fixed delay inserted between consecutive merge requests.
	Pacing time.Duration
	// CacheSize bounds the run-scoped metadata cache.
	CacheSize int
}

// LoadPipelineConfigFromEnv loads pipeline configuration from environment variables.
func LoadPipelineConfigFromEnv() PipelineConfig {
	return PipelineConfig{
		TargetsFile: GetEnv("TARGETS_FILE", "mr_targets.yaml"),
		OutputDir:   GetEnv("OUTPUT_DIR", "docs"),
		Pacing:      GetEnvDuration("PIPELINE_PACING", 2*time.Second),
		CacheSize:   GetEnvInt("PIPELINE_CACHE_SIZE", 128),
	}
}

// Validate validates pipeline configuration.
func (c PipelineConfig) Validate() error {
	if c.TargetsFile == "" {
		return fmt.Errorf("TARGETS_FILE is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("OUTPUT_DIR is required")
	}
	if c.Pacing < 0 {
		return fmt.Errorf("PIPELINE_PACING must not be negative, got: %s", c.Pacing)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("PIPELINE_CACHE_SIZE must be positive, got: %d", c.CacheSize)
	}
	return nil
}
