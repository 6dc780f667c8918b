package config

import (
	"fmt"
	"time"
)

// AnalysisConfig holds external analysis channel configuration. The channel
// has empirically discovered limits, so every size and timeout is tunable.
type AnalysisConfig struct {
	// Enabled turns external enrichment on or off for the whole run.
	Enabled bool
	// ServiceURL is the web surface of the analysis service.
	ServiceURL string
	// ChunkSize is the number of characters typed per submission chunk.
	ChunkSize int
	// ChunkDelay is the pacing delay between chunks.
	ChunkDelay time.Duration
	// SettleDelay is the wait after the final submit before polling starts.
	SettleDelay time.Duration
	// PollInterval is the completion polling interval.
	PollInterval time.Duration
	// MaxWait bounds the completion wait; exceeding it is a soft timeout.
	MaxWait time.Duration
	// MinResponseChars is the substantiveness threshold: shorter extracted
	// content is discarded as a UI artifact.
	MinResponseChars int
	// MaxDiffsInPrompt caps how many file diffs are embedded in the prompt.
	MaxDiffsInPrompt int
	// DiffCharBudget is the per-diff truncation budget inside the prompt.
	DiffCharBudget int
}

// LoadAnalysisConfigFromEnv loads analysis configuration from environment variables.
func LoadAnalysisConfigFromEnv() AnalysisConfig {
	return AnalysisConfig{
		Enabled:          GetEnvBool("ANALYSIS_ENABLED", true),
		ServiceURL:       GetEnv("ANALYSIS_URL", ""),
		ChunkSize:        GetEnvInt("ANALYSIS_CHUNK_SIZE", 800),
		ChunkDelay:       GetEnvDuration("ANALYSIS_CHUNK_DELAY", 500*time.Millisecond),
		SettleDelay:      GetEnvDuration("ANALYSIS_SETTLE_DELAY", 2*time.Second),
		PollInterval:     GetEnvDuration("ANALYSIS_POLL_INTERVAL", 3*time.Second),
		MaxWait:          GetEnvDuration("ANALYSIS_MAX_WAIT", 180*time.Second),
		MinResponseChars: GetEnvInt("ANALYSIS_MIN_RESPONSE_CHARS", 80),
		MaxDiffsInPrompt: GetEnvInt("ANALYSIS_MAX_DIFFS", 5),
		DiffCharBudget:   GetEnvInt("ANALYSIS_DIFF_CHAR_BUDGET", 2000),
	}
}

// Validate validates analysis configuration.
func (c AnalysisConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ServiceURL == "" {
		return fmt.Errorf("ANALYSIS_URL is required when ANALYSIS_ENABLED is true")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("ANALYSIS_CHUNK_SIZE must be positive, got: %d", c.ChunkSize)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("ANALYSIS_POLL_INTERVAL must be positive, got: %s", c.PollInterval)
	}
	if c.MaxWait < c.PollInterval {
		return fmt.Errorf("ANALYSIS_MAX_WAIT must be at least one poll interval, got: %s", c.MaxWait)
	}
	if c.MinResponseChars <= 0 {
		return fmt.Errorf("ANALYSIS_MIN_RESPONSE_CHARS must be positive, got: %d", c.MinResponseChars)
	}
	if c.MaxDiffsInPrompt <= 0 {
		return fmt.Errorf("ANALYSIS_MAX_DIFFS must be positive, got: %d", c.MaxDiffsInPrompt)
	}
	if c.DiffCharBudget <= 0 {
		return fmt.Errorf("ANALYSIS_DIFF_CHAR_BUDGET must be positive, got: %d", c.DiffCharBudget)
	}
	return nil
}
