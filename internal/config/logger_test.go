package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadLoggerConfigFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "")
		t.Setenv("LOG_FORMAT", "")
		t.Setenv("LOG_OUTPUT", "")

		cfg := LoadLoggerConfigFromEnv()
		assert.Equal(t, "info", cfg.Level)
		assert.Equal(t, "json", cfg.Format)
		assert.Equal(t, "stdout", cfg.Output)
	})

	t.Run("custom values", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("LOG_FORMAT", "console")
		t.Setenv("LOG_OUTPUT", "stderr")

		cfg := LoadLoggerConfigFromEnv()
		assert.Equal(t, "debug", cfg.Level)
		assert.Equal(t, "console", cfg.Format)
		assert.Equal(t, "stderr", cfg.Output)
	})
}

func TestLoggerConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		config    LoggerConfig
		wantError bool
	}{
		{
			name:      "valid config",
			config:    LoggerConfig{Level: "info", Format: "json", Output: "stdout"},
			wantError: false,
		},
		{
			name:      "unknown level",
			config:    LoggerConfig{Level: "verbose", Format: "json", Output: "stdout"},
			wantError: true,
		},
		{
			name:      "unknown format",
			config:    LoggerConfig{Level: "info", Format: "xml", Output: "stdout"},
			wantError: true,
		},
		{
			name:      "console debug config",
			config:    LoggerConfig{Level: "debug", Format: "console", Output: "stderr"},
			wantError: false,
		},
		{
			name:      "warn and error levels accepted",
			config:    LoggerConfig{Level: "warn", Format: "json", Output: "stdout"},
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoggerConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name     string
		config   LoggerConfig
		expected bool
	}{
		{name: "json info is production", config: LoggerConfig{Level: "info", Format: "json"}, expected: true},
		{name: "debug level is not", config: LoggerConfig{Level: "debug", Format: "json"}, expected: false},
		{name: "console format is not", config: LoggerConfig{Level: "info", Format: "console"}, expected: false},
		{name: "json warn is production", config: LoggerConfig{Level: "warn", Format: "json"}, expected: true},
		{name: "json error is production", config: LoggerConfig{Level: "error", Format: "json"}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.IsProduction())
		})
	}
}
