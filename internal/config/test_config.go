package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.Database = DatabaseConfig{
		Path:    ":memory:",
		Timeout: 1 * time.Second,
	}
	cfg.Search.HighlightPoll = 0
	cfg.UI.Markdown = false
	cfg.Log = LogConfig{Level: "off"}
	return cfg
}
