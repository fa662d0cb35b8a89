package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.Database = DatabaseConfig{
		Path:    ":memory:",
		Timeout: 1 * time.Second,
	}
	cfg.Remote.Mode = "local"
	cfg.Remote.User = "tester"
	cfg.Remote.Timeout = 2 * time.Second
	cfg.Feed.HTTPTimeout = 5 * time.Second
	cfg.Feed.UserAgent = "flip-test/1.0"
	cfg.Log = LogConfig{Level: "off"}
	return cfg
}
