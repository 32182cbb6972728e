package cli

import (
	"os"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	APIKey    string
	Output    string
	Style     string // glamour style for rendered notes
	Width     int
	Verbose   bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("COMBAT_SERVER", "http://localhost:8080"),
		APIKey:    os.Getenv("COMBAT_API_KEY"),
		Output:    "text",
		Style:     getEnvOrDefault("COMBAT_STYLE", "auto"),
		Width:     80,
		Verbose:   false,
	}
}

// Validate checks flag values that cobra cannot
func (c *Config) Validate() error {
	switch c.Output {
	case "text", "json":
	default:
		return &usageError{msg: "--output must be text or json"}
	}
	if c.Width < 20 {
		return &usageError{msg: "--width must be at least 20"}
	}
	return nil
}

type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
