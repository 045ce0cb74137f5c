package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	ServiceName string
	DatabaseURL string
	// HTTPListenAddr is the address the report API listens on.
	HTTPListenAddr string
	LogLevel       string

	// OpenAI-compatible endpoint used for executive summary generation.
	// Leave OpenAIAPIKey empty to disable AI summaries; the engine falls
	// back to the deterministic summary.
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// DefaultTimezone is used when the timezone preference is missing or
	// cannot be loaded.
	DefaultTimezone string

	// StaticDir is the root for static assets such as the default logo.
	// Standalone report downloads inline images found under it.
	StaticDir string
}

func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:     getEnv("SERVICE_NAME", "reports-api"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		HTTPListenAddr:  getEnv("HTTP_LISTEN_ADDR", ":8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "America/New_York"),
		StaticDir:       getEnv("STATIC_DIR", "static"),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
