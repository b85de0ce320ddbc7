package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Persistence
	DataFile string
	ChartDir string

	// LLM API
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string
	OpenAITemperature float64
	OpenAITimeout     time.Duration
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8081"),
		DataFile: getEnv("DATA_FILE", "./data/quality_data.csv"),
		ChartDir: getEnv("CHART_DIR", "./data/charts"),

		// An absent key degrades insight generation to always failing; it is
		// deliberately not a startup error.
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		OpenAITemperature: getEnvFloat("OPENAI_TEMPERATURE", 0.6),
		OpenAITimeout:     getEnvDuration("OPENAI_TIMEOUT", 30*time.Second),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data file path and ensure its directory exists
	if c.DataFile == "" {
		errors = append(errors, "data file path cannot be empty")
	} else {
		dir := filepath.Dir(c.DataFile)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create data directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.ChartDir == "" {
		errors = append(errors, "chart directory cannot be empty")
	} else if _, err := os.Stat(c.ChartDir); os.IsNotExist(err) {
		if err := os.MkdirAll(c.ChartDir, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create chart directory '%s': %v", c.ChartDir, err))
		}
	}

	if c.OpenAIModel == "" {
		errors = append(errors, "OpenAI model cannot be empty")
	}

	if c.OpenAITemperature < 0 || c.OpenAITemperature > 2 {
		errors = append(errors, fmt.Sprintf("invalid temperature %v: must be between 0 and 2", c.OpenAITemperature))
	}

	if c.OpenAITimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid OpenAI timeout %v: must be at least 1 second", c.OpenAITimeout))
	} else if c.OpenAITimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid OpenAI timeout %v: must be at most 5 minutes", c.OpenAITimeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
