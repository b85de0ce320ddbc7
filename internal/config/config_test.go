package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	return &Config{
		Port:              "8081",
		DataFile:          filepath.Join(dir, "quality_data.csv"),
		ChartDir:          filepath.Join(dir, "charts"),
		OpenAIModel:       "gpt-4o-mini",
		OpenAITemperature: 0.6,
		OpenAITimeout:     30 * time.Second,
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	// An empty value reads as unset, so this shields the test from whatever
	// the host environment exports.
	for _, key := range []string{
		"PORT", "DATA_FILE", "CHART_DIR",
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL",
		"OPENAI_TEMPERATURE", "OPENAI_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()
	if cfg.Port != "8081" {
		t.Fatalf("expected default port 8081, got %q", cfg.Port)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Fatalf("expected default model, got %q", cfg.OpenAIModel)
	}
	if cfg.OpenAITemperature != 0.6 {
		t.Fatalf("expected default temperature 0.6, got %v", cfg.OpenAITemperature)
	}
	if cfg.OpenAITimeout != 30*time.Second {
		t.Fatalf("expected default timeout 30s, got %v", cfg.OpenAITimeout)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("OPENAI_TEMPERATURE", "0.2")
	t.Setenv("OPENAI_TIMEOUT", "10s")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("port override not applied: %q", cfg.Port)
	}
	if cfg.OpenAIModel != "gpt-4o" {
		t.Fatalf("model override not applied: %q", cfg.OpenAIModel)
	}
	if cfg.OpenAITemperature != 0.2 {
		t.Fatalf("temperature override not applied: %v", cfg.OpenAITemperature)
	}
	if cfg.OpenAITimeout != 10*time.Second {
		t.Fatalf("timeout override not applied: %v", cfg.OpenAITimeout)
	}
}

func TestEnvOverridesInvalidValuesFallBack(t *testing.T) {
	t.Setenv("OPENAI_TEMPERATURE", "warm")
	t.Setenv("OPENAI_TIMEOUT", "soon")

	cfg := Load()
	if cfg.OpenAITemperature != 0.6 {
		t.Fatalf("bad temperature should fall back to default, got %v", cfg.OpenAITemperature)
	}
	if cfg.OpenAITimeout != 30*time.Second {
		t.Fatalf("bad timeout should fall back to default, got %v", cfg.OpenAITimeout)
	}
}

func TestValidateOK(t *testing.T) {
	if err := validConfig(t).Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateMissingKeyIsNotAnError(t *testing.T) {
	cfg := validConfig(t)
	cfg.OpenAIAPIKey = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("absent API key must not fail validation: %v", err)
	}
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Port = "http" }, "invalid port"},
		{"port range", func(c *Config) { c.Port = "70000" }, "between 1 and 65535"},
		{"empty data file", func(c *Config) { c.DataFile = "" }, "data file path"},
		{"empty chart dir", func(c *Config) { c.ChartDir = "" }, "chart directory"},
		{"empty model", func(c *Config) { c.OpenAIModel = "" }, "model"},
		{"temperature", func(c *Config) { c.OpenAITemperature = 3 }, "temperature"},
		{"timeout low", func(c *Config) { c.OpenAITimeout = time.Millisecond }, "at least 1 second"},
		{"timeout high", func(c *Config) { c.OpenAITimeout = time.Hour }, "at most 5 minutes"},
	}
	for _, tc := range cases {
		cfg := validConfig(t)
		tc.mutate(cfg)
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: error %q missing %q", tc.name, err.Error(), tc.want)
		}
	}
}
