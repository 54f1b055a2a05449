package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type TransferConfig struct {
	MaxPayloadBytes int `toml:"max_payload_bytes"`
	NodeBatchStart  int `toml:"node_batch_start"`
	TimelineBatch   int `toml:"timeline_batch"`
	ChatBatch       int `toml:"chat_batch"`
	MaxRetries      int `toml:"max_retries"`
}

type Config struct {
	API      APIConfig      `toml:"api"`
	Transfer TransferConfig `toml:"transfer"`
}

func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8080",
			TimeoutSeconds: 30,
		},
		Transfer: TransferConfig{
			MaxPayloadBytes: 4 << 20,
			NodeBatchStart:  1000,
			TimelineBatch:   500,
			ChatBatch:       200,
			MaxRetries:      10,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads the config file if it exists and falls back to the
// defaults otherwise. Environment overrides are applied in both cases.
func LoadOrDefault(path string) (*Config, error) {
	cfg := Default()
	if _, statErr := os.Stat(path); statErr == nil {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides config values with environment variables if present.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CASEWIRE_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("CASEWIRE_API_TOKEN"); v != "" {
		c.API.Token = v
	}
	c.API.TimeoutSeconds = getEnvInt("CASEWIRE_API_TIMEOUT", c.API.TimeoutSeconds)
	c.Transfer.MaxPayloadBytes = getEnvInt("CASEWIRE_MAX_PAYLOAD_BYTES", c.Transfer.MaxPayloadBytes)
	c.Transfer.NodeBatchStart = getEnvInt("CASEWIRE_NODE_BATCH", c.Transfer.NodeBatchStart)
	c.Transfer.MaxRetries = getEnvInt("CASEWIRE_MAX_RETRIES", c.Transfer.MaxRetries)
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
