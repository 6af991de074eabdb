package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default configuration file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML. It is read once at
// startup and treated as immutable for the process lifetime.
type FileConfig struct {
	Port                   string `yaml:"port"`
	DatabaseURL            string `yaml:"databaseURL"`
	LogLevel               string `yaml:"logLevel"`
	SecretKey              string `yaml:"secretKey"`
	TokenTTL               string `yaml:"tokenTTL"`
	PageSize               int    `yaml:"pageSize"`
	RedisAddr              string `yaml:"redisAddr"`
	RedisPassword          string `yaml:"redisPassword"`
	AuthRateLimitPerMinute int    `yaml:"authRateLimitPerMinute"`
	TrustProxy             bool   `yaml:"trustProxy"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		cfg.SecretKey = v
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		cfg.TokenTTL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PageSize = n
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ParseTokenTTL parses the configured token lifetime. Empty input falls
// back to one hour.
func ParseTokenTTL(raw string) (time.Duration, error) {
	if raw == "" {
		return time.Hour, nil
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse tokenTTL: %w", err)
	}
	if ttl <= 0 {
		return 0, errors.New("tokenTTL must be positive")
	}
	return ttl, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.SecretKey == "" {
		return errors.New("config: secretKey is required (set in config.yaml or SECRET_KEY)")
	}
	return nil
}
