// Package config loads the application configuration from YAML with
// environment variable overrides for secrets and deployment settings.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the outreach pipeline.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Storage  StorageConfig  `yaml:"storage"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Dispatch DispatchConfig `yaml:"dispatch"`
}

// ServerConfig holds HTTP listener settings for the tools API.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig selects the persistence backend. Driver is "postgres" or
// "sqlite"; URL is a Postgres DSN, Path a SQLite file.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
	Path   string `yaml:"path"`
}

// RedisConfig holds the optional Redis connection used for the dispatch
// lock. An empty Addr disables Redis and falls back to advisory locks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SMTPConfig holds credentials for live email delivery.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// StorageConfig holds the directory for stored (simulated) messages.
type StorageConfig struct {
	MessagesDir string `yaml:"messages_dir"`
}

// PipelineConfig tunes the state machine and message generation.
type PipelineConfig struct {
	BatchSize          int  `yaml:"batch_size"`
	MaxRetries         int  `yaml:"max_retries"`
	MinConfidenceScore int  `yaml:"min_confidence_score"`
	EnrichFirst        bool `yaml:"enrich_first"`
}

// DispatchConfig tunes the delivery loop.
type DispatchConfig struct {
	MaxPerMinute    int  `yaml:"max_per_minute"`
	RefillThreshold int  `yaml:"refill_threshold"`
	DryRun          bool `yaml:"dry_run"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "outreach.db"
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
	if cfg.Storage.MessagesDir == "" {
		cfg.Storage.MessagesDir = "sent_messages"
	}
	if cfg.Pipeline.BatchSize == 0 {
		cfg.Pipeline.BatchSize = 50
	}
	if cfg.Pipeline.MaxRetries == 0 {
		cfg.Pipeline.MaxRetries = 2
	}
	if cfg.Pipeline.MinConfidenceScore == 0 {
		cfg.Pipeline.MinConfidenceScore = 60
	}
	if cfg.Dispatch.MaxPerMinute == 0 {
		cfg.Dispatch.MaxPerMinute = 10
	}
	if cfg.Dispatch.RefillThreshold == 0 {
		cfg.Dispatch.RefillThreshold = 10
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file (if present) is read first, so secrets can live in .env
// locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.Driver = "postgres"
		cfg.Database.URL = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.SMTP.Port = p
		}
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		cfg.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.SMTP.Password = v
	}
	if v := os.Getenv("SMTP_FROM"); v != "" {
		cfg.SMTP.From = v
	}
	if v := os.Getenv("DISPATCH_DRY_RUN"); v != "" {
		cfg.Dispatch.DryRun = v == "1" || v == "true"
	}

	return cfg, nil
}
