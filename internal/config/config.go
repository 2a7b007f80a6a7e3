package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config defines tracker configuration.
type Config struct {
	DB     DBConfig     `yaml:"db"`
	Log    LogConfig    `yaml:"log"`
	Health HealthConfig `yaml:"health"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// HealthConfig controls the optional local diagnostics endpoint served by
// the run command. An empty Addr disables it.
type HealthConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads configuration from an optional YAML file and environment
// variables. An empty path falls back to TIMETRAIL_CONFIG_PATH.
func Load(path string) (Config, error) {
	cfg := Config{
		DB: DBConfig{
			Path: defaultDBPath(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if path == "" {
		path = os.Getenv("TIMETRAIL_CONFIG_PATH")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if dbPath := os.Getenv("TIMETRAIL_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("TIMETRAIL_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if addr := os.Getenv("TIMETRAIL_HEALTH_ADDR"); addr != "" {
		cfg.Health.Addr = addr
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "timetrail.db"
	}
	return filepath.Join(home, ".local", "share", "timetrail", "timetrail.db")
}
