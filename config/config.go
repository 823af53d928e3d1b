package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
}

type DatabaseConfig struct {
	// Dialect selects the engine: "sqlite", "mysql", or "postgres".
	Dialect          string `yaml:"dialect"`
	ConnectionString string `yaml:"connection_string,omitempty"`

	// File is the sqlite database location. Empty means an in-memory
	// database that disappears when the process exits; point it at a path
	// to keep the data.
	File string `yaml:"file,omitempty"`

	// Echo logs every statement before it runs.
	Echo bool `yaml:"echo,omitempty"`
}

// Default is the configuration used when no config file exists: an
// in-memory sqlite database, statements echoed.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Dialect: "sqlite",
			File:    ":memory:",
			Echo:    true,
		},
	}
}

func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

func (d *DatabaseConfig) GetConnectionString() (string, error) {
	switch d.Dialect {
	case "postgres", "mysql":
		if d.ConnectionString == "" {
			return "", fmt.Errorf("connection string is required for %s connection", d.Dialect)
		}
		return d.ConnectionString, nil

	case "sqlite":
		if d.File == "" {
			return ":memory:", nil
		}
		return d.File, nil

	default:
		return "", fmt.Errorf("unsupported database dialect: %s", d.Dialect)
	}
}
