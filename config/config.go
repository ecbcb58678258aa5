package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete dashboard configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Rules      RulesConfig      `yaml:"rules"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// RedisConfig contains the optional shared slot store settings
type RedisConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// ClusteringConfig locates the external clustering service
type ClusteringConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	OfficialPath   string        `yaml:"official_path"`
	PlaygroundPath string        `yaml:"playground_path"`
	PairwisePath   string        `yaml:"pairwise_path"`
}

// RulesConfig points at an optional rule table file
type RulesConfig struct {
	File string `yaml:"file"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from a YAML file. An empty filename yields Default().
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Clustering.BaseURL == "" {
		c.Clustering.BaseURL = "http://127.0.0.1:5000"
	}
	if c.Clustering.Timeout <= 0 {
		c.Clustering.Timeout = 30 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Print displays the configuration
func (c *Config) Print() {
	fmt.Printf("Server: %s\n", c.Server.Addr)
	fmt.Printf("Clustering service: %s (timeout %s)\n", c.Clustering.BaseURL, c.Clustering.Timeout)
	if c.Redis.Enabled {
		fmt.Printf("Redis: %s db=%d\n", c.Redis.Addr, c.Redis.DB)
	} else {
		fmt.Println("Redis: disabled (in-memory slots)")
	}
	if c.Rules.File != "" {
		fmt.Printf("Rule table: %s\n", c.Rules.File)
	}
	fmt.Printf("Log level: %s\n", c.Logging.Level)
}
