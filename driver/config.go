package driver

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds connection settings for a query engine.
type Config struct {
	// URI is the bolt endpoint of the engine.
	URI string `yaml:"uri"`
	// User authenticates the connection.
	User string `yaml:"user"`
	// Password authenticates the connection.
	Password string `yaml:"password"`
	// Database selects the target database on multi-database servers.
	Database string `yaml:"database"`
}

// DefaultConfig returns the settings used when nothing else is configured.
func DefaultConfig() Config {
	return Config{
		URI:      "bolt://127.0.0.1:7687",
		User:     "neo4j",
		Password: "password",
		Database: "neo4j",
	}
}

// LoadConfig builds a Config from defaults, an optional YAML file, and
// NEOGM_* environment variables, in increasing order of precedence.
// An empty path skips the file layer.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("NEOGM_URI"); v != "" {
		c.URI = v
	}
	if v := os.Getenv("NEOGM_USER"); v != "" {
		c.User = v
	}
	if v := os.Getenv("NEOGM_PASSWORD"); v != "" {
		c.Password = v
	}
	if v := os.Getenv("NEOGM_DATABASE"); v != "" {
		c.Database = v
	}
}
