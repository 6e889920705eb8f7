package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the Hecate API.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// CORSOriginsStr is a comma-separated list of allowed CORS origins.
	CORSOriginsStr string `yaml:"cors_origins" env:"CORS_ORIGINS" env-default:""`

	// CORSOrigins is the parsed list from CORSOriginsStr (not from config file).
	CORSOrigins []string `yaml:"-"`

	// Database configuration (PostgreSQL vocabulary store)
	Database DatabaseConfig `yaml:"database"`

	// Qdrant vector store configuration
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Embeddings service configuration
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"hecate"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"vocabulary"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// URL builds the connection string for the pool.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// QdrantConfig holds vector store configuration.
type QdrantConfig struct {
	Host       string `yaml:"host" env:"QDRANT_HOST" env-default:"localhost"`
	Port       int    `yaml:"port" env:"QDRANT_PORT" env-default:"6334"`
	APIKey     string `yaml:"-" env:"QDRANT_API_KEY"` // Secret - not in YAML
	UseTLS     bool   `yaml:"use_tls" env:"QDRANT_USE_TLS" env-default:"false"`
	Collection string `yaml:"collection" env:"QDRANT_COLLECTION" env-default:"meddra"`
}

// EmbeddingsConfig holds the OpenAI-compatible embedding endpoint settings.
type EmbeddingsConfig struct {
	Endpoint string `yaml:"endpoint" env:"EMBEDDINGS_ENDPOINT" env-default:"https://api.openai.com/v1"`
	APIKey   string `yaml:"-" env:"EMBEDDINGS_API_KEY"` // Secret - not in YAML
	Model    string `yaml:"model" env:"EMBEDDINGS_MODEL" env-default:"text-embedding-3-small"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// If config.yaml does not exist, configuration comes from environment variables
// and defaults alone.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	cfg.parseComplexFields()

	return cfg, nil
}

func (c *Config) parseComplexFields() {
	c.CORSOrigins = nil
	for _, origin := range strings.Split(c.CORSOriginsStr, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			c.CORSOrigins = append(c.CORSOrigins, origin)
		}
	}
}
