// Package config loads the YAML configuration shared by the CLI and the service.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ruslano69/tablemapper/pkg/adapters"
	"github.com/ruslano69/tablemapper/pkg/events"
	"github.com/ruslano69/tablemapper/pkg/retry"
	"github.com/ruslano69/tablemapper/pkg/security"
)

// EnvDSN overrides an empty database.dsn.
const EnvDSN = "TABLEMAPPER_DSN"

// Config represents the main configuration structure
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Tables   []string       `yaml:"tables,omitempty"` // tables exposed by the service
	Server   ServerConfig   `yaml:"server,omitempty"`
	Events   EventsConfig   `yaml:"events,omitempty"`
	Audit    AuditConfig    `yaml:"audit,omitempty"`
	Metrics  MetricsConfig  `yaml:"metrics,omitempty"`
	LogLevel string         `yaml:"log_level,omitempty"` // debug, info, warn, error
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Type        string        `yaml:"type"`                   // sqlite, postgres, mysql, mssql
	DSN         string        `yaml:"dsn,omitempty"`          // full connection string; wins over the fields below
	Host        string        `yaml:"host,omitempty"`         // For network databases
	Port        int           `yaml:"port,omitempty"`         // Database port
	Database    string        `yaml:"database,omitempty"`     // Database name or file path
	User        string        `yaml:"user,omitempty"`         // Username
	Password    string        `yaml:"password,omitempty"`     // Password
	Schema      string        `yaml:"schema,omitempty"`       // PostgreSQL (public) / MS SQL (dbo) schema
	WindowsAuth bool          `yaml:"windows_auth,omitempty"` // MS SQL Windows authentication
	SSLMode     string        `yaml:"sslmode,omitempty"`      // PostgreSQL SSL mode
	Timeout     time.Duration `yaml:"timeout,omitempty"`      // connect timeout

	// ConnectRetry повторяет подключение при старте сервиса
	ConnectRetry *retry.Config `yaml:"connect_retry,omitempty"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`          // default ":8080"
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default 10s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default 10s
}

// EventsConfig enables change event publishing
type EventsConfig struct {
	Enabled       bool `yaml:"enabled"`
	events.Config `yaml:",inline"`
}

// AuditConfig for audit logging settings
type AuditConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Level      string `yaml:"level"`                 // minimal, standard, full
	File       string `yaml:"file,omitempty"`        // JSON lines file
	MaxSize    int    `yaml:"max_size_mb,omitempty"` // Max file size in MB
	MaxBackups int    `yaml:"max_backups,omitempty"`
	Table      string `yaml:"table,omitempty"` // audit table in the same database
}

// MetricsConfig for the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"` // default /metrics
}

// Default returns a configuration with defaults applied
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Metrics:  MetricsConfig{Path: "/metrics"},
		LogLevel: "info",
	}
}

// Load reads and validates the YAML config at path, applying defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}

	// DSN: config file takes precedence; env var is the fallback
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = os.Getenv(EnvDSN)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields
func (c *Config) Validate() error {
	if c.Database.Type == "" {
		return fmt.Errorf("config: database.type is required")
	}
	if c.Database.DSN == "" && c.Database.BuildDSN() == "" {
		return fmt.Errorf("config: cannot build DSN for database type %q", c.Database.Type)
	}
	for _, table := range c.Tables {
		if err := security.ValidateIdentifier(table); err != nil {
			return fmt.Errorf("config: tables: %w", err)
		}
	}
	if c.Audit.Table != "" {
		if err := security.ValidateIdentifier(c.Audit.Table); err != nil {
			return fmt.Errorf("config: audit.table: %w", err)
		}
	}
	return nil
}

// Save saves configuration to YAML file
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Sample creates sample configuration for different database types
func Sample(dbType string) *Config {
	cfg := Default()
	cfg.Database.Type = dbType
	cfg.Tables = []string{"users"}
	cfg.Audit = AuditConfig{
		Enabled: true,
		Level:   "standard",
		File:    "audit.log",
		MaxSize: 100,
	}
	cfg.Metrics.Enabled = true

	switch dbType {
	case "postgres", "postgresql":
		cfg.Database.Host = "localhost"
		cfg.Database.Port = 5432
		cfg.Database.Database = "mydb"
		cfg.Database.User = "postgres"
		cfg.Database.Password = "password"
		cfg.Database.Schema = "public"
		cfg.Database.SSLMode = "disable"

	case "mssql", "sqlserver":
		cfg.Database.Host = "localhost"
		cfg.Database.Port = 1433
		cfg.Database.Database = "mydb"
		cfg.Database.User = "sa"
		cfg.Database.Password = "YourPassword123"

	case "sqlite":
		cfg.Database.Database = "database.db"

	case "mysql":
		cfg.Database.Host = "localhost"
		cfg.Database.Port = 3306
		cfg.Database.Database = "mydb"
		cfg.Database.User = "root"
		cfg.Database.Password = "password"
	}

	return cfg
}

// AdapterType normalizes database.type to a registered adapter name
func (c *DatabaseConfig) AdapterType() string {
	switch c.Type {
	case "postgresql":
		return "postgres"
	case "sqlserver":
		return "mssql"
	default:
		return c.Type
	}
}

// AdapterConfig converts the section to adapters.Config
func (c *DatabaseConfig) AdapterConfig() adapters.Config {
	dsn := c.DSN
	if dsn == "" {
		dsn = c.BuildDSN()
	}
	return adapters.Config{
		Type:    c.AdapterType(),
		DSN:     dsn,
		Schema:  c.Schema,
		Timeout: c.Timeout,
	}
}

// BuildDSN constructs database connection string from config
func (c *DatabaseConfig) BuildDSN() string {
	switch c.AdapterType() {
	case "postgres":
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.Database, sslMode)

	case "mssql":
		if c.WindowsAuth {
			return fmt.Sprintf("sqlserver://%s:%d?database=%s&integrated+security=SSPI",
				c.Host, c.Port, c.Database)
		}
		return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
			c.User, c.Password, c.Host, c.Port, c.Database)

	case "sqlite":
		return c.Database

	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Database)

	default:
		return ""
	}
}
