package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devrev/promptledger/internal/model"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LedgerConfig holds the ledger identities and capacity bounds
type LedgerConfig struct {
	Operator           string `yaml:"operator"`
	SessionKeeper      string `yaml:"session_keeper"`
	MaxRequests        int    `yaml:"max_requests"`
	MaxSessionRequests int    `yaml:"max_session_requests"`
	MaxBatchSize       int    `yaml:"max_batch_size"`
}

// JournalConfig holds journal configuration
type JournalConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Dir        string `yaml:"dir"`
	SyncWrites bool   `yaml:"sync_writes"`
}

// ArchiveConfig holds event archive configuration
type ArchiveConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
}

// MetricsConfig holds metrics server configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// RateLimiterConfig holds rate limiter configuration
type RateLimiterConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config represents the complete configuration for the ledger service
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Journal     JournalConfig     `yaml:"journal"`
	Archive     ArchiveConfig     `yaml:"archive"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	RateLimiter RateLimiterConfig `yaml:"rate_limiter"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoadConfig loads configuration from a file
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for unspecified configuration
func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	if cfg.Ledger.MaxRequests == 0 {
		cfg.Ledger.MaxRequests = 1_000_000
	}
	if cfg.Ledger.MaxSessionRequests == 0 {
		cfg.Ledger.MaxSessionRequests = 10_000
	}
	if cfg.Ledger.MaxBatchSize == 0 {
		cfg.Ledger.MaxBatchSize = 100
	}

	if cfg.Journal.Dir == "" {
		cfg.Journal.Dir = "/var/lib/promptledger/journal"
	}

	if cfg.Archive.Port == 0 {
		cfg.Archive.Port = 5432
	}
	if cfg.Archive.SSLMode == "" {
		cfg.Archive.SSLMode = "disable"
	}

	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.RateLimiter.RequestsPerSecond == 0 {
		cfg.RateLimiter.RequestsPerSecond = 100
	}
	if cfg.RateLimiter.Burst == 0 {
		cfg.RateLimiter.Burst = 200
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if _, err := c.OperatorID(); err != nil {
		return fmt.Errorf("ledger.operator: %w", err)
	}
	if _, err := c.SessionKeeperID(); err != nil {
		return fmt.Errorf("ledger.session_keeper: %w", err)
	}
	if c.Ledger.MaxRequests < 1 {
		return fmt.Errorf("ledger.max_requests must be positive")
	}
	if c.Ledger.MaxSessionRequests < 1 {
		return fmt.Errorf("ledger.max_session_requests must be positive")
	}
	if c.Ledger.MaxBatchSize < 1 {
		return fmt.Errorf("ledger.max_batch_size must be positive")
	}
	if c.Archive.Enabled {
		if c.Archive.Host == "" {
			return fmt.Errorf("archive.host is required when archive is enabled")
		}
		if c.Archive.Database == "" {
			return fmt.Errorf("archive.database is required when archive is enabled")
		}
	}
	return nil
}

// OperatorID parses the configured operator identity
func (c *Config) OperatorID() (model.ID, error) {
	return parseIdentity(c.Ledger.Operator)
}

// SessionKeeperID parses the configured session-keeper identity
func (c *Config) SessionKeeperID() (model.ID, error) {
	return parseIdentity(c.Ledger.SessionKeeper)
}

func parseIdentity(s string) (model.ID, error) {
	if s == "" {
		return model.ZeroID, fmt.Errorf("identity is required")
	}
	id, err := model.ParseID(s)
	if err != nil {
		return model.ZeroID, err
	}
	if id.IsZero() {
		return model.ZeroID, fmt.Errorf("identity must not be the zero identifier")
	}
	return id, nil
}

// ArchiveDSN builds the postgres connection string for the event archive
func (c *Config) ArchiveDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Archive.User, c.Archive.Password, c.Archive.Host, c.Archive.Port,
		c.Archive.Database, c.Archive.SSLMode)
}
