// Package config
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	CORS      CORSConfig      `yaml:"cors"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Appliance ApplianceConfig `yaml:"appliance"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	ReadTimeoutMS  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMS int    `yaml:"write_timeout_ms"`
}

type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAgeSeconds  int      `yaml:"max_age_seconds"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"ssl_mode"`
}

type AuthConfig struct {
	AdminUsername     string `yaml:"admin_username"`
	AdminPassword     string `yaml:"admin_password"`
	AdminPasswordHash string `yaml:"admin_password_hash"`
	JWTSecret         string `yaml:"jwt_secret"`
	JWTExpiryHours    int    `yaml:"jwt_expiry_hours"`
	EncryptionKey     string `yaml:"encryption_key"`
}

// ApplianceConfig governs how the console talks to IP Office appliances.
type ApplianceConfig struct {
	ConnectTimeoutMS int    `yaml:"connect_timeout_ms"`
	RequestTimeoutMS int    `yaml:"request_timeout_ms"`
	AllowInsecureTLS bool   `yaml:"allow_insecure_tls"`
	WireLogDir       string `yaml:"wire_log_dir"`
	DebugReturnRaw   bool   `yaml:"debug_return_raw"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads configuration from file and applies environment variable overrides
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate ensures all required configuration values are set
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("IPN_AUTH_JWT_SECRET is required (minimum 32 characters)")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("jwt_secret must be at least 32 characters")
	}

	if c.Auth.EncryptionKey == "" {
		return fmt.Errorf("IPN_AUTH_ENCRYPTION_KEY is required (32 bytes for AES-256)")
	}
	if len(c.Auth.EncryptionKey) != 32 {
		return fmt.Errorf("encryption_key must be exactly 32 bytes")
	}

	if c.Auth.AdminPasswordHash == "" {
		if c.Auth.AdminPassword == "" || c.Auth.AdminPassword == "changeme" {
			return fmt.Errorf("IPN_AUTH_ADMIN_PASSWORD must be set to a strong password")
		}
	}

	if c.Database.Host == "" || c.Database.DBName == "" {
		return fmt.Errorf("database host and dbname are required")
	}

	return nil
}

// applyEnvOverrides checks for environment variables with IPN_ prefix
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IPN_DATABASE_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("IPN_DATABASE_PORT"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Database.Port)
	}
	if v := os.Getenv("IPN_DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}

	if v := os.Getenv("IPN_AUTH_ADMIN_PASSWORD"); v != "" {
		cfg.Auth.AdminPassword = v
	}
	if v := os.Getenv("IPN_AUTH_ADMIN_PASSWORD_HASH"); v != "" {
		cfg.Auth.AdminPasswordHash = v
	}
	if v := os.Getenv("IPN_AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("IPN_AUTH_ENCRYPTION_KEY"); v != "" {
		cfg.Auth.EncryptionKey = v
	}

	if v := os.Getenv("IPN_APPLIANCE_WIRE_LOG_DIR"); v != "" {
		cfg.Appliance.WireLogDir = v
	}
	if v := os.Getenv("IPN_DEBUG_RETURN_RAW"); v == "1" {
		cfg.Appliance.DebugReturnRaw = true
	}
}

// GetReadTimeout returns the read timeout as a duration
func (s *ServerConfig) GetReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMS) * time.Millisecond
}

// GetWriteTimeout returns the write timeout as a duration
func (s *ServerConfig) GetWriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutMS) * time.Millisecond
}

// GetDSN returns the PostgreSQL connection string
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// GetJWTExpiry returns JWT expiry as duration
func (a *AuthConfig) GetJWTExpiry() time.Duration {
	return time.Duration(a.JWTExpiryHours) * time.Hour
}

// GetConnectTimeout returns the appliance connect timeout as a duration
func (a *ApplianceConfig) GetConnectTimeout() time.Duration {
	return time.Duration(a.ConnectTimeoutMS) * time.Millisecond
}

// GetRequestTimeout returns the appliance request timeout as a duration
func (a *ApplianceConfig) GetRequestTimeout() time.Duration {
	return time.Duration(a.RequestTimeoutMS) * time.Millisecond
}

// IsLogLevelValid checks if the log level is valid
func (l *LoggingConfig) IsLogLevelValid() bool {
	validLevels := []string{"debug", "info", "warn", "error"}
	return slices.Contains(validLevels, strings.ToLower(l.Level))
}
