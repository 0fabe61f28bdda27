package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for wellness-hub
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Cleanup  CleanupConfig  `yaml:"cleanup"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig holds storage configuration. Driver is "postgres" or "memory".
type DatabaseConfig struct {
	Driver        string `yaml:"driver"`
	DSN           string `yaml:"dsn"`
	MaxOpenConns  int    `yaml:"max_open_conns"`
	MaxIdleConns  int    `yaml:"max_idle_conns"`
	MigrationsDir string `yaml:"migrations_dir"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuthConfig holds credentials and session settings. None of these have
// literal defaults.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	AnonKey         string        `yaml:"anon_key"`
	ServiceKey      string        `yaml:"service_key"`
	LoginRateLimit  int           `yaml:"login_rate_limit"`
	LoginRateWindow time.Duration `yaml:"login_rate_window"`
	BootstrapAdmin  string        `yaml:"bootstrap_admin"`
	CookieSecure    bool          `yaml:"cookie_secure"`
	DefaultLocale   string        `yaml:"default_locale"`
}

// CatalogConfig points at the questionnaire catalog. Empty Dir uses the
// embedded default catalog.
type CatalogConfig struct {
	Dir string `yaml:"dir"`
}

// CleanupConfig holds cleanup worker configuration
type CleanupConfig struct {
	Interval            time.Duration `yaml:"interval"`
	DiagnosticRetention time.Duration `yaml:"diagnostic_retention"`
}

// Load loads configuration from the optional YAML file named by CONFIG_FILE,
// then applies environment variables on top.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Driver:        "postgres",
			MaxOpenConns:  25,
			MaxIdleConns:  5,
			MigrationsDir: "",
		},
		Auth: AuthConfig{
			TokenTTL:        7 * 24 * time.Hour,
			LoginRateLimit:  10,
			LoginRateWindow: time.Minute,
			DefaultLocale:   "fr",
		},
		Cleanup: CleanupConfig{
			Interval: time.Hour,
		},
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsInt("SERVER_PORT", c.Server.Port)
	c.Server.AllowedOrigins = getEnvAsList("ALLOWED_ORIGINS", c.Server.AllowedOrigins)

	c.Database.Driver = getEnv("DATABASE_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DATABASE_DSN", c.Database.DSN)
	c.Database.MaxOpenConns = getEnvAsInt("DATABASE_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvAsInt("DATABASE_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.MigrationsDir = getEnv("MIGRATIONS_DIR", c.Database.MigrationsDir)

	c.Redis.Address = getEnv("REDIS_ADDRESS", c.Redis.Address)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.TokenTTL = getEnvAsDuration("TOKEN_TTL", c.Auth.TokenTTL)
	c.Auth.AnonKey = getEnv("ANON_KEY", c.Auth.AnonKey)
	c.Auth.ServiceKey = getEnv("SERVICE_KEY", c.Auth.ServiceKey)
	c.Auth.LoginRateLimit = getEnvAsInt("LOGIN_RATE_LIMIT", c.Auth.LoginRateLimit)
	c.Auth.LoginRateWindow = getEnvAsDuration("LOGIN_RATE_WINDOW", c.Auth.LoginRateWindow)
	c.Auth.BootstrapAdmin = getEnv("BOOTSTRAP_ADMIN_EMAIL", c.Auth.BootstrapAdmin)
	c.Auth.CookieSecure = getEnvAsBool("COOKIE_SECURE", c.Auth.CookieSecure)
	c.Auth.DefaultLocale = getEnv("DEFAULT_LOCALE", c.Auth.DefaultLocale)

	c.Catalog.Dir = getEnv("CATALOG_DIR", c.Catalog.Dir)

	c.Cleanup.Interval = getEnvAsDuration("CLEANUP_INTERVAL", c.Cleanup.Interval)
	c.Cleanup.DiagnosticRetention = getEnvAsDuration("DIAGNOSTIC_RETENTION", c.Cleanup.DiagnosticRetention)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database DSN is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver: %q", c.Database.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if c.Auth.AnonKey == "" {
		return fmt.Errorf("ANON_KEY is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
