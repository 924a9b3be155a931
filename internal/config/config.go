package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Store        StoreConfig        `yaml:"store"`
	Firebase     FirebaseConfig     `yaml:"firebase"`
	Database     DatabaseConfig     `yaml:"database"`
	Auth         AuthConfig         `yaml:"auth"`
	Log          LogConfig          `yaml:"log"`
	Retry        RetryConfig        `yaml:"retry"`
	Registration RegistrationConfig `yaml:"registration"`
	Authz        AuthzConfig        `yaml:"authz"`
	API          APIConfig          `yaml:"api"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
}

// ServerConfig contains HTTP and gRPC health server settings
type ServerConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	GRPCPort               int    `yaml:"grpc_port"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

const (
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendMemory    = "memory"
)

// StoreConfig selects the document store backend
type StoreConfig struct {
	Backend string `yaml:"backend"` // "firestore", "postgres" or "memory"
}

// FirebaseConfig contains the Firebase project used for Firestore and ID tokens
type FirebaseConfig struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

const (
	AuthProviderFirebase = "firebase"
	AuthProviderLocal    = "local"
)

// AuthConfig selects how bearer tokens are verified
type AuthConfig struct {
	Provider          string `yaml:"provider"` // "firebase" or "local"
	JWTSecret         string `yaml:"jwt_secret"`
	TokenExpiryMinute int    `yaml:"token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// RetryConfig controls the backoff applied to registration workflow operations
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	BaseDelayMS int `yaml:"base_delay_ms"`
}

// RegistrationConfig contains registration workflow switches
type RegistrationConfig struct {
	// EnforceCapacity rejects approvals beyond a service's max participants
	EnforceCapacity bool `yaml:"enforce_capacity"`
}

// AuthzConfig contains authorization context cache settings
type AuthzConfig struct {
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
}

// APIConfig contains HTTP listing settings
type APIConfig struct {
	PageSize           int `yaml:"page_size"`
	CacheMaxAgeSeconds int `yaml:"cache_max_age_seconds"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	RecalculateParticipants string `yaml:"recalculate_participants"`
}

// Load reads configuration from a YAML file. A .env file next to the
// working directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse builds a configuration from YAML, applies environment overrides and validates it
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if present
	cfg.overrideWithEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("GRPC_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.GRPCPort)
	}

	// Store
	if val := os.Getenv("STORE_BACKEND"); val != "" {
		c.Store.Backend = val
	}

	// Firebase
	if val := os.Getenv("FIREBASE_PROJECT_ID"); val != "" {
		c.Firebase.ProjectID = val
	}
	if val := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); val != "" && c.Firebase.CredentialsFile == "" {
		c.Firebase.CredentialsFile = val
	}

	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Auth
	if val := os.Getenv("AUTH_PROVIDER"); val != "" {
		c.Auth.Provider = val
	}
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.Auth.JWTSecret = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Registration
	if val := os.Getenv("REGISTRATION_ENFORCE_CAPACITY"); val != "" {
		c.Registration.EnforceCapacity = val == "true" || val == "1"
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}
	if c.Server.ShutdownTimeoutSeconds == 0 {
		c.Server.ShutdownTimeoutSeconds = 15
	}

	// Store validation
	if c.Store.Backend == "" {
		c.Store.Backend = BackendFirestore
	}
	switch c.Store.Backend {
	case BackendFirestore:
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("firebase project id is required for the firestore backend")
		}
	case BackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}

	// Auth validation
	if c.Auth.Provider == "" {
		c.Auth.Provider = AuthProviderFirebase
	}
	switch c.Auth.Provider {
	case AuthProviderFirebase:
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("firebase project id is required for firebase auth")
		}
	case AuthProviderLocal:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT secret is required")
		}
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT secret must be at least 32 characters")
		}
	default:
		return fmt.Errorf("unknown auth provider: %q", c.Auth.Provider)
	}
	if c.Auth.TokenExpiryMinute == 0 {
		c.Auth.TokenExpiryMinute = 60
	}

	// Retry defaults
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry max attempts must not be negative")
	}
	if c.Retry.BaseDelayMS == 0 {
		c.Retry.BaseDelayMS = 100
	}

	// Authz defaults
	if c.Authz.CacheTTLSeconds == 0 {
		c.Authz.CacheTTLSeconds = 60
	}

	// API defaults
	if c.API.PageSize == 0 {
		c.API.PageSize = 20
	}
	if c.API.CacheMaxAgeSeconds == 0 {
		c.API.CacheMaxAgeSeconds = 60
	}

	// Scheduler defaults
	if c.Scheduler.RecalculateParticipants == "" {
		c.Scheduler.RecalculateParticipants = "0 0 3 * * *" // 3 AM UTC
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the gRPC health server address, empty when disabled
func (c *Config) GetGRPCAddress() string {
	if c.Server.GRPCPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Retry.BaseDelayMS) * time.Millisecond
}

func (c *Config) AuthzCacheTTL() time.Duration {
	return time.Duration(c.Authz.CacheTTLSeconds) * time.Second
}

func (c *Config) TokenExpiry() time.Duration {
	return time.Duration(c.Auth.TokenExpiryMinute) * time.Minute
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}
