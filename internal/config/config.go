package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends understood by the API.
const (
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

// Runtime modes. Development mode exposes internal error detail in responses.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Config aggregates runtime configuration for the bug tracker API.
type Config struct {
	Mode      string
	Server    ServerConfig
	Store     StoreConfig
	Postgres  PostgresConfig
	Firestore FirestoreConfig
	Auth      AuthConfig
	API       APIConfig
	Metrics   MetricsConfig
}

// IsDevelopment reports whether the API runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Mode == ModeDevelopment
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string
	Migrate bool
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// FirestoreConfig carries the Firestore project and collection naming.
type FirestoreConfig struct {
	ProjectID        string
	CollectionPrefix string
}

// AuthConfig groups authentication-related settings.
type AuthConfig struct {
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	BcryptCost         int
	// AdminEmails are granted the admin role when they register.
	AdminEmails []string
}

// IsAdminEmail reports whether email is listed in AdminEmails, ignoring case.
func (a AuthConfig) IsAdminEmail(email string) bool {
	for _, candidate := range a.AdminEmails {
		if strings.EqualFold(candidate, email) {
			return true
		}
	}
	return false
}

// APIConfig groups behaviour switches of the bug endpoints.
type APIConfig struct {
	RequireAuth bool
	MaxPageSize int
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Mode: strings.ToLower(getString("BUGTRACKER_ENV", ModeProduction)),
		Server: ServerConfig{
			Host:         getString("BUGTRACKER_API_HOST", "0.0.0.0"),
			Port:         getInt("BUGTRACKER_API_PORT", 5000),
			ReadTimeout:  getDuration("BUGTRACKER_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("BUGTRACKER_API_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDuration("BUGTRACKER_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getString("BUGTRACKER_STORE", StorePostgres)),
			Migrate: getBool("BUGTRACKER_MIGRATE", true),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "bugtracker_app"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "bugtracker"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
			MaxConns: getInt("POSTGRES_MAX_CONNS", 0),
		},
		Firestore: FirestoreConfig{
			ProjectID:        getString("FIRESTORE_PROJECT_ID", ""),
			CollectionPrefix: getString("FIRESTORE_COLLECTION_PREFIX", ""),
		},
		Auth: loadAuthConfig(),
		API: APIConfig{
			RequireAuth: getBool("BUGTRACKER_REQUIRE_AUTH", false),
			MaxPageSize: getInt("BUGTRACKER_MAX_PAGE_SIZE", 100),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("BUGTRACKER_METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.Mode {
	case ModeDevelopment, ModeProduction:
	default:
		return fmt.Errorf("unsupported mode %q", c.Mode)
	}

	switch c.Store.Backend {
	case StorePostgres, StoreMemory:
	case StoreFirestore:
		if c.Firestore.ProjectID == "" {
			return fmt.Errorf("FIRESTORE_PROJECT_ID is required for the firestore store")
		}
	default:
		return fmt.Errorf("unsupported store backend %q", c.Store.Backend)
	}

	if c.API.MaxPageSize < 1 {
		return fmt.Errorf("max page size must be positive, got %d", c.API.MaxPageSize)
	}
	return nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func loadAuthConfig() AuthConfig {
	cost := getInt("BUGTRACKER_AUTH_BCRYPT_COST", 12)
	if cost < 4 || cost > 31 {
		cost = 12
	}

	return AuthConfig{
		AccessTokenSecret:  getString("BUGTRACKER_JWT_SECRET", "change-me-to-a-32-byte-secret"),
		RefreshTokenSecret: getString("BUGTRACKER_JWT_REFRESH_SECRET", "change-me-to-a-64-byte-secret"),
		AccessTokenTTL:     getDuration("BUGTRACKER_AUTH_ACCESS_TOKEN_TTL", 30*24*time.Hour),
		RefreshTokenTTL:    getDuration("BUGTRACKER_AUTH_REFRESH_TOKEN_TTL", 720*time.Hour),
		BcryptCost:         cost,
		AdminEmails:        getList("BUGTRACKER_ADMIN_EMAILS"),
	}
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
