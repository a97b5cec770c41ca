package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backend names accepted by store.counter_backend and store.booking_backend.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Log      LogConfig
	Database DatabaseConfig
	SQLite   SQLiteConfig
	Redis    RedisConfig
	DynamoDB DynamoDBConfig
	Store    StoreConfig
	HTTP     HTTPConfig
	Auth     AuthConfig
}

type AppConfig struct {
	Name string
	Env  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string
	MaxConns        int32
	ConnectTimeout  time.Duration
	MigrationsTable string
}

type SQLiteConfig struct {
	Path        string
	BusyTimeout time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DynamoDBConfig struct {
	Region         string
	Endpoint       string // non-empty for DynamoDB Local / LocalStack
	CounterTable   string
	BookingTable   string
	BookingLRIndex string
}

// StoreConfig picks the backends and the conflict retry policy.
type StoreConfig struct {
	CounterBackend string
	BookingBackend string
	MaxRetries     uint64
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port            string
	AllowedOrigins  string
	MaxBodyBytes    int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type AuthConfig struct {
	Enabled   bool
	JWTSecret string
	TokenTTL  time.Duration
	Issuer    string
}

// Load reads .env (if present), an optional config.yaml and TRANSWISE_* environment
// variables, in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/transwise")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("TRANSWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("database.url"),
			MaxConns:        v.GetInt32("database.max_conns"),
			ConnectTimeout:  v.GetDuration("database.connect_timeout"),
			MigrationsTable: v.GetString("database.migrations_table"),
		},
		SQLite: SQLiteConfig{
			Path:        v.GetString("sqlite.path"),
			BusyTimeout: v.GetDuration("sqlite.busy_timeout"),
		},
		Redis: RedisConfig{
			Host:      v.GetString("redis.host"),
			Port:      v.GetInt("redis.port"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			KeyPrefix: v.GetString("redis.key_prefix"),
		},
		DynamoDB: DynamoDBConfig{
			Region:         v.GetString("dynamodb.region"),
			Endpoint:       v.GetString("dynamodb.endpoint"),
			CounterTable:   v.GetString("dynamodb.counter_table"),
			BookingTable:   v.GetString("dynamodb.booking_table"),
			BookingLRIndex: v.GetString("dynamodb.booking_lr_index"),
		},
		Store: StoreConfig{
			CounterBackend: strings.ToLower(v.GetString("store.counter_backend")),
			BookingBackend: strings.ToLower(v.GetString("store.booking_backend")),
			MaxRetries:     v.GetUint64("store.max_retries"),
			InitialBackoff: v.GetDuration("store.initial_backoff"),
			MaxBackoff:     v.GetDuration("store.max_backoff"),
		},
		HTTP: HTTPConfig{
			Port:            v.GetString("http.port"),
			AllowedOrigins:  v.GetString("http.allowed_origins"),
			MaxBodyBytes:    v.GetInt64("http.max_body_bytes"),
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
		},
		Auth: AuthConfig{
			Enabled:   v.GetBool("auth.enabled"),
			JWTSecret: v.GetString("auth.jwt_secret"),
			TokenTTL:  v.GetDuration("auth.token_ttl"),
			Issuer:    v.GetString("auth.issuer"),
		},
	}

	// DATABASE_URL is the conventional variable; honour it when nothing more specific is set.
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "transwise")
	v.SetDefault("app.env", "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.connect_timeout", 5*time.Second)
	v.SetDefault("database.migrations_table", "schema_migrations")

	v.SetDefault("sqlite.path", "transwise.db")
	v.SetDefault("sqlite.busy_timeout", 5*time.Second)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "transwise:lrseq:")

	v.SetDefault("dynamodb.region", "ap-south-1")
	v.SetDefault("dynamodb.endpoint", "")
	v.SetDefault("dynamodb.counter_table", "lr_sequences")
	v.SetDefault("dynamodb.booking_table", "bookings")
	v.SetDefault("dynamodb.booking_lr_index", "company_lr_number")

	v.SetDefault("store.counter_backend", BackendPostgres)
	v.SetDefault("store.booking_backend", BackendPostgres)
	v.SetDefault("store.max_retries", 10)
	v.SetDefault("store.initial_backoff", 5*time.Millisecond)
	v.SetDefault("store.max_backoff", 250*time.Millisecond)

	v.SetDefault("http.port", "8080")
	v.SetDefault("http.allowed_origins", "")
	v.SetDefault("http.max_body_bytes", 1<<20)
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("auth.issuer", "transwise")
}

// Validate rejects combinations the store factory cannot build.
func (c *Config) Validate() error {
	counter := map[string]bool{BackendMemory: true, BackendPostgres: true, BackendSQLite: true, BackendRedis: true, BackendDynamoDB: true}
	booking := map[string]bool{BackendMemory: true, BackendPostgres: true, BackendSQLite: true, BackendDynamoDB: true}

	if !counter[c.Store.CounterBackend] {
		return fmt.Errorf("store.counter_backend: unknown backend %q", c.Store.CounterBackend)
	}
	if !booking[c.Store.BookingBackend] {
		return fmt.Errorf("store.booking_backend: unsupported backend %q", c.Store.BookingBackend)
	}
	if c.UsesBackend(BackendPostgres) && c.Database.URL == "" {
		return fmt.Errorf("postgres backend selected but database.url (or DATABASE_URL) is not set")
	}
	if c.UsesBackend(BackendSQLite) && c.SQLite.Path == "" {
		return fmt.Errorf("sqlite backend selected but sqlite.path is empty")
	}
	return nil
}

// ValidateServer adds the checks that only matter when serving HTTP.
func (c *Config) ValidateServer() error {
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.enabled requires auth.jwt_secret (TRANSWISE_AUTH_JWT_SECRET)")
	}
	if c.HTTP.Port == "" {
		return fmt.Errorf("http.port is empty")
	}
	return nil
}

// UsesBackend reports whether either store is configured to use backend.
func (c *Config) UsesBackend(backend string) bool {
	return c.Store.CounterBackend == backend || c.Store.BookingBackend == backend
}

// IsProduction returns true when app.env is "production".
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
