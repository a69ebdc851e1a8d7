package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Storage     StorageConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Session     SessionConfig
	Alarm       AlarmConfig
	Reconcile   ReconcileConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host          string
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	EnableMetrics bool
}

// StorageConfig selects the relational store backing users, tasks and sessions.
type StorageConfig struct {
	Driver     string
	SQLitePath string
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

// RedisConfig is optional; sessions move to Redis when URL is set.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type SessionConfig struct {
	TTL time.Duration
}

// AlarmConfig controls the persisted alarm manager behind the reminder scheduler.
type AlarmConfig struct {
	Path         string
	AllowExact   bool
	CoarseWindow time.Duration
}

// ReconcileConfig enables the periodic reminder sweep. Zero disables it.
type ReconcileConfig struct {
	Interval time.Duration
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
}

var defaults = map[string]interface{}{
	"APP_NAME":                 "taskreminder",
	"APP_ENV":                  "development",
	"SERVER_HOST":              "0.0.0.0",
	"SERVER_PORT":              "8080",
	"SERVER_READ_TIMEOUT":      "10s",
	"SERVER_WRITE_TIMEOUT":     "10s",
	"SERVER_IDLE_TIMEOUT":      "120s",
	"SERVER_ENABLE_METRICS":    true,
	"STORAGE_DRIVER":           DriverSQLite,
	"SQLITE_PATH":              "./data/taskreminder.db",
	"DB_HOST":                  "localhost",
	"DB_PORT":                  "5432",
	"DB_NAME":                  "taskreminder",
	"DB_USER":                  "taskreminder",
	"DB_MAX_OPEN_CONNS":        25,
	"DB_MAX_IDLE_CONNS":        10,
	"DB_CONN_LIFETIME":         "1h",
	"DB_SSLMODE":               "disable",
	"REDIS_DB":                 0,
	"JWT_ISSUER":               "taskreminder",
	"SESSION_TTL":              "24h",
	"ALARM_DB_PATH":            "./data/alarms.db",
	"ALARM_ALLOW_EXACT":        true,
	"ALARM_COARSE_WINDOW":      "15m",
	"RECONCILE_INTERVAL":       "0",
	"REQUEST_TIMEOUT_SECONDS":  "5s",
	"SHUTDOWN_TIMEOUT_SECONDS": "15s",
	"LOG_LEVEL":                "info",
	"LOG_ENCODING":             "json",
	"RUN_MIGRATIONS":           true,
}

// Load reads configuration from environment variables (optionally .env and a
// YAML/TOML/JSON file) and applies sane defaults so the service can boot in any environment.
// Keys in the file use the environment variable names, case-insensitively.
func Load(file string) (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := &Config{
		AppName:     v.GetString("APP_NAME"),
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host:          v.GetString("SERVER_HOST"),
			Port:          v.GetString("SERVER_PORT"),
			ReadTimeout:   getDuration(v, "SERVER_READ_TIMEOUT"),
			WriteTimeout:  getDuration(v, "SERVER_WRITE_TIMEOUT"),
			IdleTimeout:   getDuration(v, "SERVER_IDLE_TIMEOUT"),
			EnableMetrics: v.GetBool("SERVER_ENABLE_METRICS"),
		},
		Storage: StorageConfig{
			Driver:     strings.ToLower(v.GetString("STORAGE_DRIVER")),
			SQLitePath: v.GetString("SQLITE_PATH"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("DATABASE_URL"),
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetString("DB_PORT"),
			Name:            v.GetString("DB_NAME"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			MaxConnLifetime: getDuration(v, "DB_CONN_LIFETIME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			URL:      v.GetString("REDIS_URL"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			Issuer: v.GetString("JWT_ISSUER"),
		},
		Session: SessionConfig{
			TTL: getDuration(v, "SESSION_TTL"),
		},
		Alarm: AlarmConfig{
			Path:         v.GetString("ALARM_DB_PATH"),
			AllowExact:   v.GetBool("ALARM_ALLOW_EXACT"),
			CoarseWindow: getDuration(v, "ALARM_COARSE_WINDOW"),
		},
		Reconcile: ReconcileConfig{
			Interval: getDuration(v, "RECONCILE_INTERVAL"),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration(v, "REQUEST_TIMEOUT_SECONDS"),
			ShutdownTimeout: getDuration(v, "SHUTDOWN_TIMEOUT_SECONDS"),
		},
		Logger: LoggerConfig{
			Level:    v.GetString("LOG_LEVEL"),
			Encoding: v.GetString("LOG_ENCODING"),
		},
		Migrations: MigrationsConfig{
			Enabled: v.GetBool("RUN_MIGRATIONS"),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad(file string) *Config {
	cfg, err := Load(file)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("config: SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
	default:
		return fmt.Errorf("config: unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Reconcile.Interval < 0 {
		return fmt.Errorf("config: RECONCILE_INTERVAL must not be negative")
	}
	return nil
}

func buildPostgresURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
}

// getDuration accepts Go duration strings and bare integers (seconds).
func getDuration(v *viper.Viper, key string) time.Duration {
	val := strings.TrimSpace(v.GetString(key))
	if val == "" {
		return 0
	}
	if parsed, err := time.ParseDuration(val); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(val); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
