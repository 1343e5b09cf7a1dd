package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingSessionSecret = errors.New("missing SESSION_SECRET")

// Store backends for session documents.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env      string   `mapstructure:"env"` // local, dev, production
	HTTP     HTTP     `mapstructure:"http"`
	Quiz     Quiz     `mapstructure:"quiz"`
	Session  Session  `mapstructure:"session"`
	Redis    Redis    `mapstructure:"redis"`
	Database Database `mapstructure:"database"`
	SQLite   SQLite   `mapstructure:"sqlite"`
}

type HTTP struct {
	Port           string        `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace"`
}

type Quiz struct {
	DataDir     string   `mapstructure:"data_dir"` // directory holding <id>_questions.json files
	BankIDs     []string `mapstructure:"bank_ids"`
	MaxAttempts int      `mapstructure:"max_attempts"`
	SampleSize  int      `mapstructure:"sample_size"`
}

type Session struct {
	Store        string        `mapstructure:"store"`
	Secret       string        `mapstructure:"-"` // loaded from environment only
	CookieName   string        `mapstructure:"cookie_name"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
	TTL          time.Duration `mapstructure:"ttl"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"-"`
	DB       int    `mapstructure:"db"`
}

type Database struct {
	URL string `mapstructure:"-"` // loaded from environment only
}

type SQLite struct {
	Path string `mapstructure:"path"`
}

// IsLocal reports whether the process runs outside a deployed environment.
func (c *Config) IsLocal() bool {
	return c.Env == "" || c.Env == "local"
}

// Load reads configuration from .env, config/config.yaml and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	v.SetDefault("env", "local")
	v.SetDefault("http.port", "8080")
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("http.shutdown_grace", "10s")
	v.SetDefault("quiz.data_dir", "source_challenges")
	v.SetDefault("quiz.bank_ids", []string{"quiz1", "quiz2", "quiz3", "quiz4", "quiz5"})
	v.SetDefault("quiz.max_attempts", 5)
	v.SetDefault("quiz.sample_size", 10)
	v.SetDefault("session.store", StoreMemory)
	v.SetDefault("session.cookie_name", "quiz_session")
	v.SetDefault("session.cookie_secure", false)
	v.SetDefault("session.ttl", "720h")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("sqlite.path", "data/sessions.db")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("env", "APP_ENV")
	_ = v.BindEnv("http.port", "PORT")
	_ = v.BindEnv("quiz.data_dir", "QUIZ_DATA_DIR")
	_ = v.BindEnv("session.store", "SESSION_STORE")
	_ = v.BindEnv("session_secret", "SESSION_SECRET")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis_password", "REDIS_PASSWORD")
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("sqlite.path", "SQLITE_PATH")

	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	cfg.Session.Secret = v.GetString("session_secret")
	cfg.Redis.Password = v.GetString("redis_password")
	cfg.Database.URL = v.GetString("database_url")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Session.Secret == "" {
		if !c.IsLocal() {
			return ErrMissingSessionSecret
		}
		c.Session.Secret = "local-development-session-secret"
	}

	switch c.Session.Store {
	case StoreMemory, StoreRedis, StoreSQLite:
	case StorePostgres:
		if c.Database.URL == "" {
			return errors.New("postgres session store requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}

	if c.Quiz.MaxAttempts <= 0 {
		return fmt.Errorf("quiz.max_attempts must be positive, got %d", c.Quiz.MaxAttempts)
	}
	if c.Quiz.SampleSize <= 0 {
		return fmt.Errorf("quiz.sample_size must be positive, got %d", c.Quiz.SampleSize)
	}
	return nil
}
