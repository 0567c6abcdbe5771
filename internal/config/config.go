package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	// App
	Env       string // dev / staging / prod
	LogLevel  string
	LogFormat string // json / console

	// HTTP
	HTTPAddr         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	ShutdownTimeout  time.Duration

	// Auth / Security
	JWTSecret  string
	JWTIssuer  string
	BcryptCost int

	// Storage
	Storage       string // postgres / memory
	DBAddr        string
	DBDebug       bool
	RunMigrations bool
	SeedDevUsers  bool

	// Redis (rate limiting); empty addr disables limiting
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RLEnabled     bool
	RLLoginLimit  int
	RLSignupLimit int
	RLWindow      time.Duration

	// RabbitMQ (account events); empty url falls back to a log-only publisher
	RabbitURL      string
	RabbitExchange string
}

func (c *Config) IsDev() bool { return c.Env == "dev" }

// Load reads the environment, after loading .env when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:            getEnv("ENV", "dev"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		JWTIssuer:      getEnv("JWT_ISSUER", "account-service"),
		Storage:        strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		DBAddr:         strings.TrimSpace(os.Getenv("DB_ADDR")),
		RedisAddr:      strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RabbitURL:      strings.TrimSpace(os.Getenv("RABBIT_URL")),
		RabbitExchange: getEnv("RABBIT_EXCHANGE", "account.events"),
	}

	// required values
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env var: JWT_SECRET")
	}

	switch cfg.Storage {
	case StoragePostgres:
		if cfg.DBAddr == "" {
			return nil, fmt.Errorf("missing required env var: DB_ADDR (STORAGE=postgres)")
		}
	case StorageMemory:
	default:
		return nil, fmt.Errorf("invalid STORAGE %q: want postgres or memory", cfg.Storage)
	}

	var err error
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 12); err != nil {
		return nil, err
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cfg.BcryptCost)
	}

	if cfg.DBDebug, err = getBool("DB_DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.RunMigrations, err = getBool("RUN_MIGRATIONS", true); err != nil {
		return nil, err
	}
	if cfg.SeedDevUsers, err = getBool("SEED_DEV_USERS", cfg.IsDev()); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	// rate limits
	if cfg.RLEnabled, err = getBool("RL_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.RLLoginLimit, err = getInt("RL_LOGIN_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.RLSignupLimit, err = getInt("RL_SIGNUP_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.RLWindow, err = getDuration("RL_WINDOW", time.Minute); err != nil {
		return nil, err
	}

	// timeouts
	if cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPIdleTimeout, err = getDuration("HTTP_IDLE_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}
