package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const minJWTSecretBytes = 16

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`

	MySQLDSN          string        `env:"MYSQL_DSN" envDefault:"user:password@tcp(localhost:3306)/app?charset=utf8mb4&parseTime=True&loc=Local"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"25"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	RunMigrations     bool          `env:"RUN_MIGRATIONS" envDefault:"true"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`
	RedisPass string `env:"REDIS_PASSWORD"`

	JWTSecret  string        `env:"JWT_SECRET" envDefault:"change-me-change-me"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	// CookieSecure marks the session cookie Secure; disable only for local http.
	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"true"`

	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`
	// AvatarURLTemplate takes the user name through %s.
	AvatarURLTemplate string `env:"AVATAR_URL_TEMPLATE" envDefault:"https://github.com/%s.png"`
	AvatarDisabled    bool   `env:"AVATAR_DISABLED"`
	LoginRedirectPath string `env:"LOGIN_REDIRECT_PATH" envDefault:"/auth/login"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	SwaggerHost string `env:"SWAGGER_HOST"`
}

// Load builds Config from environment, reading a local .env file first when present.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.AvatarDisabled {
		cfg.AvatarURLTemplate = ""
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env.Parse cannot express with tags.
func (c *Config) Validate() error {
	if len(c.JWTSecret) < minJWTSecretBytes {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretBytes)
	}
	// bcrypt.MinCost and bcrypt.MaxCost
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.LoginRedirectPath == "" {
		return errors.New("LOGIN_REDIRECT_PATH is required")
	}
	return nil
}
