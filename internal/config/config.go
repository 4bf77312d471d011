package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const Production = "production"

type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`

	HTTP     HTTPConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Import   ImportConfig
}

type HTTPConfig struct {
	Port         string        `env:"PORT" envDefault:"3000"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

type DatabaseConfig struct {
	Host       string `env:"DB_HOST" envDefault:"localhost"`
	Port       string `env:"DB_PORT" envDefault:"5432"`
	User       string `env:"DB_USER" envDefault:"postgres"`
	Password   string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name       string `env:"DB_NAME" envDefault:"workers"`
	SSLMode    string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxRetries int    `env:"DB_MAX_RETRIES" envDefault:"5"`
}

type RedisConfig struct {
	Addr       string        `env:"REDIS_ADDR"`
	ListTTL    time.Duration `env:"REDIS_LIST_TTL" envDefault:"10m"`
	MaxRetries int           `env:"REDIS_MAX_RETRIES" envDefault:"5"`
}

type KafkaConfig struct {
	Broker        string        `env:"KAFKA_BROKER"`
	ConsumerGroup string        `env:"KAFKA_CONSUMER_GROUP" envDefault:"workers-audit"`
	PollInterval  time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"3s"`
	MaxRetries    int           `env:"KAFKA_MAX_RETRIES" envDefault:"5"`
}

type AuthConfig struct {
	JWTSecret       string        `env:"JWT_SECRET"`
	AccessTokenTTL  time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
}

type ImportConfig struct {
	MaxFileBytes int64 `env:"IMPORT_MAX_FILE_BYTES" envDefault:"10485760"`
	// FallbackCreator attributes imported workers to the first existing user
	// when the request carries no acting user.
	FallbackCreator bool `env:"IMPORT_FALLBACK_CREATOR" envDefault:"false"`
}

// Load reads optional .env files and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	existing := make([]string, 0, len(envFiles))
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return nil, fmt.Errorf("config: load env files: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("config: JWT_SECRET must be set")
	}
	if c.AppEnv == Production && len(c.Auth.JWTSecret) < 32 {
		return errors.New("config: JWT_SECRET must be at least 32 bytes in production")
	}
	if c.Import.MaxFileBytes <= 0 {
		return errors.New("config: IMPORT_MAX_FILE_BYTES must be positive")
	}
	if c.Database.MaxRetries < 1 {
		c.Database.MaxRetries = 1
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == Production
}

// DSN returns the key/value connection string used by the gorm postgres driver.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

// URL returns the postgres:// form expected by golang-migrate.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}
