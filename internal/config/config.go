// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилища refresh-токенов.
const (
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
	StorageMemory   = "memory"
)

// ErrInvalidConfig — конфигурация не проходит проверку инвариантов.
var ErrInvalidConfig = errors.New("invalid config")

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	Ops      OpsConfig     `yaml:"ops"`
	GRPC     GRPCConfig    `yaml:"grpc"`
	Auth     AuthConfig    `yaml:"auth"`
	Storage  StorageConfig `yaml:"storage"`
	DB       DBConfig      `yaml:"db"`
	Redis    RedisConfig   `yaml:"redis"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
}

// HTTPConfig — публичный HTTP API (/authenticate/*, /users/me).
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	// BasePath — префикс маршрутов, например "/api".
	BasePath string `yaml:"base_path" env:"HTTP_BASE_PATH" env-default:""`
}

// OpsConfig — служебный HTTP: /livez, /healthz, /metrics.
type OpsConfig struct {
	Host string `yaml:"host" env:"OPS_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"OPS_PORT" env-default:"50081"`
}

// GRPCConfig — служебный gRPC (health-check).
type GRPCConfig struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50051"`
}

// Addr возвращает адрес в формате host:port.
func (c HTTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Addr возвращает адрес в формате host:port.
func (c OpsConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Addr возвращает адрес в формате host:port.
func (c GRPCConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// AuthConfig содержит параметры выпуска и валидации токенов.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"30m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	Issuer          string        `yaml:"issuer" env:"ISSUER" env-default:"session-service"`
}

// Validate проверяет инварианты: непустой секрет и положительные TTL.
func (c AuthConfig) Validate() error {
	const op = "config.AuthConfig.Validate"

	if c.JWTSecret == "" {
		return fmt.Errorf("%s: jwt_secret is empty: %w", op, ErrInvalidConfig)
	}

	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("%s: access_token_ttl must be positive: %w", op, ErrInvalidConfig)
	}

	if c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("%s: refresh_token_ttl must be positive: %w", op, ErrInvalidConfig)
	}

	return nil
}

// StorageConfig выбирает бэкенд хранилища refresh-токенов.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
}

// DBConfig — настройки подключения к базе данных.
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL"`
	// Migrate — применять встроенные миграции goose при старте.
	Migrate bool `yaml:"migrate" env:"DB_MIGRATE" env-default:"true"`
}

// RedisConfig — настройки Redis-хранилища.
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"session:rt:"`
}

// Validate проверяет согласованность всей конфигурации.
func (c *Config) Validate() error {
	const op = "config.Config.Validate"

	if err := c.Auth.Validate(); err != nil {
		return err
	}

	switch c.Storage.Driver {
	case StoragePostgres:
		if c.DB.DatabaseURL == "" {
			return fmt.Errorf("%s: db_url is required for postgres storage: %w", op, ErrInvalidConfig)
		}
	case StorageRedis:
		if c.Redis.RedisURL == "" {
			return fmt.Errorf("%s: redis_url is required for redis storage: %w", op, ErrInvalidConfig)
		}
		// Каталог пользователей живёт в PostgreSQL при любом хранилище токенов.
		if c.DB.DatabaseURL == "" {
			return fmt.Errorf("%s: db_url is required for the user directory: %w", op, ErrInvalidConfig)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("%s: unknown storage driver %q: %w", op, c.Storage.Driver, ErrInvalidConfig)
	}

	return nil
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла поверх значений из YAML накладываются ENV-переменные,
// затем выполняется Validate.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func read(path string) (*Config, error) {
	var cfg Config

	// чтение файла + overlay ENV.
	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q does not exist: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}
