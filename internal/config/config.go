// Package config loads application configuration from the environment.
// A .env file in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverMySQL  = "mysql"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable of the same name, upper-cased.
type Config struct {
	Env         string `mapstructure:"app_env" validate:"required"`                      // environment (dev/test/prod)
	Port        string `mapstructure:"app_port" validate:"required,numeric"`             // port to bind the HTTP server
	LogLevel    string `mapstructure:"log_level" validate:"oneof=debug info warn error"` // slog level
	StoreDriver string `mapstructure:"store_driver" validate:"oneof=mysql mongo memory"`

	DBUser    string `mapstructure:"db_user" validate:"required_if=StoreDriver mysql"`
	DBPass    string `mapstructure:"db_pass"` // empty allowed
	DBHost    string `mapstructure:"db_host" validate:"required_if=StoreDriver mysql"`
	DBPort    string `mapstructure:"db_port" validate:"required_if=StoreDriver mysql"`
	DBName    string `mapstructure:"db_name" validate:"required_if=StoreDriver mysql"`
	DBMigrate bool   `mapstructure:"db_migrate"` // apply embedded migrations at startup

	MongoURI string `mapstructure:"mongo_uri" validate:"required_if=StoreDriver mongo"`
	MongoDB  string `mapstructure:"mongo_db" validate:"required_if=StoreDriver mongo"`

	MemoryFixtures string `mapstructure:"memory_fixtures"` // JSON seed file for the memory store

	JWTSecret    string        `mapstructure:"jwt_secret" validate:"required,min=16"`
	StoreTimeout time.Duration `mapstructure:"store_timeout" validate:"gt=0"`

	RabbitMQURL   string `mapstructure:"rabbitmq_url" validate:"required_if=EventsEnabled true"`
	EventsEnabled bool   `mapstructure:"events_enabled"`

	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`

	OTLPEndpoint string `mapstructure:"otel_exporter_otlp_endpoint"` // tracing is off when empty
	ServiceName  string `mapstructure:"otel_service_name"`
}

var defaults = map[string]any{
	"app_env":              "dev",
	"app_port":             "8080",
	"log_level":            "info",
	"store_driver":         DriverMySQL,
	"db_host":              "127.0.0.1",
	"db_port":              "3306",
	"db_migrate":           false,
	"mongo_db":             "tutoring",
	"store_timeout":        "5s",
	"events_enabled":       false,
	"cors_allowed_origins": "*",
	"otel_service_name":    "tutoring-scheduler",
}

var keys = []string{
	"app_env", "app_port", "log_level", "store_driver",
	"db_user", "db_pass", "db_host", "db_port", "db_name", "db_migrate",
	"mongo_uri", "mongo_db", "memory_fixtures",
	"jwt_secret", "store_timeout", "rabbitmq_url", "events_enabled",
	"cors_allowed_origins", "otel_exporter_otlp_endpoint", "otel_service_name",
}

// Load reads .env (if any) and the environment into a validated Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}
	return FromViper(viper.New())
}

// FromViper populates a Config from v after installing defaults and
// environment bindings on it.
func FromViper(v *viper.Viper) (Config, error) {
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
