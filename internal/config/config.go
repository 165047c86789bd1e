package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	HTTPPort string

	StoreDriver   string
	PostgresDSN   string
	DefaultDomain string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBroker  string
	KafkaTopic   string
	KafkaGroupID string
	KafkaLogFile string

	JWTSecret        string
	LoginURL         string
	RelationsEnabled bool
	ProvisionOnStart bool
	ProvisionScope   string

	LogFile  string
	LogLevel string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("NERVETASK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("DEFAULT_DOMAIN", "localhost")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("KAFKA_TOPIC", "nervetask-events")
	v.SetDefault("KAFKA_GROUP_ID", "nervetask-logger-group")
	v.SetDefault("LOGIN_URL", "/login")
	v.SetDefault("RELATIONS_ENABLED", true)
	v.SetDefault("PROVISION_ON_START", true)
	v.SetDefault("PROVISION_SCOPE", "single")
	v.SetDefault("LOG_LEVEL", "info")
	return v
}

// Load reads NERVETASK_* variables, after merging a .env file when present.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := newViper()
	cfg := &Config{
		HTTPPort:         v.GetString("HTTP_PORT"),
		StoreDriver:      strings.ToLower(v.GetString("STORE_DRIVER")),
		PostgresDSN:      v.GetString("POSTGRES_DSN"),
		DefaultDomain:    v.GetString("DEFAULT_DOMAIN"),
		RedisAddr:        v.GetString("REDIS_ADDR"),
		RedisPassword:    v.GetString("REDIS_PASSWORD"),
		RedisDB:          v.GetInt("REDIS_DB"),
		KafkaBroker:      v.GetString("KAFKA_BROKER"),
		KafkaTopic:       v.GetString("KAFKA_TOPIC"),
		KafkaGroupID:     v.GetString("KAFKA_GROUP_ID"),
		KafkaLogFile:     v.GetString("KAFKA_LOG_FILE"),
		JWTSecret:        v.GetString("JWT_SECRET"),
		LoginURL:         v.GetString("LOGIN_URL"),
		RelationsEnabled: v.GetBool("RELATIONS_ENABLED"),
		ProvisionOnStart: v.GetBool("PROVISION_ON_START"),
		ProvisionScope:   v.GetString("PROVISION_SCOPE"),
		LogFile:          v.GetString("LOG_FILE"),
		LogLevel:         v.GetString("LOG_LEVEL"),
	}
	return cfg, nil
}

// Validate checks what the HTTP server and the provisioning command need.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres.dsn is not configured"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.StoreDriver))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt.secret is not configured"))
	}
	if c.DefaultDomain == "" {
		errs = append(errs, errors.New("default.domain is not configured"))
	}
	return errors.Join(errs...)
}
