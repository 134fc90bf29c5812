package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Service     ServiceConfig     `mapstructure:"service"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Stripe      StripeConfig      `mapstructure:"stripe"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Entitlement EntitlementConfig `mapstructure:"entitlement"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	Output      string `mapstructure:"output"`
	FilePath    string `mapstructure:"file_path"`
	Development bool   `mapstructure:"development"`
	// DBLevel controls the gorm query log: silent, error, warn or debug.
	DBLevel       string        `mapstructure:"db_level"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// LoadConfig reads CONFIG_PATH (default ./configs/entitlement.yaml) and
// applies ENTITLEMENT_* environment overrides.
func LoadConfig() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/entitlement.yaml"
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	return LoadFile(absPath)
}

// LoadFile reads a single YAML file. An empty path loads defaults and env only.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ENTITLEMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Entitlement.AccessWindow <= 0 {
		return fmt.Errorf("entitlement.access_window must be positive")
	}
	if c.Entitlement.PreviewLimit < 0 {
		return fmt.Errorf("entitlement.preview_limit must not be negative")
	}
	if _, err := ParseLevel(c.Entitlement.OneTimeLevel); err != nil {
		return err
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "entitlement-service")
	v.SetDefault("service.environment", "development")
	v.SetDefault("service.version", "dev")
	v.SetDefault("service.client_url", "http://localhost:3000")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "entitlement")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")
	v.SetDefault("database.migrate_directory", false)

	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.grpc.host", "0.0.0.0")
	v.SetDefault("server.grpc.port", 9090)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.db_level", "warn")
	v.SetDefault("log.slow_threshold", "200ms")

	// Secrets carry empty defaults so AutomaticEnv can bind them on Unmarshal.
	v.SetDefault("database.password", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("redis.password", "")

	v.SetDefault("stripe.currency", "eur")
	v.SetDefault("stripe.success_path", "/payment-success")
	v.SetDefault("stripe.cancel_path", "/pricing")
	v.SetDefault("stripe.portal_return_path", "/account")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.catalog_ttl", "10m")
	v.SetDefault("redis.channel", "entitlement.changed")

	v.SetDefault("entitlement.access_window", "720h")
	v.SetDefault("entitlement.preview_limit", 3)
	v.SetDefault("entitlement.one_time_level", "full")
	v.SetDefault("entitlement.checkout_timeout", "10s")
	v.SetDefault("entitlement.sweeper_interval", "5m")
	v.SetDefault("entitlement.sweeper_grace", "15m")
}
