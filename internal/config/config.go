package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Port          string `yaml:"port" env:"PORT" env-default:"8080"`
	AllowedOrigin string `yaml:"allowed_origin" env:"ALLOWED_ORIGIN" env-default:"http://127.0.0.1:3000"`
	Environment   string `yaml:"environment" env:"ENVIRONMENT" env-default:"development"`
	LogLevel      string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	UpstreamURL     string        `yaml:"upstream_url" env:"UPSTREAM_URL" env-default:"http://127.0.0.1:5000/api"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout" env:"UPSTREAM_TIMEOUT" env-default:"10s"`
	BreakerFailures uint32        `yaml:"breaker_failures" env:"BREAKER_FAILURES" env-default:"5"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown" env:"BREAKER_COOLDOWN" env-default:"30s"`

	DatabaseURL   string        `yaml:"database_url" env:"DATABASE_URL"`
	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
	SnapshotTTL   time.Duration `yaml:"snapshot_ttl" env:"SNAPSHOT_TTL" env-default:"20s"`

	AuthSecret string        `yaml:"auth_secret" env:"AUTH_SECRET"`
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"8h"`
	ManagerPIN string        `yaml:"manager_pin" env:"MANAGER_PIN"`
}

// Load reads CONFIG_PATH when set and lets the environment override it.
func Load() (Config, error) {
	var cfg Config
	var err error
	if path := strings.TrimSpace(os.Getenv("CONFIG_PATH")); path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg.AuthSecret = strings.TrimSpace(cfg.AuthSecret)
	cfg.ManagerPIN = strings.TrimSpace(cfg.ManagerPIN)
	cfg.UpstreamURL = strings.TrimRight(strings.TrimSpace(cfg.UpstreamURL), "/")
	if cfg.SnapshotTTL < time.Second {
		cfg.SnapshotTTL = 20 * time.Second
	}
	if cfg.SessionTTL < time.Minute {
		cfg.SessionTTL = 8 * time.Hour
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}
