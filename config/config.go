// Package config reads the server configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	HTTP    HTTPConfig
	Storage StorageConfig
	Redis   RedisConfig
	Log     LogConfig
}

type HTTPConfig struct {
	Port           string        `env:"HTTP_PORT" env-default:"3001"`
	ReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout    time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" env-default:"*" env-separator:","`
	StaticDir      string        `env:"STATIC_DIR" env-default:"./web"`
}

type StorageConfig struct {
	DBPath string `env:"DB_PATH" env-default:"./kanban.db"`
	Key    string `env:"STORAGE_KEY" env-default:"task-board-storage"`
}

type RedisConfig struct {
	// URL enables the snapshot cache, e.g. redis://localhost:6379/0.
	URL string        `env:"REDIS_URL" env-default:""`
	TTL time.Duration `env:"REDIS_TTL" env-default:"5m"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"text"`
}

// Load reads the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}

	origins := cfg.HTTP.AllowedOrigins[:0]
	for _, o := range cfg.HTTP.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	cfg.HTTP.AllowedOrigins = origins

	if strings.TrimSpace(cfg.HTTP.Port) == "" {
		return Config{}, fmt.Errorf("HTTP_PORT must not be empty")
	}
	if cfg.Storage.Key == "" {
		return Config{}, fmt.Errorf("STORAGE_KEY must not be empty")
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return Config{}, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.Log.Format)
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c HTTPConfig) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}
