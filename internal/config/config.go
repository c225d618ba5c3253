package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" env:"KIDS_SERVER_PORT"`
	} `yaml:"server"`
	Log struct {
		Mode string `yaml:"mode" env:"KIDS_LOG_MODE"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr" env:"KIDS_REDIS_ADDR"`
		Password string `yaml:"password" env:"KIDS_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"KIDS_REDIS_DB"`
		TTL      string `yaml:"ttl" env:"KIDS_REDIS_TTL"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"KIDS_POSTGRES_URL"`
	} `yaml:"postgres"`
	Activity struct {
		CacheTTL string `yaml:"cacheTTL" env:"KIDS_ACTIVITY_CACHE_TTL"`
	} `yaml:"activity"`
	Admin struct {
		BaseURL string `yaml:"baseURL" env:"KIDS_ADMIN_BASE_URL"`
		Token   string `yaml:"token" env:"KIDS_ADMIN_TOKEN"`
		Timeout string `yaml:"timeout" env:"KIDS_ADMIN_TIMEOUT"`
	} `yaml:"admin"`
}

// Load reads YAML config from path and overlays any KIDS_* environment variables.
// A missing file is not an error; the environment alone can configure the service.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("decode %s: %w", path, err)
			}
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
