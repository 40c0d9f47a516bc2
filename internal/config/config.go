package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Backend struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"backend"`
	AI struct {
		APIKey   string `yaml:"api_key"`
		Endpoint string `yaml:"endpoint"`
		Model    string `yaml:"model"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"ai"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	// Cache.Backend is "", "memory" or "redis"; empty disables caching.
	Cache struct {
		Backend string `yaml:"backend"`
		TTL     string `yaml:"ttl"`
	} `yaml:"cache"`
}

const DefaultBackendURL = "http://localhost:3001"

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Log.Level = "info"
	cfg.Log.Format = "pretty"
	cfg.Backend.URL = DefaultBackendURL
	cfg.Backend.Timeout = "15s"
	cfg.AI.Timeout = "120s"
	return cfg
}

// Load reads YAML config from path on top of the defaults, then applies
// .env and environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load() // .env is optional

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Backend.URL = getEnv("STUDYTEC_BACKEND_URL", cfg.Backend.URL)
	cfg.AI.APIKey = getEnv("STUDYTEC_AI_KEY", cfg.AI.APIKey)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
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
