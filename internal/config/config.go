package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Store struct {
		Driver   string `yaml:"driver"`
		Path     string `yaml:"path"`
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Key      string `yaml:"key"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Log.Level = "info"
	cfg.Store.Driver = DriverFile
	cfg.Store.Path = "data/quiz_data.json"
	return cfg
}

// Load reads YAML config from path, then applies QUIZ_* environment
// overrides (QUIZ_STORE_DRIVER, QUIZ_REDIS_ADDR, ...). A missing file is not
// an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		case !errors.Is(err, fs.ErrNotExist):
			return cfg, err
		}
	}
	applyEnv(&cfg)
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	return cfg, nil
}

func applyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix("QUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	overrideString(v, "server.port", &cfg.Server.Port)
	overrideString(v, "log.level", &cfg.Log.Level)
	if v.IsSet("log.pretty") {
		cfg.Log.Pretty = v.GetBool("log.pretty")
	}
	overrideString(v, "store.driver", &cfg.Store.Driver)
	overrideString(v, "store.path", &cfg.Store.Path)
	overrideString(v, "store.cache_ttl", &cfg.Store.CacheTTL)
	overrideString(v, "redis.addr", &cfg.Redis.Addr)
	overrideString(v, "redis.password", &cfg.Redis.Password)
	if v.IsSet("redis.db") {
		cfg.Redis.DB = v.GetInt("redis.db")
	}
	overrideString(v, "redis.key", &cfg.Redis.Key)
	overrideString(v, "postgres.url", &cfg.Postgres.URL)
	overrideString(v, "sqlite.path", &cfg.SQLite.Path)
}

func overrideString(v *viper.Viper, key string, dst *string) {
	if s := v.GetString(key); s != "" {
		*dst = s
	}
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
