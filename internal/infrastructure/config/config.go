package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// 支持的账本存储驱动
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Endpoint struct {
	Name   string `toml:"name"`
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
	DSN    string `toml:"dsn"`
}

type Config struct {
	App struct {
		FiatCurrency string `toml:"fiat_currency"`
		LogLevel     string `toml:"log_level"`
		// 默认账本（CLI 命令读写的 endpoint）
		Ledger string `toml:"ledger"`
	} `toml:"app"`

	Server struct {
		Addr           string  `toml:"addr"`
		MaxRows        int     `toml:"max_rows"`
		RateLimitRPS   float64 `toml:"rate_limit_rps"`
		RateLimitBurst int     `toml:"rate_limit_burst"`
	} `toml:"server"`

	Binance struct {
		RestURL           string  `toml:"rest_url"`
		WsURL             string  `toml:"ws_url"`
		RequestsPerSecond float64 `toml:"requests_per_second"`
		MaxRetries        int     `toml:"max_retries"`
		TimeoutSeconds    int     `toml:"timeout_seconds"`
		// 只从环境变量读取
		APIKey    string `toml:"-"`
		APISecret string `toml:"-"`
	} `toml:"binance"`

	Endpoints []Endpoint `toml:"endpoints"`

	Cache struct {
		MemoryTTLMinutes int `toml:"memory_ttl_minutes"`
	} `toml:"cache"`

	Redis struct {
		Enabled    bool   `toml:"enabled"`
		Addr       string `toml:"addr"`
		Password   string `toml:"-"`
		DB         int    `toml:"db"`
		Prefix     string `toml:"prefix"`
		TTLSeconds int    `toml:"ttl_seconds"`
	} `toml:"redis"`

	Recorder struct {
		Symbols       []string `toml:"symbols"`
		PrintEveryMin int      `toml:"print_every_min"`
	} `toml:"recorder"`

	Sync struct {
		Symbols []string `toml:"symbols"`
	} `toml:"sync"`
}

// Load 读取 TOML 配置，再用环境变量（可选 .env）覆盖密钥
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := loadEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnv(cfg *Config) error {
	// .env 不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	applyEnv(cfg, os.Getenv)
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("BINANCE_API_KEY"); v != "" {
		cfg.Binance.APIKey = v
	}
	if v := getenv("BINANCE_API_SECRET"); v != "" {
		cfg.Binance.APISecret = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	// XGAINS_DSN_<NAME> 覆盖对应 endpoint 的 DSN
	for i := range cfg.Endpoints {
		key := "XGAINS_DSN_" + strings.ToUpper(cfg.Endpoints[i].Name)
		if v := getenv(key); v != "" {
			cfg.Endpoints[i].DSN = v
		}
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.App.FiatCurrency) == "" {
		cfg.App.FiatCurrency = "EUR"
	}
	cfg.App.FiatCurrency = strings.ToUpper(strings.TrimSpace(cfg.App.FiatCurrency))
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MaxRows <= 0 {
		cfg.Server.MaxRows = 1000
	}
	if cfg.Server.RateLimitRPS <= 0 {
		cfg.Server.RateLimitRPS = 20
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 40
	}

	if cfg.Binance.RestURL == "" {
		cfg.Binance.RestURL = "https://api.binance.com"
	}
	if cfg.Binance.WsURL == "" {
		cfg.Binance.WsURL = "wss://stream.binance.com:9443"
	}
	if cfg.Binance.RequestsPerSecond <= 0 {
		cfg.Binance.RequestsPerSecond = 10
	}
	if cfg.Binance.MaxRetries <= 0 {
		cfg.Binance.MaxRetries = 1
	}
	if cfg.Binance.TimeoutSeconds <= 0 {
		cfg.Binance.TimeoutSeconds = 10
	}

	if len(cfg.Endpoints) == 0 {
		cfg.Endpoints = []Endpoint{{Name: "main", Driver: DriverSQLite, Path: "xgains.db"}}
	}
	for i := range cfg.Endpoints {
		cfg.Endpoints[i].Name = strings.TrimSpace(cfg.Endpoints[i].Name)
		cfg.Endpoints[i].Driver = strings.ToLower(strings.TrimSpace(cfg.Endpoints[i].Driver))
		if cfg.Endpoints[i].Driver == "" {
			cfg.Endpoints[i].Driver = DriverSQLite
		}
	}
	if cfg.App.Ledger == "" {
		cfg.App.Ledger = cfg.Endpoints[0].Name
	}

	if cfg.Cache.MemoryTTLMinutes <= 0 {
		cfg.Cache.MemoryTTLMinutes = 15
	}

	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "xgains"
	}
	if cfg.Redis.TTLSeconds <= 0 {
		cfg.Redis.TTLSeconds = 86400
	}

	if cfg.Recorder.PrintEveryMin <= 0 {
		cfg.Recorder.PrintEveryMin = 5
	}
}

func validate(cfg *Config) error {
	seen := map[string]struct{}{}
	for _, ep := range cfg.Endpoints {
		if ep.Name == "" {
			return errors.New("endpoints: name is empty")
		}
		if _, dup := seen[ep.Name]; dup {
			return fmt.Errorf("endpoints: duplicate name %q", ep.Name)
		}
		seen[ep.Name] = struct{}{}

		switch ep.Driver {
		case DriverSQLite:
			if strings.TrimSpace(ep.Path) == "" {
				return fmt.Errorf("endpoints.%s: path empty for sqlite", ep.Name)
			}
		case DriverPostgres:
			if strings.TrimSpace(ep.DSN) == "" {
				return fmt.Errorf("endpoints.%s: dsn empty for postgres", ep.Name)
			}
		default:
			return fmt.Errorf("endpoints.%s: unknown driver %q", ep.Name, ep.Driver)
		}
	}
	if _, ok := seen[cfg.App.Ledger]; !ok {
		return fmt.Errorf("app.ledger %q is not a configured endpoint", cfg.App.Ledger)
	}

	if cfg.Redis.Enabled && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return errors.New("redis.addr empty but enabled")
	}

	cfg.Recorder.Symbols = normalizeSymbols(cfg.Recorder.Symbols)
	cfg.Sync.Symbols = normalizeSymbols(cfg.Sync.Symbols)
	return nil
}

// Endpoint 按名称查找
func (c *Config) Endpoint(name string) (Endpoint, bool) {
	for _, ep := range c.Endpoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return Endpoint{}, false
}

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
