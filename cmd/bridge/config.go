package main

import (
	"fmt"
	"os"
	"time"

	configtypes "github.com/mercuryhq/marketbridge/internal/config"
	"go.yaml.in/yaml/v4"
)

type config struct {
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
	Server   struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Sources struct {
		Polymarket struct {
			// ProxyURL is the local backend's /proxy/polymarket prefix;
			// empty disables the proxy hop for this source.
			ProxyURL     string               `yaml:"proxy_url"`
			ClobProxyURL string               `yaml:"clob_proxy_url"`
			GammaURL     string               `yaml:"gamma_url"`
			ClobURL      string               `yaml:"clob_url"`
			WSURL        string               `yaml:"ws_url"`
			Timeout      configtypes.Duration `yaml:"timeout"`
		} `yaml:"polymarket"`
		Kalshi struct {
			ProxyURL string               `yaml:"proxy_url"`
			APIURL   string               `yaml:"api_url"`
			Timeout  configtypes.Duration `yaml:"timeout"`
		} `yaml:"kalshi"`
	} `yaml:"sources"`
	Telemetry struct {
		URL     string               `yaml:"url"`
		Timeout configtypes.Duration `yaml:"timeout"`
	} `yaml:"telemetry"`
	Aggregation struct {
		PrimarySource   string               `yaml:"primary_source"` // polymarket or kalshi
		RefreshInterval configtypes.Duration `yaml:"refresh_interval"`
	} `yaml:"aggregation"`
	Cache struct {
		Backend   string               `yaml:"backend"` // memory or redis
		RedisAddr string               `yaml:"redis_addr"`
		Retention configtypes.Duration `yaml:"retention"`
	} `yaml:"cache"`
	Database struct {
		Enabled          bool                 `yaml:"enabled"`
		Host             string               `yaml:"host"`
		Port             int                  `yaml:"port"`
		User             string               `yaml:"user"`
		Password         string               `yaml:"password"`
		Database         string               `yaml:"database"`
		PoolSize         int                  `yaml:"pool_size"`
		SSLMode          string               `yaml:"ssl_mode"`
		SnapshotInterval configtypes.Duration `yaml:"snapshot_interval"`
	} `yaml:"database"`
	Stream struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"stream"`
}

func readConfig(configPath *string) (*config, error) {
	rawConfig, err := os.ReadFile(*configPath)
	if err != nil {
		return nil, fmt.Errorf("couldn't read file %s: %w", *configPath, err)
	}

	cfg := &config{}
	if err = yaml.Unmarshal(rawConfig, cfg); err != nil {
		return nil, fmt.Errorf("couldn't parse config: %w", err)
	}

	applyDefaults(cfg)

	err = validateConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("couldn't validate config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Sources.Polymarket.Timeout == 0 {
		cfg.Sources.Polymarket.Timeout = configtypes.Duration(10 * time.Second)
	}
	if cfg.Sources.Kalshi.Timeout == 0 {
		cfg.Sources.Kalshi.Timeout = configtypes.Duration(10 * time.Second)
	}
	if cfg.Telemetry.Timeout == 0 {
		cfg.Telemetry.Timeout = configtypes.Duration(5 * time.Second)
	}
	if cfg.Aggregation.PrimarySource == "" {
		cfg.Aggregation.PrimarySource = "polymarket"
	}
	if cfg.Aggregation.RefreshInterval == 0 {
		cfg.Aggregation.RefreshInterval = configtypes.Duration(10 * time.Second)
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Database.SnapshotInterval == 0 {
		cfg.Database.SnapshotInterval = configtypes.Duration(time.Minute)
	}
	if pw := os.Getenv("BRIDGE_DB_PASSWORD"); pw != "" {
		cfg.Database.Password = pw
	}
}

func validateConfig(cfg *config) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}

	// Polymarket
	if cfg.Sources.Polymarket.GammaURL == "" {
		return fmt.Errorf("sources.polymarket.gamma_url is required")
	}
	if cfg.Sources.Polymarket.ClobURL == "" {
		return fmt.Errorf("sources.polymarket.clob_url is required")
	}
	if cfg.Stream.Enabled && cfg.Sources.Polymarket.WSURL == "" {
		return fmt.Errorf("sources.polymarket.ws_url is required when stream is enabled")
	}

	// Kalshi
	if cfg.Sources.Kalshi.APIURL == "" {
		return fmt.Errorf("sources.kalshi.api_url is required")
	}

	// Aggregation
	switch cfg.Aggregation.PrimarySource {
	case "polymarket", "kalshi":
	default:
		return fmt.Errorf("aggregation.primary_source must be polymarket or kalshi")
	}

	// Cache
	switch cfg.Cache.Backend {
	case "memory":
	case "redis":
		if cfg.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be memory or redis")
	}

	// Database
	if cfg.Database.Enabled {
		if cfg.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
			return fmt.Errorf("database.port must be between 1 and 65535")
		}
		if cfg.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
		if cfg.Database.Password == "" {
			return fmt.Errorf("database.password is required")
		}
		if cfg.Database.Database == "" {
			return fmt.Errorf("database.database is required")
		}
		if cfg.Database.PoolSize <= 0 {
			return fmt.Errorf("database.pool_size must be greater than 0")
		}
		if cfg.Database.SSLMode == "" {
			return fmt.Errorf("database.ssl_mode is required")
		}
	}

	return nil
}
