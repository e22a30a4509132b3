package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/mercuryhq/marketbridge/internal/aggregate"
	"github.com/mercuryhq/marketbridge/internal/cache"
	"github.com/mercuryhq/marketbridge/internal/history"
	kalshiapi "github.com/mercuryhq/marketbridge/internal/kalshi/api"
	"github.com/mercuryhq/marketbridge/internal/orderbook"
	"github.com/mercuryhq/marketbridge/internal/polymarket/clob"
	"github.com/mercuryhq/marketbridge/internal/polymarket/gamma"
	"github.com/mercuryhq/marketbridge/internal/polymarket/stream"
	"github.com/mercuryhq/marketbridge/internal/server"
	"github.com/mercuryhq/marketbridge/internal/store"
	"github.com/mercuryhq/marketbridge/internal/telemetry"
	"github.com/mercuryhq/marketbridge/pkg/httpclient"
)

func main() {
	configPath := flag.String("config", "configs/bridge/config.yaml", "path to config file")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := readConfig(configPath)
	if err != nil {
		log.Fatalf("Couldn't read config: %v", err)
	}

	logger := newLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var c cache.Cache
	switch cfg.Cache.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		c = cache.NewRedis(client, "bridge:", cfg.Cache.Retention.Duration(), logger)
		logger.Info("using redis cache", "addr", cfg.Cache.RedisAddr)
	default:
		c = cache.NewMemory()
	}

	// All proxied sources go through the same local backend, so one
	// failure degrades them together.
	proxyState := &httpclient.DegradedState{}
	polyTimeout := cfg.Sources.Polymarket.Timeout.Duration()
	kalshiTimeout := cfg.Sources.Kalshi.Timeout.Duration()

	gammaClient := gamma.New(
		httpclient.NewFallback(cfg.Sources.Polymarket.ProxyURL, cfg.Sources.Polymarket.GammaURL, polyTimeout, proxyState, logger), c)
	clobClient := clob.New(
		httpclient.NewFallback(cfg.Sources.Polymarket.ClobProxyURL, cfg.Sources.Polymarket.ClobURL, polyTimeout, proxyState, logger), c)
	kalshiClient := kalshiapi.New(
		httpclient.NewFallback(cfg.Sources.Kalshi.ProxyURL, cfg.Sources.Kalshi.APIURL, kalshiTimeout, proxyState, logger), c)

	recorder := history.NewRecorder()
	agg := aggregate.New(gammaClient, kalshiClient, recorder, aggregate.Source(cfg.Aggregation.PrimarySource), logger)
	refresher := aggregate.NewRefresher(agg, cfg.Aggregation.RefreshInterval.Duration(), logger)
	go refresher.Start(ctx)

	if cfg.Database.Enabled {
		st, err := store.Open(ctx, store.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Database,
			PoolSize: cfg.Database.PoolSize,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			log.Fatalf("Couldn't connect to database: %v", err)
		}
		defer st.Close()
		logger.Info("snapshot archive enabled", "database", cfg.Database.Database)

		archiver := store.NewArchiver(st, refresher, cfg.Database.SnapshotInterval.Duration(), logger)
		go archiver.Run(ctx)
	}

	if cfg.Stream.Enabled {
		runner := stream.NewRunner(cfg.Sources.Polymarket.WSURL, refresher, recorder, logger)
		go runner.Run(ctx)
	}

	var telemetryClient *telemetry.Client
	if cfg.Telemetry.URL != "" {
		telemetryClient = telemetry.New(
			httpclient.NewFallback("", cfg.Telemetry.URL, cfg.Telemetry.Timeout.Duration(), nil, logger), c, logger)
	}

	books := orderbook.NewService(clobClient, kalshiClient)
	srv := server.New(cfg.Server.Addr, refresher, recorder, books, telemetryClient, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	levels := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: levels[level],
	}))
}
