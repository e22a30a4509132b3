// Package telemetry reads the trading bot's health and log endpoints.
// The bot is a separate process that is frequently not running; every
// operation degrades to an empty result rather than an error.
package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mercuryhq/marketbridge/internal/cache"
	"github.com/mercuryhq/marketbridge/pkg/httpclient"
)

const logsTTL = 3 * time.Second

// LogLine is one free-form entry from the bot's activity feed.
type LogLine struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Status is the bot's self-reported state.
type Status struct {
	Running bool      `json:"running"`
	Lines   []LogLine `json:"lines"`
}

type Client struct {
	http   *httpclient.Fallback
	cache  cache.Cache
	logger *slog.Logger
}

func New(http *httpclient.Fallback, c cache.Cache, logger *slog.Logger) *Client {
	return &Client{
		http:   http,
		cache:  c,
		logger: logger.With("component", "telemetry"),
	}
}

// BotLogs returns the bot's recent activity, or an empty stopped status
// when the bot is unreachable.
func (c *Client) BotLogs(ctx context.Context) Status {
	if c == nil {
		return Status{}
	}

	body, err := cache.Fetch(ctx, c.cache, "telemetry:/api/bot/logs", logsTTL, func(ctx context.Context) ([]byte, error) {
		return c.http.Get(ctx, "/api/bot/logs")
	})
	if err != nil {
		c.logger.Debug("bot unreachable", "error", err)
		return Status{}
	}

	var status Status
	if err := json.Unmarshal(body, &status); err != nil {
		c.logger.Debug("couldn't decode bot logs", "error", err)
		return Status{}
	}
	return status
}
