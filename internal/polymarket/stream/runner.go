package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/mercuryhq/marketbridge/internal/history"
	"github.com/mercuryhq/marketbridge/internal/price"
)

const (
	initialBackoff   = time.Second
	maxBackoff       = time.Minute
	maxSubscriptions = 500
	// resubscribeAfter bounds how stale a connection's token set can
	// get; the active market list shifts as the refresher cycles.
	resubscribeAfter = 10 * time.Minute
)

// TokenIndexer maps contract identifiers to short codes; satisfied by
// aggregate.Refresher.
type TokenIndexer interface {
	TokenIndex() map[string]string
}

// Runner keeps a market-channel connection alive and folds streamed
// trade prices into the shared history recorder, giving charts
// sub-cycle resolution.
type Runner struct {
	url     string
	index   TokenIndexer
	history *history.Recorder
	logger  *slog.Logger
}

func NewRunner(url string, index TokenIndexer, rec *history.Recorder, logger *slog.Logger) *Runner {
	return &Runner{
		url:     url,
		index:   index,
		history: rec,
		logger:  logger.With("component", "stream_runner"),
	}
}

// Run connects, subscribes, and consumes until the context is
// cancelled, reconnecting with exponential backoff. The connection is
// recycled periodically so subscriptions track the current market set.
func (r *Runner) Run(ctx context.Context) {
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		if err := r.runOnce(ctx); err != nil {
			r.logger.Warn("stream session ended", "error", err, "retry_in", backoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (r *Runner) runOnce(ctx context.Context) error {
	tokens := r.tokens()
	if len(tokens) == 0 {
		return nil
	}

	c, err := Dial(ctx, r.url, r.logger)
	if err != nil {
		return err
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), defaultCloseTimeout)
	defer cancel()
	defer c.Close(closeCtx)

	if err := c.SubscribeMarket(ctx, tokens, false); err != nil {
		return err
	}

	sessionCtx, stop := context.WithTimeout(ctx, resubscribeAfter)
	defer stop()

	for {
		msg, err := c.ReadMessage(sessionCtx)
		if err != nil {
			if sessionCtx.Err() != nil {
				return nil
			}
			return err
		}
		r.consume(msg)
	}
}

func (r *Runner) tokens() []string {
	index := r.index.TokenIndex()
	tokens := make([]string, 0, min(len(index), maxSubscriptions))
	for token := range index {
		if len(tokens) == maxSubscriptions {
			break
		}
		tokens = append(tokens, token)
	}
	return tokens
}

func (r *Runner) consume(msg *Message) {
	if msg.EventType != LastTradePriceEvent || msg.LastTradePrice == nil {
		return
	}

	short, ok := r.index.TokenIndex()[msg.LastTradePrice.AssetID]
	if !ok {
		return
	}

	p, err := price.Parse(msg.LastTradePrice.Price)
	if err != nil {
		r.logger.Warn("couldn't parse trade price", "price", msg.LastTradePrice.Price, "error", err)
		return
	}
	cents := p.Cents()
	if cents <= 0 || cents >= 100 {
		return
	}

	r.history.Record(short, cents, time.Now())
}
