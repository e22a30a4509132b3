package aggregate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mercuryhq/marketbridge/internal/history"
	"github.com/mercuryhq/marketbridge/internal/kalshi/api"
	"github.com/mercuryhq/marketbridge/internal/polymarket/gamma"
)

const fetchTimeout = 20 * time.Second

// Aggregator owns the exchange clients and the price history recorder
// and produces the unified market view. It never returns an error: a
// failed source degrades to stale or missing data, and a cycle with
// nothing from either source yields an empty list.
type Aggregator struct {
	gamma   *gamma.Client
	kalshi  *api.Client
	history *history.Recorder
	primary Source
	logger  *slog.Logger
}

func New(gc *gamma.Client, kc *api.Client, rec *history.Recorder, primary Source, logger *slog.Logger) *Aggregator {
	if primary != SourceKalshi {
		primary = SourcePolymarket
	}
	return &Aggregator{
		gamma:   gc,
		kalshi:  kc,
		history: rec,
		primary: primary,
		logger:  logger.With("component", "aggregator"),
	}
}

// FetchAllMarkets runs one aggregation cycle: the four listings are
// fetched concurrently, joined, normalized, merged in a fixed order and
// sorted by 24h volume. Overlapping cycles are safe; the cache and the
// history recorder are the only shared state and both upsert.
func (a *Aggregator) FetchAllMarkets(ctx context.Context) []UnifiedMarket {
	logger := a.logger.With("cycle", uuid.NewString()[:8])
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	poly := SourceQuotes{Source: SourcePolymarket}
	kalshi := SourceQuotes{Source: SourceKalshi}

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		events, err := a.gamma.GetEvents(ctx)
		if err != nil {
			logger.Warn("polymarket events unavailable", "error", err)
			return
		}
		for _, e := range events {
			if q, ok := NormalizePolymarketEvent(e); ok {
				poly.Grouped = append(poly.Grouped, q)
			}
		}
	}()
	go func() {
		defer wg.Done()
		markets, err := a.gamma.GetMarkets(ctx)
		if err != nil {
			logger.Warn("polymarket markets unavailable", "error", err)
			return
		}
		for _, m := range markets {
			if q, ok := NormalizePolymarketMarket(m); ok {
				poly.Ungrouped = append(poly.Ungrouped, q)
			}
		}
	}()
	go func() {
		defer wg.Done()
		events, err := a.kalshi.GetEvents(ctx)
		if err != nil {
			logger.Warn("kalshi events unavailable", "error", err)
			return
		}
		for _, e := range events {
			if q, ok := NormalizeKalshiEvent(e); ok {
				kalshi.Grouped = append(kalshi.Grouped, q)
			}
		}
	}()
	go func() {
		defer wg.Done()
		markets, err := a.kalshi.GetAllMarkets(ctx)
		if err != nil {
			logger.Warn("kalshi markets unavailable", "error", err)
			return
		}
		for _, m := range markets {
			if q, ok := NormalizeKalshiMarket(m); ok {
				kalshi.Ungrouped = append(kalshi.Ungrouped, q)
			}
		}
	}()
	wg.Wait()

	primary, secondary := poly, kalshi
	if a.primary == SourceKalshi {
		primary, secondary = kalshi, poly
	}

	now := time.Now()
	merged := Merge(primary, secondary, now)
	for i := range merged {
		a.history.Record(merged[i].Short, merged[i].PriceCents, now)
	}

	logger.Info("aggregated markets",
		"unified", len(merged),
		"poly_grouped", len(poly.Grouped),
		"poly_flat", len(poly.Ungrouped),
		"kalshi_grouped", len(kalshi.Grouped),
		"kalshi_flat", len(kalshi.Ungrouped),
	)
	return merged
}

// PriceHistory returns the recorded series for a short code, oldest
// first.
func (a *Aggregator) PriceHistory(short string) []history.Sample {
	return a.history.Read(short)
}
