package aggregate

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Snapshot is the latest completed aggregation cycle.
type Snapshot struct {
	Markets   []UnifiedMarket
	UpdatedAt time.Time
}

// Refresher drives periodic aggregation cycles and retains the most
// recent result for the API server and the archiver to read.
type Refresher struct {
	agg      *Aggregator
	interval time.Duration
	logger   *slog.Logger

	mu     sync.RWMutex
	latest Snapshot
}

func NewRefresher(agg *Aggregator, interval time.Duration, logger *slog.Logger) *Refresher {
	return &Refresher{
		agg:      agg,
		interval: interval,
		logger:   logger.With("component", "refresher"),
	}
}

// Start runs an immediate cycle and then one per interval until the
// context is cancelled.
func (r *Refresher) Start(ctx context.Context) {
	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopped", "reason", ctx.Err())
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	markets := r.agg.FetchAllMarkets(ctx)
	if len(markets) == 0 && len(r.Latest().Markets) > 0 {
		// Both sources empty this cycle; keep showing the last view.
		r.logger.Warn("empty cycle, keeping previous snapshot")
		return
	}

	r.mu.Lock()
	r.latest = Snapshot{Markets: markets, UpdatedAt: time.Now()}
	r.mu.Unlock()
}

// Latest returns the most recent snapshot. The caller must treat the
// contained slice as read-only.
func (r *Refresher) Latest() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// TokenIndex maps primary contract identifiers to short codes, for
// folding streamed trades into the right history series.
func (r *Refresher) TokenIndex() map[string]string {
	snap := r.Latest()
	index := make(map[string]string, len(snap.Markets))
	for i := range snap.Markets {
		if snap.Markets[i].TokenID != "" {
			index[snap.Markets[i].TokenID] = snap.Markets[i].Short
		}
	}
	return index
}
