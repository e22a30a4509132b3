package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/mercuryhq/marketbridge/internal/aggregate"
)

// SnapshotSource is what the archiver reads; satisfied by
// aggregate.Refresher.
type SnapshotSource interface {
	Latest() aggregate.Snapshot
}

// Writer is the subset of Store the archiver needs.
type Writer interface {
	InsertSnapshotBatch(ctx context.Context, takenAt time.Time, markets []aggregate.UnifiedMarket) (int64, error)
}

// Archiver periodically persists the latest merged snapshot. A cycle
// that produced nothing new is skipped rather than written twice.
type Archiver struct {
	store    Writer
	source   SnapshotSource
	interval time.Duration
	logger   *slog.Logger

	lastWritten time.Time
}

func NewArchiver(store Writer, source SnapshotSource, interval time.Duration, logger *slog.Logger) *Archiver {
	return &Archiver{
		store:    store,
		source:   source,
		interval: interval,
		logger:   logger.With("component", "archiver"),
	}
}

// Run writes one batch per interval until the context is cancelled.
// Write failures are logged and retried next tick; a flaky database
// must not take the aggregation loop down with it.
func (a *Archiver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("archiver stopped", "reason", ctx.Err())
			return
		case <-ticker.C:
			a.archive(ctx)
		}
	}
}

func (a *Archiver) archive(ctx context.Context) {
	snap := a.source.Latest()
	if len(snap.Markets) == 0 || !snap.UpdatedAt.After(a.lastWritten) {
		return
	}

	n, err := a.store.InsertSnapshotBatch(ctx, snap.UpdatedAt, snap.Markets)
	if err != nil {
		a.logger.Error("couldn't archive snapshot", "error", err)
		return
	}

	a.lastWritten = snap.UpdatedAt
	a.logger.Debug("archived snapshot", "rows", n, "taken_at", snap.UpdatedAt)
}
