package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryFreshnessBoundary(t *testing.T) {
	m := NewMemory()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	ctx := context.Background()
	m.Set(ctx, "k", []byte("v1"))

	ttl := 30 * time.Second
	fetchCalls := 0
	fetch := func(context.Context) ([]byte, error) {
		fetchCalls++
		return []byte("v2"), nil
	}

	// Inside the freshness window: served from cache, no fetch.
	now = now.Add(ttl - time.Millisecond)
	data, err := Fetch(ctx, m, "k", ttl, fetch)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if string(data) != "v1" || fetchCalls != 0 {
		t.Errorf("got %q with %d fetches, want cached v1 and 0 fetches", data, fetchCalls)
	}

	// At the boundary: a live fetch happens.
	now = now.Add(time.Millisecond)
	data, err = Fetch(ctx, m, "k", ttl, fetch)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if string(data) != "v2" || fetchCalls != 1 {
		t.Errorf("got %q with %d fetches, want fresh v2 and 1 fetch", data, fetchCalls)
	}
}

func TestFetchStaleOnError(t *testing.T) {
	m := NewMemory()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	ctx := context.Background()
	m.Set(ctx, "k", []byte("stale"))

	// Far past the TTL, with the live fetch failing.
	now = now.Add(time.Hour)
	data, err := Fetch(ctx, m, "k", time.Second, func(context.Context) ([]byte, error) {
		return nil, errors.New("upstream down")
	})
	if err != nil {
		t.Fatalf("expected stale payload, got error: %v", err)
	}
	if string(data) != "stale" {
		t.Errorf("got %q, want the stale payload", data)
	}
}

func TestFetchEmptyCachePropagatesError(t *testing.T) {
	m := NewMemory()
	wantErr := errors.New("upstream down")

	_, err := Fetch(context.Background(), m, "missing", time.Second, func(context.Context) ([]byte, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want the fetch error", err)
	}
}

func TestFetchStoresLiveResult(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := Fetch(ctx, m, "k", time.Second, func(context.Context) ([]byte, error) {
		return []byte("live"), nil
	})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	data, _, ok := m.Get(ctx, "k")
	if !ok || string(data) != "live" {
		t.Errorf("cache entry = %q ok=%v, want live payload stored", data, ok)
	}
}
