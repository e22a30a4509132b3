package httpclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestFallbackPrefersPreferred(t *testing.T) {
	preferred := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("proxy"))
	}))
	defer preferred.Close()
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("direct"))
	}))
	defer direct.Close()

	f := NewFallback(preferred.URL, direct.URL, time.Second, nil, discardLogger())

	body, err := f.Get(context.Background(), "/markets")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(body) != "proxy" {
		t.Errorf("body = %q, want the preferred endpoint's", body)
	}
}

func TestFallbackStickyDegradation(t *testing.T) {
	var preferredHits atomic.Int32
	preferred := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		preferredHits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer preferred.Close()
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("direct"))
	}))
	defer direct.Close()

	state := &DegradedState{}
	f := NewFallback(preferred.URL, direct.URL, time.Second, state, discardLogger())
	ctx := context.Background()

	body, err := f.Get(ctx, "/markets")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(body) != "direct" {
		t.Errorf("body = %q, want the direct endpoint's", body)
	}
	if !state.Degraded() {
		t.Error("state should be degraded after the preferred failure")
	}

	// Subsequent calls skip the preferred endpoint entirely.
	if _, err := f.Get(ctx, "/markets"); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got := preferredHits.Load(); got != 1 {
		t.Errorf("preferred endpoint hit %d times, want exactly 1", got)
	}
}

func TestDegradedStateSharedAcrossClients(t *testing.T) {
	var preferredHits atomic.Int32
	preferred := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		preferredHits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer preferred.Close()
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer direct.Close()

	state := &DegradedState{}
	a := NewFallback(preferred.URL, direct.URL, time.Second, state, discardLogger())
	b := NewFallback(preferred.URL, direct.URL, time.Second, state, discardLogger())
	ctx := context.Background()

	if _, err := a.Get(ctx, "/x"); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if _, err := b.Get(ctx, "/y"); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got := preferredHits.Load(); got != 1 {
		t.Errorf("preferred endpoint hit %d times across clients, want 1", got)
	}
}

func TestFallbackNoPreferred(t *testing.T) {
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("direct"))
	}))
	defer direct.Close()

	f := NewFallback("", direct.URL, time.Second, nil, discardLogger())
	body, err := f.Get(context.Background(), "/x")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(body) != "direct" {
		t.Errorf("body = %q, want direct", body)
	}
}

func TestFallbackBothFail(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	f := NewFallback(down.URL, down.URL, time.Second, nil, discardLogger())
	_, err := f.Get(context.Background(), "/x")

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want a StatusError", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", statusErr.StatusCode)
	}
}

func TestGetResource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"cursor":"abc"}`))
	}))
	defer srv.Close()

	type page struct {
		Cursor string `json:"cursor"`
	}
	got, err := GetResource[page](context.Background(), srv.Client(), srv.URL, "/markets", []int{200})
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Cursor != "abc" {
		t.Errorf("cursor = %q, want abc", got.Cursor)
	}
}
