package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mercuryhq/marketbridge/internal/aggregate"
	"github.com/mercuryhq/marketbridge/internal/cache"
	"github.com/mercuryhq/marketbridge/internal/history"
	"github.com/mercuryhq/marketbridge/internal/kalshi/api"
	"github.com/mercuryhq/marketbridge/internal/orderbook"
	"github.com/mercuryhq/marketbridge/pkg/httpclient"
)

type staticSource struct {
	snap aggregate.Snapshot
}

func (s *staticSource) Latest() aggregate.Snapshot { return s.snap }

func testServer(t *testing.T, src SnapshotSource, books *orderbook.Service) *Server {
	t.Helper()
	return New(":0", src, history.NewRecorder(), books, nil, slog.New(slog.DiscardHandler))
}

func TestGetActiveMarkets(t *testing.T) {
	src := &staticSource{snap: aggregate.Snapshot{
		Markets: []aggregate.UnifiedMarket{
			{Name: "Will BTC hit $100K?", Short: "BTC100K", PriceCents: 62},
		},
		UpdatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}}
	s := testServer(t, src, nil)

	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/markets/active", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Markets []aggregate.UnifiedMarket `json:"markets"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(resp.Markets) != 1 || resp.Markets[0].Short != "BTC100K" {
		t.Errorf("markets = %+v, want the snapshot", resp.Markets)
	}
}

func TestGetActiveMarketsEmptySnapshot(t *testing.T) {
	s := testServer(t, &staticSource{}, nil)

	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/markets/active", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if string(resp["markets"]) != "[]" {
		t.Errorf("markets = %s, want [] not null", resp["markets"])
	}
}

func TestGetMarketHistory(t *testing.T) {
	s := testServer(t, &staticSource{}, nil)
	s.history.Record("BTC100K", 62, time.Now())

	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/markets/BTC100K/history", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Short   string           `json:"short"`
		Samples []history.Sample `json:"samples"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.Short != "BTC100K" || len(resp.Samples) != 1 || resp.Samples[0].Price != 62 {
		t.Errorf("history = %+v, want one 62c sample", resp)
	}
}

func TestGetMarketBook(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"orderbook": {"yes": [[40, 120]], "no": [[55, 90]]}}`))
	}))
	defer upstream.Close()

	fb := httpclient.NewFallback("", upstream.URL, time.Second, nil, slog.New(slog.DiscardHandler))
	books := orderbook.NewService(nil, api.New(fb, cache.NewMemory()))

	src := &staticSource{snap: aggregate.Snapshot{
		Markets: []aggregate.UnifiedMarket{
			{Short: "BTC100K", KalshiTicker: "KXBTC-25DEC31"},
		},
	}}
	s := testServer(t, src, books)

	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/markets/BTC100K/book", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var depth orderbook.Depth
	if err := json.Unmarshal(rec.Body.Bytes(), &depth); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if depth.Source != "kalshi" || len(depth.Bids) != 1 || depth.Asks[0].PriceCents != 45 {
		t.Errorf("depth = %+v, want kalshi book with ask 45", depth)
	}
}

func TestGetMarketBookUnknownShort(t *testing.T) {
	s := testServer(t, &staticSource{}, nil)

	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/markets/NOPE/book", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetBotLogsWithoutBot(t *testing.T) {
	s := testServer(t, &staticSource{}, nil)

	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/bot/logs", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if string(resp["running"]) != "false" || string(resp["lines"]) != "[]" {
		t.Errorf("body = %s, want stopped status with empty lines", rec.Body.String())
	}
}

func TestGetHealth(t *testing.T) {
	src := &staticSource{snap: aggregate.Snapshot{
		Markets:   []aggregate.UnifiedMarket{{Short: "BTC100K"}},
		UpdatedAt: time.Now(),
	}}
	s := testServer(t, src, nil)

	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))

	var resp struct {
		Status  string `json:"status"`
		Markets int    `json:"markets"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.Status != "ok" || resp.Markets != 1 {
		t.Errorf("health = %+v, want ok/1", resp)
	}
}
