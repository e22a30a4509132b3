package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mercuryhq/marketbridge/internal/cache"
	"github.com/mercuryhq/marketbridge/pkg/httpclient"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	fb := httpclient.NewFallback("", srv.URL, time.Second, nil, slog.New(slog.DiscardHandler))
	return New(fb, cache.NewMemory())
}

func TestGetAllMarketsPaging(t *testing.T) {
	pages := map[string]MarketPage{
		"": {
			Markets: []*Market{{Ticker: "A", Title: "a", Status: "open"}},
			Cursor:  "next1",
		},
		"next1": {
			Markets: []*Market{{Ticker: "B", Title: "b", Status: "open"}},
			Cursor:  "",
		},
	}

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		page := pages[r.URL.Query().Get("cursor")]
		json.NewEncoder(w).Encode(page)
	}))

	markets, err := c.GetAllMarkets(context.Background())
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(markets) != 2 || markets[0].Ticker != "A" || markets[1].Ticker != "B" {
		t.Errorf("markets = %+v, want A then B", markets)
	}
}

func TestGetAllMarketsServesStaleOnFailure(t *testing.T) {
	healthy := true
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(MarketPage{
			Markets: []*Market{{Ticker: "A", Title: "a", Status: "open"}},
		})
	}))
	ctx := context.Background()

	if _, err := c.GetAllMarkets(ctx); err != nil {
		t.Fatalf("warm-up fetch failed: %v", err)
	}

	// With the upstream down, the cached listing keeps serving.
	healthy = false
	markets, err := c.GetAllMarkets(ctx)
	if err != nil {
		t.Fatalf("expected cached markets, got error: %v", err)
	}
	if len(markets) != 1 || markets[0].Ticker != "A" {
		t.Errorf("markets = %+v, want the cached listing", markets)
	}
}

func TestGetEvents(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("with_nested_markets") != "true" {
			t.Error("expected nested markets to be requested")
		}
		json.NewEncoder(w).Encode(EventPage{
			Events: []*Event{{
				EventTicker: "RACE",
				Title:       "Who wins the race?",
				Markets: []*Market{
					{Ticker: "RACE-X", Title: "X wins", Status: "open", LastPrice: 62},
				},
			}},
		})
	}))

	events, err := c.GetEvents(context.Background())
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(events) != 1 || len(events[0].Markets) != 1 {
		t.Fatalf("events = %+v, want one event with one market", events)
	}
	if events[0].Markets[0].LastPrice != 62 {
		t.Errorf("last price = %d, want 62", events[0].Markets[0].LastPrice)
	}
}

func TestGetOrderbook(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets/RACE-X/orderbook" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(orderbookResponse{Orderbook: Orderbook{
			Yes: [][]int{{45, 100}, {44, 250}},
			No:  [][]int{{54, 80}},
		}})
	}))

	book, err := c.GetOrderbook(context.Background(), "RACE-X")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(book.Yes) != 2 || book.Yes[0][0] != 45 {
		t.Errorf("yes side = %v, want two levels from 45", book.Yes)
	}
}
