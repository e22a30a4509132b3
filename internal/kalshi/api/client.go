// Package api is used to call Kalshi's public trade API endpoints.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mercuryhq/marketbridge/internal/cache"
	"github.com/mercuryhq/marketbridge/pkg/httpclient"
)

const (
	marketsTTL = 30 * time.Second
	eventsTTL  = 30 * time.Second
	bookTTL    = 5 * time.Second

	pageLimit = 200
	// maxPages caps cursor walks; the dashboard only needs the most
	// liquid slice of the exchange, not the full catalogue.
	maxPages = 5
)

type Client struct {
	http  *httpclient.Fallback
	cache cache.Cache
}

func New(http *httpclient.Fallback, c cache.Cache) *Client {
	return &Client{http: http, cache: c}
}

type Market struct {
	Ticker      string `json:"ticker"`
	EventTicker string `json:"event_ticker"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Status      string `json:"status"`
	Result      string `json:"result"`

	// Prices in cents
	YesBid    int `json:"yes_bid"`
	YesAsk    int `json:"yes_ask"`
	LastPrice int `json:"last_price"`

	Volume       int64 `json:"volume"`
	Volume24h    int64 `json:"volume_24h"`
	OpenInterest int64 `json:"open_interest"`
	Liquidity    int64 `json:"liquidity"`

	CloseTime      string `json:"close_time"`
	ExpirationTime string `json:"expiration_time"`
}

type MarketPage struct {
	Markets []*Market `json:"markets"`
	Cursor  string    `json:"cursor"`
}

type Event struct {
	EventTicker  string    `json:"event_ticker"`
	SeriesTicker string    `json:"series_ticker"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	Markets      []*Market `json:"markets"`
}

type EventPage struct {
	Events []*Event `json:"events"`
	Cursor string   `json:"cursor"`
}

type Orderbook struct {
	// Levels as [price_cents, quantity] pairs.
	Yes [][]int `json:"yes"`
	No  [][]int `json:"no"`
}

type orderbookResponse struct {
	Orderbook Orderbook `json:"orderbook"`
}

// GetAllMarkets walks the cursor-paginated market listing and returns
// the open markets, newest cursor first. The assembled list is cached
// as one payload so a partially failed walk never goes stale-served.
func (c *Client) GetAllMarkets(ctx context.Context) ([]*Market, error) {
	body, err := cache.Fetch(ctx, c.cache, "kalshi:/markets?status=open", marketsTTL, c.fetchAllMarkets)
	if err != nil {
		return nil, fmt.Errorf("couldn't get markets: %w", err)
	}

	var markets []*Market
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("couldn't decode markets: %w", err)
	}
	return markets, nil
}

func (c *Client) fetchAllMarkets(ctx context.Context) ([]byte, error) {
	markets := []*Market{}
	cursor := ""

	for page := 0; page < maxPages; page++ {
		endpoint := fmt.Sprintf("/markets?status=open&limit=%d", pageLimit)
		if cursor != "" {
			endpoint += "&cursor=" + cursor
		}

		body, err := c.http.Get(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("couldn't get markets for cursor %q: %w", cursor, err)
		}

		p := &MarketPage{}
		if err := json.Unmarshal(body, p); err != nil {
			return nil, fmt.Errorf("couldn't decode market page: %w", err)
		}

		markets = append(markets, p.Markets...)
		if p.Cursor == "" {
			break
		}
		cursor = p.Cursor
	}

	return json.Marshal(markets)
}

// GetEvents returns open events with their markets nested.
func (c *Client) GetEvents(ctx context.Context) ([]*Event, error) {
	endpoint := fmt.Sprintf("/events?status=open&with_nested_markets=true&limit=%d", pageLimit)

	body, err := cache.Fetch(ctx, c.cache, "kalshi:"+endpoint, eventsTTL, func(ctx context.Context) ([]byte, error) {
		return c.http.Get(ctx, endpoint)
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't get events: %w", err)
	}

	p := &EventPage{}
	if err := json.Unmarshal(body, p); err != nil {
		return nil, fmt.Errorf("couldn't decode events: %w", err)
	}
	return p.Events, nil
}

// GetOrderbook fetches the order book for a market ticker.
func (c *Client) GetOrderbook(ctx context.Context, ticker string) (*Orderbook, error) {
	endpoint := "/markets/" + ticker + "/orderbook"

	body, err := cache.Fetch(ctx, c.cache, "kalshi:"+endpoint, bookTTL, func(ctx context.Context) ([]byte, error) {
		return c.http.Get(ctx, endpoint)
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't get orderbook for %s: %w", ticker, err)
	}

	resp := &orderbookResponse{}
	if err := json.Unmarshal(body, resp); err != nil {
		return nil, fmt.Errorf("couldn't decode orderbook for %s: %w", ticker, err)
	}
	return &resp.Orderbook, nil
}
